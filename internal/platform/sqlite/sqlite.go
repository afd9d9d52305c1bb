package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/animus-labs/tfbridge/internal/platform/env"
)

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

func ConfigFromEnv() (Config, error) {
	busy, err := env.Duration("REGISTRY_SQLITE_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Path:        env.String("REGISTRY_SQLITE_PATH", "/var/lib/tfbridge/registry.db"),
		BusyTimeout: busy,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("REGISTRY_SQLITE_PATH is required")
	}
	if c.BusyTimeout < 0 {
		return errors.New("REGISTRY_SQLITE_BUSY_TIMEOUT must be >= 0")
	}
	return nil
}

// Open opens (creating if needed) the database file. A single connection is
// used so writers serialize inside the process.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}
