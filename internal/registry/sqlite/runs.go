package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/animus-labs/tfbridge/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS bridge_runs (
	run_id TEXT PRIMARY KEY,
	execution_namespace TEXT NOT NULL,
	execution_name TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

const insertRunQuery = `INSERT INTO bridge_runs (run_id, execution_namespace, execution_name, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(run_id) DO NOTHING`

const selectRunQuery = `SELECT run_id, execution_namespace, execution_name, created_at
	FROM bridge_runs WHERE run_id = ?`

// RunStore is the registry kept in an embedded SQLite database file.
type RunStore struct {
	db *sql.DB
}

// NewRunStore applies the schema and returns a store on db.
func NewRunStore(ctx context.Context, db *sql.DB) (*RunStore, error) {
	if db == nil {
		return nil, errors.New("sqlite db is required")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Put(ctx context.Context, record domain.RunRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, insertRunQuery,
		strings.TrimSpace(record.RunID),
		strings.TrimSpace(record.Execution.Namespace),
		strings.TrimSpace(record.Execution.Name),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRun, record.RunID)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, runID string) (domain.RunRecord, error) {
	runID = strings.TrimSpace(runID)
	var record domain.RunRecord
	var createdAt string
	err := s.db.QueryRowContext(ctx, selectRunQuery, runID).
		Scan(&record.RunID, &record.Execution.Namespace, &record.Execution.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrUnknownRun, runID)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("select run: %w", err)
	}
	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	return record, nil
}
