package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/animus-labs/tfbridge/internal/config"
	"github.com/animus-labs/tfbridge/internal/engine"
	"github.com/animus-labs/tfbridge/internal/engine/tekton"
	"github.com/animus-labs/tfbridge/internal/engine/tkn"
	"github.com/animus-labs/tfbridge/internal/platform/k8s"
	"github.com/animus-labs/tfbridge/internal/platform/objectstore"
	"github.com/animus-labs/tfbridge/internal/platform/postgres"
	platformsqlite "github.com/animus-labs/tfbridge/internal/platform/sqlite"
	"github.com/animus-labs/tfbridge/internal/reconcile"
	"github.com/animus-labs/tfbridge/internal/registry"
	registrypostgres "github.com/animus-labs/tfbridge/internal/registry/postgres"
	registrysqlite "github.com/animus-labs/tfbridge/internal/registry/sqlite"
	"github.com/animus-labs/tfbridge/internal/reports"
)

// openRegistry returns the configured registry and, for SQL backends, the
// database handle so callers can close and ping it.
func openRegistry(ctx context.Context, cfg config.Config) (registry.Registry, *sql.DB, error) {
	switch cfg.Registry {
	case config.RegistryPostgres:
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("registry database config: %w", err)
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("registry database: %w", err)
		}
		store := registrypostgres.NewRunStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db, nil
	case config.RegistrySQLite:
		dbCfg, err := platformsqlite.ConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("registry sqlite config: %w", err)
		}
		db, err := platformsqlite.Open(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("registry sqlite: %w", err)
		}
		store, err := registrysqlite.NewRunStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db, nil
	case config.RegistryMemory:
		return registry.NewMemory(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported registry backend %q", cfg.Registry)
	}
}

func newEngine(cfg config.Config, client *k8s.Client, logger *slog.Logger) (engine.Engine, error) {
	switch cfg.Engine {
	case config.EngineTekton:
		if client == nil {
			return nil, fmt.Errorf("tekton engine requires in-cluster kubernetes access")
		}
		return tekton.New(client, cfg.Namespace, logger)
	case config.EngineTkn:
		runner, err := tkn.NewExecRunner(cfg.TknBin)
		if err != nil {
			return nil, err
		}
		return tkn.New(runner, cfg.Namespace, logger)
	default:
		return nil, fmt.Errorf("unsupported engine %q", cfg.Engine)
	}
}

func newReconciler(cfg config.Config, reg registry.Registry, eng engine.Engine, logger *slog.Logger) (*reconcile.Reconciler, error) {
	return reconcile.New(reconcile.Options{
		Registry: reg,
		Engine:   eng,
		Table:    reconcile.DefaultReasonTable().Extend(cfg.Reasons),
		Policy:   cfg.ErrorPolicy,
		Logger:   logger,
	})
}

func newReportSource(ctx context.Context, cfg config.Config) (reports.Source, error) {
	switch cfg.Reports {
	case config.ReportsFile:
		return reports.NewFileSource(cfg.ReportsPath)
	case config.ReportsS3:
		storeCfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("reports object store config: %w", err)
		}
		client, err := objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			return nil, err
		}
		if err := objectstore.CheckBucket(ctx, client, storeCfg); err != nil {
			return nil, err
		}
		return reports.NewObjectSource(client, storeCfg)
	default:
		return nil, fmt.Errorf("unsupported reports backend %q", cfg.Reports)
	}
}
