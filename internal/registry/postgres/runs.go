package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/animus-labs/tfbridge/internal/domain"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const createRunsTableQuery = `CREATE TABLE IF NOT EXISTS bridge_runs (
	run_id TEXT PRIMARY KEY,
	execution_namespace TEXT NOT NULL,
	execution_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

const insertRunQuery = `INSERT INTO bridge_runs (run_id, execution_namespace, execution_name, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (run_id) DO NOTHING`

const selectRunQuery = `SELECT run_id, execution_namespace, execution_name, created_at
	FROM bridge_runs
	WHERE run_id = $1`

// RunStore is the PostgreSQL backed registry.
type RunStore struct {
	db DB
}

func NewRunStore(db DB) *RunStore {
	if db == nil {
		return nil
	}
	return &RunStore{db: db}
}

// Migrate creates the runs table when missing.
func (s *RunStore) Migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store not initialized")
	}
	if _, err := s.db.ExecContext(ctx, createRunsTableQuery); err != nil {
		return fmt.Errorf("create bridge_runs: %w", err)
	}
	return nil
}

func (s *RunStore) Put(ctx context.Context, record domain.RunRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store not initialized")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(
		ctx,
		insertRunQuery,
		strings.TrimSpace(record.RunID),
		strings.TrimSpace(record.Execution.Namespace),
		strings.TrimSpace(record.Execution.Name),
		createdAt.UTC(),
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
	if s == nil || s.db == nil {
		return domain.RunRecord{}, fmt.Errorf("run store not initialized")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return domain.RunRecord{}, fmt.Errorf("%w: empty run id", domain.ErrUnknownRun)
	}
	var record domain.RunRecord
	row := s.db.QueryRowContext(ctx, selectRunQuery, runID)
	if err := row.Scan(&record.RunID, &record.Execution.Namespace, &record.Execution.Name, &record.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrUnknownRun, runID)
		}
		return domain.RunRecord{}, fmt.Errorf("select run: %w", err)
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}
