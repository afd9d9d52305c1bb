// Package registry persists the mapping from bridge run-ids to pipeline
// executions.
//
// Records are written once at submission and never updated or deleted by the
// bridge. Put must detect an existing run-id atomically and report
// domain.ErrDuplicateRun instead of overwriting; Get reports
// domain.ErrUnknownRun for ids that were never stored.
package registry

import (
	"context"

	"github.com/animus-labs/tfbridge/internal/domain"
)

type Registry interface {
	Put(ctx context.Context, record domain.RunRecord) error
	Get(ctx context.Context, runID string) (domain.RunRecord, error)
}
