// Package reconcile derives Test API run status from pipeline engine state.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/engine"
	"github.com/animus-labs/tfbridge/internal/registry"
)

// ErrorPolicy decides what an engine query failure turns into.
type ErrorPolicy string

const (
	// PolicyDegrade reports complete/failed with Degraded set.
	PolicyDegrade ErrorPolicy = "degrade"
	// PolicySurface returns domain.ErrEngineUnavailable.
	PolicySurface ErrorPolicy = "surface"
)

func ParseErrorPolicy(raw string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyDegrade, nil
	case PolicyDegrade, PolicySurface:
		return p, nil
	default:
		return "", fmt.Errorf("ENGINE_ERROR_POLICY must be one of: degrade, surface (got %q)", raw)
	}
}

type Reconciler struct {
	registry registry.Registry
	engine   engine.Engine
	table    ReasonTable
	policy   ErrorPolicy
	logger   *slog.Logger
}

type Options struct {
	Registry registry.Registry
	Engine   engine.Engine
	Table    ReasonTable
	Policy   ErrorPolicy
	Logger   *slog.Logger
}

func New(opts Options) (*Reconciler, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if opts.Table == nil {
		opts.Table = DefaultReasonTable()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyDegrade
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{
		registry: opts.Registry,
		engine:   opts.Engine,
		table:    opts.Table,
		policy:   opts.Policy,
		logger:   opts.Logger,
	}, nil
}

// Reconcile looks the run up and maps its current engine conditions. It does
// not wait for state changes and never retries the engine.
func (r *Reconciler) Reconcile(ctx context.Context, runID string) (domain.StatusSnapshot, error) {
	record, err := r.registry.Get(ctx, runID)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}

	conditions, err := r.engine.Describe(ctx, record.Execution)
	if err != nil {
		if r.policy == PolicySurface {
			return domain.StatusSnapshot{}, fmt.Errorf("%w: describe %s: %v", domain.ErrEngineUnavailable, record.Execution, err)
		}
		r.logger.Error("engine query failed, reporting run as failed",
			"run_id", runID,
			"execution", record.Execution.String(),
			"error", err,
		)
		return domain.StatusSnapshot{
			State:    domain.RunStateComplete,
			Result:   domain.RunResultFailed,
			Degraded: true,
		}, nil
	}
	return r.table.Snapshot(conditions), nil
}
