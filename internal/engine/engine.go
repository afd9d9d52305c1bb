// Package engine defines the pipeline engine collaborator used by the bridge.
//
// Implementations live in subpackages: tekton talks to the Kubernetes API
// directly, tkn shells out to the Tekton command-line client.
package engine

import (
	"context"
	"errors"

	"github.com/animus-labs/tfbridge/internal/domain"
)

type Engine interface {
	// Start launches one execution of the named pipeline. It is a single
	// blocking call and is never retried.
	Start(ctx context.Context, name string, params domain.ExecutionParameters) (domain.ExecutionRef, error)
	// FindByLabel resolves the execution carrying label key=value.
	FindByLabel(ctx context.Context, key, value string) (domain.ExecutionRef, error)
	// Describe returns the execution's status conditions in report order.
	Describe(ctx context.Context, ref domain.ExecutionRef) ([]domain.Condition, error)
}

// ErrExecutionNotFound is returned when no execution matches a lookup.
var ErrExecutionNotFound = errors.New("pipeline execution not found")
