package domain

import (
	"errors"
	"strings"
	"time"
)

// RunRecord maps a bridge run-id to the execution started for it. Records are
// written once and never updated.
type RunRecord struct {
	RunID     string
	Execution ExecutionRef
	CreatedAt time.Time
}

func (r RunRecord) Validate() error {
	if strings.TrimSpace(r.RunID) == "" {
		return errors.New("run id is required")
	}
	if r.Execution.IsZero() {
		return errors.New("execution name is required")
	}
	return nil
}
