package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/animus-labs/tfbridge/internal/domain"
)

// Memory is a process-local Registry. It does not survive restarts and is
// meant for tests and local runs.
type Memory struct {
	mu      sync.Mutex
	records map[string]domain.RunRecord
}

func NewMemory() *Memory {
	return &Memory{records: map[string]domain.RunRecord{}}
}

func (m *Memory) Put(ctx context.Context, record domain.RunRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	record.RunID = strings.TrimSpace(record.RunID)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.RunID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRun, record.RunID)
	}
	m.records[record.RunID] = record
	return nil
}

func (m *Memory) Get(ctx context.Context, runID string) (domain.RunRecord, error) {
	runID = strings.TrimSpace(runID)
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[runID]
	if !ok {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrUnknownRun, runID)
	}
	return record, nil
}
