package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/registry"
)

type fakeEngine struct {
	conditions []domain.Condition
	err        error
	described  []domain.ExecutionRef
}

func (f *fakeEngine) Start(context.Context, string, domain.ExecutionParameters) (domain.ExecutionRef, error) {
	return domain.ExecutionRef{}, errors.New("not implemented")
}

func (f *fakeEngine) FindByLabel(context.Context, string, string) (domain.ExecutionRef, error) {
	return domain.ExecutionRef{}, errors.New("not implemented")
}

func (f *fakeEngine) Describe(_ context.Context, ref domain.ExecutionRef) ([]domain.Condition, error) {
	f.described = append(f.described, ref)
	return f.conditions, f.err
}

func cond(typ, reason string) domain.Condition {
	return domain.Condition{Type: typ, Status: "Unknown", Reason: reason}
}

func TestSnapshot(t *testing.T) {
	table := DefaultReasonTable()

	tests := []struct {
		name       string
		conditions []domain.Condition
		wantState  domain.RunState
		wantResult domain.RunResult
	}{
		{name: "no conditions", wantState: domain.RunStateNew, wantResult: domain.RunResultUnknown},
		{name: "pending", conditions: []domain.Condition{cond("Succeeded", "PipelineRunPending")}, wantState: domain.RunStateQueued, wantResult: domain.RunResultUnknown},
		{name: "running succeeded type", conditions: []domain.Condition{cond("Succeeded", "Running")}, wantState: domain.RunStateRunning, wantResult: domain.RunResultUnknown},
		{name: "running other type", conditions: []domain.Condition{cond("Ready", "Running")}, wantState: domain.RunStateRunning, wantResult: domain.RunResultUnknown},
		{name: "running lowercase", conditions: []domain.Condition{cond("Ready", "running")}, wantState: domain.RunStateRunning, wantResult: domain.RunResultUnknown},
		{name: "completed succeeded type", conditions: []domain.Condition{cond("Succeeded", "Completed")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultPassed},
		{name: "completed other type", conditions: []domain.Condition{cond("Ready", "Completed")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultFailed},
		{name: "succeeded reason", conditions: []domain.Condition{cond("Succeeded", "Succeeded")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultPassed},
		{name: "failed", conditions: []domain.Condition{cond("Succeeded", "Failed")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultFailed},
		{name: "cancelled", conditions: []domain.Condition{cond("Succeeded", "Cancelled")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultFailed},
		{name: "timeout", conditions: []domain.Condition{cond("Succeeded", "PipelineRunTimeout")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultFailed},
		{name: "validation failed", conditions: []domain.Condition{cond("Succeeded", "PipelineValidationFailed")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultFailed},
		{name: "unrecognized reason", conditions: []domain.Condition{cond("Succeeded", "SomethingNew")}, wantState: domain.RunStateComplete, wantResult: domain.RunResultFailed},
		{
			name:       "succeeded type wins over first",
			conditions: []domain.Condition{cond("Ready", "Failed"), cond("Succeeded", "Running")},
			wantState:  domain.RunStateRunning,
			wantResult: domain.RunResultUnknown,
		},
		{
			name:       "first condition without succeeded type",
			conditions: []domain.Condition{cond("Ready", "Pending"), cond("Other", "Failed")},
			wantState:  domain.RunStateQueued,
			wantResult: domain.RunResultUnknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := table.Snapshot(tc.conditions)
			if got.State != tc.wantState || got.Result != tc.wantResult {
				t.Fatalf("expected %s/%s got %s/%s", tc.wantState, tc.wantResult, got.State, got.Result)
			}
			if got.State != domain.RunStateComplete && got.Result != domain.RunResultUnknown {
				t.Fatalf("result must stay unknown until complete, got %+v", got)
			}
		})
	}
}

func TestReasonTableExtend(t *testing.T) {
	table := DefaultReasonTable().Extend(map[string]Verdict{"  ResolvingPipelineRef ": VerdictQueued, "": VerdictRunning})

	got := table.Snapshot([]domain.Condition{cond("Succeeded", "ResolvingPipelineRef")})
	if got.State != domain.RunStateQueued {
		t.Fatalf("expected queued, got %+v", got)
	}
	if _, ok := table[""]; ok {
		t.Fatalf("blank reason should be ignored")
	}
	if _, ok := DefaultReasonTable()["resolvingpipelineref"]; ok {
		t.Fatalf("Extend must not mutate the receiver")
	}
}

func TestParseVerdictAndPolicy(t *testing.T) {
	if v, err := ParseVerdict(" Running "); err != nil || v != VerdictRunning {
		t.Fatalf("ParseVerdict() = %q, %v", v, err)
	}
	if _, err := ParseVerdict("maybe"); err == nil {
		t.Fatalf("expected error for unknown verdict")
	}
	if p, err := ParseErrorPolicy(""); err != nil || p != PolicyDegrade {
		t.Fatalf("ParseErrorPolicy(\"\") = %q, %v", p, err)
	}
	if _, err := ParseErrorPolicy("retry"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func newRegistry(t *testing.T) registry.Registry {
	t.Helper()
	reg := registry.NewMemory()
	err := reg.Put(context.Background(), domain.RunRecord{
		RunID:     "run-1",
		Execution: domain.ExecutionRef{Namespace: "ci", Name: "test-run-1"},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	return reg
}

func TestReconcile(t *testing.T) {
	eng := &fakeEngine{conditions: []domain.Condition{cond("Succeeded", "Completed")}}
	rec, err := New(Options{Registry: newRegistry(t), Engine: eng})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	snap, err := rec.Reconcile(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Reconcile() err=%v", err)
	}
	if snap.State != domain.RunStateComplete || snap.Result != domain.RunResultPassed || snap.Degraded {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(eng.described) != 1 || eng.described[0].Name != "test-run-1" {
		t.Fatalf("engine described %+v", eng.described)
	}
}

func TestReconcileUnknownRun(t *testing.T) {
	eng := &fakeEngine{}
	rec, _ := New(Options{Registry: newRegistry(t), Engine: eng})

	_, err := rec.Reconcile(context.Background(), "missing")
	if !errors.Is(err, domain.ErrUnknownRun) {
		t.Fatalf("expected ErrUnknownRun, got %v", err)
	}
	if len(eng.described) != 0 {
		t.Fatalf("engine should not be queried for unknown runs")
	}
}

func TestReconcileEngineFailure(t *testing.T) {
	eng := &fakeEngine{err: errors.New("connection refused")}

	degrade, _ := New(Options{Registry: newRegistry(t), Engine: eng})
	snap, err := degrade.Reconcile(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("degrade policy should not error, got %v", err)
	}
	if snap.State != domain.RunStateComplete || snap.Result != domain.RunResultFailed || !snap.Degraded {
		t.Fatalf("unexpected degraded snapshot %+v", snap)
	}

	surface, _ := New(Options{Registry: newRegistry(t), Engine: eng, Policy: PolicySurface})
	if _, err := surface.Reconcile(context.Background(), "run-1"); !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}
