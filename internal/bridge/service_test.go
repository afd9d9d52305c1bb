package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/platform/auth"
	"github.com/animus-labs/tfbridge/internal/registry"
	"github.com/animus-labs/tfbridge/internal/reports"
	"github.com/animus-labs/tfbridge/internal/translate"
)

type fakeEngine struct {
	mu         sync.Mutex
	startErr   error
	conditions []domain.Condition
	started    map[string]domain.ExecutionParameters
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{started: map[string]domain.ExecutionParameters{}}
}

func (f *fakeEngine) Start(_ context.Context, name string, params domain.ExecutionParameters) (domain.ExecutionRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return domain.ExecutionRef{}, f.startErr
	}
	f.started[name] = params
	return domain.ExecutionRef{Namespace: "ci", Name: name}, nil
}

func (f *fakeEngine) FindByLabel(_ context.Context, key, value string) (domain.ExecutionRef, error) {
	return domain.ExecutionRef{}, errors.New("not implemented")
}

func (f *fakeEngine) Describe(_ context.Context, ref domain.ExecutionRef) ([]domain.Condition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.started[ref.Name]; !ok {
		return nil, fmt.Errorf("no execution %s", ref)
	}
	return f.conditions, nil
}

type fakeReports map[string]string

func (f fakeReports) Open(_ context.Context, runID string) (io.ReadCloser, error) {
	report, ok := f[runID]
	if !ok {
		return nil, reports.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(report)), nil
}

func validRequest() domain.RunRequest {
	return domain.RunRequest{
		Test: domain.TestSpec{FMF: domain.FMFTest{URL: "https://example.com/tests.git", Name: "/plans/smoke"}},
		Environments: []domain.Environment{{
			OS:        domain.OSSpec{Compose: `{"disk_image":"https://images.example.com/a.raw"}`},
			Variables: map[string]string{"HW_TARGET": "qc8775-ocp"},
		}},
	}
}

func sequentialIDs(ids ...string) func() (string, error) {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(ids) == 0 {
			return "", errors.New("out of ids")
		}
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
}

func newService(t *testing.T, eng *fakeEngine, reg registry.Registry, src reports.Source, ids ...string) *Service {
	t.Helper()
	metrics, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics() err=%v", err)
	}
	opts := Options{
		Registry: reg,
		Engine:   eng,
		Defaults: translate.Defaults{Pipeline: "hw-test"},
		Reports:  src,
		Metrics:  metrics,
	}
	if len(ids) > 0 {
		opts.NewID = sequentialIDs(ids...)
	}
	svc, err := New(opts)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return svc
}

func TestSubmitThenQuery(t *testing.T) {
	eng := newFakeEngine()
	eng.conditions = []domain.Condition{{Type: "Succeeded", Status: "Unknown", Reason: "Running"}}
	svc := newService(t, eng, registry.NewMemory(), nil)
	ctx := context.Background()

	record, err := svc.Submit(ctx, validRequest())
	if err != nil {
		t.Fatalf("Submit() err=%v", err)
	}
	if record.RunID == "" || record.Execution.Name != translate.ExecutionName(record.RunID) {
		t.Fatalf("unexpected record %+v", record)
	}
	params := eng.started[record.Execution.Name]
	if params.Labels[domain.LabelRun] != record.RunID {
		t.Fatalf("execution not labelled with run id: %+v", params.Labels)
	}

	snap, err := svc.Query(ctx, record.RunID)
	if err != nil {
		t.Fatalf("Query() err=%v", err)
	}
	if snap.State != domain.RunStateRunning || snap.Result != domain.RunResultUnknown {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSubmitLogsSubmitter(t *testing.T) {
	var buf bytes.Buffer
	svc, err := New(Options{
		Registry: registry.NewMemory(),
		Engine:   newFakeEngine(),
		Defaults: translate.Defaults{Pipeline: "hw-test"},
		Logger:   slog.New(slog.NewJSONHandler(&buf, nil)),
		NewID:    sequentialIDs("run-1"),
	})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	ctx := auth.ContextWithIdentity(context.Background(), auth.Identity{Subject: "user-1", Email: "user@example.com"})
	if _, err := svc.Submit(ctx, validRequest()); err != nil {
		t.Fatalf("Submit() err=%v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log %q: %v", buf.String(), err)
	}
	if line["msg"] != "run submitted" || line["run_id"] != "run-1" || line["subject"] != "user-1" || line["email"] != "user@example.com" {
		t.Fatalf("unexpected submit log %v", line)
	}
}

func TestSubmitRoundTripConcurrent(t *testing.T) {
	eng := newFakeEngine()
	svc := newService(t, eng, registry.NewMemory(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := svc.Submit(ctx, validRequest())
			if err != nil {
				errs <- err
				return
			}
			if _, err := svc.Query(ctx, record.RunID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("round trip failed: %v", err)
	}
}

func TestSubmitEngineFailureLeavesNoRecord(t *testing.T) {
	eng := newFakeEngine()
	eng.startErr = errors.New("admission webhook denied the request")
	reg := registry.NewMemory()
	svc := newService(t, eng, reg, nil, "run-1")

	_, err := svc.Submit(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrEngineRejected) {
		t.Fatalf("expected ErrEngineRejected, got %v", err)
	}
	if _, err := reg.Get(context.Background(), "run-1"); !errors.Is(err, domain.ErrUnknownRun) {
		t.Fatalf("expected no registry entry, got %v", err)
	}
}

func TestSubmitMalformedRequest(t *testing.T) {
	eng := newFakeEngine()
	svc := newService(t, eng, registry.NewMemory(), nil)

	req := validRequest()
	req.Environments[0].OS.Compose = `{"iso":"x"}`
	if _, err := svc.Submit(context.Background(), req); !errors.Is(err, domain.ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}
	if len(eng.started) != 0 {
		t.Fatalf("engine must not be called for malformed requests")
	}
}

func TestSubmitDuplicateRunID(t *testing.T) {
	eng := newFakeEngine()
	svc := newService(t, eng, registry.NewMemory(), nil, "same", "same")
	ctx := context.Background()

	if _, err := svc.Submit(ctx, validRequest()); err != nil {
		t.Fatalf("first Submit() err=%v", err)
	}
	if _, err := svc.Submit(ctx, validRequest()); !errors.Is(err, domain.ErrDuplicateRun) {
		t.Fatalf("expected ErrDuplicateRun, got %v", err)
	}
}

func TestQueryUnknownRun(t *testing.T) {
	svc := newService(t, newFakeEngine(), registry.NewMemory(), nil)
	if _, err := svc.Query(context.Background(), "missing"); !errors.Is(err, domain.ErrUnknownRun) {
		t.Fatalf("expected ErrUnknownRun, got %v", err)
	}
}

func TestResults(t *testing.T) {
	report := `<testsuites><testsuite name="/plans/smoke" tests="3" errors="0" failures="0"/></testsuites>`
	src := fakeReports{"run-1": report}
	svc := newService(t, newFakeEngine(), registry.NewMemory(), src, "run-1")
	ctx := context.Background()

	if _, err := svc.Results(ctx, "run-1", strings.NewReader(report)); !errors.Is(err, domain.ErrUnknownRun) {
		t.Fatalf("expected ErrUnknownRun before submit, got %v", err)
	}
	if _, err := svc.Submit(ctx, validRequest()); err != nil {
		t.Fatalf("Submit() err=%v", err)
	}

	summary, err := svc.FetchResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("FetchResults() err=%v", err)
	}
	if summary.Overall != domain.RunResultPassed || len(summary.Suites) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := summary.Suites[0].Logs[0].Href; !strings.Contains(got, "run-1/plans/smoke") {
		t.Fatalf("unexpected workdir link %q", got)
	}

	raw, err := svc.RawReport(ctx, "run-1")
	if err != nil || string(raw) != report {
		t.Fatalf("RawReport() = %q, %v", raw, err)
	}

	direct, err := svc.Results(ctx, "run-1", strings.NewReader(`<testsuites><testsuite name="x" tests="1" errors="1" failures="0"/></testsuites>`))
	if err != nil || direct.Overall != domain.RunResultFailed {
		t.Fatalf("Results() = %+v, %v", direct, err)
	}
}

func TestFetchResultsMissingReport(t *testing.T) {
	svc := newService(t, newFakeEngine(), registry.NewMemory(), fakeReports{}, "run-1")
	ctx := context.Background()
	if _, err := svc.Submit(ctx, validRequest()); err != nil {
		t.Fatalf("Submit() err=%v", err)
	}
	if _, err := svc.FetchResults(ctx, "run-1"); !errors.Is(err, reports.ErrNotFound) {
		t.Fatalf("expected reports.ErrNotFound, got %v", err)
	}
}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("NewMetrics() err=%v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
