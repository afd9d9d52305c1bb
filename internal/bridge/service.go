package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/engine"
	"github.com/animus-labs/tfbridge/internal/platform/auth"
	"github.com/animus-labs/tfbridge/internal/platform/requestid"
	"github.com/animus-labs/tfbridge/internal/reconcile"
	"github.com/animus-labs/tfbridge/internal/registry"
	"github.com/animus-labs/tfbridge/internal/reports"
	"github.com/animus-labs/tfbridge/internal/results"
	"github.com/animus-labs/tfbridge/internal/translate"
)

type Options struct {
	Registry   registry.Registry
	Engine     engine.Engine
	Reconciler *reconcile.Reconciler
	Defaults   translate.Defaults
	Links      results.Links
	Reports    reports.Source
	Metrics    *Metrics
	Logger     *slog.Logger
	// NewID defaults to random UUIDs.
	NewID func() (string, error)
	Now   func() time.Time
}

type Service struct {
	registry   registry.Registry
	engine     engine.Engine
	reconciler *reconcile.Reconciler
	defaults   translate.Defaults
	links      results.Links
	reports    reports.Source
	metrics    *Metrics
	logger     *slog.Logger
	newID      func() (string, error)
	now        func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Reconciler == nil {
		rec, err := reconcile.New(reconcile.Options{Registry: opts.Registry, Engine: opts.Engine, Logger: opts.Logger})
		if err != nil {
			return nil, err
		}
		opts.Reconciler = rec
	}
	if opts.NewID == nil {
		opts.NewID = requestid.New
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		registry:   opts.Registry,
		engine:     opts.Engine,
		reconciler: opts.Reconciler,
		defaults:   opts.Defaults.WithFallbacks(),
		links:      opts.Links.Merge(results.DefaultLinks("")),
		reports:    opts.Reports,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		newID:      opts.NewID,
		now:        opts.Now,
	}, nil
}

// Submit translates the request, starts one execution and records it. The
// returned record's RunID is the Test API request id.
func (s *Service) Submit(ctx context.Context, req domain.RunRequest) (domain.RunRecord, error) {
	runID, err := s.newID()
	if err != nil {
		s.metrics.submission("error")
		return domain.RunRecord{}, fmt.Errorf("generate run id: %w", err)
	}

	params, err := translate.Translate(runID, req, s.defaults)
	if err != nil {
		s.metrics.submission("malformed")
		return domain.RunRecord{}, err
	}

	started := s.now()
	ref, err := s.engine.Start(ctx, translate.ExecutionName(runID), params)
	s.metrics.engineStartDuration(s.now().Sub(started).Seconds())
	if err != nil {
		s.metrics.submission("rejected")
		s.logger.Error("pipeline start failed",
			"run_id", runID,
			"pipeline", params.Pipeline,
			"error", err,
		)
		return domain.RunRecord{}, fmt.Errorf("%w: %v", domain.ErrEngineRejected, err)
	}
	if ref.IsZero() {
		ref, err = s.engine.FindByLabel(ctx, domain.LabelRun, runID)
		if err != nil {
			s.metrics.submission("rejected")
			return domain.RunRecord{}, fmt.Errorf("%w: resolve execution: %v", domain.ErrEngineRejected, err)
		}
	}

	record := domain.RunRecord{RunID: runID, Execution: ref, CreatedAt: s.now().UTC()}
	if err := s.registry.Put(ctx, record); err != nil {
		s.metrics.submission("error")
		s.logger.Error("run registration failed", "run_id", runID, "execution", ref.String(), "error", err)
		return domain.RunRecord{}, err
	}
	s.metrics.submission("accepted")
	attrs := []any{"run_id", runID, "execution", ref.String()}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		attrs = append(attrs, "subject", identity.Subject, "email", identity.Email)
	}
	s.logger.Info("run submitted", attrs...)
	return record, nil
}

func (s *Service) Query(ctx context.Context, runID string) (domain.StatusSnapshot, error) {
	snap, err := s.reconciler.Reconcile(ctx, runID)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	s.metrics.statusQuery(string(snap.State), string(snap.Result), snap.Degraded)
	return snap, nil
}

// Results aggregates a report the caller already holds.
func (s *Service) Results(ctx context.Context, runID string, report io.Reader) (domain.ResultsSummary, error) {
	if _, err := s.registry.Get(ctx, runID); err != nil {
		return domain.ResultsSummary{}, err
	}
	summary, err := results.Aggregate(report, runID, s.links)
	if err != nil {
		return domain.ResultsSummary{}, err
	}
	s.metrics.result(string(summary.Overall))
	return summary, nil
}

// FetchResults reads the run's report from the configured source.
func (s *Service) FetchResults(ctx context.Context, runID string) (domain.ResultsSummary, error) {
	rc, err := s.openReport(ctx, runID)
	if err != nil {
		return domain.ResultsSummary{}, err
	}
	defer rc.Close()

	summary, err := results.Aggregate(rc, runID, s.links)
	if err != nil {
		return domain.ResultsSummary{}, err
	}
	s.metrics.result(string(summary.Overall))
	return summary, nil
}

// RawReport returns the report bytes as the pipeline wrote them.
func (s *Service) RawReport(ctx context.Context, runID string) ([]byte, error) {
	rc, err := s.openReport(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Service) openReport(ctx context.Context, runID string) (io.ReadCloser, error) {
	if s.reports == nil {
		return nil, errors.New("report source is not configured")
	}
	if _, err := s.registry.Get(ctx, runID); err != nil {
		return nil, err
	}
	return s.reports.Open(ctx, runID)
}
