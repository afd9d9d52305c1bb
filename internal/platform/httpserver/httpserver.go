// Package httpserver runs the bridge's listener and the middleware every route
// shares: request ids, access logging and panic recovery. Error responses use
// one JSON envelope so gateway, auth and recovery failures look alike.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/animus-labs/tfbridge/internal/platform/requestid"
)

const headerRequestID = "X-Request-Id"

type Config struct {
	Service         string
	Addr            string
	ShutdownTimeout time.Duration
}

func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Service) == "":
		return errors.New("service is required")
	case strings.TrimSpace(c.Addr) == "":
		return errors.New("addr is required")
	}
	return nil
}

// Run serves handler until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, logger *slog.Logger, cfg Config, handler http.Handler) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	served := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "service", cfg.Service, "addr", cfg.Addr)
		served <- srv.ListenAndServe()
	}()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("http server draining", "service", cfg.Service, "timeout", cfg.ShutdownTimeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Wrap installs the shared middleware chain around next. Recovery runs inside
// the access log, so a recovered panic is logged as a 500 with its request id.
func Wrap(logger *slog.Logger, service string, next http.Handler) http.Handler {
	return withRequestID(service, withAccessLog(logger, withRecovery(logger, next)))
}

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id"`
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := RequestIDFromContext(r.Context())
	WriteJSON(w, status, ErrorBody{Error: code, Message: message, RequestID: requestID})
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func Healthz(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"service": service, "status": "ok"})
	}
}

// Check reports whether a dependency can serve requests.
type Check func(context.Context) error

type checkStatus struct {
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Readyz runs every check in name order and answers 503 if any fails.
func Readyz(service string, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		code, overall := http.StatusOK, "ready"
		out := make(map[string]checkStatus, len(names))
		for _, name := range names {
			start := time.Now()
			st := checkStatus{Status: "ok"}
			if err := checks[name](r.Context()); err != nil {
				st.Status, st.Error = "fail", err.Error()
				code, overall = http.StatusServiceUnavailable, "not_ready"
			}
			st.DurationMs = time.Since(start).Milliseconds()
			out[name] = st
		}
		WriteJSON(w, code, map[string]any{"service": service, "status": overall, "checks": out})
	}
}

type ctxKeyRequestID struct{}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID{}).(string)
	return v, ok
}

func withRequestID(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" {
			var err error
			if id, err = requestid.New(); err != nil {
				id = fmt.Sprintf("%s-%d", service, time.Now().UnixNano())
			}
		}
		r.Header.Set(headerRequestID, id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID{}, id)))
	})
}

type accessFields struct {
	mu    sync.Mutex
	attrs []any
}

type ctxKeyAccessFields struct{}

// AddLogAttrs appends key/value pairs to the access log line of the request
// carried by ctx, such as the run id a route resolved. Outside Wrap it is a
// no-op.
func AddLogAttrs(ctx context.Context, args ...any) {
	f, ok := ctx.Value(ctxKeyAccessFields{}).(*accessFields)
	if !ok {
		return
	}
	f.mu.Lock()
	f.attrs = append(f.attrs, args...)
	f.mu.Unlock()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach Flush on the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func withAccessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		fields := &accessFields{}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKeyAccessFields{}, fields)))

		requestID, _ := RequestIDFromContext(r.Context())
		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		fields.mu.Lock()
		attrs = append(attrs, fields.attrs...)
		fields.mu.Unlock()

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "http request", attrs...)
	})
}

func withRecovery(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				requestID, _ := RequestIDFromContext(r.Context())
				logger.Error("panic recovered", "request_id", requestID, "path", r.URL.Path, "panic", v)
				WriteError(w, r, http.StatusInternalServerError, "internal_server_error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
