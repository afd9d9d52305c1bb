// Package gateway exposes the bridge over the Test API HTTP routes.
//
// Routes:
//
//	POST /{version}/requests
//	GET  /{version}/requests/{id}
//	GET  /testing-farm/{id}/results.xml
//	GET  /testing-farm/{id}/results-junit.xml
//	GET  /{board-type}/inventory
//
// Anything else, and runs the bridge does not know, go to the upstream Test
// API when one is configured.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/inventory"
	"github.com/animus-labs/tfbridge/internal/platform/httpserver"
	"github.com/animus-labs/tfbridge/internal/reports"
	"github.com/animus-labs/tfbridge/internal/results"
)

const maxRequestBody = 1 << 20

type Bridge interface {
	Submit(ctx context.Context, req domain.RunRequest) (domain.RunRecord, error)
	Query(ctx context.Context, runID string) (domain.StatusSnapshot, error)
	FetchResults(ctx context.Context, runID string) (domain.ResultsSummary, error)
	RawReport(ctx context.Context, runID string) ([]byte, error)
}

type Inventory interface {
	Boards(ctx context.Context, boardType string) ([]inventory.Board, error)
}

type Handler struct {
	Logger    *slog.Logger
	Bridge    Bridge
	Inventory Inventory
	// Upstream receives everything the bridge does not serve. Nil answers
	// 404 instead.
	Upstream http.Handler
	// PublicURL is the externally visible base of this gateway, used for
	// artifact links. Derived from the request when empty.
	PublicURL string
}

type submitResponse struct {
	ID        string              `json:"id"`
	Execution domain.ExecutionRef `json:"execution"`
}

type requestResponse struct {
	ID                    string         `json:"id"`
	State                 string         `json:"state"`
	Result                resultResponse `json:"result"`
	EnvironmentsRequested []any          `json:"environments_requested"`
	Run                   runResponse    `json:"run"`
}

type resultResponse struct {
	Overall string `json:"overall"`
}

type runResponse struct {
	Artifacts string `json:"artifacts"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "testing-farm" && parts[2] == "results.xml" && r.Method == http.MethodGet:
		httpserver.AddLogAttrs(r.Context(), "run_id", parts[1])
		h.handleResults(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "testing-farm" && parts[2] == "results-junit.xml" && r.Method == http.MethodGet:
		httpserver.AddLogAttrs(r.Context(), "run_id", parts[1])
		h.handleRawReport(w, r, parts[1])
	case len(parts) == 2 && parts[1] == "requests" && r.Method == http.MethodPost:
		h.handleSubmit(w, r)
	case len(parts) == 3 && parts[1] == "requests" && r.Method == http.MethodGet:
		httpserver.AddLogAttrs(r.Context(), "run_id", parts[2])
		h.handleQuery(w, r, parts[2])
	case len(parts) == 2 && parts[1] == "inventory" && r.Method == http.MethodGet:
		httpserver.AddLogAttrs(r.Context(), "board_type", parts[0])
		h.handleInventory(w, r, parts[0])
	default:
		h.forward(w, r)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if len(raw) > maxRequestBody {
		h.writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", nil)
		return
	}
	req, err := domain.DecodeRunRequest(raw)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	// Hardware-constrained requests are provisioned by the upstream service.
	if primary, _ := req.Primary(); primary.HasHardware() && h.Upstream != nil {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		r.ContentLength = int64(len(raw))
		h.forward(w, r)
		return
	}

	record, err := h.Bridge.Submit(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	httpserver.AddLogAttrs(r.Context(), "run_id", record.RunID, "execution", record.Execution.String())
	httpserver.WriteJSON(w, http.StatusOK, submitResponse{ID: record.RunID, Execution: record.Execution})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request, runID string) {
	snap, err := h.Bridge.Query(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRun) && h.Upstream != nil {
			h.forward(w, r)
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	httpserver.WriteJSON(w, http.StatusOK, requestResponse{
		ID:                    runID,
		State:                 string(snap.State),
		Result:                resultResponse{Overall: string(snap.Result)},
		EnvironmentsRequested: []any{},
		Run:                   runResponse{Artifacts: h.publicBase(r) + "/testing-farm/" + runID},
	})
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request, runID string) {
	summary, err := h.Bridge.FetchResults(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRun) && h.Upstream != nil {
			h.forward(w, r)
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	out, err := results.Render(summary)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "render_failed", err)
		return
	}
	writeXML(w, out)
}

func (h *Handler) handleRawReport(w http.ResponseWriter, r *http.Request, runID string) {
	raw, err := h.Bridge.RawReport(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRun) && h.Upstream != nil {
			h.forward(w, r)
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	writeXML(w, raw)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request, boardType string) {
	if h.Inventory == nil {
		h.writeError(w, r, http.StatusNotFound, "not_found", nil)
		return
	}
	boards, err := h.Inventory.Boards(r.Context(), boardType)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, boards)
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request) {
	if h.Upstream == nil {
		h.writeError(w, r, http.StatusNotFound, "not_found", nil)
		return
	}
	h.logger().Info("forwarding to upstream", "method", r.Method, "path", r.URL.Path)
	h.Upstream.ServeHTTP(w, r)
}

func (h *Handler) publicBase(r *http.Request) string {
	if base := strings.TrimRight(strings.TrimSpace(h.PublicURL), "/"); base != "" {
		return base
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func writeXML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return http.StatusBadRequest, "malformed_request"
	case errors.Is(err, inventory.ErrUnknownBoardType):
		return http.StatusBadRequest, "unknown_board_type"
	case errors.Is(err, domain.ErrUnknownRun):
		return http.StatusNotFound, "unknown_run"
	case errors.Is(err, reports.ErrNotFound):
		return http.StatusNotFound, "results_not_found"
	case errors.Is(err, domain.ErrEngineRejected):
		return http.StatusBadGateway, "engine_rejected"
	case errors.Is(err, domain.ErrEngineUnavailable):
		return http.StatusBadGateway, "engine_unavailable"
	case errors.Is(err, domain.ErrMalformedReport):
		return http.StatusInternalServerError, "malformed_report"
	case errors.Is(err, domain.ErrDuplicateRun):
		return http.StatusInternalServerError, "duplicate_run"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	h.writeError(w, r, status, code, err)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	var message string
	if err != nil {
		if status >= http.StatusInternalServerError {
			requestID, _ := httpserver.RequestIDFromContext(r.Context())
			h.logger().Error("request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		} else {
			message = err.Error()
		}
	}
	httpserver.WriteError(w, r, status, code, message)
}
