package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/animus-labs/tfbridge/internal/platform/httpserver"
)

type Middleware struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	SkipPrefixes  []string
}

func (m Middleware) Wrap(next http.Handler) http.Handler {
	if m.Authenticator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range m.SkipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		identity, err := m.Authenticator.Authenticate(r.Context(), r)
		if err != nil {
			requestID, _ := httpserver.RequestIDFromContext(r.Context())
			reason := "invalid_token"
			if errors.Is(err, ErrUnauthenticated) {
				reason = "unauthorized"
			}
			if m.Logger != nil {
				m.Logger.Warn("auth denied",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"reason", reason,
					"error", err,
				)
			}
			httpserver.WriteError(w, r, http.StatusUnauthorized, reason, "")
			return
		}
		httpserver.AddLogAttrs(r.Context(), "subject", identity.Subject)
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}
