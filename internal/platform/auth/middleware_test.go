package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeAuthenticator struct{}

func (fakeAuthenticator) Authenticate(_ context.Context, r *http.Request) (Identity, error) {
	switch tokenFromHeader(r) {
	case "":
		return Identity{}, ErrUnauthenticated
	case "good":
		return Identity{Subject: "user-1", Email: "user@example.com"}, nil
	default:
		return Identity{}, errors.New("token expired")
	}
}

func TestMiddleware(t *testing.T) {
	var got Identity
	h := Middleware{Authenticator: fakeAuthenticator{}, SkipPrefixes: []string{"/healthz"}}.Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "missing token", path: "/v0.1/requests", want: http.StatusUnauthorized},
		{name: "bad token", path: "/v0.1/requests", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/v0.1/requests", header: "Basic good", want: http.StatusUnauthorized},
		{name: "good token", path: "/v0.1/requests", header: "Bearer good", want: http.StatusOK},
		{name: "skipped prefix", path: "/healthz", want: http.StatusOK},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, rec.Code)
		}
	}
	if got.Subject != "user-1" {
		t.Fatalf("expected identity in context, got %+v", got)
	}
}

func TestMiddlewareWithoutAuthenticator(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Middleware{}.Wrap(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Mode: ModeDisabled}).Validate(); err != nil {
		t.Fatalf("disabled: %v", err)
	}
	if err := (Config{Mode: ModeOIDC, EmailClaim: "email"}).Validate(); err == nil {
		t.Fatalf("expected error for oidc without issuer")
	}
	if err := (Config{Mode: "dev"}).Validate(); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
}
