package k8s

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

var widgets = Resource{Group: "example.dev", Version: "v1", Plural: "widgets"}

type widget struct {
	Metadata ObjectMeta `json:"metadata"`
}

func TestClientCreateGetList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/apis/example.dev/v1/namespaces/demo/widgets":
			var in widget
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if in.Metadata.Name == "taken" {
				w.WriteHeader(http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(in)
		case r.Method == http.MethodGet && r.URL.Path == "/apis/example.dev/v1/namespaces/demo/widgets/w1":
			_ = json.NewEncoder(w).Encode(widget{Metadata: ObjectMeta{Name: "w1", Namespace: "demo"}})
		case r.Method == http.MethodGet && r.URL.Path == "/apis/example.dev/v1/namespaces/demo/widgets":
			if got := r.URL.Query().Get("labelSelector"); got != "run=abc" {
				t.Errorf("unexpected selector %q", got)
			}
			_, _ = w.Write([]byte(`{"items":[{"metadata":{"name":"w1"}}]}`))
		case r.URL.Path == "/apis/example.dev/v1/namespaces/demo/widgets/bad":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`invalid`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "demo", srv.Client())
	if err != nil {
		t.Fatalf("NewClient() err=%v", err)
	}
	ctx := context.Background()

	var created widget
	if err := client.Create(ctx, widgets, "", widget{Metadata: ObjectMeta{Name: "w1"}}, &created); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if created.Metadata.Name != "w1" {
		t.Fatalf("unexpected created %+v", created)
	}
	if err := client.Create(ctx, widgets, "demo", widget{Metadata: ObjectMeta{Name: "taken"}}, nil); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	var got widget
	if err := client.Get(ctx, widgets, "demo", "w1", &got); err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if got.Metadata.Namespace != "demo" {
		t.Fatalf("unexpected widget %+v", got)
	}
	if err := client.Get(ctx, widgets, "demo", "missing", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := client.Get(ctx, widgets, "demo", "bad", &got); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	var list struct {
		Items []widget `json:"items"`
	}
	if err := client.List(ctx, widgets, "demo", "run=abc", &list); err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(list.Items))
	}
}

func TestFileTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("secret-token\n"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	tok, err := (&fileTokenSource{path: path}).Token()
	if err != nil {
		t.Fatalf("Token() err=%v", err)
	}
	if tok.AccessToken != "secret-token" || tok.Expiry.IsZero() {
		t.Fatalf("unexpected token %+v", tok)
	}

	if err := os.WriteFile(path, []byte("  "), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	if _, err := (&fileTokenSource{path: path}).Token(); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
