package inventory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/animus-labs/tfbridge/internal/platform/k8s"
	"github.com/animus-labs/tfbridge/internal/translate"
)

func TestBoards(t *testing.T) {
	var selector string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apis/jumpstarter.dev/v1alpha1/namespaces/lab/exporters" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		selector = r.URL.Query().Get("labelSelector")
		_, _ = w.Write([]byte(`{"items":[
			{"metadata":{"name":"sx4-1","labels":{"board-type":"qc8775"}}},
			{"metadata":{"name":"sx4-2","labels":{"board-type":"qc8775","enabled":"false"}}}
		]}`))
	}))
	defer srv.Close()

	client, err := k8s.NewClient(srv.URL, "lab", srv.Client())
	if err != nil {
		t.Fatalf("NewClient() err=%v", err)
	}
	lister, err := NewLister(client, "", translate.DefaultBoardTypes(), nil)
	if err != nil {
		t.Fatalf("NewLister() err=%v", err)
	}

	boards, err := lister.Boards(context.Background(), "ridesx4")
	if err != nil {
		t.Fatalf("Boards() err=%v", err)
	}
	if selector != "board-type=qc8775" {
		t.Fatalf("unexpected selector %q", selector)
	}
	want := []Board{
		{Name: "sx4-1", Enabled: true, Labels: map[string]string{"board-type": "qc8775"}},
		{Name: "sx4-2", Enabled: false, Labels: map[string]string{"board-type": "qc8775", "enabled": "false"}},
	}
	if diff := cmp.Diff(want, boards); diff != "" {
		t.Fatalf("boards mismatch (-want +got):\n%s", diff)
	}

	if _, err := lister.Boards(context.Background(), "unknown"); !errors.Is(err, ErrUnknownBoardType) {
		t.Fatalf("expected ErrUnknownBoardType, got %v", err)
	}
}
