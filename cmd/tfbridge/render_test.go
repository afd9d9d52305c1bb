package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/animus-labs/tfbridge/internal/domain"
)

func TestWriteExecution(t *testing.T) {
	params := domain.ExecutionParameters{
		Pipeline: "hw-test",
		Params: []domain.Param{
			{Name: "testRunId", Value: "abc"},
			{Name: "exporter-labels", Values: []string{"board-type=qc8775"}},
		},
		Workspaces: []domain.Workspace{
			{Name: "test-results", Kind: domain.WorkspacePVC, Source: "tmt-results"},
		},
		Labels:         map[string]string{"run": "abc"},
		ServiceAccount: "pipeline",
		Timeout:        30 * time.Minute,
	}

	var buf bytes.Buffer
	if err := writeExecution(&buf, "test-abc", params); err != nil {
		t.Fatalf("writeExecution() err=%v", err)
	}
	want := `name: test-abc
pipeline: hw-test
labels:
  run: abc
serviceAccount: pipeline
timeout: 30m0s
params:
  - name: testRunId
    value: abc
  - name: exporter-labels
    value:
      - board-type=qc8775
workspaces:
  - name: test-results
    kind: persistentVolumeClaim
    source: tmt-results
`
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestReadInputStdin(t *testing.T) {
	raw, err := readInput(strings.NewReader(`{"a":1}`), "-")
	if err != nil || string(raw) != `{"a":1}` {
		t.Fatalf("readInput() = %q, %v", raw, err)
	}
	if _, err := readInput(nil, "/nonexistent/request.json"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
