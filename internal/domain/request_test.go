package domain

import (
	"errors"
	"testing"
)

func TestDecodeRunRequest(t *testing.T) {
	raw := []byte(`{
  "test": {"fmf": {"url": "https://example.com/tests.git", "ref": "dev", "name": "/plans/a", "test_name": "smoke"}},
  "environments": [{
    "arch": "aarch64",
    "os": {"compose": "{\"disk_image\": \"https://img\"}"},
    "variables": {"HW_TARGET": " ridesx4 "},
    "tmt": {"context": {"distro": "cs9"}},
    "hardware": {"cpu": {"processors": 4}}
  }],
  "settings": {"pipeline": {"timeout": 120}}
}`)
	req, err := DecodeRunRequest(raw)
	if err != nil {
		t.Fatalf("DecodeRunRequest() err=%v", err)
	}
	if req.Test.FMF.TestName != "smoke" || req.Settings.Pipeline.Timeout != 120 {
		t.Fatalf("unexpected request %+v", req)
	}
	env, err := req.Primary()
	if err != nil {
		t.Fatalf("Primary() err=%v", err)
	}
	if v, ok := env.Variable("HW_TARGET"); !ok || v != "ridesx4" {
		t.Fatalf("Variable() = %q, %v", v, ok)
	}
	if _, ok := env.Variable("MISSING"); ok {
		t.Fatalf("expected missing variable")
	}
	if !env.HasHardware() {
		t.Fatalf("expected hardware requirement")
	}
	if string(env.TMT.Context) != `{"distro": "cs9"}` {
		t.Fatalf("context should pass through untouched, got %s", env.TMT.Context)
	}
}

func TestDecodeRunRequestMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "test"},
		{name: "wrong type", raw: `{"environments": "x"}`},
		{name: "no environments", raw: `{"test": {"fmf": {"url": "x"}}}`},
		{name: "empty environments", raw: `{"environments": []}`},
	}
	for _, tc := range tests {
		if _, err := DecodeRunRequest([]byte(tc.raw)); !errors.Is(err, ErrMalformedRequest) {
			t.Fatalf("%s: expected ErrMalformedRequest, got %v", tc.name, err)
		}
	}
}

func TestHasHardware(t *testing.T) {
	for raw, want := range map[string]bool{"": false, "null": false, " null ": false, "{}": true} {
		if got := (Environment{Hardware: []byte(raw)}).HasHardware(); got != want {
			t.Fatalf("HasHardware(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestExecutionRef(t *testing.T) {
	if got := (ExecutionRef{Namespace: "ci", Name: "test-1"}).String(); got != "ci/test-1" {
		t.Fatalf("String() got %q", got)
	}
	if got := (ExecutionRef{Name: "test-1"}).String(); got != "test-1" {
		t.Fatalf("String() got %q", got)
	}
	if !(ExecutionRef{Namespace: "ci"}).IsZero() {
		t.Fatalf("ref without name should be zero")
	}
}

func TestRunRecordValidate(t *testing.T) {
	if err := (RunRecord{RunID: "r", Execution: ExecutionRef{Name: "e"}}).Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	if err := (RunRecord{Execution: ExecutionRef{Name: "e"}}).Validate(); err == nil {
		t.Fatalf("expected error without run id")
	}
	if err := (RunRecord{RunID: "r"}).Validate(); err == nil {
		t.Fatalf("expected error without execution")
	}
}
