package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RunRequest is the Test API payload accepted on submission.
type RunRequest struct {
	Test         TestSpec      `json:"test"`
	Environments []Environment `json:"environments"`
	Settings     Settings      `json:"settings"`
}

type TestSpec struct {
	FMF FMFTest `json:"fmf"`
}

type FMFTest struct {
	URL      string `json:"url"`
	Ref      string `json:"ref,omitempty"`
	Name     string `json:"name,omitempty"`
	TestName string `json:"test_name,omitempty"`
}

type Environment struct {
	Arch      string            `json:"arch,omitempty"`
	OS        OSSpec            `json:"os"`
	Variables map[string]string `json:"variables,omitempty"`
	TMT       *TMTSpec          `json:"tmt,omitempty"`
	Hardware  json.RawMessage   `json:"hardware,omitempty"`
}

type OSSpec struct {
	Compose string `json:"compose,omitempty"`
}

// TMTSpec holds runner context and environment. Both are passed through
// without interpretation.
type TMTSpec struct {
	Context     json.RawMessage `json:"context,omitempty"`
	Environment json.RawMessage `json:"environment,omitempty"`
}

type Settings struct {
	Pipeline PipelineSettings `json:"pipeline"`
}

type PipelineSettings struct {
	Client  string `json:"client,omitempty"`
	Timeout int    `json:"timeout,omitempty"`
}

// DecodeRunRequest parses a raw submission body.
func DecodeRunRequest(raw []byte) (RunRequest, error) {
	var req RunRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return RunRequest{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if err := req.Validate(); err != nil {
		return RunRequest{}, err
	}
	return req, nil
}

func (r RunRequest) Validate() error {
	if len(r.Environments) == 0 {
		return fmt.Errorf("%w: at least one environment is required", ErrMalformedRequest)
	}
	return nil
}

// Primary returns environment 0, which is authoritative for the run.
func (r RunRequest) Primary() (Environment, error) {
	if len(r.Environments) == 0 {
		return Environment{}, fmt.Errorf("%w: at least one environment is required", ErrMalformedRequest)
	}
	return r.Environments[0], nil
}

// HasHardware reports whether environment 0 carries a hardware requirement
// object.
func (e Environment) HasHardware() bool {
	trimmed := strings.TrimSpace(string(e.Hardware))
	return trimmed != "" && trimmed != "null"
}

// Variable returns a trimmed request variable and whether it was set.
func (e Environment) Variable(key string) (string, bool) {
	if e.Variables == nil {
		return "", false
	}
	v, ok := e.Variables[key]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}
