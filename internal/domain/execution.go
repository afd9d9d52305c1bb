package domain

import (
	"strings"
	"time"
)

// Param is a single named pipeline parameter. Values is set for list
// parameters, Value otherwise.
type Param struct {
	Name   string
	Value  string
	Values []string
}

func (p Param) IsList() bool {
	return p.Values != nil
}

// WorkspaceKind selects how a workspace is bound.
type WorkspaceKind string

const (
	WorkspaceSecret WorkspaceKind = "secret"
	WorkspacePVC    WorkspaceKind = "persistentVolumeClaim"
)

type Workspace struct {
	Name string
	Kind WorkspaceKind
	// Source is the secret name or the claim name.
	Source string
}

// LabelRun correlates a pipeline execution with its run-id.
const LabelRun = "run"

// ExecutionParameters is everything the engine needs to start one pipeline
// execution for a run.
type ExecutionParameters struct {
	Pipeline       string
	Params         []Param
	Workspaces     []Workspace
	Labels         map[string]string
	ServiceAccount string
	Timeout        time.Duration
}

// Param looks up a parameter by name.
func (p ExecutionParameters) Param(name string) (Param, bool) {
	for _, param := range p.Params {
		if param.Name == name {
			return param, true
		}
	}
	return Param{}, false
}

// ExecutionRef locates a pipeline execution inside the engine.
type ExecutionRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func (r ExecutionRef) String() string {
	if strings.TrimSpace(r.Namespace) == "" {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

func (r ExecutionRef) IsZero() bool {
	return strings.TrimSpace(r.Name) == ""
}

// Condition is one status condition reported by the engine, in report order.
type Condition struct {
	Type    string
	Status  string
	Reason  string
	Message string
}
