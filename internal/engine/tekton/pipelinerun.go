package tekton

import (
	"encoding/json"

	"github.com/animus-labs/tfbridge/internal/platform/k8s"
)

const (
	apiVersion = "tekton.dev/v1"
	kind       = "PipelineRun"
)

var pipelineRuns = k8s.Resource{Group: "tekton.dev", Version: "v1", Plural: "pipelineruns"}

type pipelineRun struct {
	APIVersion string          `json:"apiVersion,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Metadata   k8s.ObjectMeta  `json:"metadata"`
	Spec       pipelineRunSpec `json:"spec"`
	Status     *pipelineStatus `json:"status,omitempty"`
}

type pipelineRunList struct {
	Items []pipelineRun `json:"items"`
}

type pipelineRunSpec struct {
	PipelineRef     pipelineRef       `json:"pipelineRef"`
	Params          []param           `json:"params,omitempty"`
	Workspaces      []workspace       `json:"workspaces,omitempty"`
	TaskRunTemplate *taskRunTemplate  `json:"taskRunTemplate,omitempty"`
	Timeouts        *pipelineTimeouts `json:"timeouts,omitempty"`
}

type pipelineRef struct {
	Name string `json:"name"`
}

// param holds a string or an array value; Value is raw JSON for that reason.
type param struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type workspace struct {
	Name                  string        `json:"name"`
	Secret                *secretSource `json:"secret,omitempty"`
	PersistentVolumeClaim *claimSource  `json:"persistentVolumeClaim,omitempty"`
}

type secretSource struct {
	SecretName string `json:"secretName"`
}

type claimSource struct {
	ClaimName string `json:"claimName"`
}

type taskRunTemplate struct {
	ServiceAccountName string `json:"serviceAccountName,omitempty"`
}

type pipelineTimeouts struct {
	Pipeline string `json:"pipeline,omitempty"`
}

type pipelineStatus struct {
	Conditions []k8s.Condition `json:"conditions,omitempty"`
}
