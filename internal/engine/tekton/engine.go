// Package tekton starts and inspects PipelineRuns through the Kubernetes API.
package tekton

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/engine"
	"github.com/animus-labs/tfbridge/internal/platform/k8s"
)

type Engine struct {
	client    *k8s.Client
	namespace string
	logger    *slog.Logger
}

func New(client *k8s.Client, namespace string, logger *slog.Logger) (*Engine, error) {
	if client == nil {
		return nil, errors.New("kubernetes client is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = client.Namespace()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, namespace: namespace, logger: logger}, nil
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) Start(ctx context.Context, name string, params domain.ExecutionParameters) (domain.ExecutionRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ExecutionRef{}, errors.New("execution name is required")
	}
	run, err := buildPipelineRun(name, e.namespace, params)
	if err != nil {
		return domain.ExecutionRef{}, err
	}

	var created pipelineRun
	if err := e.client.Create(ctx, pipelineRuns, e.namespace, run, &created); err != nil {
		e.logger.Error("pipelinerun create failed",
			"pipeline", params.Pipeline,
			"execution", name,
			"namespace", e.namespace,
			"error", err,
		)
		return domain.ExecutionRef{}, fmt.Errorf("create pipelinerun %s: %w", name, err)
	}

	ref := domain.ExecutionRef{Namespace: e.namespace, Name: name}
	if created.Metadata.Name != "" {
		ref.Name = created.Metadata.Name
	}
	if created.Metadata.Namespace != "" {
		ref.Namespace = created.Metadata.Namespace
	}
	return ref, nil
}

// FindByLabel returns the most recently created PipelineRun carrying the
// label.
func (e *Engine) FindByLabel(ctx context.Context, key, value string) (domain.ExecutionRef, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ExecutionRef{}, errors.New("label key is required")
	}
	var list pipelineRunList
	if err := e.client.List(ctx, pipelineRuns, e.namespace, key+"="+strings.TrimSpace(value), &list); err != nil {
		return domain.ExecutionRef{}, fmt.Errorf("list pipelineruns: %w", err)
	}
	if len(list.Items) == 0 {
		return domain.ExecutionRef{}, fmt.Errorf("%w: %s=%s", engine.ErrExecutionNotFound, key, value)
	}
	items := list.Items
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].Metadata.CreationTimestamp, items[j].Metadata.CreationTimestamp
		if ti == nil || tj == nil {
			return ti != nil
		}
		return ti.After(*tj)
	})
	ns := items[0].Metadata.Namespace
	if ns == "" {
		ns = e.namespace
	}
	return domain.ExecutionRef{Namespace: ns, Name: items[0].Metadata.Name}, nil
}

func (e *Engine) Describe(ctx context.Context, ref domain.ExecutionRef) ([]domain.Condition, error) {
	if ref.IsZero() {
		return nil, errors.New("execution ref is required")
	}
	var run pipelineRun
	if err := e.client.Get(ctx, pipelineRuns, ref.Namespace, ref.Name, &run); err != nil {
		if errors.Is(err, k8s.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", engine.ErrExecutionNotFound, ref)
		}
		return nil, fmt.Errorf("get pipelinerun %s: %w", ref, err)
	}
	if run.Status == nil {
		return nil, nil
	}
	out := make([]domain.Condition, 0, len(run.Status.Conditions))
	for _, c := range run.Status.Conditions {
		out = append(out, domain.Condition{
			Type:    c.Type,
			Status:  c.Status,
			Reason:  c.Reason,
			Message: c.Message,
		})
	}
	return out, nil
}

func buildPipelineRun(name, namespace string, params domain.ExecutionParameters) (pipelineRun, error) {
	pipeline := strings.TrimSpace(params.Pipeline)
	if pipeline == "" {
		return pipelineRun{}, errors.New("pipeline name is required")
	}

	run := pipelineRun{
		APIVersion: apiVersion,
		Kind:       kind,
		Metadata: k8s.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    params.Labels,
		},
		Spec: pipelineRunSpec{
			PipelineRef: pipelineRef{Name: pipeline},
		},
	}

	for _, p := range params.Params {
		var raw []byte
		var err error
		if p.IsList() {
			raw, err = json.Marshal(p.Values)
		} else {
			raw, err = json.Marshal(p.Value)
		}
		if err != nil {
			return pipelineRun{}, fmt.Errorf("encode param %s: %w", p.Name, err)
		}
		run.Spec.Params = append(run.Spec.Params, param{Name: p.Name, Value: raw})
	}

	for _, ws := range params.Workspaces {
		binding := workspace{Name: ws.Name}
		switch ws.Kind {
		case domain.WorkspaceSecret:
			binding.Secret = &secretSource{SecretName: ws.Source}
		case domain.WorkspacePVC:
			binding.PersistentVolumeClaim = &claimSource{ClaimName: ws.Source}
		default:
			return pipelineRun{}, fmt.Errorf("workspace %s: unsupported kind %q", ws.Name, ws.Kind)
		}
		run.Spec.Workspaces = append(run.Spec.Workspaces, binding)
	}

	if sa := strings.TrimSpace(params.ServiceAccount); sa != "" {
		run.Spec.TaskRunTemplate = &taskRunTemplate{ServiceAccountName: sa}
	}
	if params.Timeout > 0 {
		run.Spec.Timeouts = &pipelineTimeouts{Pipeline: params.Timeout.String()}
	}
	return run, nil
}
