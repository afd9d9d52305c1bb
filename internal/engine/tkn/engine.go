// Package tkn drives PipelineRuns through the Tekton command-line client.
package tkn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/engine"
)

var startedPattern = regexp.MustCompile(`PipelineRun started:\s*(\S+)`)

type Engine struct {
	runner    Runner
	namespace string
	logger    *slog.Logger
}

func New(runner Runner, namespace string, logger *slog.Logger) (*Engine, error) {
	if runner == nil {
		return nil, errors.New("tkn runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{runner: runner, namespace: strings.TrimSpace(namespace), logger: logger}, nil
}

var _ engine.Engine = (*Engine)(nil)

// Start runs `tkn pipeline start`. The created name is read from the
// command output, or looked up by the run label when the output does not
// carry it.
func (e *Engine) Start(ctx context.Context, name string, params domain.ExecutionParameters) (domain.ExecutionRef, error) {
	args, err := startArgs(name, e.namespace, params)
	if err != nil {
		return domain.ExecutionRef{}, err
	}
	stdout, err := e.run(ctx, args...)
	if err != nil {
		return domain.ExecutionRef{}, fmt.Errorf("tkn pipeline start: %w", err)
	}

	if m := startedPattern.FindSubmatch(stdout); m != nil {
		return domain.ExecutionRef{Namespace: e.namespace, Name: string(m[1])}, nil
	}
	runID, ok := params.Labels[domain.LabelRun]
	if !ok {
		return domain.ExecutionRef{}, errors.New("tkn pipeline start: no pipelinerun name in output")
	}
	return e.FindByLabel(ctx, domain.LabelRun, runID)
}

func (e *Engine) FindByLabel(ctx context.Context, key, value string) (domain.ExecutionRef, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ExecutionRef{}, errors.New("label key is required")
	}
	args := []string{"pipelineruns", "list", "--label", key + "=" + strings.TrimSpace(value), "--output", "name"}
	args = e.withNamespace(args)
	stdout, err := e.run(ctx, args...)
	if err != nil {
		return domain.ExecutionRef{}, fmt.Errorf("tkn pipelineruns list: %w", err)
	}

	// tkn lists newest first, one "<kind>/<name>" per line.
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, after, ok := strings.Cut(line, "/"); ok {
			line = after
		}
		return domain.ExecutionRef{Namespace: e.namespace, Name: line}, nil
	}
	return domain.ExecutionRef{}, fmt.Errorf("%w: %s=%s", engine.ErrExecutionNotFound, key, value)
}

func (e *Engine) Describe(ctx context.Context, ref domain.ExecutionRef) ([]domain.Condition, error) {
	if ref.IsZero() {
		return nil, errors.New("execution ref is required")
	}
	args := []string{"pipelinerun", "describe", ref.Name, "-o", "json"}
	if ns := strings.TrimSpace(ref.Namespace); ns != "" {
		args = append(args, "-n", ns)
	} else {
		args = e.withNamespace(args)
	}
	stdout, err := e.run(ctx, args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("%w: %s", engine.ErrExecutionNotFound, ref)
		}
		return nil, fmt.Errorf("tkn pipelinerun describe: %w", err)
	}

	var run struct {
		Status struct {
			Conditions []domain.Condition `json:"conditions"`
		} `json:"status"`
	}
	if err := json.Unmarshal(stdout, &run); err != nil {
		return nil, fmt.Errorf("decode pipelinerun %s: %w", ref, err)
	}
	return run.Status.Conditions, nil
}

// run executes tkn and logs both output streams when it fails. The returned
// error carries stderr.
func (e *Engine) run(ctx context.Context, args ...string) ([]byte, error) {
	e.logger.Info("running tkn", "args", strings.Join(args, " "))
	stdout, stderr, err := e.runner.Run(ctx, args...)
	if err != nil {
		e.logger.Error("tkn command failed",
			"args", strings.Join(args, " "),
			"error", err,
			"stderr", strings.TrimSpace(string(stderr)),
			"stdout", strings.TrimSpace(string(stdout)),
		)
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout, nil
}

func (e *Engine) withNamespace(args []string) []string {
	if e.namespace == "" {
		return args
	}
	return append(args, "-n", e.namespace)
}

func startArgs(name, namespace string, params domain.ExecutionParameters) ([]string, error) {
	pipeline := strings.TrimSpace(params.Pipeline)
	if pipeline == "" {
		return nil, errors.New("pipeline name is required")
	}
	args := []string{"pipeline", "start", pipeline}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	if name = strings.TrimSpace(name); name != "" {
		args = append(args, "--prefix-name="+name)
	}
	if len(params.Labels) > 0 {
		keys := make([]string, 0, len(params.Labels))
		for k := range params.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, "--labels", k+"="+params.Labels[k])
		}
	}
	for _, p := range params.Params {
		value := p.Value
		if p.IsList() {
			value = strings.Join(p.Values, ",")
		}
		args = append(args, "--param="+p.Name+"="+value)
	}
	for _, ws := range params.Workspaces {
		switch ws.Kind {
		case domain.WorkspaceSecret:
			args = append(args, "--workspace", "name="+ws.Name+",secret="+ws.Source)
		case domain.WorkspacePVC:
			args = append(args, "--workspace", "name="+ws.Name+",claimName="+ws.Source)
		default:
			return nil, fmt.Errorf("workspace %s: unsupported kind %q", ws.Name, ws.Kind)
		}
	}
	if params.Timeout > 0 {
		args = append(args, "--pipeline-timeout="+params.Timeout.String())
	}
	if sa := strings.TrimSpace(params.ServiceAccount); sa != "" {
		args = append(args, "--serviceaccount", sa)
	}
	return append(args, "--use-param-defaults"), nil
}
