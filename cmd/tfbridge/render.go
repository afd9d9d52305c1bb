package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/animus-labs/tfbridge/internal/config"
	"github.com/animus-labs/tfbridge/internal/domain"
	"github.com/animus-labs/tfbridge/internal/platform/requestid"
	"github.com/animus-labs/tfbridge/internal/translate"
)

type renderedExecution struct {
	Name           string              `yaml:"name"`
	Pipeline       string              `yaml:"pipeline"`
	Labels         map[string]string   `yaml:"labels"`
	ServiceAccount string              `yaml:"serviceAccount,omitempty"`
	Timeout        string              `yaml:"timeout,omitempty"`
	Params         []renderedParam     `yaml:"params"`
	Workspaces     []renderedWorkspace `yaml:"workspaces"`
}

type renderedParam struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

type renderedWorkspace struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Source string `yaml:"source"`
}

func newRenderCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "render REQUEST.json",
		Short: "Print the pipeline execution a request would start, without starting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			req, err := domain.DecodeRunRequest(raw)
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if runID == "" {
				if runID, err = requestid.New(); err != nil {
					return err
				}
			}
			params, err := translate.Translate(runID, req, cfg.Translate)
			if err != nil {
				return err
			}
			return writeExecution(cmd.OutOrStdout(), translate.ExecutionName(runID), params)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id to render with (random when empty)")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return raw, nil
}

func writeExecution(w io.Writer, name string, params domain.ExecutionParameters) error {
	out := renderedExecution{
		Name:           name,
		Pipeline:       params.Pipeline,
		Labels:         params.Labels,
		ServiceAccount: params.ServiceAccount,
	}
	if params.Timeout > 0 {
		out.Timeout = params.Timeout.String()
	}
	for _, p := range params.Params {
		var value any = p.Value
		if p.IsList() {
			value = p.Values
		}
		out.Params = append(out.Params, renderedParam{Name: p.Name, Value: value})
	}
	for _, ws := range params.Workspaces {
		out.Workspaces = append(out.Workspaces, renderedWorkspace{Name: ws.Name, Kind: string(ws.Kind), Source: ws.Source})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
