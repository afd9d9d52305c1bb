package tkn

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one tkn invocation and returns its separated output.
type Runner interface {
	Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	bin string
}

// NewExecRunner resolves the tkn binary on PATH.
func NewExecRunner(bin string) (Runner, error) {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		bin = "tkn"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("tkn binary not found: %w", err)
	}
	return execRunner{bin: bin}, nil
}

func (r execRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
