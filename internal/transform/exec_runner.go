package transform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct{}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args, killing the process when ctx is done.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stderr.Bytes(), fmt.Errorf("run %s: %w", name, err)
	}
	return stderr.Bytes(), nil
}
