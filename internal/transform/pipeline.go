// Package transform derives version artifacts from a staged file, either by
// passing the original through, skipping the version, or running an external
// conversion command against a scoped temporary directory.
package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"attachr/internal/domain"
	"attachr/internal/port"
)

// Input is the read-only view of a staged file the pipeline needs.
type Input interface {
	Bytes() []byte
	Extension() string
}

// Artifact is the result of transforming one version.
type Artifact struct {
	Data    []byte
	Ext     string
	Skipped bool
}

// Pipeline runs version transforms.
type Pipeline struct {
	runner  port.CommandRunner
	tempDir string
	timeout time.Duration
}

// NewPipeline creates a Pipeline. An empty tempDir uses the OS default; a
// zero timeout leaves cancellation entirely to the caller's context.
func NewPipeline(runner port.CommandRunner, tempDir string, timeout time.Duration) *Pipeline {
	return &Pipeline{runner: runner, tempDir: tempDir, timeout: timeout}
}

// Run produces the artifact for version according to spec.
func (p *Pipeline) Run(ctx context.Context, version string, spec Spec, in Input) (*Artifact, error) {
	switch spec.Kind {
	case KindSkip:
		return &Artifact{Skipped: true}, nil
	case KindCommand:
		return p.runCommand(ctx, version, spec, in)
	default:
		return &Artifact{Data: in.Bytes(), Ext: in.Extension()}, nil
	}
}

func (p *Pipeline) runCommand(ctx context.Context, version string, spec Spec, in Input) (*Artifact, error) {
	if p.runner == nil {
		return nil, &domain.TransformError{Version: version, Command: spec.Command, Err: errors.New("no command runner configured")}
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp(p.tempDir, "attachr-"+version+"-")
	if err != nil {
		return nil, &domain.TransformError{Version: version, Command: spec.Command, Err: fmt.Errorf("create temp dir: %w", err)}
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, withExt("input", in.Extension()))
	outputPath := filepath.Join(dir, withExt("output", spec.Extension(in.Extension())))
	if err := os.WriteFile(inputPath, in.Bytes(), 0o600); err != nil {
		return nil, &domain.TransformError{Version: version, Command: spec.Command, Err: fmt.Errorf("write input: %w", err)}
	}

	stderr, err := p.runner.Run(ctx, spec.Command, ExpandArgs(spec.Args, inputPath, outputPath))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, &domain.TransformError{Version: version, Command: spec.Command, Stderr: string(stderr), Err: err}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = errors.New("command produced no output file")
		}
		return nil, &domain.TransformError{Version: version, Command: spec.Command, Stderr: string(stderr), Err: err}
	}

	return &Artifact{Data: data, Ext: spec.Extension(in.Extension())}, nil
}

func withExt(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}
