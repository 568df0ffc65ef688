// Package runner executes external tools inside a project directory,
// blocking until they exit and capturing both output streams.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxOutput caps each captured stream when MaxOutput is unset.
const DefaultMaxOutput = 1 << 20

// Runner executes commands within a project directory.
type Runner struct {
	Workspace string
	Timeout   time.Duration // zero means no timeout
	MaxOutput int           // bytes per stream
}

// Run executes a command with the given argv in the workspace. The first
// element is the binary name (resolved via PATH), and the rest are arguments.
// Stdin reads from the null device.
// A non-zero exit is reported through Result.ExitCode; an error is returned
// only when the process could not be run at all.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Workspace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Binary not found or other exec error.
			return nil, fmt.Errorf("executing %s: %w", argv[0], runErr)
		}
		exitCode = exitErr.ExitCode()
		if exitCode < 0 {
			// Killed by a signal, typically an interrupt or the timeout.
			exitCode = 1
			if ctxErr := ctx.Err(); ctxErr != nil {
				fmt.Fprintf(&stderr, "\n%s: %v", argv[0], ctxErr)
			}
		}
	}

	return &Result{
		RunID:     uuid.New().String(),
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.Len() >= maxOutput || stderr.Len() >= maxOutput,
	}, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		// Report all bytes as consumed so the copy goroutine keeps draining the pipe.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
