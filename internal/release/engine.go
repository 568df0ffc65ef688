// Package release runs the build-and-publish pipeline for a Python project:
// requirements, clean, tests, build, validation and upload, in that order,
// stopping at the first failure. It is consumed by both the CLI and the MCP
// server.
package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deixis/publish/internal/config"
	"github.com/deixis/publish/internal/console"
	"github.com/deixis/publish/internal/report"
	"github.com/deixis/publish/internal/runner"
)

// CommandRunner executes commands within the project directory.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Engine holds shared dependencies for all release steps.
type Engine struct {
	Config  *config.Config
	Runner  CommandRunner
	Dir     string // project root; every command runs here
	Name    string // distribution name
	Console *console.Console
	Prompt  *Prompter // nil behaves like an exhausted input
	Verbose bool      // echo captured stdout of successful commands
}

// Mode selects what happens after the package is validated. It is fixed for
// the lifetime of a run.
type Mode int

const (
	// Interactive offers the upload menu.
	Interactive Mode = iota
	// TestOnly uploads to the test registry without asking.
	TestOnly
	// BuildOnly stops after validation.
	BuildOnly
)

func (m Mode) String() string {
	switch m {
	case Interactive:
		return "interactive"
	case TestOnly:
		return "test-only"
	case BuildOnly:
		return "build-only"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// runCommand runs argv in the project directory. A failure to start or a
// non-zero exit prints the captured error stream and returns a *CommandError.
func (e *Engine) runCommand(ctx context.Context, step, description string, argv []string) (*runner.Result, error) {
	e.Console.Progress(description)

	res, err := e.Runner.Run(ctx, argv)
	if err != nil {
		e.Console.Failure(description + " failed:")
		e.Console.Printf("Error: %v", err)
		return nil, &CommandError{Step: step, Description: description, Argv: argv, Err: err}
	}
	if res.Failed() {
		e.Console.Failure(description + " failed:")
		e.Console.Printf("Error: %s", res.Stderr)
		if e.Verbose {
			e.Console.Output(res.Stdout)
		}
		return res, &CommandError{
			Step:        step,
			Description: description,
			Argv:        argv,
			ExitCode:    res.ExitCode,
			RunID:       res.RunID,
			Stderr:      string(res.Stderr),
			Truncated:   res.Truncated,
		}
	}

	e.Console.Success(description + " completed successfully")
	if e.Verbose {
		e.Console.Output(res.Stdout)
	}
	return res, nil
}

// Artifacts returns the built distributions matching the artifact glob,
// relative to the project root and sorted by name.
func (e *Engine) Artifacts() ([]report.Artifact, error) {
	pattern := e.Config.ArtifactGlob()
	matches, err := filepath.Glob(filepath.Join(e.Dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("artifact pattern %q: %w", pattern, err)
	}

	var out []report.Artifact
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(e.Dir, m)
		if err != nil {
			continue
		}
		out = append(out, report.Artifact{Name: rel, Size: info.Size()})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w matching %s", ErrNoArtifacts, pattern)
	}
	return out, nil
}

func artifactNames(artifacts []report.Artifact) []string {
	names := make([]string, len(artifacts))
	for i, a := range artifacts {
		names[i] = a.Name
	}
	return names
}
