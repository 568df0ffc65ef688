package release

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Process exit codes used by the CLI.
const (
	ExitOK                  = 0
	ExitFailure             = 1
	ExitUsage               = 2
	ExitMissingRequirements = 3
	ExitInterrupted         = 130
)

// ErrNoArtifacts is returned when validation finds nothing to check.
var ErrNoArtifacts = errors.New("no built artifacts found")

// CommandError reports an external command that could not run or exited non-zero.
type CommandError struct {
	Step        string
	Description string
	Argv        []string
	ExitCode    int    // zero when the command could not be started
	RunID       string // identifies the invocation
	Stderr      string // captured error stream
	Truncated   bool   // Stderr hit the capture limit
	Err         error  // start failure, if any
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Description, e.Err)
	}
	return fmt.Sprintf("%s failed (exit %d)", e.Description, e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// MissingRequirementsError lists python modules the interpreter cannot import.
type MissingRequirementsError struct {
	Python  string
	Missing []string
}

func (e *MissingRequirementsError) Error() string {
	return fmt.Sprintf("missing required packages: %s", strings.Join(e.Missing, ", "))
}

// Hint returns the command that installs the missing packages.
func (e *MissingRequirementsError) Hint() string {
	return "pip install " + strings.Join(e.Missing, " ")
}

// ExitCode maps an error returned by the engine to a process exit status.
// A failing command propagates its own exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.ExitCode > 0 {
			return cmdErr.ExitCode
		}
		return ExitFailure
	}

	var missing *MissingRequirementsError
	if errors.As(err, &missing) {
		return ExitMissingRequirements
	}
	if errors.Is(err, ErrNoArtifacts) {
		return ExitFailure
	}
	return ExitUsage
}

// Reported reports whether err has already been printed by the engine.
func Reported(err error) bool {
	var cmdErr *CommandError
	var missing *MissingRequirementsError
	return errors.As(err, &cmdErr) || errors.As(err, &missing) || errors.Is(err, ErrNoArtifacts)
}
