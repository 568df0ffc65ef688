// Package report persists release run records so they can be inspected
// after the process that produced them has exited.
package report

import (
	"fmt"
	"time"
)

// Status is the outcome of a single pipeline step.
type Status string

const (
	StatusPass      Status = "pass"
	StatusFail      Status = "fail"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult records one execution of the release pipeline.
type RunResult struct {
	ID        string     `json:"id"`
	Project   string     `json:"project"`
	Dir       string     `json:"dir"`
	Mode      string     `json:"mode"`
	State     string     `json:"state"` // last state reached
	Started   time.Time  `json:"started"`
	Finished  time.Time  `json:"finished"`
	Steps     []Step     `json:"steps"`
	Removed   []string   `json:"removed,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Step records the outcome of one pipeline step.
type Step struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code,omitempty"`
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail,omitempty"`

	// Set when the step's command failed.
	CommandID string `json:"command_id,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Truncated bool   `json:"truncated,omitempty"` // stderr hit the capture limit
}

// Artifact is a built distribution file.
type Artifact struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Passed reports whether the run finished without error.
func (r *RunResult) Passed() bool {
	return r.Error == ""
}

// Step returns the record of the named step.
func (r *RunResult) Step(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Failed returns the step that stopped the run, if any.
func (r *RunResult) Failed() (Step, bool) {
	for _, s := range r.Steps {
		if s.Status == StatusFail {
			return s, true
		}
	}
	return Step{}, false
}

// Elapsed returns the wall time of the run.
func (r *RunResult) Elapsed() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Filter returns the steps named in names, or all steps when names is empty.
// Unknown names are an error so typos do not produce an empty report.
func Filter(result *RunResult, names ...string) ([]Step, error) {
	if len(names) == 0 {
		return result.Steps, nil
	}
	out := make([]Step, 0, len(names))
	for _, n := range names {
		s, ok := result.Step(n)
		if !ok {
			return nil, fmt.Errorf("run %s has no step %q", result.ID, n)
		}
		out = append(out, s)
	}
	return out, nil
}
