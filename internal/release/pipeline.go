package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/publish/internal/report"
)

// Step names recorded in run reports.
const (
	StepRequirements = "requirements"
	StepClean        = "clean"
	StepTest         = "test"
	StepBuild        = "build"
	StepCheck        = "check"
	StepUploadTest   = "upload-test"
	StepUpload       = "upload"
)

// gate is a pipeline step whose failure ends the run.
type gate struct {
	name  string
	state State
	run   func(context.Context) (detail string, err error)
}

// Run executes requirements → clean → tests → build → validation, stopping
// on the first failure, then acts on mode. The returned Outcome is never nil
// and its RunResult records every step, including those that did not run.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Outcome, error) {
	rr := &report.RunResult{
		ID:      uuid.New().String(),
		Project: e.Name,
		Dir:     e.Dir,
		Mode:    mode.String(),
		Started: time.Now(),
	}
	out := &Outcome{RunResult: rr, Mode: mode}
	out.enter(StateStart)

	err := e.run(ctx, mode, out)
	rr.Finished = time.Now()
	if err != nil {
		rr.Error = err.Error()
		return out, err
	}
	out.enter(StateDone)
	return out, nil
}

func (e *Engine) run(ctx context.Context, mode Mode, out *Outcome) error {
	rr := out.RunResult
	e.Console.Banner(e.Name + " Package Build and Publish Script")

	gates := e.gates(rr)
	for _, g := range gates {
		rr.Steps = append(rr.Steps, report.Step{Name: g.name, Status: report.StatusSkipped})
	}
	for i, g := range gates {
		if err := record(ctx, &rr.Steps[i], g.run); err != nil {
			return err
		}
		out.enter(g.state)
	}

	switch mode {
	case TestOnly:
		if err := e.uploadTestStep(ctx, out); err != nil {
			return err
		}
		e.Console.Celebrate("Test upload completed!")
		e.Console.Printf("To test installation:")
		e.Console.Printf("pip install --index-url %s %s", e.Config.TestIndex(), e.Name)
	case BuildOnly:
		e.Console.Success("Package built and validated")
	default:
		if err := e.menu(ctx, out); err != nil {
			return err
		}
	}

	e.Console.Celebrate("All done!")
	return nil
}

func (e *Engine) gates(rr *report.RunResult) []gate {
	return []gate{
		{StepRequirements, StateRequirementsChecked, func(ctx context.Context) (string, error) {
			return strings.Join(e.Config.Requirements(), ", "), e.CheckRequirements(ctx)
		}},
		{StepClean, StateCleaned, func(ctx context.Context) (string, error) {
			res := e.Clean(ctx)
			rr.Removed = res.Removed
			detail := fmt.Sprintf("removed %d", len(res.Removed))
			if len(res.Failed) > 0 {
				detail += fmt.Sprintf(", %d not removed", len(res.Failed))
			}
			return detail, nil
		}},
		{StepTest, StateTested, func(ctx context.Context) (string, error) {
			ran, err := e.RunTests(ctx)
			if len(ran) == 0 && err == nil {
				return "no entry points present", nil
			}
			return strings.Join(ran, ", "), err
		}},
		{StepBuild, StateBuilt, func(ctx context.Context) (string, error) {
			return "", e.Build(ctx)
		}},
		{StepCheck, StateValidated, func(ctx context.Context) (string, error) {
			artifacts, err := e.CheckPackage(ctx)
			rr.Artifacts = artifacts
			return fmt.Sprintf("%d artifacts", len(artifacts)), err
		}},
	}
}

// menu offers the three-way choice after a successful validation.
func (e *Engine) menu(ctx context.Context, out *Outcome) error {
	e.Console.Printf("")
	e.Console.Phase("📋", "Built package successfully! What would you like to do?")
	e.Console.Printf("1. Upload to Test PyPI (recommended first)")
	e.Console.Printf("2. Upload to PyPI")
	e.Console.Printf("3. Exit")

	choice, err := e.Prompt.Ask(ctx, "Enter your choice (1-3): ")
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch choice {
	case "1":
		return e.uploadTestStep(ctx, out)
	case "2":
		return e.uploadStep(ctx, out)
	default:
		e.Console.Printf("Exiting without upload.")
		out.enter(StateExit)
		return nil
	}
}

func (e *Engine) uploadTestStep(ctx context.Context, out *Outcome) error {
	rr := out.RunResult
	rr.Steps = append(rr.Steps, report.Step{Name: StepUploadTest})
	err := record(ctx, &rr.Steps[len(rr.Steps)-1], func(ctx context.Context) (string, error) {
		return e.Config.TestRepository(), e.UploadTest(ctx)
	})
	if err != nil {
		return err
	}
	out.enter(StateTestUploaded)
	return nil
}

func (e *Engine) uploadStep(ctx context.Context, out *Outcome) error {
	out.enter(StateUploadDecision)

	rr := out.RunResult
	rr.Steps = append(rr.Steps, report.Step{Name: StepUpload})
	step := &rr.Steps[len(rr.Steps)-1]

	var uploaded bool
	err := record(ctx, step, func(ctx context.Context) (string, error) {
		var err error
		uploaded, err = e.UploadProduction(ctx)
		return "", err
	})
	if err != nil {
		return err
	}
	if !uploaded {
		step.Status = report.StatusCancelled
		step.Detail = "declined at confirmation"
		out.enter(StateCancelled)
		return nil
	}
	out.enter(StateUploaded)
	return nil
}

// record runs fn and stores its outcome in s.
func record(ctx context.Context, s *report.Step, fn func(context.Context) (string, error)) error {
	start := time.Now()
	detail, err := fn(ctx)
	s.Duration = time.Since(start)
	s.Detail = detail

	if err == nil {
		s.Status = report.StatusPass
		return nil
	}

	s.Status = report.StatusFail
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		s.ExitCode = cmdErr.ExitCode
		s.CommandID = cmdErr.RunID
		s.Stderr = cmdErr.Stderr
		s.Truncated = cmdErr.Truncated
	}
	if s.Detail == "" {
		s.Detail = err.Error()
	}
	return err
}
