package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/deixis/publish/internal/report"
)

// RenderSteps writes the step records of a run as a table.
func RenderSteps(w io.Writer, steps []report.Step) error {
	table := tablewriter.NewWriter(w)
	table.Header("Step", "Status", "Exit", "Duration", "Detail")

	for _, s := range steps {
		exit := "-"
		if s.Status == report.StatusPass || s.Status == report.StatusFail {
			exit = fmt.Sprintf("%d", s.ExitCode)
		}
		if err := table.Append(
			s.Name,
			string(s.Status),
			exit,
			s.Duration.Round(time.Millisecond).String(),
			s.Detail,
		); err != nil {
			return fmt.Errorf("rendering step %s: %w", s.Name, err)
		}
	}

	return table.Render()
}

// RenderRun writes a short header for result followed by its step table.
func RenderRun(w io.Writer, result *report.RunResult, steps []report.Step) error {
	status := "PASS"
	if !result.Passed() {
		status = "FAIL"
	}
	fmt.Fprintf(w, "Status: %s\n", status)
	fmt.Fprintf(w, "Run: %s\n", result.ID)
	fmt.Fprintf(w, "Project: %s (%s mode)\n", result.Project, result.Mode)
	fmt.Fprintf(w, "State: %s\n", result.State)
	if !result.Started.IsZero() {
		fmt.Fprintf(w, "Started: %s (%s)\n", result.Started.Format(time.RFC3339), result.Elapsed().Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	if err := RenderSteps(w, steps); err != nil {
		return err
	}

	if len(result.Artifacts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Artifacts:")
		for _, a := range result.Artifacts {
			fmt.Fprintf(w, "  %s (%d bytes)\n", a.Name, a.Size)
		}
	}
	if result.Error != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}
	return nil
}

// RenderStderr writes the captured error stream of every step that has one,
// noting when the capture limit cut it off.
func RenderStderr(w io.Writer, steps []report.Step) {
	for _, s := range steps {
		if s.Stderr == "" {
			continue
		}
		fmt.Fprintln(w)
		switch {
		case s.Truncated:
			fmt.Fprintf(w, "%s stderr (truncated, command %s):\n", s.Name, s.CommandID)
		case s.CommandID != "":
			fmt.Fprintf(w, "%s stderr (command %s):\n", s.Name, s.CommandID)
		default:
			fmt.Fprintf(w, "%s stderr:\n", s.Name)
		}
		for _, line := range strings.Split(strings.TrimRight(s.Stderr, "\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
