package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/deixis/publish/internal/report"
)

func TestConsole_PlainWriterHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Banner("pdtab Package Build and Publish Script")
	c.Progress("Building package")
	c.Success("Building package completed successfully")
	c.Failure("Checking package failed:")
	c.Detail("Removed %s/", "dist")
	c.Celebrate("All done!")

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("output contains escape sequences:\n%q", out)
	}
	for _, want := range []string{
		"🚀 pdtab Package Build and Publish Script\n" + strings.Repeat("=", 50) + "\n",
		"🔄 Building package...\n",
		"✅ Building package completed successfully\n",
		"❌ Checking package failed:\n",
		"   Removed dist/\n",
		"\n\n🎉 All done!\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsole_Output(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Output([]byte("line one\nline two\n\n"))
	if got := buf.String(); got != "    line one\n    line two\n" {
		t.Errorf("Output = %q", got)
	}

	buf.Reset()
	New(&buf).Output(nil)
	if buf.Len() != 0 {
		t.Errorf("Output(nil) wrote %q", buf.String())
	}
}

func TestRenderRun(t *testing.T) {
	start := time.Now()
	r := &report.RunResult{
		ID:       "4c1f3d7e-0000-4000-8000-000000000000",
		Project:  "pdtab",
		Mode:     "test-only",
		State:    "built",
		Started:  start,
		Finished: start.Add(2 * time.Second),
		Steps: []report.Step{
			{Name: "build", Status: report.StatusPass, Duration: time.Second},
			{Name: "check", Status: report.StatusFail, ExitCode: 2, Detail: "twine check"},
			{Name: "upload-test", Status: report.StatusSkipped},
		},
		Artifacts: []report.Artifact{{Name: "dist/pdtab-0.1.0.tar.gz", Size: 1024}},
		Error:     "Checking package failed (exit 2)",
	}

	var buf bytes.Buffer
	if err := RenderRun(&buf, r, r.Steps); err != nil {
		t.Fatalf("RenderRun: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Status: FAIL",
		"Run: " + r.ID,
		"upload-test",
		"twine check",
		"dist/pdtab-0.1.0.tar.gz (1024 bytes)",
		"Error: Checking package failed (exit 2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStderr(t *testing.T) {
	steps := []report.Step{
		{Name: "build", Status: report.StatusPass},
		{Name: "check", Status: report.StatusFail, CommandID: "abc", Stderr: "bad metadata\nsecond line\n", Truncated: true},
		{Name: "upload", Status: report.StatusFail, Stderr: "denied"},
	}

	var buf bytes.Buffer
	RenderStderr(&buf, steps)
	want := "\ncheck stderr (truncated, command abc):\n    bad metadata\n    second line\n" +
		"\nupload stderr:\n    denied\n"
	if got := buf.String(); got != want {
		t.Errorf("RenderStderr =\n%q\nwant\n%q", got, want)
	}
}
