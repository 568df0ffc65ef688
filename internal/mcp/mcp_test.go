package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/publish/internal/config"
	"github.com/deixis/publish/internal/report"
	"github.com/deixis/publish/internal/runner"
)

// fakePython stands in for the interpreter. The build fails when the
// project holds a file named fail-build.
const fakePython = `#!/bin/sh
echo "$*" >> %q
if [ "$1" = "--version" ]; then
	echo "Python 3.12.1"
	exit 0
fi
if [ "$1" = "-m" ] && [ "$2" = build ]; then
	if [ -f fail-build ]; then
		echo "error: build broke" >&2
		exit 1
	fi
	mkdir -p dist && : > dist/demo-0.1.0.tar.gz
fi
exit 0
`

type fixture struct {
	dir   string
	calls string
	cs    *mcp.ClientSession
}

// setup creates a publish MCP server and client over in-memory transports,
// serving a fresh project directory. opts adjust the configuration.
func setup(t *testing.T, opts ...func(*config.Config)) *fixture {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"),
		[]byte("[project]\nname = \"demo\"\nversion = \"0.1.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	bin := t.TempDir()
	python := filepath.Join(bin, "python")
	calls := filepath.Join(bin, "calls.log")
	if err := os.WriteFile(python, []byte(fmt.Sprintf(fakePython, calls)), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{RawPython: python}
	for _, opt := range opts {
		opt(cfg)
	}
	store := report.NewLRUStore(5, report.NewDiskStore(t.TempDir()))
	r := &runner.Runner{
		Workspace: dir,
		Timeout:   30 * time.Second,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	server := NewServer(cfg, r, store, dir)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return &fixture{dir: dir, calls: calls, cs: cs}
}

func (f *fixture) touch(t *testing.T, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dir, name), nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) invocations(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.calls)
	if os.IsNotExist(err) {
		return ""
	}
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	return res
}

// callOK calls a tool and fails the test if the result is an error.
func callOK(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res := callTool(t, cs, name, args)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("%s returned an error:\n%s", name, text)
	}
	return text
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func assertContains(t *testing.T, text string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(text, w) {
			t.Errorf("expected %q in output:\n%s", w, text)
		}
	}
}

func assertNotContains(t *testing.T, text string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(text, u) {
			t.Errorf("unexpected %q in output:\n%s", u, text)
		}
	}
}

// runID extracts the run ID from a "Run: <id>" line or an inspect hint.
func runID(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Run: ") {
			return strings.TrimPrefix(line, "Run: ")
		}
		if rest, ok := strings.CutPrefix(line, `Inspect with release_inspect(run_id="`); ok {
			if id, _, ok := strings.Cut(rest, `"`); ok {
				return id
			}
		}
	}
	t.Fatalf("no Run ID found in output:\n%s", text)
	return ""
}

func TestTools_NoProductionUpload(t *testing.T) {
	f := setup(t)
	res, err := f.cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"release_build", "release_inspect", "release_project", "release_upload_test"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

// --- release_project ---

func TestReleaseProject(t *testing.T) {
	f := setup(t)
	f.touch(t, "test_install.py")

	text := callOK(t, f.cs, "release_project", nil)
	assertContains(t, text,
		"Project: demo",
		"Version: 0.1.0",
		"Config: (defaults)",
		"Python: Python 3.12.1",
		"Requires: build, twine",
		"test_examples.py (absent, skipped)",
		"test_install.py (present)",
	)
}

// --- release_build ---

func TestReleaseBuild_Passing(t *testing.T) {
	f := setup(t)
	text := callOK(t, f.cs, "release_build", nil)

	assertContains(t, text, "Status: PASS", "build-only mode", "dist/demo-0.1.0.tar.gz", "Package built and validated")
	if runID(t, text) == "" {
		t.Error("empty run id")
	}

	calls := f.invocations(t)
	assertContains(t, calls, "-m twine check dist/demo-0.1.0.tar.gz")
	assertNotContains(t, calls, "upload")
}

func TestReleaseBuild_Failing(t *testing.T) {
	f := setup(t)
	f.touch(t, "fail-build")

	text := callOK(t, f.cs, "release_build", nil)
	assertContains(t, text, "Status: FAIL", "error: build broke", `step="build"`)
	assertNotContains(t, f.invocations(t), "twine check")
}

func TestReleaseBuild_UnreportedErrorIsStored(t *testing.T) {
	f := setup(t, func(c *config.Config) { c.Check.Artifacts = "dist/[" })

	res := callTool(t, f.cs, "release_build", nil)
	text := resultText(res)
	if !res.IsError {
		t.Fatalf("expected an error result for a malformed artifact pattern:\n%s", text)
	}
	assertContains(t, text, "build-only failed", "artifact pattern")

	// The failed run is still available for drill-down.
	inspected := callOK(t, f.cs, "release_inspect", map[string]any{"run_id": runID(t, text)})
	assertContains(t, inspected, "Status: FAIL", "check")
}

// --- release_upload_test ---

func TestReleaseUploadTest(t *testing.T) {
	f := setup(t)
	text := callOK(t, f.cs, "release_upload_test", nil)

	assertContains(t, text, "Status: PASS", "upload-test", "Test upload completed!")
	assertContains(t, f.invocations(t), "-m twine upload --repository testpypi dist/demo-0.1.0.tar.gz")
}

// --- release_inspect ---

func TestReleaseInspect_MissingRunID(t *testing.T) {
	f := setup(t)
	_, err := f.cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "release_inspect",
		Arguments: map[string]any{"step": "build"},
	})
	if err == nil {
		t.Error("expected error for missing run_id")
	}
}

func TestReleaseInspect_InvalidRunID(t *testing.T) {
	f := setup(t)
	res := callTool(t, f.cs, "release_inspect", map[string]any{"run_id": "nonexistent-id"})
	if !res.IsError {
		t.Errorf("expected error result, got:\n%s", resultText(res))
	}
}

func TestReleaseInspect_AfterFailingBuild(t *testing.T) {
	f := setup(t)
	f.touch(t, "fail-build")

	id := runID(t, callOK(t, f.cs, "release_build", nil))

	text := callOK(t, f.cs, "release_inspect", map[string]any{"run_id": id, "step": "build"})
	assertContains(t, text, "Status: FAIL", "build stderr (command ", "    error: build broke")
	assertNotContains(t, text, "requirements", "truncated")
}

func TestReleaseInspect_UnknownStep(t *testing.T) {
	f := setup(t)
	id := runID(t, callOK(t, f.cs, "release_build", nil))

	res := callTool(t, f.cs, "release_inspect", map[string]any{"run_id": id, "step": "deploy"})
	if !res.IsError {
		t.Errorf("expected error result, got:\n%s", resultText(res))
	}
	assertContains(t, resultText(res), "deploy")
}
