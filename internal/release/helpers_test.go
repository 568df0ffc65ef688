package release

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/deixis/publish/internal/config"
	"github.com/deixis/publish/internal/console"
	"github.com/deixis/publish/internal/runner"
)

// fakeTools describes a stand-in python interpreter. It records every
// invocation in a log file and exits with the configured codes.
type fakeTools struct {
	missing     []string // modules whose import fails
	testExit    int
	buildExit   int
	checkExit   int
	uploadExit  int
	noArtifacts bool // build succeeds without producing dist/
}

const fakePython = `#!/bin/sh
echo "$*" >> %q
case "$1" in
-c)
	case "$2" in
	%s) echo "ModuleNotFoundError: $2" >&2; exit 1 ;;
	esac
	exit 0 ;;
-m)
	if [ "$2" = build ]; then
		%s
		[ %d -eq 0 ] || { echo "error: build backend exploded" >&2; exit %d; }
		exit 0
	fi
	case "$3" in
	check) [ %d -eq 0 ] || { echo "InvalidDistribution: bad metadata" >&2; exit %d; } ;;
	upload) [ %d -eq 0 ] || { echo "HTTPError: 403 Forbidden" >&2; exit %d; } ;;
	esac
	exit 0 ;;
*)
	[ %d -eq 0 ] || { echo "AssertionError in $1" >&2; exit %d; }
	exit 0 ;;
esac
`

// install writes the interpreter script and returns its path and the path
// of its call log.
func (f fakeTools) install(t *testing.T) (python, calls string) {
	t.Helper()
	dir := t.TempDir()
	python = filepath.Join(dir, "python")
	calls = filepath.Join(dir, "calls.log")

	missing := `"__none__"`
	if len(f.missing) > 0 {
		parts := make([]string, len(f.missing))
		for i, m := range f.missing {
			parts[i] = fmt.Sprintf(`"import %s"`, m)
		}
		missing = strings.Join(parts, "|")
	}
	produce := "mkdir -p dist && : > dist/demo-0.1.0.tar.gz && : > dist/demo-0.1.0-py3-none-any.whl"
	if f.noArtifacts {
		produce = ":"
	}

	script := fmt.Sprintf(fakePython, calls, missing, produce,
		f.buildExit, f.buildExit,
		f.checkExit, f.checkExit,
		f.uploadExit, f.uploadExit,
		f.testExit, f.testExit)
	if err := os.WriteFile(python, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return python, calls
}

type harness struct {
	engine *Engine
	out    *bytes.Buffer
	calls  string
	dir    string
}

// newHarness returns an engine over an empty project directory, answering
// prompts from input.
func newHarness(t *testing.T, tools fakeTools, input string) *harness {
	t.Helper()
	dir := t.TempDir()
	python, calls := tools.install(t)

	var out bytes.Buffer
	con := console.New(&out)
	return &harness{
		engine: &Engine{
			Config:  &config.Config{RawPython: python},
			Runner:  &runner.Runner{Workspace: dir},
			Dir:     dir,
			Name:    "demo",
			Console: con,
			Prompt:  NewPrompter(strings.NewReader(input), con),
		},
		out:   &out,
		calls: calls,
		dir:   dir,
	}
}

// invocations returns the argument lists the fake interpreter received.
func (h *harness) invocations(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(h.calls)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// count returns how many invocations start with prefix.
func (h *harness) count(t *testing.T, prefix string) int {
	n := 0
	for _, c := range h.invocations(t) {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (h *harness) touch(t *testing.T, rel string) {
	t.Helper()
	path := filepath.Join(h.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// contains fails the test unless every want appears in the engine output.
func (h *harness) contains(t *testing.T, want ...string) {
	t.Helper()
	out := h.out.String()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

// lacks fails the test if any of unwanted appears in the engine output.
func (h *harness) lacks(t *testing.T, unwanted ...string) {
	t.Helper()
	out := h.out.String()
	for _, u := range unwanted {
		if strings.Contains(out, u) {
			t.Errorf("output unexpectedly contains %q:\n%s", u, out)
		}
	}
}

func (h *harness) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(h.dir, rel))
	return err == nil
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
