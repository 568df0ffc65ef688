package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type projectParams struct{}

func (h *handler) projectHandler(ctx context.Context, req *mcp.CallToolRequest, _ projectParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	cfg := h.cfg

	fmt.Fprintf(&b, "Project: %s\n", h.meta.Name)
	if h.meta.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", h.meta.Version)
	}
	fmt.Fprintf(&b, "Directory: %s\n", h.dir)
	if h.configPath != "" {
		fmt.Fprintf(&b, "Config: %s\n", h.configPath)
	} else {
		fmt.Fprintln(&b, "Config: (defaults)")
	}
	fmt.Fprintln(&b)

	// Interpreter version. Older interpreters print it on stderr.
	res, err := h.runner.Run(ctx, []string{cfg.Python(), "--version"})
	switch {
	case err != nil:
		fmt.Fprintf(&b, "Python: unavailable (%v)\n", err)
	case res.Failed():
		fmt.Fprintf(&b, "Python: %s exited %d\n", cfg.Python(), res.ExitCode)
	default:
		version := strings.TrimSpace(string(res.Stdout))
		if version == "" {
			version = strings.TrimSpace(string(res.Stderr))
		}
		fmt.Fprintf(&b, "Python: %s (%s)\n", version, cfg.Python())
	}

	fmt.Fprintf(&b, "Requires: %s\n", strings.Join(cfg.Requirements(), ", "))
	fmt.Fprintf(&b, "Build: %s\n", strings.Join(cfg.BuildCommand(), " "))
	fmt.Fprintf(&b, "Artifacts: %s\n", cfg.ArtifactGlob())
	fmt.Fprintf(&b, "Test registry: %s\n", cfg.TestRepository())
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Test entry points:")
	for _, ep := range cfg.TestEntryPoints() {
		state := "absent, skipped"
		if _, err := os.Stat(filepath.Join(h.dir, ep.File)); err == nil {
			state = "present"
		}
		fmt.Fprintf(&b, "  %s (%s)\n", ep.File, state)
	}

	return textResult(b.String())
}
