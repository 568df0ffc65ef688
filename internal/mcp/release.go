package mcp

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/publish/internal/console"
	"github.com/deixis/publish/internal/release"
	"github.com/deixis/publish/internal/report"
)

type releaseParams struct{}

func (h *handler) buildHandler(ctx context.Context, req *mcp.CallToolRequest, _ releaseParams) (*mcp.CallToolResult, any, error) {
	return h.run(ctx, release.BuildOnly)
}

func (h *handler) uploadTestHandler(ctx context.Context, req *mcp.CallToolRequest, _ releaseParams) (*mcp.CallToolResult, any, error) {
	return h.run(ctx, release.TestOnly)
}

func (h *handler) run(ctx context.Context, mode release.Mode) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var progress strings.Builder
	out, err := h.engine(&progress).Run(ctx, mode)

	// Save results for release_inspect, failed runs included.
	if saveErr := h.store.Save(out.RunResult); saveErr != nil {
		log.Printf("saving run %s: %v", out.RunResult.ID, saveErr)
	}

	if err != nil && !release.Reported(err) {
		return errorResult(fmt.Sprintf("%s failed: %v\nInspect with release_inspect(run_id=%q).", mode, err, out.RunResult.ID))
	}

	text, fmtErr := formatRun(out.RunResult, progress.String())
	if fmtErr != nil {
		return errorResult(fmt.Sprintf("formatting run %s: %v", out.RunResult.ID, fmtErr))
	}
	return textResult(text)
}

func formatRun(rr *report.RunResult, progress string) (string, error) {
	var b strings.Builder

	if err := console.RenderRun(&b, rr, rr.Steps); err != nil {
		return "", err
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Log:")
	for _, line := range strings.Split(strings.TrimRight(progress, "\n"), "\n") {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	fmt.Fprintln(&b)

	if failed, ok := rr.Failed(); ok {
		fmt.Fprintf(&b, "Inspect with release_inspect(run_id=%q, step=%q).\n", rr.ID, failed.Name)
	} else {
		fmt.Fprintf(&b, "Inspect with release_inspect(run_id=%q).\n", rr.ID)
	}
	return b.String(), nil
}
