package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/publish/internal/console"
	"github.com/deixis/publish/internal/report"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a release_build or release_upload_test result"`
	Step  string `json:"step,omitempty" jsonschema:"step name to drill into: requirements, clean, test, build, check, upload-test or upload. Defaults to every step."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	steps := result.Steps
	if params.Step != "" {
		steps, err = report.Filter(result, params.Step)
		if err != nil {
			return errorResult(fmt.Sprintf("Run %s: %v", params.RunID, err))
		}
	}

	text, err := formatInspectOutput(result, steps)
	if err != nil {
		return errorResult(fmt.Sprintf("formatting run %s: %v", params.RunID, err))
	}
	return textResult(text)
}

func formatInspectOutput(result *report.RunResult, steps []report.Step) (string, error) {
	var b strings.Builder

	if err := console.RenderRun(&b, result, steps); err != nil {
		return "", err
	}

	if len(result.Removed) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Removed:")
		for _, r := range result.Removed {
			fmt.Fprintf(&b, "  %s\n", r)
		}
	}

	console.RenderStderr(&b, steps)
	return b.String(), nil
}
