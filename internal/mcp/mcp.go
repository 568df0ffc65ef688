// Package mcp provides the publish MCP server, registering the release tools
// and publishing model instructions.
package mcp

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/publish"
	"github.com/deixis/publish/internal/config"
	"github.com/deixis/publish/internal/console"
	"github.com/deixis/publish/internal/project"
	"github.com/deixis/publish/internal/release"
	"github.com/deixis/publish/internal/report"
	"github.com/deixis/publish/internal/runner"
)

// Instructions are published to the model on initialization.
const Instructions = `publish builds and validates a Python package and uploads it to the test registry.

Start with release_project to see which project, interpreter and configuration
will be used. Use release_build to run requirements, clean, tests, build and
validation without uploading. Use release_upload_test to run the same pipeline
and upload the artifacts to the test registry.

Every run is stored. Use release_inspect with the run_id from a run and an
optional step name to read the full error output of a failed step.

Uploading to the production registry is not available here: it requires a
confirmation from a human at a terminal. Ask the user to run "publish" instead.`

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu         sync.Mutex // pipeline runs share the project directory
	cfg        *config.Config
	runner     *runner.Runner
	store      report.Store
	dir        string
	configPath string
	meta       *project.Metadata
}

// NewServer creates an MCP server with all release tools registered.
// The project metadata is read from dir unless WithProject is given.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, dir string, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}

	h := &handler{
		cfg:        cfg,
		runner:     r,
		store:      store,
		dir:        dir,
		configPath: so.configPath,
		meta:       so.meta,
	}
	if h.meta == nil {
		h.meta = readProject(dir, cfg)
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "publish", Version: publish.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "release_project",
		Description: "Summarise the Python project: distribution name, version, interpreter and release configuration.",
	}, h.projectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "release_build",
		Description: `Check requirements, clean previous output, run the test entry points, build and validate the package.

Stops on the first failure. Nothing is uploaded. Results are stored for drill-down via release_inspect.`,
	}, h.buildHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "release_upload_test",
		Description: `Run the full pipeline and upload the validated artifacts to the test registry.

Never uploads to the production registry. Results are stored for drill-down via release_inspect.`,
	}, h.uploadTestHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "release_inspect",
		Description: `Show a stored run from release_build or release_upload_test.

Use the run_id from the tool output. Pass a step name (requirements, clean, test, build, check, upload-test)
to see the full error output of that step.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the publish MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	meta       *project.Metadata
	configPath string
}

// WithProject sets the project metadata instead of reading it from disk.
func WithProject(meta *project.Metadata) ServerOption {
	return func(o *serverOptions) {
		o.meta = meta
	}
}

// WithConfigPath records the configuration file the server was started with.
func WithConfigPath(path string) ServerOption {
	return func(o *serverOptions) {
		o.configPath = path
	}
}

// readProject returns the project metadata of dir, honouring a configured
// package name.
func readProject(dir string, cfg *config.Config) *project.Metadata {
	meta, err := project.Read(dir)
	if err != nil {
		meta = &project.Metadata{}
	}
	if cfg.Package != "" {
		meta.Name = cfg.Package
	}
	return meta
}

// engine returns a release engine writing its progress to w. It has no
// prompter, so nothing run through it can ask for confirmation.
func (h *handler) engine(w io.Writer) *release.Engine {
	return &release.Engine{
		Config:  h.cfg,
		Runner:  h.runner,
		Dir:     h.dir,
		Name:    h.meta.Name,
		Console: console.New(w),
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// handler's runner, config and project if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		return
	}
	meta := readProject(loaded.ProjectRoot, loaded.Config)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.runner.Workspace = loaded.ProjectRoot
	h.runner.Timeout = loaded.Config.Timeout()
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes()

	h.cfg = loaded.Config
	h.dir = loaded.ProjectRoot
	h.configPath = loaded.Path
	h.meta = meta
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
