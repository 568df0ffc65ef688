// Command publish cleans, tests, builds, validates and uploads a Python
// package.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deixis/publish/internal/config"
	"github.com/deixis/publish/internal/console"
	"github.com/deixis/publish/internal/project"
	"github.com/deixis/publish/internal/release"
	"github.com/deixis/publish/internal/report"
	"github.com/deixis/publish/internal/runner"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("publish: ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout}

	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return release.ExitOK
	}
	if ctx.Err() != nil {
		return release.ExitInterrupted
	}
	if !release.Reported(err) {
		log.Print(err)
	}
	return release.ExitCode(err)
}

// app holds the global flags and the standard streams.
type app struct {
	stdin  io.Reader
	stdout io.Writer

	dir        string
	configFile string
	verbose    bool
}

func (a *app) rootCmd() *cobra.Command {
	var test bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build and publish a Python package",
		Long: `publish checks the packaging tools, removes previous build output, runs the
project's test entry points, builds the package and validates the artifacts.
It then offers to upload them to Test PyPI or PyPI, or with --test uploads
to Test PyPI without asking.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := release.Interactive
			if test {
				mode = release.TestOnly
			}
			return a.runRelease(cmd.Context(), mode)
		},
	}

	cmd.Flags().BoolVar(&test, "test", false, "upload to Test PyPI without showing the menu")
	cmd.PersistentFlags().StringVar(&a.dir, "dir", "", "project directory (default: nearest project above the working directory)")
	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "configuration file (default: <project>/"+config.FileName+")")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "echo the output of every command")

	cmd.AddCommand(a.inspectCmd(), a.mcpCmd(), a.versionCmd())
	return cmd
}

// workspace holds everything resolved from the flags, the configuration
// file and the environment.
type workspace struct {
	root       string
	configPath string
	cfg        *config.Config
	meta       *project.Metadata
	runner     *runner.Runner
}

func (a *app) load() (*workspace, error) {
	var (
		loaded *config.LoadResult
		err    error
	)
	if a.configFile != "" {
		loaded, err = config.LoadFile(a.configFile)
	} else {
		dir := a.dir
		if dir == "" {
			if dir, err = os.Getwd(); err != nil {
				return nil, fmt.Errorf("determining working directory: %w", err)
			}
		}
		loaded, err = config.Load(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg := loaded.Config
	config.Overlay(cfg, config.NewEnv())

	root := loaded.ProjectRoot
	if a.configFile != "" && a.dir != "" {
		if root, err = filepath.Abs(a.dir); err != nil {
			return nil, fmt.Errorf("resolving %s: %w", a.dir, err)
		}
	}

	meta, err := project.Read(root)
	if err != nil {
		return nil, err
	}
	if cfg.Package != "" {
		meta.Name = cfg.Package
	}

	return &workspace{
		root:       root,
		configPath: loaded.Path,
		cfg:        cfg,
		meta:       meta,
		runner: &runner.Runner{
			Workspace: root,
			Timeout:   cfg.Timeout(),
			MaxOutput: cfg.MaxOutputBytes(),
		},
	}, nil
}

// openStore returns the run report store. PUBLISH_RUNS_DIR overrides the
// per-user cache directory.
func openStore() (*report.LRUStore, *report.DiskStore, error) {
	dir := config.NewEnv().GetString("runs_dir")
	if dir == "" {
		var err error
		if dir, err = report.DefaultDir(); err != nil {
			return nil, nil, err
		}
	}
	disk := report.NewDiskStore(dir)
	return report.NewLRUStore(5, disk), disk, nil
}

// runRelease runs the pipeline and records its report. Failing to record the
// report never changes the outcome.
func (a *app) runRelease(ctx context.Context, mode release.Mode) error {
	ws, err := a.load()
	if err != nil {
		return err
	}

	con := console.New(a.stdout)
	eng := &release.Engine{
		Config:  ws.cfg,
		Runner:  ws.runner,
		Dir:     ws.root,
		Name:    ws.meta.Name,
		Console: con,
		Prompt:  release.NewPrompter(a.stdin, con),
		Verbose: a.verbose,
	}

	out, runErr := eng.Run(ctx, mode)

	store, disk, err := openStore()
	if err == nil {
		err = store.Save(out.RunResult)
	}
	switch {
	case err != nil:
		log.Printf("saving run report: %v", err)
	case a.verbose:
		log.Printf("run %s recorded in %s (publish inspect %s)", out.RunResult.ID, disk.Dir(), out.RunResult.ID)
	}

	if runErr != nil && ctx.Err() != nil {
		con.Failure("Interrupted")
	}
	return runErr
}
