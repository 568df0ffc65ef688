package release

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/deixis/publish/internal/report"
)

const credentialsNotice = "Credentials are read from ~/.pypirc or TWINE_USERNAME/TWINE_PASSWORD."

// CheckRequirements confirms that every required python module can be
// imported by the configured interpreter. It runs before anything is deleted.
func (e *Engine) CheckRequirements(ctx context.Context) error {
	e.Console.Phase("🔍", "Checking requirements...")

	python := e.Config.Python()
	var missing []string
	for _, mod := range e.Config.Requirements() {
		res, err := e.Runner.Run(ctx, []string{python, "-c", "import " + mod})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || res.Failed() {
			missing = append(missing, mod)
		}
	}

	if len(missing) > 0 {
		err := &MissingRequirementsError{Python: python, Missing: missing}
		e.Console.Failure("Missing required packages: " + strings.Join(missing, ", "))
		e.Console.Printf("Install them with: %s", err.Hint())
		return err
	}

	e.Console.Success("All requirements satisfied")
	return nil
}

// CleanResult lists what Clean removed and what it could not remove.
type CleanResult struct {
	Removed []string // relative to the project root
	Failed  []string // "path: error"
}

// Clean removes the build output directories and every cache directory in
// the project tree. It is best-effort: removal failures are reported as
// warnings and never stop the pipeline.
func (e *Engine) Clean(ctx context.Context) *CleanResult {
	e.Console.Phase("🧹", "Cleaning previous build artifacts...")
	res := &CleanResult{}

	for _, d := range e.Config.CleanDirs(e.Name) {
		path, ok := e.inside(d)
		if !ok {
			e.cleanFailed(res, d, errOutsideProject)
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			e.cleanFailed(res, d, err)
			continue
		}
		res.Removed = append(res.Removed, d)
		e.Console.Detail("Removed %s/", d)
	}

	caches := make(map[string]bool)
	for _, name := range e.Config.CacheDirs() {
		caches[name] = true
	}

	walkErr := filepath.WalkDir(e.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == e.Dir {
				return err
			}
			return nil // unreadable subtree
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() || path == e.Dir || !caches[d.Name()] {
			return nil
		}

		rel, _ := filepath.Rel(e.Dir, path)
		if err := os.RemoveAll(path); err != nil {
			e.cleanFailed(res, rel, err)
		} else {
			res.Removed = append(res.Removed, rel)
		}
		return filepath.SkipDir
	})
	if walkErr != nil {
		e.cleanFailed(res, ".", walkErr)
	}

	e.Console.Success("Cleanup completed")
	return res
}

var errOutsideProject = errors.New("not inside the project directory")

// inside resolves rel against the project root. It reports false for the
// root itself and for anything outside it.
func (e *Engine) inside(rel string) (string, bool) {
	path := filepath.Join(e.Dir, rel)
	r, err := filepath.Rel(e.Dir, path)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

func (e *Engine) cleanFailed(res *CleanResult, path string, err error) {
	res.Failed = append(res.Failed, path+": "+err.Error())
	e.Console.Warn("Could not remove " + path + ": " + err.Error())
}

// RunTests runs each configured test entry point that exists in the project
// directory. Absent entry points are skipped silently. It returns the entry
// points that ran.
func (e *Engine) RunTests(ctx context.Context) ([]string, error) {
	e.Console.Phase("🧪", "Running tests...")

	var ran []string
	for _, ep := range e.Config.TestEntryPoints() {
		if _, err := os.Stat(filepath.Join(e.Dir, ep.File)); err != nil {
			continue
		}
		desc := ep.Description
		if desc == "" {
			desc = "Running " + ep.File
		}
		argv := append([]string{e.Config.Python(), ep.File}, ep.Args...)
		if _, err := e.runCommand(ctx, "test", desc, argv); err != nil {
			return ran, err
		}
		ran = append(ran, ep.File)
	}
	return ran, nil
}

// Build invokes the packaging tool.
func (e *Engine) Build(ctx context.Context) error {
	_, err := e.runCommand(ctx, "build", "Building package", e.Config.BuildCommand())
	return err
}

// CheckPackage validates the built artifacts with the packaging tool's
// check facility and returns them.
func (e *Engine) CheckPackage(ctx context.Context) ([]report.Artifact, error) {
	artifacts, err := e.Artifacts()
	if err != nil {
		e.Console.Failure("Checking package failed:")
		e.Console.Printf("Error: %v", err)
		return nil, err
	}

	argv := append(e.Config.CheckCommand(), artifactNames(artifacts)...)
	if _, err := e.runCommand(ctx, "check", "Checking package", argv); err != nil {
		return artifacts, err
	}
	return artifacts, nil
}

// UploadTest uploads every artifact to the test registry. It never prompts.
func (e *Engine) UploadTest(ctx context.Context) error {
	e.Console.Phase("📤", "Uploading to Test PyPI...")
	e.Console.Printf(credentialsNotice)

	artifacts, err := e.Artifacts()
	if err != nil {
		e.Console.Failure("Uploading to Test PyPI failed:")
		e.Console.Printf("Error: %v", err)
		return err
	}

	argv := append(e.Config.UploadCommand(), "--repository", e.Config.TestRepository())
	argv = append(argv, artifactNames(artifacts)...)
	if _, err := e.runCommand(ctx, "upload-test", "Uploading to Test PyPI", argv); err != nil {
		return err
	}

	e.Console.Success("Package uploaded to Test PyPI")
	e.Console.Printf("🔗 Check your package at: %s", e.Config.TestProjectURL(e.Name))
	return nil
}

// UploadProduction asks for confirmation and uploads every artifact to the
// production registry. Only "y" or "Y" confirms; any other answer, including
// none, cancels and returns false without an error. An interrupt while
// waiting for the answer returns the context error.
func (e *Engine) UploadProduction(ctx context.Context) (bool, error) {
	e.Console.Phase("📤", "Uploading to PyPI...")
	e.Console.Printf(credentialsNotice)

	confirmed, err := e.Prompt.Confirm(ctx, "Are you sure you want to upload to PyPI? (y/N): ")
	if err != nil {
		return false, err
	}
	if !confirmed {
		e.Console.Printf("Upload cancelled.")
		return false, nil
	}

	artifacts, err := e.Artifacts()
	if err != nil {
		e.Console.Failure("Uploading to PyPI failed:")
		e.Console.Printf("Error: %v", err)
		return false, err
	}

	argv := append(e.Config.UploadCommand(), artifactNames(artifacts)...)
	if _, err := e.runCommand(ctx, "upload", "Uploading to PyPI", argv); err != nil {
		return false, err
	}

	e.Console.Success("Package uploaded to PyPI")
	e.Console.Printf("🔗 Check your package at: %s", e.Config.ProjectURL(e.Name))
	return true, nil
}
