package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"lipsync/internal/config"
	"lipsync/internal/deps"
	"lipsync/internal/venv"
)

// Result reports the outcome of a single preflight check. Pending marks a
// passing check whose target the next run creates.
type Result struct {
	Name    string
	Passed  bool
	Pending bool
	Detail  string
}

// RunAll executes every filesystem check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Launcher root", cfg.Paths.Root),
		CheckEnvironment(cfg.Paths.EnvDir),
	}
	if cfg.Requirements.Accelerated != "" {
		results = append(results, CheckFile("Accelerated requirements", cfg.Requirements.Accelerated))
	}
	results = append(results,
		CheckFile("General requirements", cfg.Requirements.General),
		CheckFile("Model download script", cfg.Assets.FetchScript),
		CheckFile("Inference script", cfg.Inference.Script),
		CheckCheckpoint(cfg.Assets.Checkpoint),
		checkOptionalDirectory("State directory", cfg.Paths.StateDir),
	)
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// checkOptionalDirectory passes when a directory that is created on demand is absent.
func checkOptionalDirectory(name, path string) Result {
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Result{Name: name, Passed: true, Pending: true, Detail: fmt.Sprintf("%s (created on first run)", path)}
	}
	return CheckDirectoryAccess(name, path)
}

// CheckFile verifies that path is an existing regular file.
func CheckFile(name, path string) Result {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	case info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckEnvironment reports whether the Python environment has been created.
// A missing environment passes: the next run creates it.
func CheckEnvironment(dir string) Result {
	const name = "Python environment"
	if !venv.Exists(dir) {
		return Result{Name: name, Passed: true, Pending: true, Detail: fmt.Sprintf("%s (not created yet)", dir)}
	}
	_, python := venv.Layout(dir)
	if _, err := os.Stat(python); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: interpreter %s missing)", dir, filepath.Base(python))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (ready)", dir)}
}

// CheckCheckpoint reports the model checkpoint. Absence passes because the
// download script fetches it on the next run.
func CheckCheckpoint(path string) Result {
	const name = "Model checkpoint"
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Result{Name: name, Passed: true, Pending: true, Detail: fmt.Sprintf("%s (downloaded on next run)", path)}
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	case info.IsDir() || info.Size() == 0:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a usable file)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// CheckSystemDeps evaluates the binaries a run needs.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var python deps.Status
	if cfg.Python.Interpreter != "" {
		python = deps.CheckBinaries([]deps.Requirement{{
			Name:        "Python",
			Command:     cfg.Python.Interpreter,
			Description: "Creates the environment",
		}})[0]
	} else {
		python = deps.FirstAvailable("Python", "Creates the environment", venv.DefaultCandidates...)
	}
	// An existing environment no longer needs the base interpreter.
	if !python.Available && venv.Exists(cfg.Paths.EnvDir) {
		python.Optional = true
	}

	binDir, _ := venv.Layout(cfg.Paths.EnvDir)
	statuses := []deps.Status{python, deps.CheckFFmpegForEnvironment(binDir)}
	statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{{
		Name:        "FFprobe",
		Command:     "ffprobe",
		Description: "Used by lipsync plan --probe",
		Optional:    true,
	}})...)
	return statuses
}
