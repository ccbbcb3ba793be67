package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"lipsync/internal/command"
	"lipsync/internal/logging"
	"lipsync/internal/services"
	"lipsync/internal/venv"
)

// Option configures the fetcher.
type Option func(*Fetcher)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(f *Fetcher) {
		if exec != nil {
			f.exec = exec
		}
	}
}

// WithOutput sends script output to the given writers.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(f *Fetcher) {
		f.stdout = stdout
		f.stderr = stderr
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logging.NewComponentLogger(logger, "assets")
	}
}

// Fetcher wraps the model download entry point.
type Fetcher struct {
	script     string
	checkpoint string
	workDir    string
	exec       command.Executor
	stdout     io.Writer
	stderr     io.Writer
	logger     *slog.Logger
}

// New constructs a fetcher for script, which must leave checkpoint on disk.
// The script runs from workDir so its relative output lands under the root.
func New(script, checkpoint, workDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		script:     script,
		checkpoint: checkpoint,
		workDir:    workDir,
		exec:       command.OSExecutor{},
		logger:     logging.NewComponentLogger(nil, "assets"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Checkpoint returns the expected checkpoint path.
func (f *Fetcher) Checkpoint() string {
	return f.checkpoint
}

// Fetch runs the download script with no arguments and waits for it.
func (f *Fetcher) Fetch(ctx context.Context, env venv.Handle) error {
	if _, err := os.Stat(f.script); err != nil {
		return services.Wrap(services.ErrAssetFetch, services.StepFetch, "locate script", f.script, err)
	}
	spec := command.Spec{
		Name:   env.Python,
		Args:   []string{f.script},
		Dir:    f.workDir,
		Env:    env.Environ(os.Environ()),
		Stdout: f.stdout,
		Stderr: f.stderr,
	}
	logger := logging.WithContext(ctx, f.logger)
	logger.Info("fetching model assets",
		logging.String(logging.FieldCommand, spec.String()),
		logging.String(logging.FieldEventType, "fetch_start"),
	)
	start := time.Now()
	if err := f.exec.Run(ctx, spec); err != nil {
		return services.Wrap(services.ErrAssetFetch, services.StepFetch, "download models", spec.String(), err)
	}
	logger.Info("model assets fetched",
		logging.Duration(logging.FieldDuration, time.Since(start)),
		logging.String(logging.FieldEventType, "fetch_complete"),
	)
	return nil
}

// Verify reports whether the checkpoint is present and non-empty.
func (f *Fetcher) Verify() error {
	info, err := os.Stat(f.checkpoint)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return services.Wrap(services.ErrAssetFetch, services.StepFetch, "verify checkpoint", fmt.Sprintf("%s not found after download", f.checkpoint), nil)
	case err != nil:
		return services.Wrap(services.ErrAssetFetch, services.StepFetch, "verify checkpoint", f.checkpoint, err)
	case info.IsDir():
		return services.Wrap(services.ErrAssetFetch, services.StepFetch, "verify checkpoint", fmt.Sprintf("%s is a directory", f.checkpoint), nil)
	case info.Size() == 0:
		return services.Wrap(services.ErrAssetFetch, services.StepFetch, "verify checkpoint", fmt.Sprintf("%s is empty", f.checkpoint), nil)
	}
	return nil
}
