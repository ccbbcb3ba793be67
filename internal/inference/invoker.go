package inference

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"lipsync/internal/command"
	"lipsync/internal/logging"
	"lipsync/internal/services"
	"lipsync/internal/venv"
)

// Option configures the invoker.
type Option func(*Invoker)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(i *Invoker) {
		if exec != nil {
			i.exec = exec
		}
	}
}

// WithPadAudio controls the --pad_audio flag. Padding is the program default,
// so the flag is only passed when disabled.
func WithPadAudio(pad bool) Option {
	return func(i *Invoker) {
		i.padAudio = pad
	}
}

// WithIO wires the child's standard streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(i *Invoker) {
		i.stdin = stdin
		i.stdout = stdout
		i.stderr = stderr
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Invoker) {
		i.logger = logging.NewComponentLogger(logger, "inference")
	}
}

// Invoker runs the batch inference script.
type Invoker struct {
	script   string
	workDir  string
	padAudio bool
	exec     command.Executor
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
}

// New constructs an invoker for script, run from workDir.
func New(script, workDir string, opts ...Option) *Invoker {
	i := &Invoker{
		script:   script,
		workDir:  workDir,
		padAudio: true,
		exec:     command.OSExecutor{},
		logger:   logging.NewComponentLogger(nil, "inference"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Args builds the script arguments. folder is passed through untouched.
func (i *Invoker) Args(checkpoint, folder string) []string {
	args := []string{i.script, "--checkpoint_path", checkpoint, "--folder_path", folder}
	if !i.padAudio {
		args = append(args, "--pad_audio", "False")
	}
	return args
}

// Invoke blocks until the program exits. A non-zero status is returned as an
// ErrInference carrying the child's code.
func (i *Invoker) Invoke(ctx context.Context, env venv.Handle, checkpoint, folder string) error {
	spec := command.Spec{
		Name:   env.Python,
		Args:   i.Args(checkpoint, folder),
		Dir:    i.workDir,
		Env:    env.Environ(os.Environ()),
		Stdin:  i.stdin,
		Stdout: i.stdout,
		Stderr: i.stderr,
	}
	logger := logging.WithContext(ctx, i.logger)
	logger.Info("starting batch inference",
		logging.String("folder", folder),
		logging.String("checkpoint", checkpoint),
		logging.String(logging.FieldCommand, spec.String()),
		logging.String(logging.FieldEventType, "inference_start"),
	)
	start := time.Now()
	if err := i.exec.Run(ctx, spec); err != nil {
		code, _ := command.ExitCode(err)
		logging.ErrorWithContext(ctx, i.logger, "batch inference failed", "inference_failed",
			logging.Int(logging.FieldExitCode, code),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the folder exists and holds matching .mp4/.mp3 pairs"),
		)
		return services.Wrap(services.ErrInference, services.StepInference, "batch inference", "", err)
	}
	logger.Info("batch inference finished",
		logging.Duration(logging.FieldDuration, time.Since(start)),
		logging.String(logging.FieldEventType, "inference_complete"),
	)
	return nil
}
