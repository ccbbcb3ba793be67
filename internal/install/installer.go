package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lipsync/internal/command"
	"lipsync/internal/logging"
	"lipsync/internal/services"
	"lipsync/internal/venv"
)

// Set is one requirement file plus the package index it needs.
type Set struct {
	Name     string
	File     string
	IndexURL string
}

// Option configures the installer.
type Option func(*Installer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(i *Installer) {
		if exec != nil {
			i.exec = exec
		}
	}
}

// WithExtraArgs appends arguments to every pip invocation.
func WithExtraArgs(args ...string) Option {
	return func(i *Installer) {
		i.extraArgs = append(i.extraArgs, args...)
	}
}

// WithWorkDir runs pip from dir.
func WithWorkDir(dir string) Option {
	return func(i *Installer) {
		i.workDir = dir
	}
}

// WithOutput sends pip output to the given writers.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(i *Installer) {
		i.stdout = stdout
		i.stderr = stderr
	}
}

// WithNotices directs operator notices to w.
func WithNotices(w io.Writer) Option {
	return func(i *Installer) {
		if w != nil {
			i.notices = w
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Installer) {
		i.logger = logging.NewComponentLogger(logger, "install")
	}
}

// Installer runs "python -m pip install -r" for each set.
type Installer struct {
	exec      command.Executor
	extraArgs []string
	workDir   string
	stdout    io.Writer
	stderr    io.Writer
	notices   io.Writer
	logger    *slog.Logger
}

// New constructs an installer.
func New(opts ...Option) *Installer {
	i := &Installer{
		exec:    command.OSExecutor{},
		notices: io.Discard,
		logger:  logging.NewComponentLogger(nil, "install"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install applies each set in order and stops at the first failure. Sets
// with an empty File are skipped with a notice.
func (i *Installer) Install(ctx context.Context, env venv.Handle, sets []Set) error {
	logger := logging.WithContext(ctx, i.logger)
	for _, set := range sets {
		if strings.TrimSpace(set.File) == "" {
			fmt.Fprintf(i.notices, "Skipping %s requirements (not configured).\n", set.label())
			continue
		}
		if err := checkFile(set.File); err != nil {
			return services.Wrap(services.ErrInstallation, services.StepInstall, set.label(), "requirement file unavailable", err)
		}

		spec := i.Command(env, set)
		fmt.Fprintf(i.notices, "Installing %s requirements from %s...\n", set.label(), filepath.Base(set.File))
		logger.Info("installing requirements",
			logging.String("requirement_set", set.label()),
			logging.String("requirement_file", set.File),
			logging.String(logging.FieldCommand, spec.String()),
			logging.String(logging.FieldEventType, "install_start"),
		)
		start := time.Now()
		if err := i.exec.Run(ctx, spec); err != nil {
			return services.Wrap(services.ErrInstallation, services.StepInstall, set.label(), filepath.Base(set.File), err)
		}
		logger.Info("requirements installed",
			logging.String("requirement_set", set.label()),
			logging.Duration(logging.FieldDuration, time.Since(start)),
			logging.String(logging.FieldEventType, "install_complete"),
		)
	}
	return nil
}

// Command builds the pip invocation for set.
func (i *Installer) Command(env venv.Handle, set Set) command.Spec {
	args := []string{"-m", "pip", "install", "-r", set.File}
	if url := strings.TrimSpace(set.IndexURL); url != "" {
		args = append(args, "--extra-index-url", url)
	}
	args = append(args, i.extraArgs...)
	return command.Spec{
		Name:   env.Python,
		Args:   args,
		Dir:    i.workDir,
		Env:    env.Environ(os.Environ()),
		Stdout: i.stdout,
		Stderr: i.stderr,
	}
}

func (s Set) label() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return filepath.Base(s.File)
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s not found", path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
