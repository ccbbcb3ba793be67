package venv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lipsync/internal/command"
	"lipsync/internal/logging"
	"lipsync/internal/services"
)

// DefaultCandidates lists the base interpreters tried in order when none is configured.
var DefaultCandidates = []string{"python3", "python", "py"}

// Option configures the provisioner.
type Option func(*Provisioner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(p *Provisioner) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// WithInterpreter pins the base interpreter instead of searching PATH.
func WithInterpreter(path string) Option {
	return func(p *Provisioner) {
		p.interpreter = strings.TrimSpace(path)
	}
}

// WithLookPath replaces PATH resolution of interpreter candidates.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(p *Provisioner) {
		if fn != nil {
			p.lookPath = fn
		}
	}
}

// WithNotices directs operator notices to w.
func WithNotices(w io.Writer) Option {
	return func(p *Provisioner) {
		if w != nil {
			p.notices = w
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logging.NewComponentLogger(logger, "venv")
	}
}

// Provisioner creates or reuses the environment at a fixed directory.
type Provisioner struct {
	dir         string
	interpreter string
	exec        command.Executor
	lookPath    func(string) (string, error)
	notices     io.Writer
	logger      *slog.Logger
}

// New constructs a provisioner for the environment at dir.
func New(dir string, opts ...Option) *Provisioner {
	p := &Provisioner{
		dir:      dir,
		exec:     command.OSExecutor{},
		lookPath: exec.LookPath,
		notices:  io.Discard,
		logger:   logging.NewComponentLogger(nil, "venv"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dir returns the environment location.
func (p *Provisioner) Dir() string {
	return p.dir
}

// Ensure returns a handle to the environment, creating it when absent. An
// existing environment is never recreated.
func (p *Provisioner) Ensure(ctx context.Context) (Handle, error) {
	if strings.TrimSpace(p.dir) == "" {
		return Handle{}, services.Wrap(services.ErrProvisioning, services.StepProvision, "validate", "environment directory not configured", nil)
	}
	logger := logging.WithContext(ctx, p.logger)

	if Exists(p.dir) {
		fmt.Fprintf(p.notices, "Virtual environment already exists at %s. Skipping creation.\n", p.dir)
		logger.Info("environment reused",
			logging.String("env_dir", p.dir),
			logging.String(logging.FieldEventType, "env_reused"),
		)
		return p.handle(false), nil
	}

	base, prefix, err := p.ResolveInterpreter()
	if err != nil {
		return Handle{}, services.Wrap(services.ErrProvisioning, services.StepProvision, "discover interpreter", "no Python runtime found; install Python 3 or set python.interpreter", err)
	}

	if parent := filepath.Dir(p.dir); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return Handle{}, services.Wrap(services.ErrProvisioning, services.StepProvision, "prepare", "create parent directory", err)
		}
	}

	fmt.Fprintf(p.notices, "Creating virtual environment at %s...\n", p.dir)
	spec := command.Spec{
		Name: base,
		Args: append(prefix, "-m", "venv", p.dir),
	}
	logger.Info("creating environment",
		logging.String("env_dir", p.dir),
		logging.String(logging.FieldCommand, spec.String()),
		logging.String(logging.FieldEventType, "env_create_start"),
	)
	if err := p.exec.Run(ctx, spec); err != nil {
		return Handle{}, services.Wrap(services.ErrProvisioning, services.StepProvision, "create environment", spec.String(), err)
	}

	handle := p.handle(true)
	if !fileExists(handle.Python) {
		return Handle{}, services.Wrap(services.ErrProvisioning, services.StepProvision, "verify", fmt.Sprintf("interpreter %s missing after creation", handle.Python), nil)
	}
	logger.Info("environment created",
		logging.String("env_dir", p.dir),
		logging.String("python", handle.Python),
		logging.String(logging.FieldEventType, "env_created"),
	)
	return handle, nil
}

// ResolveInterpreter returns the base interpreter and any leading arguments it
// needs (the Windows py launcher takes -3).
func (p *Provisioner) ResolveInterpreter() (string, []string, error) {
	candidates := DefaultCandidates
	if p.interpreter != "" {
		candidates = []string{p.interpreter}
	}
	var errs []error
	for _, candidate := range candidates {
		path, err := p.lookPath(candidate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(filepath.Base(path), ".exe"), "py") {
			return path, []string{"-3"}, nil
		}
		return path, nil, nil
	}
	return "", nil, errors.Join(errs...)
}

func (p *Provisioner) handle(created bool) Handle {
	binDir, python := Layout(p.dir)
	return Handle{Dir: p.dir, BinDir: binDir, Python: python, Created: created}
}
