package launcher

import (
	"io"
	"log/slog"

	"lipsync/internal/command"
)

// Option configures the launcher.
type Option func(*Launcher)

// WithExecutor runs every child process through exec.
func WithExecutor(exec command.Executor) Option {
	return func(l *Launcher) {
		if exec != nil {
			l.exec = exec
		}
	}
}

// WithIO sets the operator streams. Notices and child output go to stdout.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		if stdin != nil {
			l.stdin = stdin
		}
		if stdout != nil {
			l.stdout = stdout
		}
		if stderr != nil {
			l.stderr = stderr
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithHistory records finished runs in store.
func WithHistory(store HistoryRecorder) Option {
	return func(l *Launcher) {
		l.history = store
	}
}

// WithReport calls fn with the finished result before the exit pause.
func WithReport(fn func(Result)) Option {
	return func(l *Launcher) {
		l.report = fn
	}
}

// WithPause waits for acknowledgment after the run.
func WithPause(pause bool) Option {
	return func(l *Launcher) {
		l.pause = pause
	}
}

// WithForwardedEnv replaces the dotenv values forwarded to child processes.
func WithForwardedEnv(values map[string]string) Option {
	return func(l *Launcher) {
		if values == nil {
			values = map[string]string{}
		}
		l.forwarded = values
	}
}

// WithProvisioner replaces the environment provisioner.
func WithProvisioner(p Provisioner) Option {
	return func(l *Launcher) { l.provisioner = p }
}

// WithInstaller replaces the dependency installer.
func WithInstaller(i Installer) Option {
	return func(l *Launcher) { l.installer = i }
}

// WithFetcher replaces the asset fetcher.
func WithFetcher(f Fetcher) Option {
	return func(l *Launcher) { l.fetcher = f }
}

// WithResolver replaces the folder resolver.
func WithResolver(r Resolver) Option {
	return func(l *Launcher) { l.resolver = r }
}

// WithInvoker replaces the inference invoker.
func WithInvoker(i Invoker) Option {
	return func(l *Launcher) { l.invoker = i }
}

// WithRunID fixes the run identifier generator.
func WithRunID(fn func() string) Option {
	return func(l *Launcher) {
		if fn != nil {
			l.newID = fn
		}
	}
}
