package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lipsync/internal/assets"
	"lipsync/internal/command"
	"lipsync/internal/config"
	"lipsync/internal/history"
	"lipsync/internal/inference"
	"lipsync/internal/install"
	"lipsync/internal/logging"
	"lipsync/internal/prompt"
	"lipsync/internal/services"
	"lipsync/internal/venv"
)

// Provisioner ensures the environment exists.
type Provisioner interface {
	Ensure(ctx context.Context) (venv.Handle, error)
}

// Installer applies requirement sets.
type Installer interface {
	Install(ctx context.Context, env venv.Handle, sets []install.Set) error
}

// Fetcher downloads model assets and confirms the checkpoint.
type Fetcher interface {
	Fetch(ctx context.Context, env venv.Handle) error
	Verify() error
	Checkpoint() string
}

// Resolver obtains the input folder and the final acknowledgment.
type Resolver interface {
	Resolve(arg string) (string, error)
	Pause(message string)
}

// Invoker runs batch inference.
type Invoker interface {
	Invoke(ctx context.Context, env venv.Handle, checkpoint, folder string) error
}

// HistoryRecorder persists finished runs.
type HistoryRecorder interface {
	Record(ctx context.Context, run history.Run) (int64, error)
}

// Launcher runs the launch sequence for one configured root.
type Launcher struct {
	cfg         *config.Config
	provisioner Provisioner
	installer   Installer
	fetcher     Fetcher
	resolver    Resolver
	invoker     Invoker
	history     HistoryRecorder
	report      func(Result)
	forwarded   map[string]string
	pause       bool

	exec    command.Executor
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time
	lockTry func(path string) (unlock func(), ok bool, err error)
}

// New wires a launcher from configuration. Components not supplied through
// options are built from cfg and share the launcher's executor and streams.
func New(cfg *config.Config, opts ...Option) (*Launcher, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "launcher", "config required", nil)
	}
	l := &Launcher{
		cfg:     cfg,
		exec:    command.OSExecutor{},
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  logging.NewNop(),
		newID:   uuid.NewString,
		now:     time.Now,
		lockTry: tryLock,
	}
	for _, opt := range opts {
		opt(l)
	}
	base := l.logger
	l.logger = logging.NewComponentLogger(base, "launcher")

	if l.forwarded == nil {
		values, err := cfg.ChildEnv()
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "", "load env file", cfg.Python.EnvFile, err)
		}
		l.forwarded = values
	}
	if l.provisioner == nil {
		l.provisioner = venv.New(cfg.Paths.EnvDir,
			venv.WithExecutor(l.exec),
			venv.WithInterpreter(cfg.Python.Interpreter),
			venv.WithNotices(l.stdout),
			venv.WithLogger(base),
		)
	}
	if l.installer == nil {
		l.installer = install.New(
			install.WithExecutor(l.exec),
			install.WithExtraArgs(cfg.Requirements.ExtraPipArgs...),
			install.WithWorkDir(cfg.Paths.Root),
			install.WithOutput(l.stdout, l.stderr),
			install.WithNotices(l.stdout),
			install.WithLogger(base),
		)
	}
	if l.fetcher == nil {
		l.fetcher = assets.New(cfg.Assets.FetchScript, cfg.Assets.Checkpoint, cfg.Paths.Root,
			assets.WithExecutor(l.exec),
			assets.WithOutput(l.stdout, l.stderr),
			assets.WithLogger(base),
		)
	}
	if l.resolver == nil {
		l.resolver = prompt.NewResolver(l.stdin, l.stdout)
	}
	if l.invoker == nil {
		l.invoker = inference.New(cfg.Inference.Script, cfg.Paths.Root,
			inference.WithExecutor(l.exec),
			inference.WithPadAudio(cfg.Inference.PadAudio),
			inference.WithIO(l.stdin, l.stdout, l.stderr),
			inference.WithLogger(base),
		)
	}
	return l, nil
}

// RequirementSets returns the ordered sets for cfg: accelerated first so the
// general install sees its pins.
func RequirementSets(cfg *config.Config) []install.Set {
	return []install.Set{
		{Name: "accelerated", File: cfg.Requirements.Accelerated, IndexURL: cfg.Requirements.AcceleratedIndexURL},
		{Name: "general", File: cfg.Requirements.General},
	}
}

// Run executes the launch sequence. The returned error classifies the
// failure; services.ExitCode maps it to the process status.
func (l *Launcher) Run(ctx context.Context, folderArg string) (Result, error) {
	result := Result{RunID: l.newID(), StartedAt: l.now()}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, l.logger)

	unlock, ok, err := l.lockTry(l.cfg.LockPath())
	if err != nil || !ok {
		if err != nil {
			err = services.Wrap(services.ErrConfiguration, "", "acquire run lock", l.cfg.LockPath(), err)
		} else {
			err = services.Wrap(services.ErrLocked, "", "acquire run lock", fmt.Sprintf("another lipsync run is using %s", l.cfg.Paths.Root), nil)
		}
		result.ExitCode = services.ExitCode(err)
		l.acknowledge()
		return result, err
	}
	defer unlock()

	logger.Info("run started",
		logging.String("root", l.cfg.Paths.Root),
		logging.String(logging.FieldEventType, "run_start"),
	)

	runErr := l.execute(ctx, folderArg, &result)
	result.FinishedAt = l.now()
	result.ExitCode = services.ExitCode(runErr)
	result.FailedStep = services.FailedStep(runErr)

	l.finish(ctx, &result, runErr)
	return result, runErr
}

func (l *Launcher) execute(ctx context.Context, folderArg string, result *Result) error {
	var env venv.Handle
	if err := l.step(ctx, result, services.StepProvision, func(ctx context.Context) error {
		var err error
		env, err = l.provisioner.Ensure(ctx)
		return err
	}); err != nil {
		return err
	}
	env = env.WithForwarded(l.forwarded)
	result.EnvCreated = env.Created

	if l.cfg.Requirements.ReinstallEveryRun || env.Created {
		err := l.step(ctx, result, services.StepInstall, func(ctx context.Context) error {
			return l.installer.Install(ctx, env, RequirementSets(l.cfg))
		})
		if err := l.tolerate(ctx, result, services.StepInstall, err); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(l.stdout, "Requirements already installed. Skipping installation.")
		result.Steps = append(result.Steps, StepTiming{Name: services.StepInstall, Status: StepSkipped})
	}

	err := l.step(ctx, result, services.StepFetch, func(ctx context.Context) error {
		if err := l.fetcher.Fetch(ctx, env); err != nil {
			return err
		}
		return l.fetcher.Verify()
	})
	if err := l.tolerate(ctx, result, services.StepFetch, err); err != nil {
		return err
	}

	var folder string
	if err := l.step(ctx, result, services.StepResolve, func(context.Context) error {
		var err error
		folder, err = l.resolver.Resolve(folderArg)
		return err
	}); err != nil {
		return err
	}
	result.Folder = folder
	result.Checkpoint = l.fetcher.Checkpoint()

	return l.step(ctx, result, services.StepInference, func(ctx context.Context) error {
		return l.invoker.Invoke(ctx, env, result.Checkpoint, folder)
	})
}

// step runs fn with the step recorded in ctx and appends its timing.
func (l *Launcher) step(ctx context.Context, result *Result, name string, fn func(context.Context) error) error {
	ctx = services.WithStep(ctx, name)
	start := l.now()
	err := fn(ctx)
	timing := StepTiming{Name: name, Status: StepSucceeded, Duration: l.now().Sub(start)}
	if err != nil {
		timing.Status = StepFailed
	}
	result.Steps = append(result.Steps, timing)
	logging.WithContext(ctx, l.logger).Debug("step finished",
		logging.String("status", string(timing.Status)),
		logging.Duration(logging.FieldDuration, timing.Duration),
	)
	return err
}

// tolerate decides whether a failed install or fetch ends the run.
func (l *Launcher) tolerate(ctx context.Context, result *Result, name string, err error) error {
	if err == nil {
		return nil
	}
	if l.cfg.Run.HaltOnFailure {
		return err
	}
	result.Steps[len(result.Steps)-1].Status = StepWarned
	result.Warnings = append(result.Warnings, err.Error())
	logging.WarnWithContext(services.WithStep(ctx, name), l.logger, "step failed; continuing", name+"_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "inference may fail or use stale packages"),
		logging.String(logging.FieldErrorHint, "set run.halt_on_failure = true to stop at the first failure"),
	)
	fmt.Fprintf(l.stdout, "Warning: %s step failed; continuing.\n", name)
	return nil
}

func (l *Launcher) finish(ctx context.Context, result *Result, runErr error) {
	logger := logging.WithContext(ctx, l.logger)
	if runErr != nil {
		fmt.Fprintf(l.stdout, "Lip-sync run failed during %s (exit code %d).\n", stepLabel(result.FailedStep), result.ExitCode)
		logging.ErrorWithContext(ctx, l.logger, "run failed", "run_failed",
			logging.String("failed_step", result.FailedStep),
			logging.Int(logging.FieldExitCode, result.ExitCode),
			logging.Error(runErr),
		)
	} else {
		fmt.Fprintln(l.stdout, "Lip-sync batch processing complete.")
		logger.Info("run finished",
			logging.Duration(logging.FieldDuration, result.FinishedAt.Sub(result.StartedAt)),
			logging.Int("warnings", len(result.Warnings)),
			logging.String(logging.FieldEventType, "run_complete"),
		)
	}

	if l.history != nil {
		// An interrupted run is still recorded.
		if _, err := l.history.Record(context.WithoutCancel(ctx), result.historyRun(l.cfg.Paths.Root, runErr)); err != nil {
			logging.WarnWithContext(ctx, l.logger, "run history not recorded", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run is missing from lipsync history"),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		}
	}

	if l.report != nil {
		l.report(*result)
	}
	l.acknowledge()
}

func (l *Launcher) acknowledge() {
	if l.pause {
		l.resolver.Pause("Press Enter to exit...")
	}
}

func stepLabel(step string) string {
	if step == "" {
		return "setup"
	}
	return step
}

func tryLock(path string) (func(), bool, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() { _ = lock.Unlock() }, true, nil
}
