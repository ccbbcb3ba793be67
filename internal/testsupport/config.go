package testsupport

import (
	"path/filepath"
	"testing"

	"lipsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t    testing.TB
	root string
	cfg  *config.Config
}

// NewConfig produces a config rooted in a fresh temp directory that already
// holds both requirement files and both scripts. The checkpoint is not
// created; the fetch stand-in is expected to provide it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Root = root
	cfgVal.Paths.EnvDir = filepath.Join(root, "venv")
	cfgVal.Paths.LogDir = ""
	cfgVal.Paths.StateDir = filepath.Join(root, "state")
	cfgVal.Python.EnvFile = filepath.Join(root, ".env")
	cfgVal.Requirements.Accelerated = filepath.Join(root, "requirements_cuda.txt")
	cfgVal.Requirements.General = filepath.Join(root, "requirements.txt")
	cfgVal.Assets.FetchScript = filepath.Join(root, "download_models.py")
	cfgVal.Assets.Checkpoint = filepath.Join(root, "checkpoints", "wav2lip_gan.pth")
	cfgVal.Inference.Script = filepath.Join(root, "batch_inference.py")
	cfgVal.Run.Pause = config.PauseNever
	cfgVal.History.Enabled = false

	builder := &configBuilder{t: t, root: root, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}

	WriteFile(t, cfgVal.Requirements.General, "numpy\n")
	if cfgVal.Requirements.Accelerated != "" {
		WriteFile(t, cfgVal.Requirements.Accelerated, "torch\n")
	}
	WriteFile(t, cfgVal.Assets.FetchScript, "")
	WriteFile(t, cfgVal.Inference.Script, "")
	return builder.cfg
}

// WithHaltOnFailure sets run.halt_on_failure.
func WithHaltOnFailure(halt bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.HaltOnFailure = halt
	}
}

// WithReinstall sets requirements.reinstall_every_run.
func WithReinstall(reinstall bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Requirements.ReinstallEveryRun = reinstall
	}
}

// WithoutAccelerated disables the accelerated requirement set.
func WithoutAccelerated() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Requirements.Accelerated = ""
	}
}

// WithHistory enables the history store under the state directory.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
	}
}

// WithPause sets run.pause.
func WithPause(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.Pause = mode
	}
}
