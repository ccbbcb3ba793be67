package config

const (
	defaultEnvDir           = "venv"
	defaultLogDir           = "~/.local/share/lipsync/logs"
	defaultStateDir         = "~/.local/share/lipsync"
	defaultEnvFile          = ".env"
	defaultAcceleratedReqs  = "requirements_cuda.txt"
	defaultGeneralReqs      = "requirements.txt"
	defaultFetchScript      = "download_models.py"
	defaultCheckpoint       = "checkpoints/wav2lip_gan.pth"
	defaultInferenceScript  = "batch_inference.py"
	defaultPauseMode        = PauseAuto
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultLogMaxSizeMB     = 10
	defaultLogMaxBackups    = 5
	projectConfigName       = "lipsync.toml"
	userConfigPath          = "~/.config/lipsync/config.toml"
)

// Pause modes for the end-of-run acknowledgment prompt.
const (
	PauseAuto   = "auto"
	PauseAlways = "always"
	PauseNever  = "never"
)

// Default returns a Config populated with repository defaults. Paths.Root is
// left empty; Load fills it from the executable location.
func Default() Config {
	return Config{
		Paths: Paths{
			EnvDir:   defaultEnvDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Python: Python{
			EnvFile: defaultEnvFile,
		},
		Requirements: Requirements{
			Accelerated:       defaultAcceleratedReqs,
			General:           defaultGeneralReqs,
			ReinstallEveryRun: true,
		},
		Assets: Assets{
			FetchScript: defaultFetchScript,
			Checkpoint:  defaultCheckpoint,
		},
		Inference: Inference{
			Script:   defaultInferenceScript,
			PadAudio: true,
		},
		Run: Run{
			HaltOnFailure: true,
			Pause:         defaultPauseMode,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
		},
	}
}
