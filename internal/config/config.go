package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the launcher root and the directories derived from it.
type Paths struct {
	Root     string `toml:"root"`
	EnvDir   string `toml:"env_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Python contains interpreter discovery and child environment settings.
type Python struct {
	// Interpreter is the base interpreter used to create the environment.
	// Empty means discover python3, python, or py on PATH.
	Interpreter string `toml:"interpreter"`
	// EnvFile is a dotenv file whose values are forwarded to child processes.
	EnvFile string `toml:"env_file"`
}

// Requirements lists the requirement sets installed into the environment.
type Requirements struct {
	// Accelerated is applied first so the general set sees its pins. Empty skips it.
	Accelerated         string   `toml:"accelerated"`
	AcceleratedIndexURL string   `toml:"accelerated_index_url"`
	General             string   `toml:"general"`
	ReinstallEveryRun   bool     `toml:"reinstall_every_run"`
	ExtraPipArgs        []string `toml:"extra_pip_args"`
}

// Assets describes the model download entry point and its product.
type Assets struct {
	FetchScript string `toml:"fetch_script"`
	Checkpoint  string `toml:"checkpoint"`
}

// Inference describes the batch inference entry point.
type Inference struct {
	Script   string `toml:"script"`
	PadAudio bool   `toml:"pad_audio"`
}

// Run controls failure and acknowledgment behaviour.
type Run struct {
	HaltOnFailure bool   `toml:"halt_on_failure"`
	Pause         string `toml:"pause"`
}

// History toggles the run history database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for lipsync.
//
// Configuration sections by subsystem:
//   - Paths: launcher root, environment, log, and state directories
//   - Python: base interpreter and forwarded dotenv file
//   - Requirements: ordered requirement sets for the environment
//   - Assets: model download script and checkpoint location
//   - Inference: batch inference script and its options
//   - Run: halt-on-failure and end-of-run pause policy
//   - History: run history database
//   - Logging: log format, level, and rotation
type Config struct {
	Paths        Paths        `toml:"paths"`
	Python       Python       `toml:"python"`
	Requirements Requirements `toml:"requirements"`
	Assets       Assets       `toml:"assets"`
	Inference    Inference    `toml:"inference"`
	Run          Run          `toml:"run"`
	History      History      `toml:"history"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the per-user configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath(userConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has every path field anchored to the launcher root.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	rootHint, err := rootFromEnvironment()
	if err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path, rootHint)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(rootHint); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path, root string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	userPath, err := expandPath(userConfigPath)
	if err != nil {
		return "", false, err
	}

	if root != "" {
		projectPath := filepath.Join(root, projectConfigName)
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}

	return userPath, false, nil
}

// rootFromEnvironment returns LIPSYNC_ROOT when set, otherwise the directory
// containing the running executable.
func rootFromEnvironment() (string, error) {
	if value, ok := os.LookupEnv("LIPSYNC_ROOT"); ok && strings.TrimSpace(value) != "" {
		return expandPath(strings.TrimSpace(value))
	}
	return ExecutableDir()
}

// ExecutableDir returns the directory of the running binary with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the lock file guarding runs against the same root.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.Root, ".lipsync.lock")
}

// HistoryPath returns the run history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath returns the rotating log file location, or "" when file logging is off.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "lipsync.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// resolveUnder anchors a relative path to root instead of the working directory.
func resolveUnder(root, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if strings.HasPrefix(pathValue, "~") || filepath.IsAbs(pathValue) {
		return expandPath(pathValue)
	}
	return filepath.Clean(filepath.Join(root, pathValue)), nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
