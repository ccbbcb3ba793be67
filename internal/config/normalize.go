package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize(rootHint string) error {
	if err := c.normalizePaths(rootHint); err != nil {
		return err
	}
	if err := c.normalizePython(); err != nil {
		return err
	}
	if err := c.normalizeRequirements(); err != nil {
		return err
	}
	if err := c.normalizeEntryPoints(); err != nil {
		return err
	}
	c.normalizeRun()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths(rootHint string) error {
	var err error
	if value, ok := os.LookupEnv("LIPSYNC_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.Root = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.Root) == "" {
		c.Paths.Root = rootHint
	}
	if c.Paths.Root, err = expandPath(strings.TrimSpace(c.Paths.Root)); err != nil {
		return fmt.Errorf("paths.root: %w", err)
	}
	if strings.TrimSpace(c.Paths.EnvDir) == "" {
		c.Paths.EnvDir = defaultEnvDir
	}
	if c.Paths.EnvDir, err = resolveUnder(c.Paths.Root, c.Paths.EnvDir); err != nil {
		return fmt.Errorf("paths.env_dir: %w", err)
	}
	if c.Paths.LogDir, err = resolveUnder(c.Paths.Root, c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = resolveUnder(c.Paths.Root, c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePython() error {
	if value, ok := os.LookupEnv("LIPSYNC_PYTHON"); ok && strings.TrimSpace(value) != "" {
		c.Python.Interpreter = value
	}
	c.Python.Interpreter = strings.TrimSpace(c.Python.Interpreter)
	var err error
	if c.Python.EnvFile, err = resolveUnder(c.Paths.Root, c.Python.EnvFile); err != nil {
		return fmt.Errorf("python.env_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeRequirements() error {
	var err error
	if c.Requirements.Accelerated, err = resolveUnder(c.Paths.Root, c.Requirements.Accelerated); err != nil {
		return fmt.Errorf("requirements.accelerated: %w", err)
	}
	if c.Requirements.General, err = resolveUnder(c.Paths.Root, c.Requirements.General); err != nil {
		return fmt.Errorf("requirements.general: %w", err)
	}
	c.Requirements.AcceleratedIndexURL = strings.TrimSpace(c.Requirements.AcceleratedIndexURL)
	args := c.Requirements.ExtraPipArgs[:0]
	for _, arg := range c.Requirements.ExtraPipArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Requirements.ExtraPipArgs = args
	return nil
}

func (c *Config) normalizeEntryPoints() error {
	var err error
	if c.Assets.FetchScript, err = resolveUnder(c.Paths.Root, c.Assets.FetchScript); err != nil {
		return fmt.Errorf("assets.fetch_script: %w", err)
	}
	if c.Assets.Checkpoint, err = resolveUnder(c.Paths.Root, c.Assets.Checkpoint); err != nil {
		return fmt.Errorf("assets.checkpoint: %w", err)
	}
	if c.Inference.Script, err = resolveUnder(c.Paths.Root, c.Inference.Script); err != nil {
		return fmt.Errorf("inference.script: %w", err)
	}
	return nil
}

func (c *Config) normalizeRun() {
	c.Run.Pause = strings.ToLower(strings.TrimSpace(c.Run.Pause))
	if c.Run.Pause == "" {
		c.Run.Pause = defaultPauseMode
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("LIPSYNC_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}
