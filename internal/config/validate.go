package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRequirements(); err != nil {
		return err
	}
	if err := c.validateEntryPoints(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Root) == "" {
		return errors.New("paths.root could not be determined; set it in the config or export LIPSYNC_ROOT")
	}
	if strings.TrimSpace(c.Paths.EnvDir) == "" {
		return errors.New("paths.env_dir must be set")
	}
	if c.Paths.EnvDir == c.Paths.Root {
		return errors.New("paths.env_dir must not be the launcher root")
	}
	return nil
}

func (c *Config) validateRequirements() error {
	if strings.TrimSpace(c.Requirements.General) == "" {
		return errors.New("requirements.general must be set")
	}
	if c.Requirements.Accelerated != "" && c.Requirements.Accelerated == c.Requirements.General {
		return errors.New("requirements.accelerated and requirements.general must be different files")
	}
	return nil
}

func (c *Config) validateEntryPoints() error {
	if strings.TrimSpace(c.Assets.FetchScript) == "" {
		return errors.New("assets.fetch_script must be set")
	}
	if strings.TrimSpace(c.Assets.Checkpoint) == "" {
		return errors.New("assets.checkpoint must be set")
	}
	if strings.TrimSpace(c.Inference.Script) == "" {
		return errors.New("inference.script must be set")
	}
	return nil
}

func (c *Config) validateRun() error {
	switch c.Run.Pause {
	case PauseAuto, PauseAlways, PauseNever:
		return nil
	default:
		return fmt.Errorf("run.pause must be one of %q, %q, %q (got %q)", PauseAuto, PauseAlways, PauseNever, c.Run.Pause)
	}
}
