package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"lipsync/internal/command"
	"lipsync/internal/config"
)

type commandContext struct {
	configFlag *string
	exec       command.Executor

	configOnce sync.Once
	config     *config.Config
	configErr  error

	dirsOnce sync.Once
	dirsErr  error
}

func newCommandContext(configFlag *string, exec command.Executor) *commandContext {
	if exec == nil {
		exec = command.OSExecutor{}
	}
	return &commandContext{
		configFlag: configFlag,
		exec:       exec,
	}
}

// loadConfig parses and validates configuration without touching the
// filesystem.
func (c *commandContext) loadConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, _, _, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// ensureConfig loads configuration and creates the log and state directories.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	c.dirsOnce.Do(func() {
		c.dirsErr = cfg.EnsureDirectories()
	})
	if c.dirsErr != nil {
		return nil, c.dirsErr
	}
	return cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
