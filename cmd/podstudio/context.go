package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"podstudio/internal/config"
	"podstudio/internal/daemonrun"
	"podstudio/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// commandLogger logs to stderr so stdout stays clean for tables and JSON.
func (c *commandContext) commandLogger(cfg *config.Config) (*slog.Logger, error) {
	level := c.logLevel()
	if level == "" {
		level = cfg.Logging.Level
	}
	return logging.New(logging.Options{
		Level:   level,
		Format:  cfg.Logging.Format,
		Console: os.Stderr,
	})
}

func (c *commandContext) openStack(ctx context.Context, opts daemonrun.BuildOptions) (*daemonrun.Stack, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.commandLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	stack, err := daemonrun.Build(ctx, cfg, logger, opts)
	if err != nil {
		return nil, nil, err
	}
	return stack, logger, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
