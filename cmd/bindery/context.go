package main

import (
	"fmt"

	"bindery/internal/config"
)

// commandContext lazily resolves configuration shared across subcommands.
type commandContext struct {
	configFlag *string

	cfg        *config.Config
	configPath string
	fromFile   bool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, resolvedPath, fromFile, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	c.configPath = resolvedPath
	c.fromFile = fromFile
	return cfg, nil
}
