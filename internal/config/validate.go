package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		return fmt.Errorf("paths.inbox_dir is required. Edit the config file (create with 'bindery config init')")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	if c.Paths.InboxDir == c.Paths.OutputDir {
		return fmt.Errorf("paths.inbox_dir and paths.output_dir must differ")
	}
	if c.Paths.QuarantineDir == c.Paths.InboxDir {
		return fmt.Errorf("paths.quarantine_dir must not be the inbox")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%d) must be >= retry.base_delay (%d)", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	return nil
}

func (c *Config) validateConvert() error {
	if strings.TrimSpace(c.Convert.Tool) == "" {
		return fmt.Errorf("convert.tool is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
