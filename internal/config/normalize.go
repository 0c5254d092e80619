package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeRetry()
	c.normalizeConvert()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.QuarantineDir) == "" {
		c.Paths.QuarantineDir = defaultQuarantineDir
	}
	if c.Paths.QuarantineDir, err = expandPath(c.Paths.QuarantineDir); err != nil {
		return fmt.Errorf("paths.quarantine_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.StabilityWindow <= 0 {
		c.Workflow.StabilityWindow = defaultStabilityWindow
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = defaultRetryBaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = defaultRetryMaxDelay
	}
}

func (c *Config) normalizeConvert() {
	c.Convert.Tool = strings.TrimSpace(c.Convert.Tool)
	if c.Convert.Tool == "" {
		c.Convert.Tool = defaultConvertTool
	}
	if c.Convert.TimeoutSeconds <= 0 {
		c.Convert.TimeoutSeconds = defaultConvertTimeout
	}
	if c.Convert.MinFreeGiB < 0 {
		c.Convert.MinFreeGiB = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
