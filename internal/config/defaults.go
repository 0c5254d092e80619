package config

const (
	defaultInboxDir      = "~/inbox"
	defaultOutputDir     = "~/converted"
	defaultQuarantineDir = "~/.local/share/bindery/failed"
	defaultLogDir        = "~/.local/share/bindery/logs"
	defaultAPIBind       = "127.0.0.1:8341"

	defaultPollInterval       = 10
	defaultStabilityWindow    = 5
	defaultErrorRetryInterval = 30

	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 60
	defaultRetryMaxDelay  = 3600

	defaultConvertTool    = "m4b-tool"
	defaultConvertTimeout = 7200
	defaultMinFreeGiB     = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir:      defaultInboxDir,
			OutputDir:     defaultOutputDir,
			QuarantineDir: defaultQuarantineDir,
			LogDir:        defaultLogDir,
			APIBind:       defaultAPIBind,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			StabilityWindow:    defaultStabilityWindow,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Retry: Retry{
			MaxRetries:       defaultMaxRetries,
			BaseDelay:        defaultRetryBaseDelay,
			MaxDelay:         defaultRetryMaxDelay,
			TransientEnabled: true,
		},
		Convert: Convert{
			Tool:           defaultConvertTool,
			TimeoutSeconds: defaultConvertTimeout,
			MinFreeGiB:     defaultMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
