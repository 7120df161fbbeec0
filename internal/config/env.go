package config

import "os"

// ProcessConfig captures the process-wide settings the CLI reads from the
// environment, separate from the per-deployment queue configuration file.
type ProcessConfig struct {
	// ConfigPath is the deployment configuration file path.
	ConfigPath string
	// LogLevel is one of debug/info/warn/error/fatal.
	LogLevel string
	// LogFormat is either json or text.
	LogFormat string
}

// ProcessConfigFromEnv reads PUBQUEUE_* environment variables, falling back
// to the given defaults for anything unset.
func ProcessConfigFromEnv(defaults ProcessConfig) ProcessConfig {
	cfg := defaults
	if v := os.Getenv("PUBQUEUE_CONFIG_PATH"); v != "" {
		cfg.ConfigPath = v
	}
	if v := os.Getenv("PUBQUEUE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PUBQUEUE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	return cfg
}
