package config

import "os"

const defaultDebugDir = "/tmp/aicode-debug"

// DebugConfig controls the per-session debug trace.
type DebugConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	LogDir  string `toml:"log_dir" yaml:"log_dir"`
}

// GetDebugConfig returns debug configuration from environment and defaults
func GetDebugConfig() DebugConfig {
	return applyDebugEnv(DebugConfig{LogDir: defaultDebugDir})
}

func applyDebugEnv(cfg DebugConfig) DebugConfig {
	if enabled := os.Getenv("AICODE_DEBUG"); enabled == "true" || enabled == "1" {
		cfg.Enabled = true
	}

	if logDir := os.Getenv("AICODE_DEBUG_DIR"); logDir != "" {
		cfg.LogDir = logDir
	}

	return cfg
}
