package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Executor ExecutorSection `toml:"executor" yaml:"executor"`
	Safety   SafetySection   `toml:"safety" yaml:"safety"`
	Policy   PolicySection   `toml:"policy" yaml:"policy"`
	Agent    AgentSection    `toml:"agent" yaml:"agent"`
	Logging  LoggingSection  `toml:"logging" yaml:"logging"`
	Debug    DebugConfig     `toml:"debug" yaml:"debug"`
	Server   ServerSection   `toml:"server" yaml:"server"`
}

type ExecutorSection struct {
	WorkingDir         string `toml:"working_dir" yaml:"working_dir"`
	BashTimeoutSeconds int    `toml:"bash_timeout_seconds" yaml:"bash_timeout_seconds"`
}

type SafetySection struct {
	// ExtraPatterns are regular expressions checked after the built-in
	// dangerous-command rules.
	ExtraPatterns []string `toml:"extra_patterns" yaml:"extra_patterns"`
}

type PolicySection struct {
	Mode string `toml:"mode" yaml:"mode"`
}

type AgentSection struct {
	// NativeTools allows tool definitions to be sent when the transport
	// supports them. When false the markup grammar is always used.
	NativeTools      bool   `toml:"native_tools" yaml:"native_tools"`
	IncludeGitStatus bool   `toml:"include_git_status" yaml:"include_git_status"`
	SystemPrompt     string `toml:"system_prompt" yaml:"system_prompt"`
}

type LoggingSection struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

type ServerSection struct {
	WSAddr string `toml:"ws_addr" yaml:"ws_addr"`
}

const (
	PolicyDefault  = "default"
	PolicyReadOnly = "readonly"
	PolicyAll      = "all"
)

// LoadConfig reads a .toml, .yaml or .yml file. A missing file yields the
// defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := getDefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := decodeFile(path, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func (cfg *Config) validate() error {
	if cfg.Executor.WorkingDir == "" {
		cfg.Executor.WorkingDir = "."
	}

	if cfg.Executor.BashTimeoutSeconds <= 0 {
		cfg.Executor.BashTimeoutSeconds = 30 // default
	}

	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = PolicyDefault
	}
	switch cfg.Policy.Mode {
	case PolicyDefault, PolicyReadOnly, PolicyAll:
	default:
		return fmt.Errorf("unknown policy mode %q", cfg.Policy.Mode)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Debug.LogDir == "" {
		cfg.Debug.LogDir = defaultDebugDir
	}

	if cfg.Server.WSAddr == "" {
		cfg.Server.WSAddr = ":8081"
	}

	return nil
}

func getDefaultConfig() *Config {
	return &Config{
		Executor: ExecutorSection{
			WorkingDir:         ".",
			BashTimeoutSeconds: 30,
		},
		Policy: PolicySection{
			Mode: PolicyDefault,
		},
		Agent: AgentSection{
			NativeTools:      true,
			IncludeGitStatus: true,
		},
		Logging: LoggingSection{
			Level: "info",
		},
		Debug: DebugConfig{
			LogDir: defaultDebugDir,
		},
		Server: ServerSection{
			WSAddr: ":8081",
		},
	}
}

func applyEnv(cfg *Config) {
	if dir := os.Getenv("AICODE_WORKDIR"); dir != "" {
		cfg.Executor.WorkingDir = dir
	}

	if level := os.Getenv("AICODE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if mode := os.Getenv("AICODE_POLICY"); mode != "" {
		cfg.Policy.Mode = mode
	}

	if addr := os.Getenv("AICODE_WS_ADDR"); addr != "" {
		cfg.Server.WSAddr = addr
	}

	cfg.Debug = applyDebugEnv(cfg.Debug)
}
