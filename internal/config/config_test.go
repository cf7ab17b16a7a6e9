package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Executor.WorkingDir)
	assert.Equal(t, 30, cfg.Executor.BashTimeoutSeconds)
	assert.Equal(t, PolicyDefault, cfg.Policy.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Agent.IncludeGitStatus)
	assert.False(t, cfg.Debug.Enabled)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "aicode.toml", `
[executor]
working_dir = "/srv/project"
bash_timeout_seconds = 90

[safety]
extra_patterns = ['git\s+push\s+--force']

[policy]
mode = "readonly"

[agent]
native_tools = true
system_prompt = "Be terse."
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/project", cfg.Executor.WorkingDir)
	assert.Equal(t, 90, cfg.Executor.BashTimeoutSeconds)
	assert.Equal(t, []string{`git\s+push\s+--force`}, cfg.Safety.ExtraPatterns)
	assert.Equal(t, PolicyReadOnly, cfg.Policy.Mode)
	assert.True(t, cfg.Agent.NativeTools)
	assert.Equal(t, "Be terse.", cfg.Agent.SystemPrompt)
	assert.Equal(t, ":8081", cfg.Server.WSAddr)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "aicode.yaml", `
executor:
  working_dir: ./work
policy:
  mode: all
logging:
  level: debug
  json: true
debug:
  enabled: true
  log_dir: /var/tmp/trace
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./work", cfg.Executor.WorkingDir)
	assert.Equal(t, 30, cfg.Executor.BashTimeoutSeconds)
	assert.Equal(t, PolicyAll, cfg.Policy.Mode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, "/var/tmp/trace", cfg.Debug.LogDir)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "bad.toml", "[policy]\nmode = \"yolo\"\n"))
	assert.ErrorContains(t, err, "unknown policy mode")

	_, err = LoadConfig(writeFile(t, "broken.yaml", "executor: [\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "config.json", "{}"))
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("AICODE_WORKDIR", "/env/dir")
	t.Setenv("AICODE_POLICY", "all")
	t.Setenv("AICODE_LOG_LEVEL", "warn")
	t.Setenv("AICODE_DEBUG", "1")
	t.Setenv("AICODE_DEBUG_DIR", "/env/debug")
	t.Setenv("AICODE_WS_ADDR", "127.0.0.1:9000")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/env/dir", cfg.Executor.WorkingDir)
	assert.Equal(t, PolicyAll, cfg.Policy.Mode)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, "/env/debug", cfg.Debug.LogDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.WSAddr)

	assert.Equal(t, DebugConfig{Enabled: true, LogDir: "/env/debug"}, GetDebugConfig())
}
