package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_LayersUserAndProject(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	writeConfigFile(t, home, ".config/toolman/config.yaml", `
enabled: true
settings:
  globalTimeout: 60
  failureThreshold: 5
tools:
  filesystem:
    command: ["npx", "@modelcontextprotocol/server-filesystem", "."]
  git:
    command: ["uvx", "mcp-server-git"]
`)
	writeConfigFile(t, project, ".toolman/config.yaml", `
settings:
  globalTimeout: 30
tools:
  git:
    command: ["uvx", "mcp-server-git"]
    timeout: 10
  shell:
    command: ["./shell-server"]
`)

	origHome, origWd := osUserHomeDir, osGetwd
	osUserHomeDir = func() (string, error) { return home, nil }
	osGetwd = func() (string, error) { return project, nil }
	defer func() { osUserHomeDir, osGetwd = origHome, origWd }()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	// Project settings override user settings field by field.
	assert.Equal(t, 30, cfg.Settings.GlobalTimeout)
	assert.Equal(t, 5, cfg.Settings.FailureThreshold)

	// Project tool entries replace user entries with the same id.
	require.Len(t, cfg.Tools, 3)
	assert.Equal(t, 10, cfg.Tools["git"].Timeout)
	assert.Contains(t, cfg.Tools, "filesystem")
	assert.Contains(t, cfg.Tools, "shell")

	// Names and types are filled from the map keys.
	assert.Equal(t, "shell", cfg.Tools["shell"].Name)
	assert.Equal(t, ToolTypeSubprocess, cfg.Tools["shell"].Type)
}

func TestLoadConfig_MissingFilesAreFine(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	origHome, origWd := osUserHomeDir, osGetwd
	osUserHomeDir = func() (string, error) { return home, nil }
	osGetwd = func() (string, error) { return project, nil }
	defer func() { osUserHomeDir, osGetwd = origHome, origWd }()

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Tools)
}

func TestLoadConfig_MalformedYAMLFails(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	writeConfigFile(t, home, ".config/toolman/config.yaml", "enabled: [not a bool")

	origHome, origWd := osUserHomeDir, osGetwd
	osUserHomeDir = func() (string, error) { return home, nil }
	osGetwd = func() (string, error) { return project, nil }
	defer func() { osUserHomeDir, osGetwd = origHome, origWd }()

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigFromPath(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", `
enabled: true
tools:
  time:
    type: container
    image: mcp/time
`)

	cfg, err := LoadConfigFromPath(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ToolTypeContainer, cfg.Tools["time"].Type)
	assert.Equal(t, "time", cfg.Tools["time"].Name)
}

func TestCallTimeout(t *testing.T) {
	global := 120 * time.Second

	def := ToolDefinition{}
	assert.Equal(t, global, def.CallTimeout(global))

	def.Timeout = 10
	assert.Equal(t, 10*time.Second, def.CallTimeout(global))
}

func TestIsEnabled(t *testing.T) {
	def := ToolDefinition{}
	assert.True(t, def.IsEnabled(), "nil enabled flag means enabled")

	off := false
	def.Enabled = &off
	assert.False(t, def.IsEnabled())

	on := true
	def.Enabled = &on
	assert.True(t, def.IsEnabled())
}

func TestGlobalCallTimeout_Default(t *testing.T) {
	var s Settings
	assert.Equal(t, DefaultGlobalTimeout, s.GlobalCallTimeout())

	s.GlobalTimeout = 42
	assert.Equal(t, 42*time.Second, s.GlobalCallTimeout())
}
