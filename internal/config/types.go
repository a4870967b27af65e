package config

import (
	"time"
)

// ToolType defines how the process backing a tool server is executed.
type ToolType string

const (
	// ToolTypeSubprocess runs the tool server as a local child process.
	ToolTypeSubprocess ToolType = "subprocess"
	// ToolTypeContainer runs the tool server inside a container, attached
	// over the container runtime's stdio.
	ToolTypeContainer ToolType = "container"
)

// ToolDefinition describes one tool server the manager knows how to launch.
// Definitions are keyed by tool id in the YAML file; Name is filled from the
// map key during loading.
type ToolDefinition struct {
	Name         string            `yaml:"-"`
	Type         ToolType          `yaml:"type,omitempty"` // defaults to "subprocess"
	Command      []string          `yaml:"command,omitempty"`
	Args         []string          `yaml:"args,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	Timeout      int               `yaml:"timeout,omitempty"` // per-call timeout in seconds
	Enabled      *bool             `yaml:"enabled,omitempty"` // nil means enabled
	Description  string            `yaml:"description,omitempty"`
	Capabilities []string          `yaml:"capabilities,omitempty"`

	// Fields for Type = "container"
	Image string `yaml:"image,omitempty"`
}

// IsEnabled reports whether the tool should be started. Tools are enabled
// unless the configuration says otherwise.
func (d ToolDefinition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// CallTimeout returns the per-call deadline for this tool, falling back to
// the given global default when the definition does not set one.
func (d ToolDefinition) CallTimeout(global time.Duration) time.Duration {
	if d.Timeout > 0 {
		return time.Duration(d.Timeout) * time.Second
	}
	return global
}

// Settings holds manager-wide tunables.
type Settings struct {
	GlobalTimeout    int    `yaml:"globalTimeout,omitempty"`    // default per-call timeout in seconds
	DockerNetwork    string `yaml:"dockerNetwork,omitempty"`    // injected into container runs when set
	FailureThreshold int    `yaml:"failureThreshold,omitempty"` // consecutive failures before cooldown
	FailureWindow    int    `yaml:"failureWindow,omitempty"`    // seconds within which failures count as a streak
	CooldownBase     int    `yaml:"cooldownBase,omitempty"`     // initial cooldown in seconds
	CooldownCap      int    `yaml:"cooldownCap,omitempty"`      // cooldown ceiling in seconds
}

// GlobalCallTimeout returns the default per-call deadline.
func (s Settings) GlobalCallTimeout() time.Duration {
	if s.GlobalTimeout > 0 {
		return time.Duration(s.GlobalTimeout) * time.Second
	}
	return DefaultGlobalTimeout
}

// FailureThresholdOrDefault returns the consecutive-failure count that
// triggers a cooldown.
func (s Settings) FailureThresholdOrDefault() int {
	if s.FailureThreshold > 0 {
		return s.FailureThreshold
	}
	return DefaultFailureThreshold
}

// FailureWindowOrDefault returns the window within which failures count
// toward the threshold.
func (s Settings) FailureWindowOrDefault() time.Duration {
	if s.FailureWindow > 0 {
		return time.Duration(s.FailureWindow) * time.Second
	}
	return DefaultFailureWindow
}

// CooldownBaseOrDefault returns the initial cooldown duration.
func (s Settings) CooldownBaseOrDefault() time.Duration {
	if s.CooldownBase > 0 {
		return time.Duration(s.CooldownBase) * time.Second
	}
	return DefaultCooldownBase
}

// CooldownCapOrDefault returns the cooldown ceiling.
func (s Settings) CooldownCapOrDefault() time.Duration {
	if s.CooldownCap > 0 {
		return time.Duration(s.CooldownCap) * time.Second
	}
	return DefaultCooldownCap
}

// Config is the top-level configuration for the tool manager.
type Config struct {
	Enabled  bool                      `yaml:"enabled"`
	Settings Settings                  `yaml:"settings,omitempty"`
	Tools    map[string]ToolDefinition `yaml:"tools,omitempty"`
}
