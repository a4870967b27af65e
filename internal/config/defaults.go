package config

import "time"

// Default policy values used when the settings block leaves them unset.
const (
	DefaultGlobalTimeout    = 120 * time.Second
	DefaultFailureThreshold = 3
	DefaultFailureWindow    = 60 * time.Second
	DefaultCooldownBase     = 15 * time.Second
	DefaultCooldownCap      = 5 * time.Minute
)

// GetDefaultConfig returns the configuration used before any file is loaded.
// The manager is disabled by default; enabling it without any tools is valid
// but useless, so real deployments always layer a file on top.
func GetDefaultConfig() Config {
	return Config{
		Enabled: false,
		Tools:   map[string]ToolDefinition{},
	}
}
