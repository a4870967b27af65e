package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/toolman"
	projectConfigDir = ".toolman"
	configFileName   = "config.yaml"
)

// LoadConfig loads the tool manager configuration by layering default, user,
// and project settings. User config lives under ~/.config/toolman, project
// config under ./.toolman; project entries override user entries per tool id.
func LoadConfig() (Config, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. Determine user-specific configuration path
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// Log this error but don't fail; user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	// 3. Determine project-specific configuration path
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	fillToolNames(&config)
	return config, nil
}

// LoadConfigFromPath loads a single configuration file, skipping the
// hierarchical merge. Used when the --config flag names an explicit file.
func LoadConfigFromPath(path string) (Config, error) {
	config, err := loadConfigFromFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	fillToolNames(&config)
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a Config from a YAML file.
func loadConfigFromFile(filePath string) (Config, error) {
	var config Config
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return config, nil
}

// mergeConfigs layers overlay on top of base. Tool definitions override by
// id; settings fields override only when the overlay sets them.
func mergeConfigs(base, overlay Config) Config {
	merged := base
	merged.Enabled = merged.Enabled || overlay.Enabled

	if overlay.Settings.GlobalTimeout > 0 {
		merged.Settings.GlobalTimeout = overlay.Settings.GlobalTimeout
	}
	if overlay.Settings.DockerNetwork != "" {
		merged.Settings.DockerNetwork = overlay.Settings.DockerNetwork
	}
	if overlay.Settings.FailureThreshold > 0 {
		merged.Settings.FailureThreshold = overlay.Settings.FailureThreshold
	}
	if overlay.Settings.FailureWindow > 0 {
		merged.Settings.FailureWindow = overlay.Settings.FailureWindow
	}
	if overlay.Settings.CooldownBase > 0 {
		merged.Settings.CooldownBase = overlay.Settings.CooldownBase
	}
	if overlay.Settings.CooldownCap > 0 {
		merged.Settings.CooldownCap = overlay.Settings.CooldownCap
	}

	if merged.Tools == nil {
		merged.Tools = map[string]ToolDefinition{}
	}
	for id, def := range overlay.Tools {
		merged.Tools[id] = def
	}

	return merged
}

// fillToolNames copies each map key into the definition's Name field and
// defaults the execution type to subprocess.
func fillToolNames(config *Config) {
	for id, def := range config.Tools {
		def.Name = id
		if def.Type == "" {
			def.Type = ToolTypeSubprocess
		}
		config.Tools[id] = def
	}
}
