// Package config loads and validates tool manager configuration.
//
// Configuration is layered: defaults, then the user file under
// ~/.config/toolman/config.yaml, then the project file under
// ./.toolman/config.yaml. Project entries win per tool id. The file maps
// tool ids to launch specs (command or container image, environment,
// per-call timeout) plus manager-wide settings such as the failure
// threshold and cooldown curve.
package config
