package config

import (
	"fmt"
	"strings"
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ValidationErrors collects field errors so a definition can report
// everything wrong with it at once.
type ValidationErrors []ValidationError

// Add appends a field error.
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any error was collected.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateDefinition performs comprehensive validation on a tool definition.
func ValidateDefinition(def ToolDefinition) error {
	var errors ValidationErrors

	if strings.TrimSpace(def.Name) == "" {
		errors.Add("name", "cannot be empty")
	}

	switch def.Type {
	case ToolTypeSubprocess, "":
		if len(def.Command) == 0 {
			errors.Add("command", "is required for subprocess tools")
		} else {
			for i, cmd := range def.Command {
				if strings.TrimSpace(cmd) == "" {
					errors.Add(fmt.Sprintf("command[%d]", i), "command element cannot be empty")
				}
			}
		}
	case ToolTypeContainer:
		if strings.TrimSpace(def.Image) == "" {
			errors.Add("image", "is required for container tools")
		}
		for key, value := range def.Env {
			if key == "" {
				errors.Add("env", "environment variable key cannot be empty")
			}
			if value == "" {
				errors.Add(fmt.Sprintf("env.%s", key), "environment variable value cannot be empty")
			}
		}
	default:
		errors.Add("type", fmt.Sprintf("must be one of [%s %s], got %q", ToolTypeSubprocess, ToolTypeContainer, def.Type))
	}

	if def.Timeout < 0 {
		errors.Add("timeout", "must not be negative")
	}

	if errors.HasErrors() {
		return fmt.Errorf("invalid tool definition %q: %w", def.Name, errors)
	}
	return nil
}

// Validate checks every tool definition and the id uniqueness invariant
// (enforced structurally by the map, re-checked for trimmed collisions).
func (c Config) Validate() error {
	seen := make(map[string]string, len(c.Tools))
	for id, def := range c.Tools {
		if err := ValidateDefinition(def); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(id)
		if prev, ok := seen[trimmed]; ok {
			return fmt.Errorf("duplicate tool id %q (conflicts with %q)", id, prev)
		}
		seen[trimmed] = id
	}
	return nil
}
