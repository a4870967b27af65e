// Package catalog knows the conventional request shapes of the common MCP
// tool servers. Callers express an intent ("read this file", "run this
// command") and the catalog translates it into the operation name and
// argument map the target server expects. Unknown tools pass arguments
// through untouched.
package catalog

import (
	"fmt"

	"toolman/internal/protocol"
)

// Request is a shaped tools/call payload.
type Request struct {
	Method string
	Params map[string]interface{}
}

// Builder shapes an intent into a concrete request for one tool family.
type Builder interface {
	// Build translates the operation and arguments. Returning an error
	// means the intent cannot be expressed for this tool.
	Build(operation string, args map[string]interface{}) (Request, error)
}

// passthrough forwards the operation and arguments verbatim.
type passthrough struct{}

func (passthrough) Build(operation string, args map[string]interface{}) (Request, error) {
	return Request{
		Method: protocol.MethodCallTool,
		Params: map[string]interface{}{
			"name":      operation,
			"arguments": args,
		},
	}, nil
}

// Catalog resolves builders by tool id.
type Catalog struct {
	builders map[string]Builder
	fallback Builder
}

// New returns a Catalog preloaded with builders for the standard tool
// servers.
func New() *Catalog {
	return &Catalog{
		builders: map[string]Builder{
			"filesystem":          filesystemBuilder{},
			"git":                 gitBuilder{},
			"time":                timeBuilder{},
			"fetch":               fetchBuilder{},
			"memory":              passthrough{},
			"sequential-thinking": sequentialThinkingBuilder{},
			"shell":               shellBuilder{},
		},
		fallback: passthrough{},
	}
}

// Register installs or replaces the builder for a tool id.
func (c *Catalog) Register(toolID string, b Builder) {
	c.builders[toolID] = b
}

// Build shapes a request for the given tool.
func (c *Catalog) Build(toolID, operation string, args map[string]interface{}) (Request, error) {
	b, ok := c.builders[toolID]
	if !ok {
		b = c.fallback
	}
	return b.Build(operation, args)
}

// requireString pulls a mandatory string argument.
func requireString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}
