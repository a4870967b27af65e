package registry

import (
	"fmt"
	"sync"
	"time"

	"toolman/internal/config"
	"toolman/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// Status is a tool's lifecycle state. Only the supervisor mutates it.
type Status string

const (
	// StatusRegistered means the descriptor exists but nothing was started.
	StatusRegistered Status = "registered"
	// StatusReady means the process is up and the handshake succeeded.
	StatusReady Status = "ready"
	// StatusFailed means spawn or handshake failed, or the process died.
	// A Failed tool is never restarted automatically.
	StatusFailed Status = "failed"
	// StatusStopped means the tool was shut down deliberately.
	StatusStopped Status = "stopped"
)

// Descriptor is the managed record for one tool server.
type Descriptor struct {
	ID           string
	Definition   config.ToolDefinition
	Status       Status
	StatusReason string
	Capabilities []mcp.Tool // advertised operations, cached at handshake
	UsageCount   int
	LastUsed     time.Time
}

// Registry holds tool descriptors loaded from configuration. Pure data plus
// lookup; lifecycle transitions come from the supervisor.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Descriptor
}

// ErrNotFound is returned for lookups of unknown tool ids.
type ErrNotFound struct {
	ToolID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("tool %q not found", e.ToolID)
}

// New builds a registry from configuration, registering every tool that is
// enabled. Disabled tools are skipped entirely, matching the config contract.
func New(cfg config.Config) *Registry {
	r := &Registry{tools: make(map[string]*Descriptor)}

	for id, def := range cfg.Tools {
		if !def.IsEnabled() {
			logging.Info("Registry", "Skipping disabled tool: %s", id)
			continue
		}
		r.tools[id] = &Descriptor{
			ID:         id,
			Definition: def,
			Status:     StatusRegistered,
		}
		logging.Debug("Registry", "Registered tool %s (type: %s)", id, def.Type)
	}

	logging.Info("Registry", "Registered %d tools from configuration", len(r.tools))
	return r
}

// Get returns a copy of the descriptor for a tool.
func (r *Registry) Get(toolID string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.tools[toolID]
	if !ok {
		return Descriptor{}, &ErrNotFound{ToolID: toolID}
	}
	return *desc, nil
}

// IDs returns all registered tool ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	return ids
}

// Available returns the ids of tools not in status Failed. Tools inside a
// cooldown window are still listed; cooldown is a per-call gate, not a
// visibility filter.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tools))
	for id, desc := range r.tools {
		if desc.Status != StatusFailed {
			ids = append(ids, id)
		}
	}
	return ids
}

// SetStatus records a lifecycle transition with a reason.
func (r *Registry) SetStatus(toolID string, status Status, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.tools[toolID]
	if !ok {
		return
	}
	desc.Status = status
	desc.StatusReason = reason
}

// SetCapabilities caches the operation list advertised at handshake.
func (r *Registry) SetCapabilities(toolID string, tools []mcp.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.tools[toolID]
	if !ok {
		return
	}
	desc.Capabilities = tools
}

// Capabilities returns the cached operation list for a tool.
func (r *Registry) Capabilities(toolID string) ([]mcp.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.tools[toolID]
	if !ok {
		return nil, &ErrNotFound{ToolID: toolID}
	}
	return desc.Capabilities, nil
}

// RecordUse bumps the usage counter and last-used timestamp.
func (r *Registry) RecordUse(toolID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.tools[toolID]
	if !ok {
		return
	}
	desc.UsageCount++
	desc.LastUsed = time.Now()
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
