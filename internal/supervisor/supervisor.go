package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"toolman/internal/config"
	"toolman/internal/protocol"
	"toolman/internal/registry"
	"toolman/pkg/logging"
)

const (
	subsystem = "Supervisor"

	// pingTimeout bounds the liveness probe run after a stream failure.
	pingTimeout = 2 * time.Second
)

// TransportFactory creates the live transport for one tool definition.
// The default factory spawns the real process; tests substitute fakes.
type TransportFactory func(def config.ToolDefinition, settings config.Settings) (protocol.Transport, error)

// Supervisor owns every live tool handle. It spawns processes during
// initialization, hands transports to the protocol client, and decides
// whether a tool that misbehaved on the wire is actually dead.
//
// It implements protocol.HandleProvider.
type Supervisor struct {
	mu       sync.Mutex
	registry *registry.Registry
	settings config.Settings
	factory  TransportFactory
	handles  map[string]protocol.Transport
	shutdown bool
}

// New creates a Supervisor over the given registry. A nil factory selects
// the real stdio transport.
func New(reg *registry.Registry, settings config.Settings, factory TransportFactory) *Supervisor {
	if factory == nil {
		factory = newStdioHandle
	}
	return &Supervisor{
		registry: reg,
		settings: settings,
		factory:  factory,
		handles:  make(map[string]protocol.Transport),
	}
}

// InitializeTools spawns and handshakes every registered tool. Tools that
// fail to spawn or handshake are marked failed with a reason and skipped;
// the rest come up normally. Returns true if at least one tool is ready.
func (s *Supervisor) InitializeTools(ctx context.Context) bool {
	ids := s.registry.IDs()

	ready := 0
	for _, id := range ids {
		if err := s.startTool(ctx, id); err != nil {
			logging.Error(subsystem, err, "Failed to initialize tool %s", id)
			continue
		}
		ready++
	}

	logging.Info(subsystem, "Initialized %d/%d tools", ready, len(ids))
	return ready > 0
}

// ReinitializeTool tears down a tool's handle (if any) and starts it fresh.
// This is the explicit restart path; failures never restart implicitly.
func (s *Supervisor) ReinitializeTool(ctx context.Context, toolID string) error {
	s.mu.Lock()
	if existing, ok := s.handles[toolID]; ok {
		_ = existing.Close()
		delete(s.handles, toolID)
	}
	s.mu.Unlock()

	return s.startTool(ctx, toolID)
}

func (s *Supervisor) startTool(ctx context.Context, toolID string) error {
	desc, err := s.registry.Get(toolID)
	if err != nil {
		return err
	}
	def := desc.Definition

	transport, err := s.factory(def, s.settings)
	if err != nil {
		s.registry.SetStatus(toolID, registry.StatusFailed, fmt.Sprintf("spawn failure: %v", err))
		return &protocol.CallError{Kind: protocol.KindSpawnFailure, ToolID: toolID, Detail: err.Error()}
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, def.CallTimeout(s.settings.GlobalCallTimeout()))
	defer cancel()

	if err := transport.Initialize(handshakeCtx); err != nil {
		_ = transport.Close()
		s.registry.SetStatus(toolID, registry.StatusFailed, fmt.Sprintf("handshake failed: %v", err))
		kind := protocol.KindProtocolError
		if errors.Is(err, context.DeadlineExceeded) {
			kind = protocol.KindHandshakeTimeout
		}
		return &protocol.CallError{Kind: kind, ToolID: toolID, Detail: "handshake failed: " + err.Error()}
	}

	tools, err := transport.ListTools(handshakeCtx)
	if err != nil {
		// The server is up but would not enumerate its operations.
		// Keep the connection; capability discovery can be retried later.
		logging.Warn(subsystem, "tools/list failed for %s, continuing without capabilities: %v", toolID, err)
		tools = nil
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		_ = transport.Close()
		return fmt.Errorf("supervisor is shut down")
	}
	s.handles[toolID] = transport
	s.mu.Unlock()

	s.registry.SetCapabilities(toolID, tools)
	s.registry.SetStatus(toolID, registry.StatusReady, "")
	logging.Info(subsystem, "Tool %s ready with %d capabilities", toolID, len(tools))
	return nil
}

// Transport returns the live transport for a tool, if one exists.
func (s *Supervisor) Transport(toolID string) (protocol.Transport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.handles[toolID]
	return t, ok
}

// ReportStreamFailure is called by the protocol client when a call failed
// at the transport level. A quick ping decides whether the process is dead
// or the call merely stalled: a dead process is detached and marked failed,
// a live one keeps its handle.
func (s *Supervisor) ReportStreamFailure(toolID string, cause error) {
	s.mu.Lock()
	transport, ok := s.handles[toolID]
	s.mu.Unlock()
	if !ok {
		return
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := transport.Ping(pingCtx); err == nil {
		logging.Warn(subsystem, "Tool %s survived stream failure: %v", toolID, cause)
		return
	}

	logging.Error(subsystem, cause, "Tool %s is unresponsive, detaching handle", toolID)

	s.mu.Lock()
	// Re-check: a concurrent reinitialize may have swapped the handle.
	if current, ok := s.handles[toolID]; ok && current == transport {
		delete(s.handles, toolID)
	}
	s.mu.Unlock()

	_ = transport.Close()
	s.registry.SetStatus(toolID, registry.StatusFailed, fmt.Sprintf("stream failure: %v", cause))
}

// Shutdown closes every live handle. Idempotent; safe after a partial
// initialization.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	handles := s.handles
	s.handles = make(map[string]protocol.Transport)
	s.mu.Unlock()

	for id, transport := range handles {
		if err := transport.Close(); err != nil {
			logging.Warn(subsystem, "Error closing %s: %v", id, err)
		}
		s.registry.SetStatus(id, registry.StatusStopped, "")
	}
	logging.Info(subsystem, "Shut down %d tool handles", len(handles))
}
