// Package manager is the façade over the tool registry, supervisor,
// protocol client, health controller and metrics collector. Callers go
// through CallTool and never see a panic or an unclassified error.
package manager

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"toolman/internal/catalog"
	"toolman/internal/config"
	"toolman/internal/health"
	"toolman/internal/metrics"
	"toolman/internal/protocol"
	"toolman/internal/registry"
	"toolman/internal/supervisor"
	"toolman/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

const subsystem = "Manager"

// callerID tags every protocol request issued through the façade so call
// logs attribute traffic to it.
const callerID = "manager"

// ToolInfo is the operator-facing view of one tool.
type ToolInfo struct {
	ID                string          `json:"id"`
	Type              config.ToolType `json:"type"`
	Description       string          `json:"description,omitempty"`
	Status            registry.Status `json:"status"`
	StatusReason      string          `json:"status_reason,omitempty"`
	HealthState       health.State    `json:"health_state"`
	CooldownRemaining time.Duration   `json:"cooldown_remaining,omitempty"`
	Capabilities      []string        `json:"capabilities,omitempty"`
	UsageCount        int             `json:"usage_count"`
	LastUsed          time.Time       `json:"last_used,omitempty"`
}

// Manager wires the subsystems together behind one surface.
type Manager struct {
	cfg        *config.Config
	registry   *registry.Registry
	supervisor *supervisor.Supervisor
	client     *protocol.Client
	health     *health.Controller
	metrics    *metrics.Collector
	catalog    *catalog.Catalog
}

// New assembles a Manager from configuration. A nil factory selects the
// real stdio transport.
func New(cfg *config.Config, factory supervisor.TransportFactory) *Manager {
	reg := registry.New(*cfg)
	sup := supervisor.New(reg, cfg.Settings, factory)

	policy := health.Policy{
		FailureThreshold: cfg.Settings.FailureThresholdOrDefault(),
		FailureWindow:    cfg.Settings.FailureWindowOrDefault(),
		CooldownBase:     cfg.Settings.CooldownBaseOrDefault(),
		CooldownCap:      cfg.Settings.CooldownCapOrDefault(),
	}

	return &Manager{
		cfg:        cfg,
		registry:   reg,
		supervisor: sup,
		client:     protocol.NewClient(sup),
		health:     health.NewController(policy),
		metrics:    metrics.NewCollector(),
		catalog:    catalog.New(),
	}
}

// IsEnabled reports whether tool management is switched on at all.
func (m *Manager) IsEnabled() bool {
	return m.cfg.Enabled
}

// InitializeTools brings up every configured tool. Returns true if at
// least one tool is ready; a disabled manager initializes nothing.
func (m *Manager) InitializeTools(ctx context.Context) bool {
	if !m.IsEnabled() {
		logging.Info(subsystem, "Tool management is disabled, skipping initialization")
		return false
	}
	return m.supervisor.InitializeTools(ctx)
}

// GetAvailableTools lists every tool that could serve calls. Tools in
// cooldown are included with their state visible; tools that never came
// up are not.
func (m *Manager) GetAvailableTools() []ToolInfo {
	ids := m.registry.Available()
	infos := make([]ToolInfo, 0, len(ids))
	for _, id := range ids {
		info, err := m.GetToolInfo(id)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// GetToolInfo returns the full view of one tool.
func (m *Manager) GetToolInfo(toolID string) (ToolInfo, error) {
	desc, err := m.registry.Get(toolID)
	if err != nil {
		return ToolInfo{}, err
	}

	caps := make([]string, 0, len(desc.Capabilities))
	for _, t := range desc.Capabilities {
		caps = append(caps, t.Name)
	}

	return ToolInfo{
		ID:                desc.ID,
		Type:              desc.Definition.Type,
		Description:       desc.Definition.Description,
		Status:            desc.Status,
		StatusReason:      desc.StatusReason,
		HealthState:       m.health.StateOf(toolID),
		CooldownRemaining: m.health.CooldownRemaining(toolID),
		Capabilities:      caps,
		UsageCount:        desc.UsageCount,
		LastUsed:          desc.LastUsed,
	}, nil
}

// GetServerCapabilities returns the operations a tool advertised during
// its handshake.
func (m *Manager) GetServerCapabilities(toolID string) ([]mcp.Tool, error) {
	return m.registry.Capabilities(toolID)
}

// CallTool shapes and executes one tool call. Every path yields a
// classified Outcome: unknown tools, cooldown gating, transport errors
// and even panics below the façade all come back as errors, never as a
// crash in the caller.
func (m *Manager) CallTool(ctx context.Context, toolID, operation string, args map[string]interface{}) (out protocol.Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logging.Error(subsystem, fmt.Errorf("%v", r), "Panic during call to %s", toolID)
			out = protocol.Errorf(toolID, protocol.KindProtocolError, time.Since(start),
				"internal error during call to %s: %v", toolID, r)
			m.metrics.RecordCall(toolID, out.Elapsed, false)
		}
	}()

	if _, err := m.registry.Get(toolID); err != nil {
		out = protocol.Errorf(toolID, protocol.KindNotFound, time.Since(start), "tool %s is not registered", toolID)
		m.metrics.RecordCall(toolID, out.Elapsed, false)
		return out
	}

	// Cooldown gate. Short-circuited calls never touch the transport and
	// never feed the health state machine, or a cooling tool could deepen
	// its own cooldown without running.
	if !m.health.IsAvailable(toolID) {
		out = protocol.Errorf(toolID, protocol.KindUnavailable, time.Since(start),
			"tool %s is cooling down, retry in %s", toolID, m.health.CooldownRemaining(toolID).Round(time.Second))
		m.metrics.RecordCall(toolID, out.Elapsed, false)
		return out
	}

	req, err := m.catalog.Build(toolID, operation, args)
	if err != nil {
		out = protocol.Errorf(toolID, protocol.KindProtocolError, time.Since(start), "%v", err)
		m.metrics.RecordCall(toolID, out.Elapsed, false)
		return out
	}

	out = m.client.Call(ctx, m.callRequest(toolID, req.Method, req.Params))

	m.metrics.RecordCall(toolID, out.Elapsed, out.OK())
	m.health.RecordOutcome(toolID, out.OK())
	if out.OK() {
		m.registry.RecordUse(toolID)
	}
	return out
}

// ListServerTools runs tools/list against a live tool.
func (m *Manager) ListServerTools(ctx context.Context, toolID string) protocol.Outcome {
	return m.client.Call(ctx, m.callRequest(toolID, protocol.MethodListTools, nil))
}

// GetMetrics returns a snapshot of all call counters.
func (m *Manager) GetMetrics() metrics.Snapshot {
	return m.metrics.Snapshot()
}

// UsageSummary renders the call counters as a human-readable block,
// suitable for end-of-run logging.
func (m *Manager) UsageSummary() string {
	snap := m.metrics.Snapshot()
	if snap.TotalCalls == 0 {
		return "no tool calls recorded"
	}

	ids := make([]string, 0, len(snap.PerTool))
	for id := range snap.PerTool {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%d calls, %d ok, %d failed, avg %s\n",
		snap.TotalCalls, snap.SuccessfulCalls, snap.FailedCalls,
		snap.AverageDuration.Round(time.Millisecond))
	for _, id := range ids {
		tm := snap.PerTool[id]
		fmt.Fprintf(&b, "  %s: %d calls (%d ok), avg %s\n",
			id, tm.TotalCalls, tm.SuccessfulCalls,
			tm.AverageDuration.Round(time.Millisecond))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RefreshToolHealth probes every registered tool and feeds the results
// into the health controller.
func (m *Manager) RefreshToolHealth(ctx context.Context) map[string]health.State {
	return m.health.RefreshToolHealth(ctx, m.registry.IDs(), func(ctx context.Context, toolID string) error {
		req := m.callRequest(toolID, protocol.MethodPing, nil)
		req.Timeout = 5 * time.Second
		out := m.client.Call(ctx, req)
		if out.Err != nil {
			return out.Err
		}
		return nil
	})
}

// RetrySummary describes which tools are gated and when to retry.
func (m *Manager) RetrySummary() string {
	return m.health.RetrySummary(m.registry.IDs())
}

// ReinitializeTool restarts one tool on explicit operator request.
func (m *Manager) ReinitializeTool(ctx context.Context, toolID string) error {
	return m.supervisor.ReinitializeTool(ctx, toolID)
}

// Shutdown terminates every live tool handle. Idempotent.
func (m *Manager) Shutdown() {
	m.supervisor.Shutdown()
}

// callRequest builds a protocol request with the tool's deadline and the
// façade's caller identity attached.
func (m *Manager) callRequest(toolID, method string, params map[string]interface{}) protocol.CallRequest {
	return protocol.CallRequest{
		ToolID:   toolID,
		Method:   method,
		Params:   params,
		Timeout:  m.callTimeout(toolID),
		CallerID: callerID,
	}
}

func (m *Manager) callTimeout(toolID string) time.Duration {
	desc, err := m.registry.Get(toolID)
	if err != nil {
		return m.cfg.Settings.GlobalCallTimeout()
	}
	return desc.Definition.CallTimeout(m.cfg.Settings.GlobalCallTimeout())
}
