package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"toolman/internal/config"
	"toolman/internal/protocol"
	"toolman/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport fails on demand at each protocol stage.
type scriptedTransport struct {
	mu         sync.Mutex
	initErr    error
	listErr    error
	pingErr    error
	tools      []mcp.Tool
	closeCalls int
}

func (s *scriptedTransport) Initialize(ctx context.Context) error { return s.initErr }

func (s *scriptedTransport) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tools, nil
}

func (s *scriptedTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{}, nil
}

func (s *scriptedTransport) Ping(ctx context.Context) error { return s.pingErr }

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return nil
}

func (s *scriptedTransport) closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func twoToolConfig() config.Config {
	return config.Config{
		Enabled: true,
		Tools: map[string]config.ToolDefinition{
			"filesystem": {Name: "filesystem", Type: config.ToolTypeSubprocess, Command: []string{"fs-server"}},
			"git":        {Name: "git", Type: config.ToolTypeSubprocess, Command: []string{"git-server"}},
		},
	}
}

func factoryFor(transports map[string]*scriptedTransport, spawnErrs map[string]error) TransportFactory {
	return func(def config.ToolDefinition, settings config.Settings) (protocol.Transport, error) {
		if err := spawnErrs[def.Name]; err != nil {
			return nil, err
		}
		return transports[def.Name], nil
	}
}

func TestInitializeTools_AllReady(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	transports := map[string]*scriptedTransport{
		"filesystem": {tools: []mcp.Tool{{Name: "read_file"}}},
		"git":        {},
	}
	sup := New(reg, cfg.Settings, factoryFor(transports, nil))

	ok := sup.InitializeTools(context.Background())
	require.True(t, ok)

	desc, err := reg.Get("filesystem")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusReady, desc.Status)
	assert.Len(t, desc.Capabilities, 1)

	_, live := sup.Transport("git")
	assert.True(t, live)
}

func TestInitializeTools_PartialAvailability(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	transports := map[string]*scriptedTransport{"git": {}}
	spawnErrs := map[string]error{"filesystem": errors.New("executable not found")}
	sup := New(reg, cfg.Settings, factoryFor(transports, spawnErrs))

	ok := sup.InitializeTools(context.Background())
	assert.True(t, ok, "one working tool is enough")

	desc, _ := reg.Get("filesystem")
	assert.Equal(t, registry.StatusFailed, desc.Status)
	assert.Contains(t, desc.StatusReason, "spawn failure")

	_, live := sup.Transport("filesystem")
	assert.False(t, live, "a failed tool must not keep a handle")
}

func TestInitializeTools_HandshakeFailure(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	broken := &scriptedTransport{initErr: errors.New("unexpected EOF")}
	transports := map[string]*scriptedTransport{"filesystem": broken, "git": {}}
	sup := New(reg, cfg.Settings, factoryFor(transports, nil))

	sup.InitializeTools(context.Background())

	desc, _ := reg.Get("filesystem")
	assert.Equal(t, registry.StatusFailed, desc.Status)
	assert.Contains(t, desc.StatusReason, "handshake failed")
	assert.Equal(t, 1, broken.closed(), "a failed handshake must release the process")
}

func TestInitializeTools_ListToolsFailureIsTolerated(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	transports := map[string]*scriptedTransport{
		"filesystem": {listErr: errors.New("method not supported")},
		"git":        {},
	}
	sup := New(reg, cfg.Settings, factoryFor(transports, nil))

	sup.InitializeTools(context.Background())

	desc, _ := reg.Get("filesystem")
	assert.Equal(t, registry.StatusReady, desc.Status, "a tool without discovery still serves calls")
	assert.Empty(t, desc.Capabilities)
}

func TestInitializeTools_NoneReady(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	spawnErrs := map[string]error{
		"filesystem": errors.New("no such file"),
		"git":        errors.New("no such file"),
	}
	sup := New(reg, cfg.Settings, factoryFor(nil, spawnErrs))

	assert.False(t, sup.InitializeTools(context.Background()))
}

func TestReportStreamFailure_DeadProcessIsDetached(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	dead := &scriptedTransport{pingErr: errors.New("broken pipe")}
	transports := map[string]*scriptedTransport{"filesystem": dead, "git": {}}
	sup := New(reg, cfg.Settings, factoryFor(transports, nil))
	sup.InitializeTools(context.Background())

	sup.ReportStreamFailure("filesystem", errors.New("write failed"))

	_, live := sup.Transport("filesystem")
	assert.False(t, live)
	desc, _ := reg.Get("filesystem")
	assert.Equal(t, registry.StatusFailed, desc.Status)
	assert.Equal(t, 1, dead.closed())
}

func TestReportStreamFailure_LiveProcessKeepsHandle(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	alive := &scriptedTransport{}
	transports := map[string]*scriptedTransport{"filesystem": alive, "git": {}}
	sup := New(reg, cfg.Settings, factoryFor(transports, nil))
	sup.InitializeTools(context.Background())

	sup.ReportStreamFailure("filesystem", errors.New("one bad frame"))

	_, live := sup.Transport("filesystem")
	assert.True(t, live, "a responsive process survives a single stream error")
	desc, _ := reg.Get("filesystem")
	assert.Equal(t, registry.StatusReady, desc.Status)
}

func TestReinitializeTool(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	first := &scriptedTransport{}
	transports := map[string]*scriptedTransport{"filesystem": first, "git": {}}
	sup := New(reg, cfg.Settings, factoryFor(transports, nil))
	sup.InitializeTools(context.Background())

	second := &scriptedTransport{}
	transports["filesystem"] = second

	require.NoError(t, sup.ReinitializeTool(context.Background(), "filesystem"))
	assert.Equal(t, 1, first.closed(), "restart must close the old handle")

	got, live := sup.Transport("filesystem")
	require.True(t, live)
	assert.Same(t, second, got.(*scriptedTransport))
}

func TestShutdown_Idempotent(t *testing.T) {
	cfg := twoToolConfig()
	reg := registry.New(cfg)
	fs := &scriptedTransport{}
	git := &scriptedTransport{}
	transports := map[string]*scriptedTransport{"filesystem": fs, "git": git}
	sup := New(reg, cfg.Settings, factoryFor(transports, nil))
	sup.InitializeTools(context.Background())

	sup.Shutdown()
	sup.Shutdown()

	assert.Equal(t, 1, fs.closed())
	assert.Equal(t, 1, git.closed())

	desc, _ := reg.Get("git")
	assert.Equal(t, registry.StatusStopped, desc.Status)

	_, live := sup.Transport("git")
	assert.False(t, live)
}
