package supervisor

import (
	"context"
	"fmt"
	"os"

	"toolman/internal/config"
	"toolman/internal/protocol"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// stdioHandle is the live process behind one tool, attached over stdin and
// stdout through the MCP stdio client. At most one exists per tool id; it is
// replaced wholesale on restart, never shared.
type stdioHandle struct {
	toolID string
	client client.MCPClient
}

// newStdioHandle spawns the tool's process (or container, via the container
// runtime CLI) and returns the attached transport. Spawning and attaching
// happen together; a spawn error surfaces here.
func newStdioHandle(def config.ToolDefinition, settings config.Settings) (protocol.Transport, error) {
	argv := launchArgv(def, settings)
	if len(argv) == 0 {
		return nil, fmt.Errorf("tool %s has no launch command", def.Name)
	}

	env := os.Environ()
	for k, v := range def.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	mcpClient, err := client.NewStdioMCPClient(argv[0], env, argv[1:]...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s (%v): %w", def.Name, argv, err)
	}

	return &stdioHandle{toolID: def.Name, client: mcpClient}, nil
}

// Initialize performs the MCP protocol handshake.
func (h *stdioHandle) Initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "toolman",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	_, err := h.client.Initialize(ctx, req)
	return err
}

// ListTools returns all operations the server advertises.
func (h *stdioHandle) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	result, err := h.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool executes a specific operation and returns the raw result.
func (h *stdioHandle) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	var arguments interface{}
	if args != nil {
		arguments = args
	}

	req := mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: arguments,
		},
	}

	return h.client.CallTool(ctx, req)
}

// Ping checks if the server is responsive.
func (h *stdioHandle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx)
}

// Close shuts the process down by closing its streams.
func (h *stdioHandle) Close() error {
	return h.client.Close()
}
