package protocol

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Transport is one live connection to a tool server. Implemented by the
// supervisor's stdio handle and by test doubles.
type Transport interface {
	// Initialize performs the protocol handshake.
	Initialize(ctx context.Context) error

	// ListTools returns the operations the server advertises.
	ListTools(ctx context.Context) ([]mcp.Tool, error)

	// CallTool invokes a named operation with arguments.
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)

	// Ping checks if the server is responsive.
	Ping(ctx context.Context) error

	// Close cleanly shuts down the connection.
	Close() error
}

// HandleProvider hands out live transports and accepts stream failure
// reports. Implemented by the supervisor.
type HandleProvider interface {
	// Transport returns the live transport for a tool, if one exists.
	Transport(toolID string) (Transport, bool)

	// ReportStreamFailure tells the supervisor a call observed a broken
	// stream so it can decide whether the process itself is dead.
	ReportStreamFailure(toolID string, err error)
}
