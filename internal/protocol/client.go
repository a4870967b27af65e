package protocol

import (
	"context"
	"errors"
	"sync"
	"time"

	"toolman/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// Wire methods the client speaks. Discovery plus generic invocation, the
// handshake, and a liveness probe.
const (
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
	MethodPing       = "ping"
)

// CallRequest describes one request/response exchange against a tool.
type CallRequest struct {
	ToolID   string
	Method   string
	Params   map[string]interface{}
	Timeout  time.Duration
	CallerID string
}

// Client performs one framed exchange per call against a tool's live
// transport. Calls to the same tool are serialized so the n-th response is
// unambiguously paired with the n-th request; calls to different tools run
// fully in parallel. The client never retries; one call is one attempt.
type Client struct {
	handles HandleProvider

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-tool exclusive sections
}

// NewClient creates a protocol client backed by the given handle provider.
func NewClient(handles HandleProvider) *Client {
	return &Client{
		handles: handles,
		locks:   make(map[string]*sync.Mutex),
	}
}

// toolLock returns the exclusive section for a tool, creating it on first use.
func (c *Client) toolLock(toolID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[toolID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[toolID] = lock
	}
	return lock
}

// Call performs exactly one exchange and resolves it to exactly one outcome:
// a result, a Timeout, an Unavailable, or a ProtocolError. A stream failure
// is also reported to the supervisor, which may flip the tool to Failed.
func (c *Client) Call(ctx context.Context, req CallRequest) Outcome {
	callID := uuid.NewString()

	transport, ok := c.handles.Transport(req.ToolID)
	if !ok {
		return withCallID(callID, Errorf(req.ToolID, KindUnavailable, 0, "no live handle"))
	}

	// Serialize per tool: the transport is a single ordered byte stream.
	lock := c.toolLock(req.ToolID)
	lock.Lock()
	defer lock.Unlock()

	callCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	logging.Debug("Protocol", "call %s: tool=%s method=%s caller=%s timeout=%s",
		callID, req.ToolID, req.Method, req.CallerID, req.Timeout)

	start := time.Now()
	outcome := c.dispatch(callCtx, transport, req)
	outcome.Elapsed = time.Since(start)
	if outcome.Err != nil {
		outcome.Err.Elapsed = outcome.Elapsed
	}

	return withCallID(callID, outcome)
}

// dispatch maps the generic method name onto the typed exchange.
func (c *Client) dispatch(ctx context.Context, transport Transport, req CallRequest) Outcome {
	switch req.Method {
	case MethodInitialize:
		if err := transport.Initialize(ctx); err != nil {
			return c.classify(req, err)
		}
		return Outcome{ToolID: req.ToolID, Result: &Result{}}

	case MethodListTools:
		tools, err := transport.ListTools(ctx)
		if err != nil {
			return c.classify(req, err)
		}
		return Outcome{ToolID: req.ToolID, Result: &Result{Tools: tools}}

	case MethodCallTool:
		name, _ := req.Params["name"].(string)
		if name == "" {
			return Errorf(req.ToolID, KindProtocolError, 0, "tools/call requires a \"name\" parameter")
		}
		args, _ := req.Params["arguments"].(map[string]interface{})

		result, err := transport.CallTool(ctx, name, args)
		if err != nil {
			return c.classify(req, err)
		}
		return c.convertResult(req, result)

	case MethodPing:
		if err := transport.Ping(ctx); err != nil {
			return c.classify(req, err)
		}
		return Outcome{ToolID: req.ToolID, Result: &Result{}}

	default:
		return Errorf(req.ToolID, KindProtocolError, 0, "unknown method %q", req.Method)
	}
}

// convertResult maps the wire result onto the outcome contract: a result
// payload on success, a ToolError when the tool reported failure itself.
func (c *Client) convertResult(req CallRequest, result *mcp.CallToolResult) Outcome {
	if result == nil {
		return Errorf(req.ToolID, KindProtocolError, 0, "tool returned an empty response")
	}

	content := make([]ContentBlock, 0, len(result.Content))
	for _, block := range result.Content {
		if textContent, ok := mcp.AsTextContent(block); ok {
			content = append(content, ContentBlock{Type: "text", Text: textContent.Text})
		}
	}

	if result.IsError {
		out := Errorf(req.ToolID, KindToolError, 0, "%s", Result{Content: content}.errText())
		return out
	}

	return Outcome{ToolID: req.ToolID, Result: &Result{Content: content}}
}

// classify turns a transport error into the right outcome kind. Deadline
// expiry is a Timeout; anything else is a broken stream, which the
// supervisor is told about.
func (c *Client) classify(req CallRequest, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Errorf(req.ToolID, KindTimeout, 0, "call deadline of %s exceeded", req.Timeout)
	}
	if errors.Is(err, context.Canceled) {
		return Errorf(req.ToolID, KindUnavailable, 0, "call canceled: %v", err)
	}

	logging.Warn("Protocol", "stream failure on tool %s: %v", req.ToolID, err)
	c.handles.ReportStreamFailure(req.ToolID, err)
	return Errorf(req.ToolID, KindUnavailable, 0, "transport failed: %v", err)
}

func (r Result) errText() string {
	text := (&r).Text()
	if text == "" {
		return "tool reported an error without detail"
	}
	return text
}

func withCallID(callID string, outcome Outcome) Outcome {
	outcome.CallID = callID
	return outcome
}
