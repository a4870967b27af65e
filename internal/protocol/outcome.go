package protocol

import (
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorKind classifies everything that can go wrong with a tool call.
type ErrorKind string

const (
	// KindNotFound means the tool id is not configured.
	KindNotFound ErrorKind = "not_found"
	// KindSpawnFailure means the tool's process or container could not start.
	KindSpawnFailure ErrorKind = "spawn_failure"
	// KindHandshakeTimeout means the tool started but never answered the
	// protocol handshake within its timeout.
	KindHandshakeTimeout ErrorKind = "handshake_timeout"
	// KindTimeout means the call deadline elapsed before a response arrived.
	KindTimeout ErrorKind = "timeout"
	// KindUnavailable means the tool is gated by cooldown or its transport
	// is broken.
	KindUnavailable ErrorKind = "unavailable"
	// KindProtocolError means the exchange itself was malformed (unknown
	// method, bad parameters, unparseable response).
	KindProtocolError ErrorKind = "protocol_error"
	// KindToolError means the tool ran and reported failure in its own
	// payload. Domain-level, passed through to callers unmodified.
	KindToolError ErrorKind = "tool_error"
)

// CallError is the error half of a call outcome.
type CallError struct {
	Kind    ErrorKind
	ToolID  string
	Detail  string
	Elapsed time.Duration
}

func (e *CallError) Error() string {
	if e.Elapsed > 0 {
		return fmt.Sprintf("%s: tool %s: %s (after %s)", e.Kind, e.ToolID, e.Detail, e.Elapsed.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s: tool %s: %s", e.Kind, e.ToolID, e.Detail)
}

// ContentBlock is one typed block of a tool result, mirroring the wire
// envelope's content list.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Result is the success half of a call outcome. Exactly one of the fields is
// populated depending on the method: Tools for discovery, Content for
// invocations.
type Result struct {
	Tools   []mcp.Tool     `json:"tools,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`
}

// Text returns the concatenation of all text blocks, which is the payload
// shape every bundled tool server uses.
func (r *Result) Text() string {
	var out string
	for _, block := range r.Content {
		out += block.Text
	}
	return out
}

// Outcome is the uniform result of every call: exactly one of Result or Err
// is set, never both and never neither.
type Outcome struct {
	ToolID  string
	CallID  string
	Result  *Result
	Err     *CallError
	Elapsed time.Duration
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Errorf builds a failed outcome.
func Errorf(toolID string, kind ErrorKind, elapsed time.Duration, format string, args ...interface{}) Outcome {
	return Outcome{
		ToolID:  toolID,
		Elapsed: elapsed,
		Err: &CallError{
			Kind:    kind,
			ToolID:  toolID,
			Detail:  fmt.Sprintf(format, args...),
			Elapsed: elapsed,
		},
	}
}
