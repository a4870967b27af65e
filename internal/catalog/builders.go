package catalog

import (
	"fmt"

	"toolman/internal/protocol"
)

func callRequest(operation string, args map[string]interface{}) Request {
	return Request{
		Method: protocol.MethodCallTool,
		Params: map[string]interface{}{
			"name":      operation,
			"arguments": args,
		},
	}
}

// filesystemBuilder shapes calls for the reference filesystem server.
// Path-taking operations require a path argument up front so a malformed
// intent fails locally instead of burning a round trip.
type filesystemBuilder struct{}

var filesystemPathOps = map[string]bool{
	"read_file":        true,
	"write_file":       true,
	"create_directory": true,
	"list_directory":   true,
	"get_file_info":    true,
	"directory_tree":   true,
}

func (filesystemBuilder) Build(operation string, args map[string]interface{}) (Request, error) {
	if filesystemPathOps[operation] {
		if _, err := requireString(args, "path"); err != nil {
			return Request{}, fmt.Errorf("filesystem %s: %w", operation, err)
		}
	}
	if operation == "write_file" {
		if _, ok := args["content"]; !ok {
			return Request{}, fmt.Errorf("filesystem write_file: missing required argument %q", "content")
		}
	}
	return callRequest(operation, args), nil
}

// gitBuilder shapes calls for the git server. Every operation targets a
// repository, so repo_path is mandatory.
type gitBuilder struct{}

func (gitBuilder) Build(operation string, args map[string]interface{}) (Request, error) {
	if _, err := requireString(args, "repo_path"); err != nil {
		return Request{}, fmt.Errorf("git %s: %w", operation, err)
	}
	return callRequest(operation, args), nil
}

// timeBuilder defaults timezone lookups to UTC when the caller omits one.
type timeBuilder struct{}

func (timeBuilder) Build(operation string, args map[string]interface{}) (Request, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	if operation == "get_current_time" {
		if _, ok := args["timezone"]; !ok {
			args["timezone"] = "UTC"
		}
	}
	return callRequest(operation, args), nil
}

// fetchBuilder requires a URL for the fetch server.
type fetchBuilder struct{}

func (fetchBuilder) Build(operation string, args map[string]interface{}) (Request, error) {
	if _, err := requireString(args, "url"); err != nil {
		return Request{}, fmt.Errorf("fetch %s: %w", operation, err)
	}
	return callRequest(operation, args), nil
}

// sequentialThinkingBuilder fills the bookkeeping fields the thinking
// server requires around each thought.
type sequentialThinkingBuilder struct{}

func (sequentialThinkingBuilder) Build(operation string, args map[string]interface{}) (Request, error) {
	if _, err := requireString(args, "thought"); err != nil {
		return Request{}, fmt.Errorf("sequential-thinking %s: %w", operation, err)
	}
	if args["thoughtNumber"] == nil {
		args["thoughtNumber"] = 1
	}
	if args["totalThoughts"] == nil {
		args["totalThoughts"] = 1
	}
	if args["nextThoughtNeeded"] == nil {
		args["nextThoughtNeeded"] = false
	}
	return callRequest(operation, args), nil
}

// shellBuilder shapes command execution requests.
type shellBuilder struct{}

func (shellBuilder) Build(operation string, args map[string]interface{}) (Request, error) {
	if _, err := requireString(args, "command"); err != nil {
		return Request{}, fmt.Errorf("shell %s: %w", operation, err)
	}
	return callRequest(operation, args), nil
}
