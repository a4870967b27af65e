package catalog

import (
	"encoding/json"
	"fmt"
)

// ShellResult is the structured payload the shell server returns for each
// executed command.
type ShellResult struct {
	Status     string `json:"status"`
	Command    string `json:"command"`
	ReturnCode int    `json:"returncode"`
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Cwd        string `json:"cwd"`
}

// DecodeShellResult parses the text payload of a shell call. The server
// speaks JSON; anything else is surfaced as a decode error with the raw
// text preserved in Stdout for the caller to inspect.
func DecodeShellResult(text string) (ShellResult, error) {
	var result ShellResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return ShellResult{Stdout: text}, fmt.Errorf("shell result is not valid JSON: %w", err)
	}
	return result, nil
}
