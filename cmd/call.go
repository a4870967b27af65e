package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"toolman/internal/manager"

	"github.com/spf13/cobra"
)

var callArgsJSON string

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool-id> <operation>",
		Short: "Call an operation on a tool",
		Long: `Call one operation on a tool server and print the result.

Arguments are passed as a JSON object via --args:

  toolman call filesystem read_file --args '{"path": "/etc/hosts"}'

The exit code is non-zero when the call fails, including tool-reported
errors.`,
		Args: cobra.ExactArgs(2),
		RunE: runCall,
	}
	cmd.Flags().StringVar(&callArgsJSON, "args", "{}", "operation arguments as a JSON object")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	toolID, operation := args[0], args[1]

	var callArgs map[string]interface{}
	if err := json.Unmarshal([]byte(callArgsJSON), &callArgs); err != nil {
		return fmt.Errorf("invalid --args: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := manager.New(&cfg, nil)
	defer mgr.Shutdown()

	if !mgr.InitializeTools(cmd.Context()) {
		return fmt.Errorf("no tools came up")
	}

	outcome := mgr.CallTool(cmd.Context(), toolID, operation, callArgs)
	if !outcome.OK() {
		return fmt.Errorf("call failed after %s: %s", outcome.Elapsed.Round(time.Millisecond), outcome.Err)
	}

	fmt.Println(outcome.Result.Text())
	return nil
}
