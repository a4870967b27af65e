package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"toolman/internal/manager"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe tool health",
		Long: `Start the configured tools, probe each one, and report its health
state. Tools inside a cooldown window are reported without being
probed.`,
		RunE: runHealth,
	}
	cmd.AddCommand(newReinitCmd())
	return cmd
}

func newReinitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart <tool-id>",
		Short: "Restart one tool's process",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestart,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := manager.New(&cfg, nil)
	defer mgr.Shutdown()
	mgr.InitializeTools(cmd.Context())

	states := mgr.RefreshToolHealth(cmd.Context())

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tSTATE")
	for _, id := range sortedToolIDs(cfg.Tools) {
		if state, ok := states[id]; ok {
			fmt.Fprintf(w, "%s\t%s\n", id, state)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(mgr.RetrySummary())
	return nil
}

func runRestart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := manager.New(&cfg, nil)
	defer mgr.Shutdown()

	if err := mgr.ReinitializeTool(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to restart %s: %w", args[0], err)
	}
	fmt.Printf("Tool %s restarted\n", args[0])
	return nil
}
