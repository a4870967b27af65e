package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"toolman/internal/config"
	"toolman/internal/manager"

	"github.com/spf13/cobra"
)

func sortedToolIDs(tools map[string]config.ToolDefinition) []string {
	ids := make([]string, 0, len(tools))
	for id := range tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var toolsLive bool

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List configured tools",
		Long: `List every tool in the configuration with its type and enabled
state. With --live the tools are actually started and their advertised
capabilities and health are shown.`,
		RunE: runTools,
	}
	cmd.Flags().BoolVar(&toolsLive, "live", false, "start the tools and show live status and capabilities")
	cmd.AddCommand(newToolInfoCmd())
	return cmd
}

func newToolInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <tool-id>",
		Short: "Show detailed information about one tool",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolInfo,
	}
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !toolsLive {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tTYPE\tENABLED\tDESCRIPTION")
		for _, id := range sortedToolIDs(cfg.Tools) {
			def := cfg.Tools[id]
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", id, def.Type, def.IsEnabled(), def.Description)
		}
		return w.Flush()
	}

	mgr := manager.New(&cfg, nil)
	defer mgr.Shutdown()
	mgr.InitializeTools(cmd.Context())

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tTYPE\tSTATUS\tHEALTH\tCAPABILITIES")
	for _, info := range mgr.GetAvailableTools() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", info.ID, info.Type, info.Status, info.HealthState, len(info.Capabilities))
	}
	return w.Flush()
}

func runToolInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := manager.New(&cfg, nil)
	defer mgr.Shutdown()
	mgr.InitializeTools(cmd.Context())

	info, err := mgr.GetToolInfo(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Tool:        %s\n", info.ID)
	fmt.Printf("Type:        %s\n", info.Type)
	if info.Description != "" {
		fmt.Printf("Description: %s\n", info.Description)
	}
	fmt.Printf("Status:      %s\n", info.Status)
	if info.StatusReason != "" {
		fmt.Printf("Reason:      %s\n", info.StatusReason)
	}
	fmt.Printf("Health:      %s\n", info.HealthState)
	if info.CooldownRemaining > 0 {
		fmt.Printf("Retry in:    %s\n", info.CooldownRemaining)
	}
	// Prefer a live tools/list over the capability cache; a server may
	// advertise different operations after a restart.
	if out := mgr.ListServerTools(cmd.Context(), args[0]); out.OK() && len(out.Result.Tools) > 0 {
		fmt.Println("Capabilities:")
		for _, tool := range out.Result.Tools {
			fmt.Printf("  - %s\n", tool.Name)
		}
	} else if len(info.Capabilities) > 0 {
		fmt.Println("Capabilities (cached):")
		for _, name := range info.Capabilities {
			fmt.Printf("  - %s\n", name)
		}
	}
	return nil
}
