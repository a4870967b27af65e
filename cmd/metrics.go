package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"toolman/internal/manager"

	"github.com/spf13/cobra"
)

var metricsSummary bool

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print call metrics",
		Long: `Print the call counters accumulated in this invocation, as JSON by
default or as a short text summary with --summary. Counters are in-memory
only; combine with 'call' in a script or use the manager as a library for
longer-lived collection.`,
		RunE: runMetrics,
	}
	cmd.Flags().BoolVar(&metricsSummary, "summary", false, "print a human-readable summary instead of JSON")
	return cmd
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := manager.New(&cfg, nil)
	defer mgr.Shutdown()

	if metricsSummary {
		fmt.Println(mgr.UsageSummary())
		return nil
	}

	snapshot := mgr.GetMetrics()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	return nil
}
