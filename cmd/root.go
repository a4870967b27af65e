package cmd

import (
	"fmt"
	"os"

	"toolman/internal/config"
	"toolman/pkg/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	logDir   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolman",
	Short: "Supervise and call MCP tool servers",
	Long: `toolman manages a fleet of MCP tool servers: it spawns them as
subprocesses or containers, speaks the protocol over their stdio
streams, tracks their health, and routes calls to the ones that work.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed calls)
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

// initLogging sets up stderr logging, plus the append-to-file mode when
// --log-dir is given.
func initLogging() error {
	level := logging.ParseLevel(logLevel)
	if logDir != "" {
		return logging.InitWithFile(level, os.Stderr, logDir)
	}
	logging.Init(level, os.Stderr)
	return nil
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "toolman version %s\n" .Version}}`)

	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: layered user and project config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "also append logs to <dir>/toolman.log")

	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newMetricsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig loads and validates configuration, honoring --config.
func loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadConfigFromPath(cfgFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
