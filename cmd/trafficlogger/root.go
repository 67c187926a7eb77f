package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ucraft/trafficlogger/pkg/cli"
	"ucraft/trafficlogger/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "trafficlogger",
	Short: "HTTP traffic logger",
	Long: `Trafficlogger captures HTTP request/response exchanges, redacts sensitive
headers, cookies and body fields, stores every exchange in a configurable sink
and publishes an event per exchange.

Configuration is read from a YAML file and HTTP_TRAFFIC_LOGGER_* environment
variables; environment variables win.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration file named by --config with environment
// overrides applied.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}
