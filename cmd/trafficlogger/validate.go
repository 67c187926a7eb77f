package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ucraft/trafficlogger/pkg/cli"
	"ucraft/trafficlogger/pkg/config"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file named by --config, apply environment overrides
and defaults, and report every validation error.

Examples:
  # Validate a config file
  trafficlogger validate --config /etc/trafficlogger/config.yaml

  # Machine-readable result
  trafficlogger validate --config config.yaml --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(validateFlags.output)
		if err != nil {
			return err
		}
		return runValidate(cmd.OutOrStdout(), cfgFile, format)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format (text, json, yaml)")
}

// validateResult summarises a configuration check.
type validateResult struct {
	Valid      bool     `json:"valid" yaml:"valid"`
	Path       string   `json:"path" yaml:"path"`
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Methods    []string `json:"request_methods,omitempty" yaml:"request_methods,omitempty"`
	Sink       string   `json:"sink,omitempty" yaml:"sink,omitempty"`
	Dispatcher string   `json:"dispatcher,omitempty" yaml:"dispatcher,omitempty"`
	Topic      string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Listen     string   `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
	Upstream   string   `json:"upstream_url,omitempty" yaml:"upstream_url,omitempty"`
	Errors     []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (r validateResult) Text() string {
	var sb strings.Builder
	if !r.Valid {
		fmt.Fprintf(&sb, "✗ Configuration invalid (%s)\n", r.Path)
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "  - %s\n", e)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "✓ Configuration valid (%s)\n", r.Path)
	fmt.Fprintf(&sb, "  Traffic logging: %t\n", r.Enabled)
	fmt.Fprintf(&sb, "  Methods:         %s\n", strings.Join(r.Methods, ", "))
	fmt.Fprintf(&sb, "  Sink:            %s\n", r.Sink)
	fmt.Fprintf(&sb, "  Dispatcher:      %s (topic %s)\n", r.Dispatcher, r.Topic)
	fmt.Fprintf(&sb, "  Proxy:           %s -> %s\n", r.Listen, r.Upstream)
	return sb.String()
}

// runValidate writes the result of checking path to w. An invalid file is
// reported and returned as a ConfigError.
func runValidate(w io.Writer, path string, format cli.OutputFormat) error {
	result := validateResult{Path: path}
	if path == "" {
		result.Path = "defaults"
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				result.Errors = append(result.Errors, fe.Error())
			}
		} else {
			result.Errors = []string{err.Error()}
		}
		if ferr := cli.NewFormatter(format).FormatTo(w, result); ferr != nil {
			return ferr
		}
		return cli.NewConfigError("", fmt.Sprintf("%d problem(s) in %s", len(result.Errors), result.Path))
	}

	result.Valid = true
	result.Enabled = cfg.Traffic.Enabled
	result.Methods = cfg.Traffic.RequestMethods
	result.Sink = cfg.Sink.Backend
	result.Dispatcher = cfg.Publisher.Dispatcher
	result.Topic = cfg.Traffic.DestinationKafkaTopic
	result.Listen = cfg.Server.ListenAddress
	result.Upstream = cfg.Server.UpstreamURL

	return cli.NewFormatter(format).FormatTo(w, result)
}
