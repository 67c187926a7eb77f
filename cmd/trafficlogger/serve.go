package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ucraft/trafficlogger/pkg/cli"
	"ucraft/trafficlogger/pkg/config"
	"ucraft/trafficlogger/pkg/server"
	"ucraft/trafficlogger/pkg/telemetry/health"
	"ucraft/trafficlogger/pkg/telemetry/logging"
	"ucraft/trafficlogger/pkg/telemetry/metrics"
	"ucraft/trafficlogger/pkg/telemetry/tracing"
	"ucraft/trafficlogger/pkg/traffic/manager"
	"ucraft/trafficlogger/pkg/traffic/publish"
	"ucraft/trafficlogger/pkg/traffic/sink"
)

var serveFlags struct {
	listenAddress string
	upstreamURL   string
	logLevel      string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the logging reverse proxy",
	Long: `Start the logging reverse proxy with the specified configuration.

Requests are forwarded to the upstream application. Every exchange whose
method is enabled is redacted, stored in the configured sink and announced to
the configured dispatcher. Health, readiness, version and metrics are served
on the admin address.

Examples:
  # Start with a config file
  trafficlogger serve --config /etc/trafficlogger/config.yaml

  # Override the upstream application
  trafficlogger serve --upstream http://127.0.0.1:3000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVarP(&serveFlags.upstreamURL, "upstream", "u", "", "override upstream url")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.upstreamURL != "" {
		cfg.Server.UpstreamURL = serveFlags.upstreamURL
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	} else if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// serve assembles the components described by cfg and runs the proxy until
// ctx is cancelled. Components are released in reverse order of creation
// after the queued records have drained.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := sink.New(ctx, &cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to open %s sink: %w", cfg.Sink.Backend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("sink close failed", "sink", store.Name(), "error", err)
		}
	}()

	dispatcher, err := publish.NewDispatcher(&cfg.Publisher)
	if err != nil {
		return fmt.Errorf("failed to create %s dispatcher: %w", cfg.Publisher.Dispatcher, err)
	}
	publisher := publish.New(cfg.Traffic.DestinationKafkaTopic, dispatcher, publish.BodyFor(sink.Inline(cfg.Sink.Backend)))
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("publisher close failed", "dispatcher", dispatcher.Name(), "error", err)
		}
	}()

	trafficManager := manager.New(manager.FromConfig(&cfg.Traffic), store, publisher,
		manager.WithMetrics(collector),
		manager.WithTracer(tracer),
		manager.WithLogger(logger),
	)
	defer trafficManager.Close()

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterPinger("sink", store)
	checker.RegisterPinger("publisher", dispatcher)

	srv, err := server.New(&cfg.Server, server.Options{
		Manager:      trafficManager,
		Checker:      checker,
		Metrics:      collector,
		MetricsPath:  cfg.Telemetry.Metrics.Path,
		Version:      health.NewVersionInfo(Version, GitCommit, BuildDate),
		UserIDHeader: cfg.Traffic.UserIDHeader,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	logger.Info("traffic logger configured",
		"enabled", cfg.Traffic.Enabled,
		"methods", cfg.Traffic.RequestMethods,
		"sink", store.Name(),
		"dispatcher", dispatcher.Name(),
		"topic", cfg.Traffic.DestinationKafkaTopic,
		"async_buffer", cfg.Traffic.AsyncBuffer,
		"checks", checker.ListChecks(),
	)

	return srv.Start(ctx)
}
