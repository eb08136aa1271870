package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/scenes-dev/scenes/internal/dev"
	"github.com/scenes-dev/scenes/internal/telemetry"
)

func devCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Serve the registry locally and rebuild on change",
		Long: `Start the local registry server.

The server validates and generates the registry, serves the
artifacts under /r/, and rebuilds whenever the manifest or a scene
source changes. Connected clients are notified over WebSocket.

Endpoints:
  /r/<name>.json     registry items and index
  /_scenes/status    last rebuild summary
  /_scenes/reload    WebSocket rebuild notifications
  /metrics           Prometheus metrics

Examples:
  scenes dev
  scenes dev --port=8080
  scenes dev --host=0.0.0.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from scenes.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from scenes.json)")

	return cmd
}

func runDev(ctx context.Context, port int, host string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Dev.Port = port
	}
	if host != "" {
		cfg.Dev.Host = host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(reg))

	fmt.Fprintln(stdout, "  scenes dev")
	fmt.Fprintln(stdout)

	server, err := dev.NewServer(dev.ServerOptions{
		Config:   cfg,
		Metrics:  metrics,
		Gatherer: reg,
		OnBuildComplete: func(result dev.BuildResult) {
			switch {
			case result.Err != nil:
				errorMsg("Rebuild failed: %v", result.Err)
			case result.Outcome.Skipped:
				warn("%s (generation skipped)", result.Outcome.Report.Summary())
			default:
				success("Built %d item(s) in %s", result.Outcome.Result.Items, result.Duration.Round(time.Millisecond))
			}
		},
	})
	if err != nil {
		return err
	}

	info("Serving %s at %s/r/", cfg.OutputPath(), cfg.DevURL())
	info("Press Ctrl+C to stop")
	fmt.Fprintln(stdout)

	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "\n  Shutting down...")
	return nil
}
