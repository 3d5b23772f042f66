package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"acdash/pkg/bridge/simfeed"
	"acdash/pkg/config"
	"acdash/pkg/dashboard"
	"acdash/pkg/engine"
	"acdash/pkg/logger"
	"acdash/pkg/metrics"
	"acdash/pkg/render/tui"
	"acdash/pkg/transport"
)

func addDashboardFlags(cmd *cobra.Command) {
	def := config.Default()
	fs := cmd.Flags()
	fs.String("host", def.Endpoint.Host, "telemetry feed host")
	fs.Int("port", def.Endpoint.Port, "telemetry feed port")
	fs.String("reconnect", def.Session.Reconnect, "delay before reconnecting after the feed drops")
	fs.String("handshake-timeout", "", "WebSocket handshake timeout (default none)")
	fs.String("mode", def.Render.Mode, "renderer: tui or jsonl")
	fs.Int("buffer", def.Render.Buffer, "renderer event buffer size")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
}

func newRunCmd(stdout io.Writer, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the telemetry feed and render the dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, stdout, stderr)
		},
	}
	addDashboardFlags(cmd)
	return cmd
}

func setupLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	log, closer, err := logger.New(cfg.Log, stderr)
	if err != nil {
		return nil, nil, usageError{err: err}
	}
	return log, closer, nil
}

func runDashboard(cmd *cobra.Command, stdout io.Writer, stderr io.Writer) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, closer, err := setupLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				log.Error("metrics server stopped", "addr", cfg.Metrics.Addr, "err", err)
			}
		}()
	}

	hub := engine.NewHub(engine.WithClientBuffer(cfg.Render.Buffer), engine.WithMetrics(m))
	go hub.Run(ctx)
	events := hub.Subscribe()

	url := transport.Endpoint(cfg.Endpoint.Host, cfg.Endpoint.Port)
	log.Info("starting dashboard", "url", url, "mode", cfg.Render.Mode)
	client := dashboard.Start(ctx, url, dashboard.Publisher{Hub: hub},
		dashboard.WithLogger(log),
		dashboard.WithMetrics(m),
		dashboard.WithSessionOptions(
			transport.WithReconnectDelay(cfg.ReconnectDelay()),
			transport.WithHandshakeTimeout(cfg.HandshakeTimeout()),
		),
	)
	defer func() {
		client.Close()
		<-client.Done()
	}()

	switch cfg.Render.Mode {
	case config.RenderJSONL:
		logger.NewJSONLWriter(stdout).Consume(ctx, events)
	default:
		if err := tui.Run(ctx, events, tea.WithOutput(stdout)); err != nil && ctx.Err() == nil {
			return fmt.Errorf("terminal dashboard: %w", err)
		}
	}
	return nil
}

func newMockCmd(stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a simulated telemetry feed on /ws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			log, closer, err := setupLogger(cfg, stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			srv := simfeed.NewServer(cfg.Mock.Addr,
				simfeed.WithRate(cfg.Mock.Rate),
				simfeed.WithLogger(log),
			)
			return srv.Run(cmd.Context())
		},
	}
	def := config.Default()
	cmd.Flags().String("addr", def.Mock.Addr, "listen address")
	cmd.Flags().Int("rate", def.Mock.Rate, "snapshots per second")
	return cmd
}
