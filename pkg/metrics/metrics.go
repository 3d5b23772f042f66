// Package metrics exposes Prometheus counters for the dashboard client.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	messages     prometheus.Counter
	decodeErrors prometheus.Counter
	reconnects   prometheus.Counter
	snapshots    prometheus.Counter
	dropped      prometheus.Counter
	connected    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acdash_messages_received_total",
			Help: "Total text messages received from the telemetry feed.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acdash_decode_errors_total",
			Help: "Messages discarded because they were not a JSON object.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acdash_reconnects_total",
			Help: "Reconnect attempts started after a connection loss.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acdash_snapshots_rendered_total",
			Help: "Snapshots normalized and handed to the renderers.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acdash_events_dropped_total",
			Help: "Dashboard events dropped because a renderer fell behind.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acdash_connected",
			Help: "1 while the telemetry feed connection is open.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.messages, m.decodeErrors, m.reconnects, m.snapshots, m.dropped, m.connected)
	}
	return m
}

func (m *Metrics) IncMessages() {
	if m != nil {
		m.messages.Inc()
	}
}

func (m *Metrics) IncDecodeErrors() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) IncReconnects() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *Metrics) IncSnapshots() {
	if m != nil {
		m.snapshots.Inc()
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
