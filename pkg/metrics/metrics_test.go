package metrics_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acdash/pkg/metrics"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.IncMessages()
	m.IncMessages()
	m.IncDecodeErrors()
	m.IncReconnects()
	m.IncSnapshots()
	m.IncDropped()
	m.SetConnected(true)

	expected := `
# HELP acdash_connected 1 while the telemetry feed connection is open.
# TYPE acdash_connected gauge
acdash_connected 1
# HELP acdash_messages_received_total Total text messages received from the telemetry feed.
# TYPE acdash_messages_received_total counter
acdash_messages_received_total 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "acdash_connected", "acdash_messages_received_total")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.IncMessages()
		m.IncDecodeErrors()
		m.IncReconnects()
		m.IncSnapshots()
		m.IncDropped()
		m.SetConnected(false)
	})
}

func TestServeExposesMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	reg := prometheus.NewRegistry()
	metrics.New(reg).SetConnected(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- metrics.Serve(ctx, addr, reg) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 25*time.Millisecond)
	assert.Contains(t, body, "acdash_connected 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("metrics server did not stop")
	}
}
