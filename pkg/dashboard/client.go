// Package dashboard connects a telemetry feed session to a display consumer.
//
// Every decoded snapshot is normalized against the previously rendered
// display, so four-corner tyre values survive malformed updates, and the
// result is handed to the consumer together with connectivity changes.
package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"acdash/pkg/engine"
	"acdash/pkg/metrics"
	"acdash/pkg/telemetry"
	"acdash/pkg/transport"
)

type Consumer interface {
	OnSnapshot(d telemetry.Display)
	OnConnectionChange(connected bool)
}

// ConsumerFuncs adapts plain functions to Consumer. Nil fields are skipped.
type ConsumerFuncs struct {
	Snapshot   func(telemetry.Display)
	Connection func(bool)
}

func (f ConsumerFuncs) OnSnapshot(d telemetry.Display) {
	if f.Snapshot != nil {
		f.Snapshot(d)
	}
}

func (f ConsumerFuncs) OnConnectionChange(connected bool) {
	if f.Connection != nil {
		f.Connection(connected)
	}
}

// Publisher forwards dashboard updates to a hub.
type Publisher struct {
	Hub *engine.Hub
}

func (p Publisher) OnSnapshot(d telemetry.Display) {
	p.Hub.Publish(engine.SnapshotEvent(d))
}

func (p Publisher) OnConnectionChange(connected bool) {
	p.Hub.Publish(engine.ConnectionEvent(connected))
}

type Client struct {
	consumer Consumer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	sessOpts []transport.Option
	session  *transport.Session

	mu   sync.Mutex
	last telemetry.Display
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithSessionOptions passes extra options to the underlying transport session.
func WithSessionOptions(opts ...transport.Option) Option {
	return func(c *Client) {
		c.sessOpts = append(c.sessOpts, opts...)
	}
}

// Start connects to url and keeps feeding consumer until ctx is cancelled or
// Close is called.
func Start(ctx context.Context, url string, consumer Consumer, opts ...Option) *Client {
	c := &Client{
		consumer: consumer,
		logger:   slog.Default(),
		last:     telemetry.Placeholder(),
	}
	for _, opt := range opts {
		opt(c)
	}

	sessOpts := append([]transport.Option{
		transport.WithLogger(c.logger),
		transport.WithMetrics(c.metrics),
		transport.WithSnapshotHandler(c.handleSnapshot),
		transport.WithConnectionHandler(c.handleConnection),
	}, c.sessOpts...)
	c.session = transport.StartSession(ctx, url, sessOpts...)
	return c
}

func (c *Client) handleSnapshot(s telemetry.Snapshot) {
	c.mu.Lock()
	d := telemetry.Normalize(s, c.last)
	c.last = d
	c.mu.Unlock()

	c.metrics.IncSnapshots()
	if c.consumer != nil {
		c.consumer.OnSnapshot(d)
	}
}

func (c *Client) handleConnection(connected bool) {
	if c.consumer != nil {
		c.consumer.OnConnectionChange(connected)
	}
}

// Last returns the most recently rendered display, or the placeholder display
// before the first snapshot.
func (c *Client) Last() telemetry.Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Client) State() transport.State {
	return c.session.State()
}

func (c *Client) Close() {
	c.session.Close()
}

func (c *Client) Done() <-chan struct{} {
	return c.session.Done()
}
