package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acdash/pkg/dashboard"
	"acdash/pkg/engine"
	"acdash/pkg/telemetry"
	"acdash/pkg/transport"
)

type pipeConn struct {
	messages chan string
	closed   chan struct{}
	once     sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{messages: make(chan string, 8), closed: make(chan struct{})}
}

func (c *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.messages:
		return transport.TextMessage, []byte(m), nil
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func dialTo(conn transport.Conn) transport.Dialer {
	return transport.DialerFunc(func(context.Context, string) (transport.Conn, error) {
		return conn, nil
	})
}

type collector struct {
	mu       sync.Mutex
	displays []telemetry.Display
	states   []bool
}

func (c *collector) OnSnapshot(d telemetry.Display) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.displays = append(c.displays, d)
}

func (c *collector) OnConnectionChange(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, connected)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.displays)
}

func startClient(t *testing.T, conn transport.Conn, consumer dashboard.Consumer) *dashboard.Client {
	t.Helper()
	c := dashboard.Start(context.Background(), "ws://feed.test/ws", consumer,
		dashboard.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		dashboard.WithSessionOptions(transport.WithDialer(dialTo(conn))),
	)
	t.Cleanup(func() {
		c.Close()
		<-c.Done()
	})
	return c
}

func TestClientNormalizesAgainstLastDisplay(t *testing.T) {
	conn := newPipeConn()
	col := &collector{}
	client := startClient(t, conn, col)

	assert.Equal(t, telemetry.Placeholder(), client.Last())

	conn.messages <- `{"gear":3,"tyrePressure":[27.1,27.2,26.9,27.0]}`
	conn.messages <- `{"gear":4,"tyrePressure":[1,2]}`

	require.Eventually(t, func() bool { return col.count() == 2 }, time.Second, 5*time.Millisecond)

	col.mu.Lock()
	defer col.mu.Unlock()
	assert.Equal(t, "2", col.displays[0].Gear)
	assert.Equal(t, "3", col.displays[1].Gear)
	assert.Equal(t, col.displays[0].TyrePressure, col.displays[1].TyrePressure)
	assert.Equal(t, [4]string{"27.1", "27.2", "26.9", "27.0"}, col.displays[1].TyrePressure.Text)
	assert.Equal(t, []bool{true}, col.states)
	assert.Equal(t, col.displays[1], client.Last())
	assert.Equal(t, transport.StateConnected, client.State())
}

func TestClientPublishesToHub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := engine.NewHub()
	go hub.Run(ctx)
	sub := hub.Subscribe()

	conn := newPipeConn()
	startClient(t, conn, dashboard.Publisher{Hub: hub})
	conn.messages <- `{"speed":187.5}`

	next := func() engine.Event {
		select {
		case ev := <-sub:
			return ev
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for hub event")
			return engine.Event{}
		}
	}

	ev := next()
	assert.Equal(t, engine.EventConnection, ev.Kind)
	assert.True(t, ev.Connected)

	ev = next()
	assert.Equal(t, engine.EventSnapshot, ev.Kind)
	assert.Equal(t, "188", ev.Display.Speed)
}

func TestConsumerFuncsSkipsNil(t *testing.T) {
	var got []bool
	f := dashboard.ConsumerFuncs{Connection: func(c bool) { got = append(got, c) }}

	assert.NotPanics(t, func() { f.OnSnapshot(telemetry.Placeholder()) })
	f.OnConnectionChange(false)
	assert.Equal(t, []bool{false}, got)
}
