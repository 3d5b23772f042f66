package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"acdash/pkg/metrics"
	"acdash/pkg/telemetry"
)

const DefaultReconnectDelay = 3 * time.Second

// State is the connectivity of a Session.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session keeps one receive-only connection to the telemetry feed alive.
// Callbacks run one at a time, in the order events were received.
type Session struct {
	url              string
	dialer           Dialer
	clock            Clock
	delay            time.Duration
	handshakeTimeout time.Duration
	logger           *slog.Logger
	metrics          *metrics.Metrics
	onSnapshot       func(telemetry.Snapshot)
	onConnection     func(bool)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	current *attempt
	timer   Timer
	closed  bool

	deliverMu sync.Mutex
}

// attempt is one connection instance, from dial to close.
type attempt struct {
	id   string
	conn Conn
	once sync.Once
}

type Option func(*Session)

func WithReconnectDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.handshakeTimeout = d
		}
	}
}

func WithDialer(d Dialer) Option {
	return func(s *Session) {
		if d != nil {
			s.dialer = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithSnapshotHandler(fn func(telemetry.Snapshot)) Option {
	return func(s *Session) {
		if fn != nil {
			s.onSnapshot = fn
		}
	}
}

func WithConnectionHandler(fn func(connected bool)) Option {
	return func(s *Session) {
		if fn != nil {
			s.onConnection = fn
		}
	}
}

// StartSession begins connecting to url immediately. The session runs until
// ctx is cancelled or Close is called.
func StartSession(ctx context.Context, url string, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		url:    url,
		clock:  realClock{},
		delay:  DefaultReconnectDelay,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateConnecting,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = WebSocketDialer{HandshakeTimeout: s.handshakeTimeout}
	}
	s.logger = s.logger.With("url", url)

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()
	s.connect()
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops reconnecting and closes the active connection.
func (s *Session) Close() {
	s.cancel()
}

// Done is closed once the session has shut down and no goroutine of it is
// still delivering events.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) connect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	a := &attempt{id: uuid.NewString()}
	s.current = a
	s.state = StateConnecting
	s.timer = nil
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("connecting", "conn_id", a.id)
	go s.serve(a)
}

func (s *Session) serve(a *attempt) {
	defer s.wg.Done()

	conn, err := s.dialer.Dial(s.ctx, s.url)
	if err != nil {
		s.fail(a, fmt.Errorf("dial: %w", err))
		return
	}
	if !s.open(a, conn) {
		_ = conn.Close()
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.fail(a, err)
			return
		}
		if msgType != TextMessage {
			continue
		}
		s.handleMessage(a, data)
	}
}

func (s *Session) open(a *attempt, conn Conn) bool {
	s.mu.Lock()
	if s.closed || s.current != a {
		s.mu.Unlock()
		return false
	}
	a.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	s.logger.Info("connected", "conn_id", a.id)
	s.metrics.SetConnected(true)
	s.emitConnection(true)
	return true
}

// fail handles a close or error of a. Only the first report per attempt
// changes state and schedules a reconnect.
func (s *Session) fail(a *attempt, err error) {
	first := false
	a.once.Do(func() { first = true })
	if !first {
		return
	}

	s.mu.Lock()
	conn := a.conn
	if s.closed || s.current != a {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	s.state = StateDisconnected
	s.timer = s.clock.AfterFunc(s.delay, func() { s.reconnect(a) })
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.logger.Warn("disconnected, reconnecting", "conn_id", a.id, "delay", s.delay, "err", err)
	s.metrics.SetConnected(false)
	s.emitConnection(false)
}

// reconnect runs when the delay scheduled by a expires. It does nothing if a
// newer attempt has taken over or the session left the disconnected state.
func (s *Session) reconnect(a *attempt) {
	s.mu.Lock()
	stale := s.closed || s.current != a || s.state != StateDisconnected
	s.mu.Unlock()
	if stale {
		s.logger.Debug("reconnect superseded", "conn_id", a.id)
		return
	}
	s.metrics.IncReconnects()
	s.connect()
}

func (s *Session) handleMessage(a *attempt, data []byte) {
	s.metrics.IncMessages()
	snap, err := telemetry.DecodeSnapshot(data)
	if err != nil {
		s.metrics.IncDecodeErrors()
		s.logger.Error("discarding malformed telemetry message", "conn_id", a.id, "bytes", len(data), "err", err)
		return
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
}

func (s *Session) emitConnection(connected bool) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.onConnection != nil {
		s.onConnection(connected)
	}
}

func (s *Session) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	var conn Conn
	if s.current != nil {
		conn = s.current.conn
	}
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.logger.Debug("session closed")

	go func() {
		s.wg.Wait()
		close(s.done)
	}()
}
