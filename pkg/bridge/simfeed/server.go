// Package simfeed serves a simulated telemetry feed over WebSocket on /ws,
// for running the dashboard without a simulator.
package simfeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"acdash/pkg/telemetry"
	"acdash/pkg/transport"
)

const (
	DefaultRate    = 60
	defaultSendBuf = 16
)

type Server struct {
	addr    string
	rate    int
	sendBuf int
	gen     *Generator
	logger  *slog.Logger
	clients map[*client]struct{}
	mu      sync.RWMutex
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

type Option func(*Server)

func WithRate(hz int) Option {
	return func(s *Server) {
		if hz > 0 {
			s.rate = hz
		}
	}
}

func WithSendBuffer(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.sendBuf = size
		}
	}
}

func WithGenerator(g *Generator) Option {
	return func(s *Server) {
		if g != nil {
			s.gen = g
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		rate:    DefaultRate,
		sendBuf: defaultSendBuf,
		gen:     NewGenerator(),
		logger:  slog.Default(),
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler serves the feed on /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(transport.DefaultPath, s.handleWS)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.Stream(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("simulated feed listening", "addr", s.addr, "path", transport.DefaultPath, "rate_hz", s.rate)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
		s.closeClients()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Stream broadcasts a generated snapshot at the configured rate until ctx
// is done.
func (s *Server) Stream(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.rate))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.ClientCount() == 0 {
				continue
			}
			if err := s.Broadcast(s.gen.Snapshot(time.Since(start))); err != nil {
				s.logger.Error("encode snapshot", "err", err)
			}
		}
	}
}

// Broadcast sends snap to every connected client. Clients that are behind
// skip it.
func (s *Server) Broadcast(snap telemetry.Snapshot) error {
	frame, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	for _, c := range s.snapshotClients() {
		c.trySend(frame)
	}
	return nil
}

func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, s.sendBuf),
	}
	s.addClient(c)
	s.logger.Info("feed client connected", "client_id", c.id, "remote", r.RemoteAddr)

	go c.writeLoop()
	c.readLoop()

	c.close()
	s.removeClient(c)
	s.logger.Info("feed client disconnected", "client_id", c.id)
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) snapshotClients() []*client {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()
	return clients
}

func (s *Server) closeClients() {
	for _, c := range s.snapshotClients() {
		c.close()
	}
}

// readLoop drains and ignores inbound frames until the peer goes away.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.close()
			return
		}
	}
}

func (c *client) trySend(msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
