package engine

import (
	"context"
	"time"

	"acdash/pkg/metrics"
	"acdash/pkg/telemetry"
)

type EventKind uint8

const (
	EventSnapshot EventKind = iota + 1
	EventConnection
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Event is one dashboard update. Display is set for snapshots, Connected for
// connectivity changes.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Display   telemetry.Display
	Connected bool
}

func SnapshotEvent(d telemetry.Display) Event {
	return Event{Kind: EventSnapshot, Timestamp: time.Now(), Display: d}
}

func ConnectionEvent(connected bool) Event {
	return Event{Kind: EventConnection, Timestamp: time.Now(), Connected: connected}
}

// Hub fans events out to subscribers. A subscriber whose buffer is full
// misses the event.
type Hub struct {
	broadcast  chan Event
	register   chan chan Event
	unregister chan chan Event
	clients    map[chan Event]struct{}
	clientBuf  int
	metrics    *metrics.Metrics
	done       chan struct{}
}

type Option func(*Hub)

func WithBroadcastBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.broadcast = make(chan Event, size)
		}
	}
}

func WithClientBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		broadcast:  make(chan Event, 256),
		register:   make(chan chan Event),
		unregister: make(chan chan Event),
		clients:    make(map[chan Event]struct{}),
		clientBuf:  100,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for ch := range h.clients {
				close(ch)
			}
			return
		case ch := <-h.register:
			h.clients[ch] = struct{}{}
		case ch := <-h.unregister:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case ev := <-h.broadcast:
			for ch := range h.clients {
				select {
				case ch <- ev:
				default:
					h.metrics.IncDropped()
				}
			}
		}
	}
}

func (h *Hub) Subscribe() chan Event {
	return h.SubscribeWithBuffer(h.clientBuf)
}

func (h *Hub) SubscribeWithBuffer(size int) chan Event {
	if size <= 0 {
		size = h.clientBuf
	}
	ch := make(chan Event, size)
	select {
	case h.register <- ch:
	case <-h.done:
		close(ch)
	}
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	select {
	case h.unregister <- ch:
	case <-h.done:
	}
}

// Publish queues ev for broadcast. After Run has returned it drops ev.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}
