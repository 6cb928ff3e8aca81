package events

import (
	"sync"
	"sync/atomic"
	"time"

	"facelive-go/internal/services/notify"
	"facelive-go/internal/services/stats"
)

// Event types pushed to subscribers
const (
	TypeFPS          = "fps"
	TypeNotification = "notification"
	TypeConfig       = "config"
	TypeDetector     = "detector"
)

// Event is one message on the live feed
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

type subscriber struct {
	ch chan Event
}

// Hub fans events out to subscribers. A slow subscriber loses events
// instead of blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	buffer  int
	dropped atomic.Int64
}

// NewHub creates a hub whose subscribers buffer up to buffer events
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new receiver. The returned cancel func closes
// the channel and must be called once the receiver is done.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			close(s.ch)
			h.mu.Unlock()
		})
	}
	return s.ch, cancel
}

// Publish sends an event to every subscriber
func (h *Hub) Publish(eventType string, data any) {
	ev := Event{Type: eventType, Time: time.Now(), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many events were lost to full buffers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Report implements stats.Reporter
func (h *Hub) Report(r stats.Report) {
	h.Publish(TypeFPS, r)
}

// Deliver implements notify.Sink
func (h *Hub) Deliver(n notify.Notification) {
	h.Publish(TypeNotification, n)
}
