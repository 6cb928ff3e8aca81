package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind classifies a user-visible notification
type Kind string

const (
	KindCamera    Kind = "camera_error"
	KindModelLoad Kind = "model_load_error"
	KindBackend   Kind = "backend_error"
	KindInference Kind = "inference_error"
	KindInfo      Kind = "info"
)

// Notification is shown to the operator in place of a browser alert
type Notification struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier surfaces errors without stopping the caller
type Notifier interface {
	Notify(kind Kind, err error)
}

// Sink receives every notification published by a Center
type Sink interface {
	Deliver(n Notification)
}

// Center logs notifications, keeps a bounded history and forwards them
// to the registered sinks.
type Center struct {
	log   zerolog.Logger
	limit int

	mu      sync.RWMutex
	history []Notification
	sinks   []Sink
	counts  map[Kind]int64
}

// NewCenter creates a notification center keeping the last limit entries
func NewCenter(log zerolog.Logger, limit int, sinks ...Sink) *Center {
	if limit <= 0 {
		limit = 50
	}
	return &Center{
		log:    log,
		limit:  limit,
		sinks:  sinks,
		counts: make(map[Kind]int64),
	}
}

// AddSink registers another receiver
func (c *Center) AddSink(s Sink) {
	if s == nil {
		return
	}
	c.mu.Lock()
	c.sinks = append(c.sinks, s)
	c.mu.Unlock()
}

// Notify records err under kind. A nil error is ignored.
func (c *Center) Notify(kind Kind, err error) {
	if err == nil {
		return
	}
	c.Publish(kind, err.Error())
}

// Publish records a message under kind
func (c *Center) Publish(kind Kind, message string) Notification {
	n := Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: message,
		Time:    time.Now(),
	}

	ev := c.log.Warn()
	if kind == KindInfo {
		ev = c.log.Info()
	}
	ev.Str("kind", string(kind)).Str("notification_id", n.ID).Msg(message)

	c.mu.Lock()
	c.history = append(c.history, n)
	if len(c.history) > c.limit {
		c.history = c.history[len(c.history)-c.limit:]
	}
	c.counts[kind]++
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()

	for _, s := range sinks {
		s.Deliver(n)
	}
	return n
}

// History returns the retained notifications, oldest first
func (c *Center) History() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Notification(nil), c.history...)
}

// Count returns how many notifications of kind were published
func (c *Center) Count(kind Kind) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[kind]
}
