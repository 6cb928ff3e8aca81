package messaging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"facelive-go/internal/services/notify"
	"facelive-go/internal/services/stats"
	"facelive-go/internal/state"
)

// Subscription is satisfied by *nats.Subscription
type Subscription interface {
	Unsubscribe() error
}

// Conn is the part of Service the bridge needs
type Conn interface {
	Publish(subject string, data interface{}) error
	Subscribe(subject string, handler func([]byte) []byte) (Subscription, error)
}

// FPSMessage is published on <prefix>.fps
type FPSMessage struct {
	Instance string    `json:"instance"`
	FPS      float64   `json:"fps"`
	Max      float64   `json:"max"`
	Samples  int       `json:"samples"`
	MeanMs   float64   `json:"mean_ms"`
	At       time.Time `json:"at"`
}

// ControlReply answers a request on <prefix>.control
type ControlReply struct {
	OK      bool     `json:"ok"`
	Changes []string `json:"changes,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Bridge publishes fps reports and notifications to NATS and applies
// control requests received from it.
type Bridge struct {
	conn     Conn
	state    *state.State
	prefix   string
	instance string
	log      zerolog.Logger

	mu   sync.Mutex
	subs []Subscription
}

func NewBridge(conn Conn, st *state.State, prefix, instance string, logger zerolog.Logger) *Bridge {
	if prefix == "" {
		prefix = "facelive"
	}
	return &Bridge{
		conn:     conn,
		state:    st,
		prefix:   prefix,
		instance: instance,
		log:      logger.With().Str("component", "nats_bridge").Logger(),
	}
}

func (b *Bridge) Subject(name string) string {
	return b.prefix + "." + name
}

// Report implements stats.Reporter
func (b *Bridge) Report(r stats.Report) {
	msg := FPSMessage{
		Instance: b.instance,
		FPS:      r.FPS,
		Max:      r.Max,
		Samples:  r.Samples,
		MeanMs:   float64(r.Mean) / float64(time.Millisecond),
		At:       r.At,
	}
	if err := b.conn.Publish(b.Subject("fps"), msg); err != nil {
		b.log.Debug().Err(err).Msg("Failed to publish fps")
	}
}

// Deliver implements notify.Sink
func (b *Bridge) Deliver(n notify.Notification) {
	if err := b.conn.Publish(b.Subject("notifications"), n); err != nil {
		b.log.Debug().Err(err).Msg("Failed to publish notification")
	}
}

// Start subscribes to the control subject
func (b *Bridge) Start() error {
	subject := b.Subject("control")
	sub, err := b.conn.Subscribe(subject, b.handleControl)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.log.Info().Str("subject", subject).Msg("Listening for control requests")
	return nil
}

func (b *Bridge) handleControl(data []byte) []byte {
	var req state.ControlRequest
	reply := ControlReply{}

	if err := json.Unmarshal(data, &req); err != nil {
		reply.Error = "invalid control request: " + err.Error()
	} else if changes, err := b.state.Apply(req); err != nil {
		reply.Error = err.Error()
	} else {
		reply.OK = true
		reply.Changes = changes.Names()
	}

	if reply.OK {
		b.log.Info().Strs("changes", reply.Changes).Msg("Control request applied")
	} else {
		b.log.Warn().Str("error", reply.Error).Msg("Control request rejected")
	}

	out, _ := json.Marshal(reply)
	return out
}

// Close removes the subscriptions
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, sub := range b.subs {
		if sub == nil {
			continue
		}
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	b.subs = nil
	return errors.Join(errs...)
}
