package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"facelive-go/internal/config"
)

// Service wraps the NATS connection used for the fps readout,
// notifications and remote control.
type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name(cfg.InstanceID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.NatsDrainTimeout > 0 {
		opts = append(opts, nats.DrainTimeout(cfg.NatsDrainTimeout))
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

// Subscribe delivers every message on subject to handler. Returning the
// reply lets request/reply clients get an answer; nil sends none.
func (s *Service) Subscribe(subject string, handler func([]byte) []byte) (Subscription, error) {
	return s.conn.Subscribe(subject, func(msg *nats.Msg) {
		reply := handler(msg.Data)
		if reply != nil && msg.Reply != "" {
			if err := msg.Respond(reply); err != nil {
				log.Warn().Err(err).Str("subject", subject).Msg("Failed to respond to NATS request")
			}
		}
	})
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}

	// Try graceful drain, fallback to immediate close
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return nil
	}

	for s.conn.IsDraining() {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}
