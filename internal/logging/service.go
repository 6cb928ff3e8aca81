package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"facelive-go/internal/config"
)

// Setup configures the global logger from cfg and tees it into Logdy
// when enabled. It returns the Logdy URL, or "" when disabled.
func Setup(cfg *config.Config) string {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	url := ""
	if cfg.LogdyEnabled {
		w, u, err := StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy unavailable, logging to console only")
		} else {
			out = zerolog.MultiLevelWriter(out, w)
			url = u
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return url
}

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("instance_id", cfg.InstanceID).Str("service", service).Logger()
}

func WithHandle(base zerolog.Logger, handleID string) zerolog.Logger {
	return base.With().Str("handle_id", handleID).Logger()
}
