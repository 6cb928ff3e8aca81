package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"facelive-go/internal/api/handlers"
	"facelive-go/internal/config"
	"facelive-go/internal/services"
	"facelive-go/internal/services/facedetect"
)

type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	container *services.ServiceContainer
	cancel    context.CancelFunc // ends long-lived streams on shutdown

	healthHandler       *handlers.HealthHandler
	stateHandler        *handlers.StateHandler
	statsHandler        *handlers.StatsHandler
	notificationHandler *handlers.NotificationHandler
	streamHandler       *handlers.StreamHandler
	eventsHandler       *handlers.EventsHandler
	systemHandler       *handlers.SystemHandler
}

func NewServer(cfg *config.Config, sc *services.ServiceContainer) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	var nats handlers.Connectivity
	if sc.Messaging != nil {
		nats = sc.Messaging
	}

	return &Server{
		config:              cfg,
		router:              router,
		container:           sc,
		healthHandler:       handlers.NewHealthHandler(cfg.InstanceID, cfg.Version, sc.Camera, sc.Detector, nats),
		stateHandler:        handlers.NewStateHandler(sc.State, sc.Events, sc.Registry.Models, facedetect.Backends()),
		statsHandler:        handlers.NewStatsHandler(sc.Tracker, sc.Loop, sc.Camera, sc.Detector),
		notificationHandler: handlers.NewNotificationHandler(sc.Notifications),
		streamHandler:       handlers.NewStreamHandler(sc.Publisher),
		eventsHandler:       handlers.NewEventsHandler(sc.Events),
		systemHandler:       handlers.NewSystemHandler(cfg.InstanceID),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	base, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		BaseContext: func(net.Listener) context.Context { return base },
	}

	return nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting facelive API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping facelive API")
	if s.cancel != nil {
		s.cancel()
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) GetServer() *http.Server {
	return s.server
}
