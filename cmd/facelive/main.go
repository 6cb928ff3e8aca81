package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"facelive-go/internal/api"
	"facelive-go/internal/config"
	"facelive-go/internal/logging"
	"facelive-go/internal/services"
)

// @title facelive API
// @version 1.0.0
// @description Real-time face landmark inference with live reconfiguration of model, backend, flags and camera.
// @BasePath /
func main() {
	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logdyURL := logging.Setup(cfg)

	log.Info().
		Str("instance_id", cfg.InstanceID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("model", cfg.Model).
		Str("backend", cfg.Backend).
		Bool("nats_enabled", cfg.NatsEnabled).
		Str("logdy_url", logdyURL).
		Msg("Starting facelive")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create services")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}

	// Create and start server
	server := api.NewServer(cfg, container)
	if err := server.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup server")
	}

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Services shutdown with errors")
	} else {
		log.Info().Msg("Shutdown complete")
	}
}
