package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"facelive-go/internal/config"
	"facelive-go/internal/logging"
	"facelive-go/internal/models"
	"facelive-go/internal/services/camera"
	"facelive-go/internal/services/camera/device"
	"facelive-go/internal/services/detector"
	"facelive-go/internal/services/events"
	"facelive-go/internal/services/facedetect"
	"facelive-go/internal/services/facedetect/opencv"
	"facelive-go/internal/services/facedetect/remote"
	"facelive-go/internal/services/loop"
	"facelive-go/internal/services/messaging"
	"facelive-go/internal/services/metrics"
	"facelive-go/internal/services/notify"
	"facelive-go/internal/services/publisher/mjpeg"
	"facelive-go/internal/services/render"
	"facelive-go/internal/services/stats"
	"facelive-go/internal/state"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config        *config.Config
	Catalog       *config.ModelCatalog
	State         *state.State
	Runtime       *facedetect.Runtime
	Registry      *facedetect.Registry
	Camera        *camera.Source
	Detector      *detector.Manager
	Tracker       *stats.Tracker
	Publisher     *mjpeg.Publisher
	Canvas        *render.Canvas
	Notifications *notify.Center
	Events        *events.Hub
	Metrics       *metrics.Metrics
	Messaging     *messaging.Service // nil when NATS is disabled or unreachable
	Bridge        *messaging.Bridge
	Loop          *loop.Loop

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	loopStarted bool
}

// loopObserver adds detector lifecycle events to the metrics observer
type loopObserver struct {
	*metrics.Metrics
	hub      *events.Hub
	detector *detector.Manager
}

func (o loopObserver) Reconfigured(err error) {
	o.Metrics.Reconfigured(err)
	o.hub.Publish(events.TypeDetector, o.detector.Info())
}

// InitialSnapshot builds the startup configuration from cfg
func InitialSnapshot(cfg *config.Config) state.Snapshot {
	return state.Snapshot{
		TargetModel: cfg.Model,
		Backend:     cfg.Backend,
		Flags:       map[string]any{},
		Camera: models.CameraParams{
			DeviceID:  cfg.CameraDevice,
			Width:     cfg.CameraWidth,
			Height:    cfg.CameraHeight,
			TargetFPS: cfg.CameraTargetFPS,
		},
		ModelConfig: state.ModelConfig{
			MaxFaces:        cfg.MaxFaces,
			RefineLandmarks: cfg.RefineLandmarks,
			BoundingBox:     cfg.ShowBoundingBox,
			TriangulateMesh: cfg.TriangulateMesh,
		},
	}
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	catalog, err := config.LoadModelCatalog(cfg.ModelCatalogPath)
	if err != nil {
		return nil, err
	}

	st := state.New(InitialSnapshot(cfg))
	if cfg.InitialQuery != "" {
		values, err := url.ParseQuery(cfg.InitialQuery)
		if err != nil {
			return nil, err
		}
		if _, err := st.ApplyQuery(values); err != nil {
			return nil, err
		}
	}

	runtime := facedetect.NewRuntime(opencv.Probe, logging.NewServiceLogger(cfg, "runtime"))
	registry := facedetect.NewRegistry(catalog, runtime, logging.NewServiceLogger(cfg, "registry"))
	opencv.Register(registry)
	registry.Register(config.KindRemote, remote.NewConstructor(cfg.RemoteDetectorURL, cfg.RemoteDetectorTimeout))

	m := metrics.New()
	hub := events.NewHub(cfg.EventBuffer)
	center := notify.NewCenter(logging.NewServiceLogger(cfg, "notifications"), cfg.NotificationHistory, hub, m)
	publisher := mjpeg.NewPublisher(cfg.MJPEGQuality)
	canvas := render.NewCanvas(publisher)
	tracker := stats.NewTracker(cfg.StatsInterval, cfg.StatsMaxFPS)

	sc := &ServiceContainer{
		Config:        cfg,
		Catalog:       catalog,
		State:         st,
		Runtime:       runtime,
		Registry:      registry,
		Camera:        camera.NewSource(device.NewOpener(logging.NewServiceLogger(cfg, "camera")), logging.NewServiceLogger(cfg, "camera")),
		Detector:      detector.NewManager(registry, runtime, cfg.WarmupFrames, logging.NewServiceLogger(cfg, "detector")),
		Tracker:       tracker,
		Publisher:     publisher,
		Canvas:        canvas,
		Notifications: center,
		Events:        hub,
		Metrics:       m,
	}

	reporters := stats.MultiReporter{canvas, hub, m}
	if cfg.NatsEnabled {
		msg, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, continuing without messaging")
		} else {
			sc.Messaging = msg
			sc.Bridge = messaging.NewBridge(msg, st, cfg.NatsSubjectPrefix, cfg.InstanceID, logging.NewServiceLogger(cfg, "messaging"))
			reporters = append(reporters, sc.Bridge)
			center.AddSink(sc.Bridge)
		}
	}

	sc.Loop = loop.New(st, sc.Camera, sc.Detector, canvas, tracker,
		loop.WithReporter(reporters),
		loop.WithNotifier(center),
		loop.WithObserver(loopObserver{Metrics: m, hub: hub, detector: sc.Detector}),
		loop.WithLogger(logging.NewServiceLogger(cfg, "loop")),
		loop.WithRefreshRate(cfg.RefreshRate),
		loop.WithReadyTimeout(cfg.CameraReadyTimeout),
		loop.WithShowFPS(cfg.ShowFPS),
	)

	return sc, nil
}

// Start runs the frame loop and the background samplers
func (sc *ServiceContainer) Start(ctx context.Context) error {
	ctx, sc.cancel = context.WithCancel(ctx)

	if sc.Bridge != nil {
		if err := sc.Bridge.Start(); err != nil {
			log.Warn().Err(err).Msg("NATS control subscription failed")
		}
	}

	sc.loopStarted = true
	go func() {
		if err := sc.Loop.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Frame loop exited")
		}
	}()

	if sc.Config.ProcessMetricsInterval > 0 {
		sc.wg.Add(1)
		go func() {
			defer sc.wg.Done()
			sc.Metrics.SampleProcess(ctx, sc.Config.ProcessMetricsInterval)
		}()
	}

	sc.Notifications.Publish(notify.KindInfo, "facelive started")
	return nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.cancel != nil {
		sc.cancel()
	}

	var errs []error
	loopStopped := true
	if sc.loopStarted {
		if err := sc.Loop.Wait(ctx); err != nil {
			loopStopped = false
			errs = append(errs, fmt.Errorf("frame loop still running: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		sc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for process sampler to stop")
	}

	if sc.Bridge != nil {
		errs = append(errs, sc.Bridge.Close())
	}
	if sc.Messaging != nil {
		errs = append(errs, sc.Messaging.Shutdown(ctx))
	}
	// a tick may still be using the camera and detector
	if loopStopped {
		errs = append(errs, sc.Detector.Close(), sc.Camera.Close())
	} else {
		log.Error().Msg("Frame loop did not stop in time, leaving camera and detector open")
	}
	sc.Publisher.Shutdown()

	return errors.Join(errs...)
}
