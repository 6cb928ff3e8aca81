package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"facelive-go/internal/models"
	"facelive-go/internal/services/camera"
	"facelive-go/internal/services/detector"
	"facelive-go/internal/services/notify"
	"facelive-go/internal/services/render"
	"facelive-go/internal/services/stats"
	"facelive-go/internal/state"
)

// Skip reasons reported in TickResult.Skipped
const (
	SkipReconfiguring  = "reconfiguring"
	SkipNoCamera       = "no_camera"
	SkipCameraStopped  = "camera_stopped"
	SkipCameraNotReady = "camera_not_ready"
	SkipNoFrame        = "no_frame"
)

// Camera is the part of camera.Source the loop drives
type Camera interface {
	Setup(ctx context.Context, params models.CameraParams) error
	Current() (camera.Handle, bool)
}

// Detectors is the part of detector.Manager the loop drives
type Detectors interface {
	Reconfigure(ctx context.Context, snap state.Snapshot, changes state.Change) error
	Status() detector.Status
	EstimateFaces(ctx context.Context, frame models.Frame) ([]models.Face, error)
}

// Renderer draws a frame with an optional overlay
type Renderer interface {
	Render(frame models.Frame, faces []models.Face, opts render.Options)
}

// Observer receives per-tick measurements
type Observer interface {
	Tick()
	TickSkipped(reason string)
	Inference(d time.Duration, faces int)
	Reconfigured(err error)
	CameraAcquired(err error)
}

type nopObserver struct{}

func (nopObserver) Tick() {}
func (nopObserver) TickSkipped(string) {}
func (nopObserver) Inference(time.Duration, int) {}
func (nopObserver) Reconfigured(error) {}
func (nopObserver) CameraAcquired(error) {}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Kind, error) {}

// TickResult describes what one tick did
type TickResult struct {
	Seq      int64
	Applied  state.Change
	Skipped  string
	Inferred bool
	Faces    []models.Face
	Overlay  bool
	Rendered bool
	Report   *stats.Report
}

// Status is the API view of the loop
type Status struct {
	Running  bool      `json:"running"`
	Ticks    int64     `json:"ticks"`
	LastTick time.Time `json:"last_tick"`
	LastSkip string    `json:"last_skip,omitempty"`
	Faces    int       `json:"faces"`
}

// Loop drives one camera, one detector and one renderer. Tick is not
// safe for concurrent use; Run calls it from a single goroutine.
type Loop struct {
	state     *state.State
	camera    Camera
	detectors Detectors
	renderer  Renderer
	tracker   *stats.Tracker

	reporter     stats.Reporter
	notifier     notify.Notifier
	observer     Observer
	log          zerolog.Logger
	refreshRate  int
	readyTimeout time.Duration
	showFPS      bool
	now          func() time.Time

	seq int64

	// handle whose capture failure was already notified
	stoppedHandle string

	mu     sync.RWMutex
	status Status

	stopped  chan struct{}
	stopOnce sync.Once
}

// Option configures a Loop
type Option func(*Loop)

func WithReporter(r stats.Reporter) Option { return func(l *Loop) { l.reporter = r } }
func WithNotifier(n notify.Notifier) Option { return func(l *Loop) { l.notifier = n } }
func WithObserver(o Observer) Option { return func(l *Loop) { l.observer = o } }
func WithLogger(log zerolog.Logger) Option { return func(l *Loop) { l.log = log } }
func WithRefreshRate(hz int) Option { return func(l *Loop) { l.refreshRate = hz } }
func WithReadyTimeout(d time.Duration) Option { return func(l *Loop) { l.readyTimeout = d } }
func WithShowFPS(show bool) Option { return func(l *Loop) { l.showFPS = show } }
func WithClock(now func() time.Time) Option { return func(l *Loop) { l.now = now } }

// New creates a loop over the given components
func New(st *state.State, cam Camera, det Detectors, rend Renderer, tracker *stats.Tracker, opts ...Option) *Loop {
	l := &Loop{
		state:        st,
		camera:       cam,
		detectors:    det,
		renderer:     rend,
		tracker:      tracker,
		reporter:     stats.MultiReporter{},
		notifier:     nopNotifier{},
		observer:     nopObserver{},
		log:          zerolog.Nop(),
		refreshRate:  60,
		readyTimeout: 5 * time.Second,
		showFPS:      true,
		now:          time.Now,
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.refreshRate <= 0 {
		l.refreshRate = 60
	}
	return l
}

// Tick runs one iteration: apply pending configuration, gate on camera
// readiness, run inference and render. Component errors become
// notifications and never stop the loop.
func (l *Loop) Tick(ctx context.Context) TickResult {
	l.seq++
	res := TickResult{Seq: l.seq}
	l.observer.Tick()

	res.Applied = l.applyChanges(ctx)

	if l.state.InProgress(state.DetectorChanges) {
		return l.skip(res, SkipReconfiguring)
	}

	h, ok := l.camera.Current()
	if !ok {
		return l.skip(res, SkipNoCamera)
	}
	if err := h.Err(); err != nil {
		if l.stoppedHandle != h.ID() {
			l.stoppedHandle = h.ID()
			l.notifier.Notify(notify.KindCamera, err)
		}
		return l.skip(res, SkipCameraStopped)
	}
	if !h.Ready() {
		wctx, cancel := context.WithTimeout(ctx, l.readyTimeout)
		err := h.WaitReady(wctx)
		cancel()
		if err != nil {
			l.log.Debug().Err(err).Str("handle_id", h.ID()).Msg("Camera not ready")
			return l.skip(res, SkipCameraNotReady)
		}
	}
	frame, ok := h.Frame()
	if !ok {
		return l.skip(res, SkipNoFrame)
	}

	if l.detectors.Status() == detector.StatusActive {
		res.Inferred = true
		start := l.now()
		faces, err := l.detectors.EstimateFaces(ctx, frame)
		elapsed := l.now().Sub(start)
		l.tracker.Record(elapsed)
		l.observer.Inference(elapsed, len(faces))

		if err != nil && !errors.Is(err, detector.ErrNoDetector) {
			l.notifier.Notify(notify.KindInference, err)
		}
		res.Faces = faces
	}

	snap := l.state.Snapshot()
	var overlay []models.Face
	if len(res.Faces) > 0 && !l.state.InProgress(state.DetectorChanges) {
		overlay = res.Faces
		res.Overlay = true
	}
	l.renderer.Render(frame, overlay, render.Options{
		BoundingBox:     snap.ModelConfig.BoundingBox,
		TriangulateMesh: snap.ModelConfig.TriangulateMesh,
		ShowFPS:         l.showFPS,
	})
	res.Rendered = true

	if r, ok := l.tracker.MaybeReport(l.now()); ok {
		res.Report = &r
		l.reporter.Report(r)
	}

	l.record(res)
	return res
}

// applyChanges reacts to the pending tags, camera first, then detector.
// A tag is consumed once its reaction has completed, whatever the outcome.
func (l *Loop) applyChanges(ctx context.Context) state.Change {
	snap, cs := l.state.Observe()
	if cs.Empty() {
		return 0
	}
	var applied state.Change

	if cs.Has(state.CameraChanges) {
		err := l.camera.Setup(ctx, snap.Camera)
		l.observer.CameraAcquired(err)
		if err != nil {
			l.notifier.Notify(notify.KindCamera, err)
		}
		applied |= l.state.Consume(cs.Only(state.CameraChanges))
	}

	if cs.Has(state.DetectorChanges) {
		err := l.detectors.Reconfigure(ctx, snap, cs.Mask()&state.DetectorChanges)
		l.observer.Reconfigured(err)
		switch {
		case err == nil:
		case errors.Is(err, detector.ErrBackend):
			l.notifier.Notify(notify.KindBackend, err)
		default:
			l.notifier.Notify(notify.KindModelLoad, err)
		}
		applied |= l.state.Consume(cs.Only(state.DetectorChanges))
	}

	l.log.Debug().Stringer("applied", applied).Stringer("observed", cs).Msg("Configuration applied")
	return applied
}

func (l *Loop) skip(res TickResult, reason string) TickResult {
	res.Skipped = reason
	l.observer.TickSkipped(reason)
	l.record(res)
	return res
}

func (l *Loop) record(res TickResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Ticks = res.Seq
	l.status.LastTick = l.now()
	l.status.LastSkip = res.Skipped
	l.status.Faces = len(res.Faces)
}

// Run ticks at the refresh rate until ctx ends
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.refreshRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.setRunning(true)
	defer l.stopOnce.Do(func() { close(l.stopped) })
	defer l.setRunning(false)
	l.log.Info().Dur("interval", interval).Msg("Frame loop started")

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Int64("ticks", l.seq).Msg("Frame loop stopped")
			return nil
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Wait blocks until Run has returned or ctx ends. It must only be
// called once Run has been started.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-l.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) setRunning(running bool) {
	l.mu.Lock()
	l.status.Running = running
	l.mu.Unlock()
}

// Status returns the loop status
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}
