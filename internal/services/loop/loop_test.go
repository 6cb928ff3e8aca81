package loop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facelive-go/internal/models"
	"facelive-go/internal/services/camera"
	"facelive-go/internal/services/detector"
	"facelive-go/internal/services/notify"
	"facelive-go/internal/services/render"
	"facelive-go/internal/services/stats"
	"facelive-go/internal/state"
)

// camera fakes

type fakeHandle struct {
	id     string
	params models.CameraParams
	ready  bool
	err    error
	rig    *fakeCameras
}

func (h *fakeHandle) ID() string { return h.id }
func (h *fakeHandle) Params() models.CameraParams { return h.params }
func (h *fakeHandle) Ready() bool { return h.ready }
func (h *fakeHandle) WaitReady(ctx context.Context) error {
	if h.ready {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (h *fakeHandle) Err() error { return h.err }

func (h *fakeHandle) Frame() (models.Frame, bool) {
	if !h.ready || h.err != nil {
		return models.Frame{}, false
	}
	img := image.NewRGBA(image.Rect(0, 0, h.params.Width, h.params.Height))
	return models.Frame{Image: img, Seq: 1, CapturedAt: time.Now()}, true
}

func (h *fakeHandle) Close() error {
	h.rig.mu.Lock()
	defer h.rig.mu.Unlock()
	h.rig.live--
	h.rig.events = append(h.rig.events, "release "+h.id)
	return nil
}

type fakeCameras struct {
	mu       sync.Mutex
	opens    int
	live     int
	events   []string
	fail     error
	notReady bool
}

func (c *fakeCameras) Open(_ context.Context, p models.CameraParams) (camera.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	c.opens++
	c.live++
	id := fmt.Sprintf("cam-%d", c.opens)
	c.events = append(c.events, fmt.Sprintf("open %s %dx%d", id, p.Width, p.Height))
	return &fakeHandle{id: id, params: p, ready: !c.notReady, rig: c}, nil
}

// detector fakes

type fakeDetector struct {
	id int
	f  *fakeDetectors
}

func (d *fakeDetector) EstimateFaces(context.Context, models.Frame, detector.EstimateOptions) ([]models.Face, error) {
	d.f.mu.Lock()
	d.f.estimates++
	hook, err := d.f.onEstimate, d.f.estimateErr
	if d.f.failOn > 0 && d.f.estimates == d.f.failOn {
		err = errors.New("device lost")
	}
	d.f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return []models.Face{{Box: models.Box{XMin: 10, YMin: 10, Width: 40, Height: 40}, Score: 0.9}}, nil
}

func (d *fakeDetector) Dispose() error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	d.f.live--
	d.f.events = append(d.f.events, fmt.Sprintf("dispose %d", d.id))
	return nil
}

type fakeDetectors struct {
	mu          sync.Mutex
	created     int
	live        int
	maxLive     int
	models      []string
	events      []string
	estimates   int
	loadErr     error
	estimateErr error
	failOn      int
	onCreate    func()
	onEstimate  func()
}

func (f *fakeDetectors) Create(_ context.Context, req detector.Request) (detector.Detector, error) {
	f.mu.Lock()
	hook := f.onCreate
	f.onCreate = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, req.Model)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.created++
	f.live++
	f.maxLive = max(f.maxLive, f.live)
	f.events = append(f.events, fmt.Sprintf("create %d", f.created))
	return &fakeDetector{id: f.created, f: f}, nil
}

type fakeRuntime struct {
	applies int
	err     error
}

func (r *fakeRuntime) Apply(context.Context, string, map[string]any) error {
	r.applies++
	return r.err
}

func (r *fakeRuntime) EstimateOptions() detector.EstimateOptions { return detector.EstimateOptions{} }
func (r *fakeRuntime) Accelerated() bool { return false }

// output fakes

type fakeRenderer struct {
	frames   int
	overlays [][]models.Face
	opts     []render.Options
}

func (r *fakeRenderer) Render(_ models.Frame, faces []models.Face, opts render.Options) {
	r.frames++
	r.overlays = append(r.overlays, faces)
	r.opts = append(r.opts, opts)
}

// blockingRenderer holds the first Render until release is closed
type blockingRenderer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRenderer) Render(models.Frame, []models.Face, render.Options) {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
}

type fakeNotifier struct {
	kinds []notify.Kind
	errs  []error
}

func (n *fakeNotifier) Notify(kind notify.Kind, err error) {
	n.kinds = append(n.kinds, kind)
	n.errs = append(n.errs, err)
}

type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

type rig struct {
	state     *state.State
	cameras   *fakeCameras
	source    *camera.Source
	detectors *fakeDetectors
	runtime   *fakeRuntime
	manager   *detector.Manager
	renderer  *fakeRenderer
	notifier  *fakeNotifier
	reports   []stats.Report
	loop      *Loop
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		state: state.New(state.Snapshot{
			TargetModel: "yunet",
			Backend:     "opencv-cpu",
			Camera:      models.CameraParams{DeviceID: "0", Width: 640, Height: 480, TargetFPS: 30},
			ModelConfig: state.ModelConfig{MaxFaces: 1, BoundingBox: true},
		}),
		cameras:   &fakeCameras{},
		detectors: &fakeDetectors{},
		runtime:   &fakeRuntime{},
		renderer:  &fakeRenderer{},
		notifier:  &fakeNotifier{},
	}
	r.source = camera.NewSource(r.cameras, zerolog.Nop())
	r.manager = detector.NewManager(r.detectors, r.runtime, 0, zerolog.Nop())

	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: 10 * time.Millisecond}
	base := []Option{
		WithNotifier(r.notifier),
		WithReporter(stats.ReporterFunc(func(rep stats.Report) { r.reports = append(r.reports, rep) })),
		WithReadyTimeout(20 * time.Millisecond),
		WithClock(clock.Now),
	}
	r.loop = New(r.state, r.source, r.manager, r.renderer, stats.NewTracker(time.Second, 120), append(base, opts...)...)
	return r
}

func TestTick_FirstTickBuildsEverything(t *testing.T) {
	r := newRig(t)

	res := r.loop.Tick(context.Background())

	assert.Equal(t, state.AllChanges, res.Applied)
	assert.Empty(t, res.Skipped)
	assert.True(t, res.Inferred)
	assert.True(t, res.Overlay)
	assert.True(t, res.Rendered)
	require.NotNil(t, res.Report)
	assert.Equal(t, 1, res.Report.Samples)
	assert.Len(t, r.reports, 1)

	assert.Equal(t, 1, r.cameras.opens)
	assert.Equal(t, 1, r.detectors.created)
	assert.Equal(t, detector.StatusActive, r.manager.Status())
	assert.True(t, r.state.Pending().Empty())
	assert.Empty(t, r.notifier.kinds)

	require.Len(t, r.renderer.opts, 1)
	assert.True(t, r.renderer.opts[0].BoundingBox)
	assert.True(t, r.renderer.opts[0].ShowFPS)
}

func TestTick_SteadyStateDoesNotReconfigure(t *testing.T) {
	r := newRig(t)

	for i := 0; i < 5; i++ {
		r.loop.Tick(context.Background())
	}

	assert.Equal(t, 1, r.cameras.opens)
	assert.Equal(t, 1, r.detectors.created)
	assert.Equal(t, 1, r.runtime.applies)
	assert.Equal(t, 5, r.detectors.estimates)
	assert.Equal(t, 5, r.renderer.frames)
	assert.Equal(t, int64(5), r.loop.Status().Ticks)
}

func TestTick_CameraFailureKeepsTicking(t *testing.T) {
	r := newRig(t)
	r.cameras.fail = errors.New("permission denied")

	first := r.loop.Tick(context.Background())
	second := r.loop.Tick(context.Background())

	assert.Equal(t, SkipNoCamera, first.Skipped)
	assert.Equal(t, SkipNoCamera, second.Skipped)
	require.Equal(t, []notify.Kind{notify.KindCamera}, r.notifier.kinds)
	assert.ErrorIs(t, r.notifier.errs[0], camera.ErrCameraUnavailable)
	assert.Zero(t, r.renderer.frames)

	// no automatic retry, and the detector was still built
	assert.Zero(t, r.cameras.opens)
	assert.Equal(t, detector.StatusActive, r.manager.Status())

	// a new size request re-acquires
	r.cameras.fail = nil
	_, err := r.state.SetSize(320, 240)
	require.NoError(t, err)
	res := r.loop.Tick(context.Background())
	assert.Empty(t, res.Skipped)
	assert.True(t, res.Rendered)
}

func TestTick_SizeChangeReacquiresOnce(t *testing.T) {
	r := newRig(t)
	r.loop.Tick(context.Background())

	_, err := r.state.SetSize(1280, 720)
	require.NoError(t, err)
	res := r.loop.Tick(context.Background())
	r.loop.Tick(context.Background())

	assert.Equal(t, state.CameraSizeChanged, res.Applied)
	assert.Equal(t, []string{"open cam-1 640x480", "release cam-1", "open cam-2 1280x720"}, r.cameras.events)
	assert.Equal(t, 1, r.cameras.live)
	// camera changes never rebuild the detector
	assert.Equal(t, 1, r.detectors.created)
}

func TestTick_ModelChangeRebuildsDetector(t *testing.T) {
	r := newRig(t)
	r.loop.Tick(context.Background())

	_, err := r.state.SetModel("haar")
	require.NoError(t, err)
	res := r.loop.Tick(context.Background())

	assert.Equal(t, state.ModelChanged, res.Applied)
	assert.True(t, res.Inferred)
	assert.Equal(t, []string{"yunet", "haar"}, r.detectors.models)
	assert.Equal(t, []string{"create 1", "dispose 1", "create 2"}, r.detectors.events)
	assert.Equal(t, 1, r.detectors.maxLive)
	// model changes skip the runtime
	assert.Equal(t, 1, r.runtime.applies)
	assert.Equal(t, 1, r.cameras.opens)
}

func TestTick_ChangeDuringReconfigureIsNotLost(t *testing.T) {
	r := newRig(t)
	r.loop.Tick(context.Background())

	_, err := r.state.SetModel("haar")
	require.NoError(t, err)
	r.detectors.onCreate = func() {
		_, _ = r.state.SetModel("remote")
	}

	res := r.loop.Tick(context.Background())
	assert.Equal(t, SkipReconfiguring, res.Skipped)
	assert.False(t, res.Inferred)
	assert.True(t, r.state.InProgress(state.ModelChanged))

	res = r.loop.Tick(context.Background())
	assert.Empty(t, res.Skipped)
	assert.Equal(t, []string{"yunet", "haar", "remote"}, r.detectors.models)
	assert.Equal(t, 1, r.detectors.maxLive)
	assert.Equal(t, 1, r.detectors.live)
	assert.False(t, r.state.InProgress(state.DetectorChanges))
}

func TestTick_StaleResultsAreNotDrawn(t *testing.T) {
	r := newRig(t)
	r.loop.Tick(context.Background())

	r.detectors.onEstimate = func() {
		r.detectors.onEstimate = nil
		_, _ = r.state.SetFlag("score_threshold", 0.7)
	}
	res := r.loop.Tick(context.Background())

	assert.True(t, res.Inferred)
	assert.Len(t, res.Faces, 1)
	assert.False(t, res.Overlay)
	assert.True(t, res.Rendered)
	assert.Nil(t, r.renderer.overlays[1])

	// the flag change is applied on the next tick
	res = r.loop.Tick(context.Background())
	assert.Equal(t, state.FlagsChanged, res.Applied)
	assert.True(t, res.Overlay)
	assert.Equal(t, 2, r.runtime.applies)
}

func TestTick_BackendFailure(t *testing.T) {
	r := newRig(t)
	r.runtime.err = errors.New("webgpu unavailable")

	res := r.loop.Tick(context.Background())

	require.Equal(t, []notify.Kind{notify.KindBackend}, r.notifier.kinds)
	assert.ErrorIs(t, r.notifier.errs[0], detector.ErrBackend)
	assert.Zero(t, r.detectors.created)
	assert.Equal(t, detector.StatusFailed, r.manager.Status())
	assert.False(t, res.Inferred)
	// the camera image is still shown
	assert.True(t, res.Rendered)
	assert.Nil(t, res.Report)
}

func TestTick_ModelLoadFailure(t *testing.T) {
	r := newRig(t)
	r.detectors.loadErr = errors.New("weights not found")

	res := r.loop.Tick(context.Background())

	require.Equal(t, []notify.Kind{notify.KindModelLoad}, r.notifier.kinds)
	assert.ErrorIs(t, r.notifier.errs[0], detector.ErrModelLoad)
	assert.Equal(t, detector.StatusFailed, r.manager.Status())
	assert.False(t, res.Inferred)
	assert.True(t, res.Rendered)
	assert.False(t, r.manager.Live())
}

func TestTick_InferenceFailureDropsDetector(t *testing.T) {
	r := newRig(t)
	r.detectors.estimateErr = errors.New("context lost")

	first := r.loop.Tick(context.Background())
	second := r.loop.Tick(context.Background())

	assert.True(t, first.Inferred)
	assert.Empty(t, first.Faces)
	assert.False(t, first.Overlay)
	require.NotNil(t, first.Report, "failed inferences still count towards the rate")

	require.Equal(t, []notify.Kind{notify.KindInference}, r.notifier.kinds)
	assert.ErrorIs(t, r.notifier.errs[0], detector.ErrInference)
	assert.Equal(t, detector.StatusFailed, r.manager.Status())
	assert.Zero(t, r.detectors.live)

	assert.False(t, second.Inferred)
	assert.True(t, second.Rendered)
	assert.Equal(t, 1, r.detectors.estimates)
}

func TestTick_StoppedCaptureNotifiesOnce(t *testing.T) {
	r := newRig(t)
	r.loop.Tick(context.Background())

	h, ok := r.source.Current()
	require.True(t, ok)
	h.(*fakeHandle).err = fmt.Errorf("%w: 10 consecutive read errors", camera.ErrCameraUnavailable)

	for i := 0; i < 3; i++ {
		res := r.loop.Tick(context.Background())
		assert.Equal(t, SkipCameraStopped, res.Skipped)
		assert.False(t, res.Inferred)
		assert.False(t, res.Rendered)
	}
	require.Equal(t, []notify.Kind{notify.KindCamera}, r.notifier.kinds)
	assert.ErrorIs(t, r.notifier.errs[0], camera.ErrCameraUnavailable)
	assert.Equal(t, 1, r.detectors.estimates)
	assert.Equal(t, 1, r.renderer.frames)

	// a new camera request acquires a fresh handle and frames flow again
	_, err := r.state.SetSize(320, 240)
	require.NoError(t, err)
	res := r.loop.Tick(context.Background())
	assert.Empty(t, res.Skipped)
	assert.True(t, res.Rendered)
	assert.Len(t, r.notifier.kinds, 1)
}

func TestTick_DetectionResumesOnlyAfterModelChange(t *testing.T) {
	r := newRig(t)
	r.detectors.failOn = 5
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		res := r.loop.Tick(ctx)
		require.True(t, res.Overlay, "tick %d", i)
	}

	res := r.loop.Tick(ctx)
	assert.True(t, res.Inferred)
	assert.False(t, res.Overlay)
	assert.True(t, res.Rendered)
	require.Equal(t, []notify.Kind{notify.KindInference}, r.notifier.kinds)

	for i := 0; i < 5; i++ {
		res = r.loop.Tick(ctx)
		assert.False(t, res.Inferred)
		assert.False(t, res.Overlay)
		assert.True(t, res.Rendered)
	}

	// camera changes do not bring the detector back
	_, err := r.state.SetSize(320, 240)
	require.NoError(t, err)
	res = r.loop.Tick(ctx)
	assert.False(t, res.Inferred)
	assert.Equal(t, 5, r.detectors.estimates)
	assert.Equal(t, detector.StatusFailed, r.manager.Status())

	_, err = r.state.SetModel("haar")
	require.NoError(t, err)
	res = r.loop.Tick(ctx)

	assert.Equal(t, state.ModelChanged, res.Applied)
	assert.True(t, res.Inferred)
	assert.True(t, res.Overlay)
	assert.Equal(t, []string{"create 1", "dispose 1", "create 2"}, r.detectors.events)
	assert.Equal(t, 1, r.detectors.maxLive)
	assert.Equal(t, 1, r.detectors.live)
	assert.Len(t, r.notifier.kinds, 1)
}

func TestTick_CameraNotReady(t *testing.T) {
	r := newRig(t)
	r.cameras.notReady = true

	res := r.loop.Tick(context.Background())

	assert.Equal(t, SkipCameraNotReady, res.Skipped)
	assert.Zero(t, r.renderer.frames)
	assert.Zero(t, r.detectors.estimates)
	assert.Equal(t, SkipCameraNotReady, r.loop.Status().LastSkip)
}

func TestTick_ReportsOncePerInterval(t *testing.T) {
	r := newRig(t)

	// each clock read advances 10ms, so every inference measures 10ms
	for i := 0; i < 60; i++ {
		r.loop.Tick(context.Background())
	}

	require.GreaterOrEqual(t, len(r.reports), 2)
	for _, rep := range r.reports {
		assert.InDelta(t, 100.0, rep.FPS, 1e-9)
		assert.LessOrEqual(t, rep.FPS, rep.Max)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := newRig(t, WithRefreshRate(200))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.loop.Run(ctx) }()

	require.Eventually(t, func() bool { return r.loop.Status().Running }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, r.loop.Status().Running)
	assert.NoError(t, r.loop.Wait(context.Background()))
}

func TestWait_TimesOutWhileTickIsRunning(t *testing.T) {
	r := newRig(t)
	rend := &blockingRenderer{entered: make(chan struct{}), release: make(chan struct{})}
	l := New(r.state, r.source, r.manager, rend, stats.NewTracker(time.Second, 120), WithRefreshRate(200))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()

	select {
	case <-rend.entered:
	case <-time.After(time.Second):
		t.Fatal("no tick reached the renderer")
	}
	cancel()

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, l.Wait(short), context.DeadlineExceeded)
	assert.True(t, r.manager.Live(), "detector stays owned by the running tick")

	close(rend.release)
	long, cancelLong := context.WithTimeout(context.Background(), time.Second)
	defer cancelLong()
	require.NoError(t, l.Wait(long))
	assert.False(t, l.Status().Running)
}
