// Package device opens local webcams and stream URLs through OpenCV.
package device

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"facelive-go/internal/logging"
	"facelive-go/internal/models"
	"facelive-go/internal/services/camera"
)

const maxConsecutiveErrors = 10

// Opener implements camera.Opener with gocv.VideoCapture
type Opener struct {
	log zerolog.Logger
}

// NewOpener creates an OpenCV backed camera opener
func NewOpener(logger zerolog.Logger) *Opener {
	return &Opener{log: logger}
}

// Open acquires the device named by params.DeviceID. Numeric ids are
// local devices; anything else is passed to FFmpeg as a URL or path.
func (o *Opener) Open(ctx context.Context, params models.CameraParams) (camera.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, ok := params.DeviceIndex(); ok {
		vc, err = gocv.VideoCaptureDevice(idx)
	} else {
		vc, err = gocv.OpenVideoCaptureWithAPI(params.DeviceID, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("open device %s: %w", params.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %s is not opened", params.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(params.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(params.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(params.TargetFPS))
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	id := uuid.NewString()
	logger := logging.WithHandle(o.log, id).With().Str("device_id", params.DeviceID).Logger()
	logger.Info().
		Float64("actual_fps", vc.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened")

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Capture{
		id:     id,
		params: params,
		vc:     vc,
		log:    logger,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.readLoop(readCtx)
	return c, nil
}

// Capture is one open device with a background reader that keeps only
// the most recent frame.
type Capture struct {
	id     string
	params models.CameraParams
	vc     *gocv.VideoCapture
	log    zerolog.Logger

	cancel    context.CancelFunc
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	latest models.Frame
	seq    int64
	err    error
}

func (c *Capture) ID() string { return c.id }
func (c *Capture) Params() models.CameraParams { return c.params }

func (c *Capture) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

func (c *Capture) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		if err := c.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: capture stopped before first frame", camera.ErrCameraUnavailable)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Capture) Frame() (models.Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil || c.latest.Empty() {
		return models.Frame{}, false
	}
	return c.latest, true
}

// Err reports the read failure that stopped the capture
func (c *Capture) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// stop drops the last frame so nothing stale is served after a failure
func (c *Capture) stop(err error) {
	c.mu.Lock()
	c.err = err
	c.latest = models.Frame{}
	c.mu.Unlock()
}

// Close stops the reader and releases the device
func (c *Capture) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		err = c.vc.Close()
		c.log.Info().Int64("frames", c.seq).Msg("VideoCapture released")
	})
	return err
}

func (c *Capture) readLoop(ctx context.Context) {
	defer close(c.done)

	img := gocv.NewMat()
	defer img.Close()

	interval := time.Second / time.Duration(max(c.params.TargetFPS, 1))
	consecutiveErrors := 0

	for {
		started := time.Now()
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok := c.vc.Read(&img); !ok || img.Empty() {
			consecutiveErrors++
			c.log.Warn().Int("consecutive_errors", consecutiveErrors).Msg("Failed to read frame")
			if consecutiveErrors >= maxConsecutiveErrors {
				c.log.Error().Int("consecutive_errors", consecutiveErrors).Msg("Too many read errors, stopping capture")
				c.stop(fmt.Errorf("%w: device %s: %d consecutive read errors",
					camera.ErrCameraUnavailable, c.params.DeviceID, consecutiveErrors))
				return
			}

			delay := min(time.Duration(consecutiveErrors*50)*time.Millisecond, 2*time.Second)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		consecutiveErrors = 0

		rgba, err := toRGBA(img)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to convert frame")
			continue
		}

		c.mu.Lock()
		c.seq++
		c.latest = models.Frame{Image: rgba, Seq: c.seq, CapturedAt: time.Now()}
		c.mu.Unlock()
		c.readyOnce.Do(func() { close(c.ready) })

		if wait := interval - time.Since(started); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

func toRGBA(mat gocv.Mat) (*image.RGBA, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}
