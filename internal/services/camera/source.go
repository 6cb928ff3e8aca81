package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"facelive-go/internal/handle"
	"facelive-go/internal/models"
)

// ErrCameraUnavailable is returned when no capture device can be opened
var ErrCameraUnavailable = errors.New("camera unavailable")

// Handle is an open capture device
type Handle interface {
	ID() string
	Params() models.CameraParams
	// Ready reports whether the first frame has arrived
	Ready() bool
	// WaitReady blocks until the first frame arrives or ctx ends
	WaitReady(ctx context.Context) error
	// Frame returns the latest captured frame
	Frame() (models.Frame, bool)
	// Err returns why capture stopped, or nil while it is running
	Err() error
	Close() error
}

// Opener acquires capture devices
type Opener interface {
	Open(ctx context.Context, params models.CameraParams) (Handle, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(ctx context.Context, params models.CameraParams) (Handle, error)

func (f OpenerFunc) Open(ctx context.Context, params models.CameraParams) (Handle, error) {
	return f(ctx, params)
}

// Source owns the single active capture handle
type Source struct {
	opener Opener
	owner  *handle.Owner[Handle]
	log    zerolog.Logger

	mu      sync.RWMutex
	params  models.CameraParams
	lastErr error
}

// NewSource creates a source with no device acquired
func NewSource(opener Opener, logger zerolog.Logger) *Source {
	return &Source{
		opener: opener,
		owner:  handle.NewOwner(func(h Handle) error { return h.Close() }),
		log:    logger,
	}
}

// Setup releases the current device and opens one matching params. On
// failure the source is left without a device.
func (s *Source) Setup(ctx context.Context, params models.CameraParams) error {
	if err := s.owner.Release(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to release previous camera")
	}

	s.mu.Lock()
	s.params = params
	s.mu.Unlock()

	if err := params.Validate(); err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrCameraUnavailable, err))
	}

	h, err := s.owner.Replace(func() (Handle, error) {
		return s.opener.Open(ctx, params)
	})
	if err != nil {
		if !errors.Is(err, ErrCameraUnavailable) {
			err = fmt.Errorf("%w: device %s: %w", ErrCameraUnavailable, params.DeviceID, err)
		}
		return s.fail(err)
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	s.log.Info().
		Str("handle_id", h.ID()).
		Str("device_id", params.DeviceID).
		Str("size", params.SizeOption()).
		Int("target_fps", params.TargetFPS).
		Msg("Camera acquired")
	return nil
}

func (s *Source) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.log.Error().Err(err).Msg("Camera setup failed")
	return err
}

// Current returns the active handle, if any
func (s *Source) Current() (Handle, bool) {
	return s.owner.Get()
}

// Info describes the active camera
func (s *Source) Info() models.CameraInfo {
	s.mu.RLock()
	info := models.CameraInfo{Params: s.params}
	if s.lastErr != nil {
		info.LastError = s.lastErr.Error()
	}
	s.mu.RUnlock()

	info.Opens, info.Releases = s.owner.Counts()
	if h, ok := s.owner.Get(); ok {
		info.Acquired = true
		info.HandleID = h.ID()
		info.Params = h.Params()
		info.Ready = h.Ready()
		if err := h.Err(); err != nil {
			info.Ready = false
			info.LastError = err.Error()
		}
		if f, ok := h.Frame(); ok {
			info.LastFrame = f.CapturedAt
			info.FrameCount = f.Seq
		}
	}
	return info
}

// Close releases the active device
func (s *Source) Close() error {
	return s.owner.Release()
}
