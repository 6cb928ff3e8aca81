package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"facelive-go/internal/handle"
	"facelive-go/internal/models"
	"facelive-go/internal/state"
)

// Status is the lifecycle state of the managed detector
type Status int32

const (
	StatusAbsent Status = iota
	StatusActive
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusActive:
		return "active"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Info is the API view of the detector lifecycle
type Info struct {
	Status    string `json:"status"`
	Model     string `json:"model"`
	Backend   string `json:"backend"`
	Created   int64  `json:"created"`
	Disposed  int64  `json:"disposed"`
	LastError string `json:"last_error,omitempty"`
}

// Manager owns at most one live detector and rebuilds it when the model,
// backend or runtime flags change.
type Manager struct {
	factory Factory
	runtime Runtime
	log     zerolog.Logger
	warmup  int

	owner  *handle.Owner[Detector]
	status atomic.Int32

	mu      sync.RWMutex
	model   string
	backend string
	lastErr error

	// runtime settings from the last successful Apply
	applied        bool
	appliedBackend string
	appliedFlags   map[string]any
}

// NewManager creates a manager with no detector. warmup is the number of
// blank inferences run after building a detector on a GPU backend.
func NewManager(factory Factory, runtime Runtime, warmup int, logger zerolog.Logger) *Manager {
	return &Manager{
		factory: factory,
		runtime: runtime,
		log:     logger,
		warmup:  warmup,
		owner:   handle.NewOwner(dispose),
	}
}

func dispose(d Detector) error {
	if d == nil {
		return nil
	}
	return d.Dispose()
}

// Status returns the current lifecycle state
func (m *Manager) Status() Status {
	return Status(m.status.Load())
}

// Reconfigure disposes the current detector, applies the backend when
// backend or flags changed or the runtime does not hold them yet, and
// builds a detector for snap.TargetModel. On failure the manager is left
// in StatusFailed without a detector.
func (m *Manager) Reconfigure(ctx context.Context, snap state.Snapshot, changes state.Change) error {
	if err := m.owner.Release(); err != nil {
		m.log.Warn().Err(err).Msg("Failed to dispose detector")
	}
	m.status.Store(int32(StatusAbsent))

	m.mu.Lock()
	m.model = snap.TargetModel
	m.backend = snap.Backend
	m.mu.Unlock()

	logger := m.log.With().
		Str("model", snap.TargetModel).
		Str("backend", snap.Backend).
		Stringer("changes", changes).
		Logger()

	if changes&(state.BackendChanged|state.FlagsChanged) != 0 || !m.runtimeHolds(snap) {
		if err := m.runtime.Apply(ctx, snap.Backend, snap.Flags); err != nil {
			m.setApplied(false, snap)
			if !errors.Is(err, ErrBackend) {
				err = fmt.Errorf("%w: %s: %w", ErrBackend, snap.Backend, err)
			}
			return m.fail(logger, err)
		}
		m.setApplied(true, snap)
	}

	req := Request{
		Model:           snap.TargetModel,
		Backend:         snap.Backend,
		MaxFaces:        snap.ModelConfig.MaxFaces,
		RefineLandmarks: snap.ModelConfig.RefineLandmarks,
	}
	d, err := m.owner.Replace(func() (Detector, error) {
		return safeCreate(ctx, m.factory, req)
	})
	if err == nil && d == nil {
		if relErr := m.owner.Release(); relErr != nil {
			m.log.Warn().Err(relErr).Msg("Failed to dispose detector")
		}
		err = errors.New("factory returned no detector")
	}
	if err != nil {
		if !errors.Is(err, ErrModelLoad) && !errors.Is(err, ErrBackend) {
			err = fmt.Errorf("%w: %s: %w", ErrModelLoad, snap.TargetModel, err)
		}
		return m.fail(logger, err)
	}

	if m.warmup > 0 && m.runtime.Accelerated() {
		m.warmUp(ctx, logger, d)
	}

	m.mu.Lock()
	m.lastErr = nil
	m.mu.Unlock()
	m.status.Store(int32(StatusActive))

	created, _ := m.owner.Counts()
	logger.Info().Int64("instance", created).Msg("Detector ready")
	return nil
}

// runtimeHolds reports whether the last Apply succeeded with the backend
// and flags of snap
func (m *Manager) runtimeHolds(snap state.Snapshot) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.applied && m.appliedBackend == snap.Backend && sameFlags(m.appliedFlags, snap.Flags)
}

func (m *Manager) setApplied(ok bool, snap state.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = ok
	m.appliedBackend = snap.Backend
	m.appliedFlags = make(map[string]any, len(snap.Flags))
	for k, v := range snap.Flags {
		m.appliedFlags[k] = v
	}
}

func sameFlags(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !reflect.DeepEqual(v, w) {
			return false
		}
	}
	return true
}

func (m *Manager) fail(logger zerolog.Logger, err error) error {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.status.Store(int32(StatusFailed))
	logger.Error().Err(err).Msg("Detector unavailable")
	return err
}

// warmUp runs a few estimations on a blank frame so the first real frame
// does not pay for kernel compilation.
func (m *Manager) warmUp(ctx context.Context, logger zerolog.Logger, d Detector) {
	blank := models.Frame{Image: image.NewRGBA(image.Rect(0, 0, 320, 240))}
	for i := 0; i < m.warmup; i++ {
		if _, err := safeEstimate(ctx, d, blank, m.runtime.EstimateOptions()); err != nil {
			logger.Warn().Err(err).Int("iteration", i).Msg("Detector warm-up failed")
			return
		}
	}
	logger.Debug().Int("iterations", m.warmup).Msg("Detector warmed up")
}

// EstimateFaces runs the active detector on frame. A failure disposes the
// detector and moves the manager to StatusFailed.
func (m *Manager) EstimateFaces(ctx context.Context, frame models.Frame) ([]models.Face, error) {
	d, ok := m.owner.Get()
	if !ok || m.Status() != StatusActive {
		return nil, ErrNoDetector
	}

	faces, err := safeEstimate(ctx, d, frame, m.runtime.EstimateOptions())
	if err == nil {
		return faces, nil
	}

	if !errors.Is(err, ErrInference) {
		err = fmt.Errorf("%w: %w", ErrInference, err)
	}
	if relErr := m.owner.Release(); relErr != nil {
		m.log.Warn().Err(relErr).Msg("Failed to dispose detector after inference failure")
	}
	return nil, m.fail(m.log, err)
}

// Info describes the lifecycle for the API
func (m *Manager) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	created, disposed := m.owner.Counts()
	info := Info{
		Status:   m.Status().String(),
		Model:    m.model,
		Backend:  m.backend,
		Created:  created,
		Disposed: disposed,
	}
	if m.lastErr != nil {
		info.LastError = m.lastErr.Error()
	}
	return info
}

// Live reports whether a detector instance is held
func (m *Manager) Live() bool {
	return m.owner.Live()
}

// Close disposes the detector
func (m *Manager) Close() error {
	m.status.Store(int32(StatusAbsent))
	return m.owner.Release()
}

func safeCreate(ctx context.Context, f Factory, req Request) (d Detector, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("%w: panic while building %s: %v", ErrModelLoad, req.Model, r)
		}
	}()
	return f.Create(ctx, req)
}

func safeEstimate(ctx context.Context, d Detector, frame models.Frame, opts EstimateOptions) (faces []models.Face, err error) {
	defer func() {
		if r := recover(); r != nil {
			faces, err = nil, fmt.Errorf("%w: panic: %v", ErrInference, r)
		}
	}()
	return d.EstimateFaces(ctx, frame, opts)
}
