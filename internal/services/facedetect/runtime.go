package facedetect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"facelive-go/internal/services/detector"
)

// Inference backends
const (
	BackendCPU      = "opencv-cpu"
	BackendCUDA     = "opencv-cuda"
	BackendCUDAFP16 = "opencv-cuda-fp16"
	BackendOpenCL   = "opencv-opencl"
)

// Runtime flags
const (
	FlagInputSize      = "input_size"
	FlagScoreThreshold = "score_threshold"
	FlagNMSThreshold   = "nms_threshold"
	FlagTopK           = "top_k"
	FlagFlipHorizontal = "flip_horizontal"
)

var accelerated = map[string]bool{
	BackendCPU:      false,
	BackendCUDA:     true,
	BackendCUDAFP16: true,
	BackendOpenCL:   true,
}

// Settings is the backend and flag set detectors are built with. Zero
// numeric values mean the catalog default applies.
type Settings struct {
	Backend        string  `json:"backend"`
	InputSize      int     `json:"input_size,omitempty"`
	ScoreThreshold float64 `json:"score_threshold,omitempty"`
	NMSThreshold   float64 `json:"nms_threshold,omitempty"`
	TopK           int     `json:"top_k,omitempty"`
	FlipHorizontal bool    `json:"flip_horizontal"`
}

// Probe reports whether a backend can run in this process
type Probe func(backend string) error

// Runtime implements detector.Runtime. It validates the backend and
// flags and keeps the resulting settings for the registry.
type Runtime struct {
	log   zerolog.Logger
	probe Probe

	mu       sync.RWMutex
	settings Settings
}

// NewRuntime creates a runtime on the CPU backend. probe may be nil.
func NewRuntime(probe Probe, logger zerolog.Logger) *Runtime {
	return &Runtime{
		log:      logger,
		probe:    probe,
		settings: Settings{Backend: BackendCPU},
	}
}

// Backends lists the known backend names
func Backends() []string {
	names := make([]string, 0, len(accelerated))
	for name := range accelerated {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply implements detector.Runtime. Nothing changes on failure.
func (r *Runtime) Apply(_ context.Context, backend string, flags map[string]any) error {
	if _, ok := accelerated[backend]; !ok {
		return fmt.Errorf("%w: unknown backend %q", detector.ErrBackend, backend)
	}
	if r.probe != nil {
		if err := r.probe(backend); err != nil {
			return fmt.Errorf("%w: %s: %w", detector.ErrBackend, backend, err)
		}
	}

	next, err := parseFlags(flags)
	if err != nil {
		return fmt.Errorf("%w: %w", detector.ErrBackend, err)
	}
	next.Backend = backend

	r.mu.Lock()
	r.settings = next
	r.mu.Unlock()

	r.log.Info().
		Str("backend", backend).
		Interface("flags", flags).
		Msg("Inference backend applied")
	return nil
}

// Settings returns the applied backend and flags
func (r *Runtime) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// EstimateOptions implements detector.Runtime
func (r *Runtime) EstimateOptions() detector.EstimateOptions {
	return detector.EstimateOptions{FlipHorizontal: r.Settings().FlipHorizontal}
}

// Accelerated implements detector.Runtime
func (r *Runtime) Accelerated() bool {
	return accelerated[r.Settings().Backend]
}

func parseFlags(flags map[string]any) (Settings, error) {
	var s Settings
	for name, value := range flags {
		var err error
		switch name {
		case FlagInputSize:
			s.InputSize, err = toInt(value)
			if err == nil && s.InputSize <= 0 {
				err = fmt.Errorf("must be positive")
			}
		case FlagScoreThreshold:
			s.ScoreThreshold, err = toUnit(value)
		case FlagNMSThreshold:
			s.NMSThreshold, err = toUnit(value)
		case FlagTopK:
			s.TopK, err = toInt(value)
			if err == nil && s.TopK <= 0 {
				err = fmt.Errorf("must be positive")
			}
		case FlagFlipHorizontal:
			s.FlipHorizontal, err = toBool(value)
		default:
			return Settings{}, fmt.Errorf("unknown flag %q", name)
		}
		if err != nil {
			return Settings{}, fmt.Errorf("flag %s=%v: %w", name, value, err)
		}
	}
	return s, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer")
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toUnit(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("out of range [0, 1]")
	}
	return f, nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	default:
		return false, fmt.Errorf("unsupported type %T", v)
	}
}
