package detector

import (
	"context"
	"errors"

	"facelive-go/internal/models"
)

var (
	// ErrModelLoad means the detector for the selected model could not be built
	ErrModelLoad = errors.New("model load failed")
	// ErrBackend means the inference backend or its flags could not be applied
	ErrBackend = errors.New("backend setup failed")
	// ErrInference means a single face estimation failed
	ErrInference = errors.New("inference failed")
	// ErrNoDetector is returned when estimation is requested without an active detector
	ErrNoDetector = errors.New("no active detector")
)

// EstimateOptions are passed to every estimation call
type EstimateOptions struct {
	FlipHorizontal bool
}

// Detector finds faces and their landmarks in a frame
type Detector interface {
	EstimateFaces(ctx context.Context, frame models.Frame, opts EstimateOptions) ([]models.Face, error)
	// Dispose frees the resources behind the detector. It must be safe to call twice.
	Dispose() error
}

// Request describes the detector to build
type Request struct {
	Model           string
	Backend         string
	MaxFaces        int
	RefineLandmarks bool
}

// Factory builds detectors
type Factory interface {
	Create(ctx context.Context, req Request) (Detector, error)
}

// Runtime holds the process-wide inference backend and its flags
type Runtime interface {
	// Apply selects backend and sets the runtime flags
	Apply(ctx context.Context, backend string, flags map[string]any) error
	// EstimateOptions returns the per-call options derived from the flags
	EstimateOptions() EstimateOptions
	// Accelerated reports whether the active backend runs on a GPU
	Accelerated() bool
}
