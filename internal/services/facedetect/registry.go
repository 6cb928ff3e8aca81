package facedetect

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"facelive-go/internal/config"
	"facelive-go/internal/services/detector"
)

// Constructor builds a detector of one model kind
type Constructor func(ctx context.Context, spec config.ModelSpec, settings Settings, req detector.Request) (detector.Detector, error)

// Registry resolves model names through the catalog and builds detectors
// with the constructor registered for their kind. It implements
// detector.Factory.
type Registry struct {
	catalog *config.ModelCatalog
	runtime *Runtime
	log     zerolog.Logger

	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry over catalog
func NewRegistry(catalog *config.ModelCatalog, runtime *Runtime, logger zerolog.Logger) *Registry {
	return &Registry{
		catalog:      catalog,
		runtime:      runtime,
		log:          logger,
		constructors: make(map[string]Constructor),
	}
}

// Register installs the constructor for a model kind
func (r *Registry) Register(kind string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[kind] = ctor
}

// Models lists the selectable model names
func (r *Registry) Models() []string {
	return r.catalog.Names()
}

// Create implements detector.Factory
func (r *Registry) Create(ctx context.Context, req detector.Request) (detector.Detector, error) {
	spec, ok := r.catalog.Lookup(req.Model)
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", detector.ErrModelLoad, req.Model)
	}

	r.mu.RLock()
	ctor, ok := r.constructors[spec.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: model %q: kind %q is not available in this build", detector.ErrModelLoad, req.Model, spec.Kind)
	}

	settings := r.runtime.Settings()
	r.log.Info().
		Str("model", req.Model).
		Str("kind", spec.Kind).
		Str("backend", settings.Backend).
		Int("max_faces", req.MaxFaces).
		Msg("Building detector")

	d, err := ctor(ctx, spec, settings, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", detector.ErrModelLoad, req.Model, err)
	}
	return d, nil
}
