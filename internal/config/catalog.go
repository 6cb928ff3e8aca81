package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Model kinds understood by the detector registry
const (
	KindYuNet  = "yunet"
	KindHaar   = "haar"
	KindRemote = "remote"
)

// ModelSpec describes one selectable face detection model
type ModelSpec struct {
	Kind           string  `yaml:"kind"`
	Path           string  `yaml:"path,omitempty"`
	Endpoint       string  `yaml:"endpoint,omitempty"`
	InputWidth     int     `yaml:"input_width,omitempty"`
	InputHeight    int     `yaml:"input_height,omitempty"`
	ScoreThreshold float64 `yaml:"score_threshold,omitempty"`
	NMSThreshold   float64 `yaml:"nms_threshold,omitempty"`
	TopK           int     `yaml:"top_k,omitempty"`
	MinNeighbors   int     `yaml:"min_neighbors,omitempty"`
}

// ModelCatalog maps model names to their specs
type ModelCatalog struct {
	Models map[string]ModelSpec `yaml:"models"`
}

// DefaultCatalog is used when no catalog file exists
func DefaultCatalog() *ModelCatalog {
	return &ModelCatalog{Models: map[string]ModelSpec{
		"yunet": {
			Kind:           KindYuNet,
			Path:           "models/face_detection_yunet_2023mar.onnx",
			InputWidth:     320,
			InputHeight:    320,
			ScoreThreshold: 0.9,
			NMSThreshold:   0.3,
			TopK:           5000,
		},
		"haar": {
			Kind:         KindHaar,
			Path:         "models/haarcascade_frontalface_default.xml",
			MinNeighbors: 3,
		},
		"remote": {
			Kind: KindRemote,
		},
	}}
}

// LoadModelCatalog reads the YAML catalog at path. A missing file yields
// the built-in catalog.
func LoadModelCatalog(path string) (*ModelCatalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("Model catalog not found, using built-in models")
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}

	var cat ModelCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse model catalog %s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("model catalog %s: %w", path, err)
	}

	log.Info().Str("path", path).Strs("models", cat.Names()).Msg("Loaded model catalog")
	return &cat, nil
}

// Validate checks every entry has a known kind and what that kind needs
func (c *ModelCatalog) Validate() error {
	if len(c.Models) == 0 {
		return errors.New("no models defined")
	}
	for name, spec := range c.Models {
		switch spec.Kind {
		case KindYuNet, KindHaar:
			if spec.Path == "" {
				return fmt.Errorf("model %q: path is required", name)
			}
		case KindRemote:
		default:
			return fmt.Errorf("model %q: unknown kind %q", name, spec.Kind)
		}
	}
	return nil
}

// Lookup returns the model registered under name
func (c *ModelCatalog) Lookup(name string) (ModelSpec, bool) {
	spec, ok := c.Models[name]
	return spec, ok
}

// Names returns the model names in sorted order
func (c *ModelCatalog) Names() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
