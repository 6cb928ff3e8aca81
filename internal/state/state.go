package state

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"

	"facelive-go/internal/models"
)

var ErrInvalidValue = errors.New("invalid configuration value")

// ModelConfig holds per-model options
type ModelConfig struct {
	MaxFaces        int  `json:"max_faces"`
	RefineLandmarks bool `json:"refine_landmarks"`
	BoundingBox     bool `json:"bounding_box"`
	TriangulateMesh bool `json:"triangulate_mesh"`
}

// Snapshot is a consistent copy of the configuration
type Snapshot struct {
	TargetModel string              `json:"model"`
	Backend     string              `json:"backend"`
	Flags       map[string]any      `json:"flags"`
	Camera      models.CameraParams `json:"camera"`
	ModelConfig ModelConfig         `json:"model_config"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Flags = maps.Clone(s.Flags)
	if out.Flags == nil {
		out.Flags = map[string]any{}
	}
	return out
}

// State is the mutable configuration shared by the control surfaces and
// the frame loop. Every setter raises its change tag under the same lock
// that updates the value; only consumers clear tags.
type State struct {
	mu       sync.Mutex
	cur      Snapshot
	pending  Change
	seq      [numChanges]uint64
	consumed [numChanges]uint64
}

// New creates a state with every tag pending so the first tick acquires
// the camera and builds the detector through the regular change path.
func New(initial Snapshot) *State {
	s := &State{cur: initial.clone()}
	for i := 0; i < numChanges; i++ {
		s.mark(Change(1 << i))
	}
	return s
}

func (s *State) mark(c Change) {
	s.pending |= c
	s.seq[c.index()]++
}

// SetModel selects the detector model
func (s *State) SetModel(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: empty model name", ErrInvalidValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.TargetModel == name {
		return false, nil
	}
	s.cur.TargetModel = name
	s.mark(ModelChanged)
	return true, nil
}

// SetBackend selects the inference backend
func (s *State) SetBackend(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: empty backend name", ErrInvalidValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.Backend == name {
		return false, nil
	}
	s.cur.Backend = name
	s.mark(BackendChanged)
	return true, nil
}

// SetFlag sets one runtime flag
func (s *State) SetFlag(name string, value any) (bool, error) {
	return s.SetFlags(map[string]any{name: value})
}

// SetFlags merges runtime flags. A nil value removes the flag. All
// differences raise a single FlagsChanged tag.
func (s *State) SetFlags(flags map[string]any) (bool, error) {
	for name := range flags {
		if strings.TrimSpace(name) == "" {
			return false, fmt.Errorf("%w: empty flag name", ErrInvalidValue)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setFlagsLocked(flags), nil
}

func (s *State) setFlagsLocked(flags map[string]any) bool {
	if s.cur.Flags == nil {
		s.cur.Flags = map[string]any{}
	}

	changed := false
	for name, value := range flags {
		old, exists := s.cur.Flags[name]
		if value == nil {
			if exists {
				delete(s.cur.Flags, name)
				changed = true
			}
			continue
		}
		if exists && reflect.DeepEqual(old, value) {
			continue
		}
		s.cur.Flags[name] = value
		changed = true
	}
	if changed {
		s.mark(FlagsChanged)
	}
	return changed
}

// SetTargetFPS changes the requested capture rate
func (s *State) SetTargetFPS(fps int) (bool, error) {
	if fps <= 0 {
		return false, fmt.Errorf("%w: target fps %d", ErrInvalidValue, fps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.Camera.TargetFPS == fps {
		return false, nil
	}
	s.cur.Camera.TargetFPS = fps
	s.mark(CameraTargetFPSChanged)
	return true, nil
}

// SetSize changes the requested capture resolution
func (s *State) SetSize(width, height int) (bool, error) {
	if width <= 0 || height <= 0 {
		return false, fmt.Errorf("%w: camera size %dx%d", ErrInvalidValue, width, height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.Camera.Width == width && s.cur.Camera.Height == height {
		return false, nil
	}
	s.cur.Camera.Width = width
	s.cur.Camera.Height = height
	s.mark(CameraSizeChanged)
	return true, nil
}

// SetDevice switches the capture device. It re-acquires the camera the
// same way a size change does.
func (s *State) SetDevice(deviceID string) (bool, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return false, fmt.Errorf("%w: empty device id", ErrInvalidValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.Camera.DeviceID == deviceID {
		return false, nil
	}
	s.cur.Camera.DeviceID = deviceID
	s.mark(CameraSizeChanged)
	return true, nil
}

// SetDetection changes options the detector is built with, so it
// counts as a model change.
func (s *State) SetDetection(maxFaces int, refineLandmarks bool) (bool, error) {
	if maxFaces <= 0 {
		return false, fmt.Errorf("%w: max faces %d", ErrInvalidValue, maxFaces)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mc := &s.cur.ModelConfig
	if mc.MaxFaces == maxFaces && mc.RefineLandmarks == refineLandmarks {
		return false, nil
	}
	mc.MaxFaces = maxFaces
	mc.RefineLandmarks = refineLandmarks
	s.mark(ModelChanged)
	return true, nil
}

// SetDisplay changes overlay options. They are read on every render and
// need no reconfiguration.
func (s *State) SetDisplay(boundingBox, triangulateMesh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.ModelConfig.BoundingBox = boundingBox
	s.cur.ModelConfig.TriangulateMesh = triangulateMesh
}

// Snapshot returns a copy of the current configuration
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// Pending returns the tags not yet consumed
func (s *State) Pending() ChangeSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *State) pendingLocked() ChangeSet {
	return ChangeSet{mask: s.pending, seq: s.seq}
}

// Observe returns the configuration together with the tags pending for it
func (s *State) Observe() (Snapshot, ChangeSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone(), s.pendingLocked()
}

// InProgress reports whether any of the given tags is still pending
func (s *State) InProgress(c Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending&c != 0
}

// Consume clears the tags of an earlier observation. A tag raised again
// after the observation stays pending. It returns the tags cleared.
func (s *State) Consume(cs ChangeSet) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared Change
	for i := 0; i < numChanges; i++ {
		c := Change(1 << i)
		if cs.mask&c == 0 || s.pending&c == 0 {
			continue
		}
		if s.seq[i] != cs.seq[i] {
			continue
		}
		s.pending &^= c
		s.consumed[i]++
		cleared |= c
	}
	return cleared
}

// Consumed returns how many times a single tag has been cleared
func (s *State) Consumed(c Change) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed[c.index()]
}
