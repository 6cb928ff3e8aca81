package state

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CameraUpdate carries optional camera changes
type CameraUpdate struct {
	DeviceID  *string `json:"device_id,omitempty"`
	Width     *int    `json:"width,omitempty"`
	Height    *int    `json:"height,omitempty"`
	TargetFPS *int    `json:"target_fps,omitempty"`
}

// DisplayUpdate carries overlay options
type DisplayUpdate struct {
	BoundingBox     *bool `json:"bounding_box,omitempty"`
	TriangulateMesh *bool `json:"triangulate_mesh,omitempty"`
}

// DetectionUpdate carries options the detector is built with
type DetectionUpdate struct {
	MaxFaces        *int  `json:"max_faces,omitempty"`
	RefineLandmarks *bool `json:"refine_landmarks,omitempty"`
}

// ControlRequest is what the HTTP and NATS control surfaces submit
type ControlRequest struct {
	Model     *string          `json:"model,omitempty"`
	Backend   *string          `json:"backend,omitempty"`
	Flags     map[string]any   `json:"flags,omitempty"`
	Camera    *CameraUpdate    `json:"camera,omitempty"`
	Display   *DisplayUpdate   `json:"display,omitempty"`
	Detection *DetectionUpdate `json:"detection,omitempty"`
}

// Apply validates the whole request and then applies it under one lock,
// so a rejected request changes nothing. It returns the tags raised.
func (s *State) Apply(req ControlRequest) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.clone()
	if req.Model != nil {
		next.TargetModel = strings.TrimSpace(*req.Model)
		if next.TargetModel == "" {
			return 0, fmt.Errorf("%w: empty model name", ErrInvalidValue)
		}
	}
	if req.Backend != nil {
		next.Backend = strings.TrimSpace(*req.Backend)
		if next.Backend == "" {
			return 0, fmt.Errorf("%w: empty backend name", ErrInvalidValue)
		}
	}
	for name := range req.Flags {
		if strings.TrimSpace(name) == "" {
			return 0, fmt.Errorf("%w: empty flag name", ErrInvalidValue)
		}
	}
	if cu := req.Camera; cu != nil {
		if cu.DeviceID != nil {
			next.Camera.DeviceID = strings.TrimSpace(*cu.DeviceID)
			if next.Camera.DeviceID == "" {
				return 0, fmt.Errorf("%w: empty device id", ErrInvalidValue)
			}
		}
		if cu.Width != nil {
			next.Camera.Width = *cu.Width
		}
		if cu.Height != nil {
			next.Camera.Height = *cu.Height
		}
		if cu.TargetFPS != nil {
			next.Camera.TargetFPS = *cu.TargetFPS
		}
		if err := next.Camera.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}
	if du := req.Detection; du != nil {
		if du.MaxFaces != nil {
			if *du.MaxFaces <= 0 {
				return 0, fmt.Errorf("%w: max faces %d", ErrInvalidValue, *du.MaxFaces)
			}
			next.ModelConfig.MaxFaces = *du.MaxFaces
		}
		if du.RefineLandmarks != nil {
			next.ModelConfig.RefineLandmarks = *du.RefineLandmarks
		}
	}
	if dp := req.Display; dp != nil {
		if dp.BoundingBox != nil {
			next.ModelConfig.BoundingBox = *dp.BoundingBox
		}
		if dp.TriangulateMesh != nil {
			next.ModelConfig.TriangulateMesh = *dp.TriangulateMesh
		}
	}

	seqBefore := s.seq

	if next.TargetModel != s.cur.TargetModel ||
		next.ModelConfig.MaxFaces != s.cur.ModelConfig.MaxFaces ||
		next.ModelConfig.RefineLandmarks != s.cur.ModelConfig.RefineLandmarks {
		s.mark(ModelChanged)
	}
	if next.Backend != s.cur.Backend {
		s.mark(BackendChanged)
	}
	if next.Camera.TargetFPS != s.cur.Camera.TargetFPS {
		s.mark(CameraTargetFPSChanged)
	}
	if next.Camera.Width != s.cur.Camera.Width ||
		next.Camera.Height != s.cur.Camera.Height ||
		next.Camera.DeviceID != s.cur.Camera.DeviceID {
		s.mark(CameraSizeChanged)
	}

	flags := s.cur.Flags
	s.cur = next
	s.cur.Flags = flags
	s.setFlagsLocked(req.Flags)

	var raised Change
	for i := 0; i < numChanges; i++ {
		if s.seq[i] != seqBefore[i] {
			raised |= Change(1 << i)
		}
	}
	return raised, nil
}

// ApplyQuery reads the initial model and backend from URL query
// parameters, e.g. "?model=yunet&backend=opencv-cpu".
func (s *State) ApplyQuery(values url.Values) (Change, error) {
	var req ControlRequest
	if v := values.Get("model"); v != "" {
		req.Model = &v
	}
	if v := values.Get("backend"); v != "" {
		req.Backend = &v
	}
	if v := values.Get("maxFaces"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: maxFaces %q", ErrInvalidValue, v)
		}
		req.Detection = &DetectionUpdate{MaxFaces: &n}
	}
	return s.Apply(req)
}
