package models

import "math"

// Keypoint names produced by the five-point face detectors
const (
	KeypointRightEye   = "rightEye"
	KeypointLeftEye    = "leftEye"
	KeypointNoseTip    = "noseTip"
	KeypointMouthRight = "mouthRight"
	KeypointMouthLeft  = "mouthLeft"
)

// Keypoint is a named landmark in frame pixel coordinates
type Keypoint struct {
	Name string   `json:"name,omitempty"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Z    *float64 `json:"z,omitempty"` // Only set by models that estimate depth
}

// Box is an axis aligned face bounding box in pixels
type Box struct {
	XMin   float64 `json:"x_min"`
	YMin   float64 `json:"y_min"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// XMax returns the right edge of the box
func (b Box) XMax() float64 { return b.XMin + b.Width }

// YMax returns the bottom edge of the box
func (b Box) YMax() float64 { return b.YMin + b.Height }

// Face is one detected face
type Face struct {
	Box       Box        `json:"box"`
	Score     float64    `json:"score"`
	Keypoints []Keypoint `json:"keypoints"`
}

// Keypoint looks up a landmark by name
func (f Face) Keypoint(name string) (Keypoint, bool) {
	for _, kp := range f.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Valid reports whether the face can be drawn. Every coordinate must be
// finite, including the box edges.
func (f Face) Valid() bool {
	if !finite(f.Score, f.Box.XMin, f.Box.YMin, f.Box.Width, f.Box.Height, f.Box.XMax(), f.Box.YMax()) {
		return false
	}
	for _, kp := range f.Keypoints {
		if !finite(kp.X, kp.Y) || kp.Z != nil && !finite(*kp.Z) {
			return false
		}
	}
	return f.Box.Width > 0 && f.Box.Height > 0 || len(f.Keypoints) > 0
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MirrorX flips all coordinates horizontally within a frame of the given width
func (f Face) MirrorX(width float64) Face {
	out := Face{
		Box: Box{
			XMin:   width - f.Box.XMax(),
			YMin:   f.Box.YMin,
			Width:  f.Box.Width,
			Height: f.Box.Height,
		},
		Score:     f.Score,
		Keypoints: make([]Keypoint, len(f.Keypoints)),
	}
	for i, kp := range f.Keypoints {
		kp.X = width - kp.X
		out.Keypoints[i] = kp
	}
	return out
}
