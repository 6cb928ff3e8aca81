package models

import (
	"fmt"
	"image"
	"strconv"
	"time"
)

// CameraParams describes the capture a camera source must provide
type CameraParams struct {
	DeviceID  string `json:"device_id"`  // Numeric index for local devices, otherwise a URL or path
	Width     int    `json:"width"`      // Requested frame width in pixels
	Height    int    `json:"height"`     // Requested frame height in pixels
	TargetFPS int    `json:"target_fps"` // Requested capture rate
}

// DeviceIndex returns the numeric device index when DeviceID names a local device
func (p CameraParams) DeviceIndex() (int, bool) {
	idx, err := strconv.Atoi(p.DeviceID)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// SizeOption renders the resolution the way the control panel shows it
func (p CameraParams) SizeOption() string {
	return fmt.Sprintf("%d X %d", p.Width, p.Height)
}

// Validate checks that the params can be requested from a device
func (p CameraParams) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid camera size %dx%d", p.Width, p.Height)
	}
	if p.TargetFPS <= 0 {
		return fmt.Errorf("invalid camera target fps %d", p.TargetFPS)
	}
	return nil
}

// Frame is a single captured video frame
type Frame struct {
	Image      *image.RGBA
	Seq        int64
	CapturedAt time.Time
}

// Empty reports whether the frame carries no pixels
func (f Frame) Empty() bool {
	return f.Image == nil || f.Image.Bounds().Empty()
}

// Width returns the frame width in pixels
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// CameraInfo is the API view of the active camera
type CameraInfo struct {
	HandleID   string       `json:"handle_id,omitempty"`
	Params     CameraParams `json:"params"`
	Ready      bool         `json:"ready"`
	Acquired   bool         `json:"acquired"`
	Opens      int64        `json:"opens"`
	Releases   int64        `json:"releases"`
	LastError  string       `json:"last_error,omitempty"`
	LastFrame  time.Time    `json:"last_frame"`
	FrameCount int64        `json:"frame_count"`
}
