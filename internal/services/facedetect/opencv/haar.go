package opencv

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"facelive-go/internal/config"
	"facelive-go/internal/models"
	"facelive-go/internal/services/detector"
	"facelive-go/internal/services/facedetect"
)

// Haar is a cascade classifier detector. It finds boxes only.
type Haar struct {
	mu       sync.Mutex
	cc       gocv.CascadeClassifier
	maxWidth int
	maxFaces int
	closed   bool
}

// NewHaar loads the cascade named by spec.Path
func NewHaar(_ context.Context, spec config.ModelSpec, settings facedetect.Settings, req detector.Request) (detector.Detector, error) {
	if err := requireFile(spec.Path); err != nil {
		return nil, fmt.Errorf("haar cascade: %w", err)
	}

	cc := gocv.NewCascadeClassifier()
	if !cc.Load(spec.Path) {
		cc.Close()
		return nil, fmt.Errorf("haar cascade: cannot load %s", spec.Path)
	}

	return &Haar{
		cc:       cc,
		maxWidth: settings.InputSize,
		maxFaces: req.MaxFaces,
	}, nil
}

func (h *Haar) EstimateFaces(ctx context.Context, frame models.Frame, opts detector.EstimateOptions) ([]models.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("%w: detector disposed", detector.ErrInference)
	}

	mat, scale, err := frameToMat(frame, h.maxWidth)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	rects := h.cc.DetectMultiScale(gray)
	faces := make([]models.Face, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, models.Face{
			Box: models.Box{
				XMin:   float64(r.Min.X) * scale,
				YMin:   float64(r.Min.Y) * scale,
				Width:  float64(r.Dx()) * scale,
				Height: float64(r.Dy()) * scale,
			},
			// larger detections first when trimming to maxFaces
			Score: float64(r.Dx() * r.Dy()),
		})
	}

	faces = facedetect.TopFaces(faces, h.maxFaces)
	if opts.FlipHorizontal {
		faces = facedetect.Mirror(faces, frame.Width())
	}
	return faces, nil
}

func (h *Haar) Dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.cc.Close()
}
