package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"facelive-go/internal/config"
	"facelive-go/internal/models"
	"facelive-go/internal/services/detector"
	"facelive-go/internal/services/facedetect"
)

// YuNet output columns: box, five landmarks, score
const yunetColumns = 15

var yunetKeypoints = [5]string{
	models.KeypointRightEye,
	models.KeypointLeftEye,
	models.KeypointNoseTip,
	models.KeypointMouthRight,
	models.KeypointMouthLeft,
}

// YuNet wraps gocv.FaceDetectorYN
type YuNet struct {
	mu       sync.Mutex
	fd       gocv.FaceDetectorYN
	size     image.Point
	maxWidth int
	maxFaces int
	closed   bool
}

// NewYuNet builds a YuNet detector on the backend in settings
func NewYuNet(_ context.Context, spec config.ModelSpec, settings facedetect.Settings, req detector.Request) (detector.Detector, error) {
	if err := requireFile(spec.Path); err != nil {
		return nil, fmt.Errorf("yunet model: %w", err)
	}

	score := firstPositive(settings.ScoreThreshold, spec.ScoreThreshold, 0.9)
	nms := firstPositive(settings.NMSThreshold, spec.NMSThreshold, 0.3)
	topK := int(firstPositive(float64(settings.TopK), float64(spec.TopK), 5000))
	size := image.Pt(max(spec.InputWidth, 1), max(spec.InputHeight, 1))
	backend, target := backendTarget(settings.Backend)

	fd := gocv.NewFaceDetectorYNWithParams(spec.Path, "", size,
		float32(score), float32(nms), topK, int(backend), int(target))

	return &YuNet{
		fd:       fd,
		size:     size,
		maxWidth: settings.InputSize,
		maxFaces: req.MaxFaces,
	}, nil
}

func (y *YuNet) EstimateFaces(ctx context.Context, frame models.Frame, opts detector.EstimateOptions) ([]models.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, nil
	}

	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return nil, fmt.Errorf("%w: detector disposed", detector.ErrInference)
	}

	mat, scale, err := frameToMat(frame, y.maxWidth)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if sz := image.Pt(mat.Cols(), mat.Rows()); sz != y.size {
		y.fd.SetInputSize(sz)
		y.size = sz
	}

	out := gocv.NewMat()
	defer out.Close()
	y.fd.Detect(mat, &out)

	faces := make([]models.Face, 0, out.Rows())
	for r := 0; r < out.Rows(); r++ {
		if out.Cols() < yunetColumns {
			break
		}
		at := func(c int) float64 { return float64(out.GetFloatAt(r, c)) * scale }

		f := models.Face{
			Box: models.Box{
				XMin:   at(0),
				YMin:   at(1),
				Width:  at(2),
				Height: at(3),
			},
			Score:     float64(out.GetFloatAt(r, 14)),
			Keypoints: make([]models.Keypoint, 0, len(yunetKeypoints)),
		}
		for i, name := range yunetKeypoints {
			f.Keypoints = append(f.Keypoints, models.Keypoint{
				Name: name,
				X:    at(4 + 2*i),
				Y:    at(5 + 2*i),
			})
		}
		faces = append(faces, f)
	}

	faces = facedetect.TopFaces(faces, y.maxFaces)
	if opts.FlipHorizontal {
		faces = facedetect.Mirror(faces, frame.Width())
	}
	return faces, nil
}

func (y *YuNet) Dispose() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return nil
	}
	y.closed = true
	y.fd.Close()
	return nil
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
