package facedetect

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facelive-go/internal/config"
	"facelive-go/internal/models"
	"facelive-go/internal/services/detector"
)

func TestRuntime_Apply(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		flags   map[string]any
		wantErr bool
		want    Settings
	}{
		{
			name:    "cpu without flags",
			backend: BackendCPU,
			want:    Settings{Backend: BackendCPU},
		},
		{
			name:    "json numbers and bools",
			backend: BackendCUDA,
			flags: map[string]any{
				FlagInputSize:      float64(320),
				FlagScoreThreshold: 0.75,
				FlagNMSThreshold:   "0.4",
				FlagTopK:           100,
				FlagFlipHorizontal: true,
			},
			want: Settings{
				Backend:        BackendCUDA,
				InputSize:      320,
				ScoreThreshold: 0.75,
				NMSThreshold:   0.4,
				TopK:           100,
				FlipHorizontal: true,
			},
		},
		{name: "unknown backend", backend: "webgpu", wantErr: true},
		{name: "unknown flag", backend: BackendCPU, flags: map[string]any{"WEBGL_PACK": true}, wantErr: true},
		{name: "threshold out of range", backend: BackendCPU, flags: map[string]any{FlagScoreThreshold: 1.5}, wantErr: true},
		{name: "fractional input size", backend: BackendCPU, flags: map[string]any{FlagInputSize: 320.5}, wantErr: true},
		{name: "negative top k", backend: BackendCPU, flags: map[string]any{FlagTopK: -1}, wantErr: true},
		{name: "flip not a bool", backend: BackendCPU, flags: map[string]any{FlagFlipHorizontal: 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewRuntime(nil, zerolog.Nop())

			err := rt.Apply(context.Background(), tt.backend, tt.flags)

			if tt.wantErr {
				assert.ErrorIs(t, err, detector.ErrBackend)
				assert.Equal(t, Settings{Backend: BackendCPU}, rt.Settings(), "failed apply must not change settings")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Settings())
		})
	}
}

func TestRuntime_ProbeAndAcceleration(t *testing.T) {
	noGPU := errors.New("no CUDA device")
	rt := NewRuntime(func(backend string) error {
		if backend == BackendCUDA {
			return noGPU
		}
		return nil
	}, zerolog.Nop())
	ctx := context.Background()

	err := rt.Apply(ctx, BackendCUDA, nil)
	assert.ErrorIs(t, err, detector.ErrBackend)
	assert.ErrorIs(t, err, noGPU)
	assert.False(t, rt.Accelerated())

	require.NoError(t, rt.Apply(ctx, BackendOpenCL, map[string]any{FlagFlipHorizontal: "true"}))
	assert.True(t, rt.Accelerated())
	assert.True(t, rt.EstimateOptions().FlipHorizontal)
}

type stubDetector struct{ settings Settings }

func (stubDetector) EstimateFaces(context.Context, models.Frame, detector.EstimateOptions) ([]models.Face, error) {
	return nil, nil
}
func (stubDetector) Dispose() error { return nil }

func TestRegistry_Create(t *testing.T) {
	rt := NewRuntime(nil, zerolog.Nop())
	reg := NewRegistry(config.DefaultCatalog(), rt, zerolog.Nop())

	var gotSpec config.ModelSpec
	var gotReq detector.Request
	reg.Register(config.KindYuNet, func(_ context.Context, spec config.ModelSpec, s Settings, req detector.Request) (detector.Detector, error) {
		gotSpec, gotReq = spec, req
		return stubDetector{settings: s}, nil
	})
	reg.Register(config.KindHaar, func(context.Context, config.ModelSpec, Settings, detector.Request) (detector.Detector, error) {
		return nil, errors.New("cascade file missing")
	})
	ctx := context.Background()

	d, err := reg.Create(ctx, detector.Request{Model: "yunet", MaxFaces: 2})
	require.NoError(t, err)
	assert.Equal(t, BackendCPU, d.(stubDetector).settings.Backend)
	assert.Equal(t, config.KindYuNet, gotSpec.Kind)
	assert.Equal(t, 2, gotReq.MaxFaces)

	_, err = reg.Create(ctx, detector.Request{Model: "haar"})
	assert.ErrorIs(t, err, detector.ErrModelLoad)
	assert.Contains(t, err.Error(), "cascade file missing")

	_, err = reg.Create(ctx, detector.Request{Model: "MediaPipeFaceMesh"})
	assert.ErrorIs(t, err, detector.ErrModelLoad)

	_, err = reg.Create(ctx, detector.Request{Model: "remote"})
	assert.ErrorIs(t, err, detector.ErrModelLoad, "kinds without a constructor cannot be built")

	assert.Equal(t, []string{"haar", "remote", "yunet"}, reg.Models())
}

func TestTopFaces(t *testing.T) {
	faces := []models.Face{
		{Box: models.Box{Width: 10, Height: 10}, Score: 0.5},
		{Score: 0.99},
		{Box: models.Box{Width: 10, Height: 10}, Score: 0.9},
		{Box: models.Box{Width: 10, Height: 10}, Score: 0.7},
	}

	top := TopFaces(faces, 2)

	require.Len(t, top, 2)
	assert.Equal(t, 0.9, top[0].Score)
	assert.Equal(t, 0.7, top[1].Score)
	assert.Len(t, TopFaces(faces, 0), 3)
}

func TestTopFaces_DropsNonFiniteFaces(t *testing.T) {
	faces := []models.Face{
		{Box: models.Box{Width: math.NaN(), Height: 10}, Score: 0.99},
		{Box: models.Box{XMin: math.Inf(1), Width: 10, Height: 10}, Score: 0.98},
		{Keypoints: []models.Keypoint{{Name: models.KeypointNoseTip, X: math.NaN(), Y: 1}}, Score: 0.97},
		{Box: models.Box{Width: 10, Height: 10}, Score: math.NaN()},
		{Box: models.Box{Width: 10, Height: 10}, Score: 0.5},
	}

	top := TopFaces(faces, 0)

	require.Len(t, top, 1)
	assert.Equal(t, 0.5, top[0].Score)
}

func TestMirror(t *testing.T) {
	faces := []models.Face{{
		Box:       models.Box{XMin: 10, YMin: 5, Width: 20, Height: 20},
		Keypoints: []models.Keypoint{{Name: models.KeypointNoseTip, X: 15, Y: 12}},
	}}

	out := Mirror(faces, 100)

	assert.Equal(t, 70.0, out[0].Box.XMin)
	assert.Equal(t, 85.0, out[0].Keypoints[0].X)
	assert.Equal(t, 15.0, faces[0].Keypoints[0].X, "input must not be modified")
}
