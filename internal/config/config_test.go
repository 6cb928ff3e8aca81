package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NATS_URL", "nats://example:4222")

	cfg := Load()

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "yunet", cfg.Model)
	assert.Equal(t, "opencv-cpu", cfg.Backend)
	assert.Equal(t, 640, cfg.CameraWidth)
	assert.Equal(t, 480, cfg.CameraHeight)
	assert.Equal(t, 60, cfg.CameraTargetFPS)
	assert.Equal(t, time.Second, cfg.StatsInterval)
	assert.Equal(t, 120.0, cfg.StatsMaxFPS)
	assert.Equal(t, "nats://example:4222", cfg.NatsURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("CAMERA_DEVICE", "rtsp://cam/stream")
	t.Setenv("STATS_INTERVAL", "500ms")
	t.Setenv("STATS_MAX_FPS", "60")
	t.Setenv("SHOW_FPS", "false")
	t.Setenv("INITIAL_QUERY", "?model=haar")
	t.Setenv("MAX_FACES", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "rtsp://cam/stream", cfg.CameraDevice)
	assert.Equal(t, 500*time.Millisecond, cfg.StatsInterval)
	assert.Equal(t, 60.0, cfg.StatsMaxFPS)
	assert.False(t, cfg.ShowFPS)
	assert.Equal(t, "model=haar", cfg.InitialQuery)
	assert.Equal(t, 1, cfg.MaxFaces, "invalid values fall back to the default")
}

func TestLoadModelCatalog(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cat, err := LoadModelCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, []string{"haar", "remote", "yunet"}, cat.Names())
	})

	t.Run("custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "models.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
models:
  yunet-small:
    kind: yunet
    path: /opt/models/yunet.onnx
    input_width: 160
    input_height: 120
    score_threshold: 0.8
  cloud:
    kind: remote
    endpoint: detector:50052
`), 0o644))

		cat, err := LoadModelCatalog(path)
		require.NoError(t, err)

		spec, ok := cat.Lookup("yunet-small")
		require.True(t, ok)
		assert.Equal(t, KindYuNet, spec.Kind)
		assert.Equal(t, 160, spec.InputWidth)
		assert.Equal(t, 0.8, spec.ScoreThreshold)

		spec, ok = cat.Lookup("cloud")
		require.True(t, ok)
		assert.Equal(t, "detector:50052", spec.Endpoint)
	})

	t.Run("invalid entries", func(t *testing.T) {
		tests := map[string]string{
			"unknown kind": "models:\n  x:\n    kind: mesh\n",
			"missing path": "models:\n  x:\n    kind: haar\n",
			"empty":        "models: {}\n",
			"bad yaml":     "models: [\n",
		}
		for name, body := range tests {
			t.Run(name, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "models.yaml")
				require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

				_, err := LoadModelCatalog(path)
				assert.Error(t, err)
			})
		}
	})
}
