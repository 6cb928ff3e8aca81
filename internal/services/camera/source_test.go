package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facelive-go/internal/models"
)

type fakeHandle struct {
	id     string
	params models.CameraParams
	rig    *fakeRig
	closed bool
	err    error
}

func (h *fakeHandle) ID() string { return h.id }
func (h *fakeHandle) Params() models.CameraParams { return h.params }
func (h *fakeHandle) Ready() bool { return true }
func (h *fakeHandle) WaitReady(ctx context.Context) error { return ctx.Err() }
func (h *fakeHandle) Err() error { return h.err }
func (h *fakeHandle) Frame() (models.Frame, bool) {
	if h.err != nil {
		return models.Frame{}, false
	}
	return models.Frame{Image: image.NewRGBA(image.Rect(0, 0, h.params.Width, h.params.Height)), Seq: 7}, true
}

func (h *fakeHandle) Close() error {
	h.rig.mu.Lock()
	defer h.rig.mu.Unlock()
	h.closed = true
	h.rig.live--
	h.rig.events = append(h.rig.events, "close "+h.id)
	return nil
}

type fakeRig struct {
	mu      sync.Mutex
	opens   int
	live    int
	maxLive int
	fail    error
	events  []string
}

func (r *fakeRig) Open(_ context.Context, p models.CameraParams) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	r.opens++
	r.live++
	r.maxLive = max(r.maxLive, r.live)
	id := fmt.Sprintf("cam-%d", r.opens)
	r.events = append(r.events, "open "+id)
	return &fakeHandle{id: id, params: p, rig: r}, nil
}

var params640 = models.CameraParams{DeviceID: "0", Width: 640, Height: 480, TargetFPS: 30}

func TestSource_SetupReleasesBeforeOpening(t *testing.T) {
	rig := &fakeRig{}
	src := NewSource(rig, zerolog.Nop())

	require.NoError(t, src.Setup(context.Background(), params640))
	p2 := params640
	p2.Width, p2.Height = 1280, 720
	require.NoError(t, src.Setup(context.Background(), p2))

	assert.Equal(t, []string{"open cam-1", "close cam-1", "open cam-2"}, rig.events)
	assert.Equal(t, 1, rig.maxLive)

	h, ok := src.Current()
	require.True(t, ok)
	assert.Equal(t, 1280, h.Params().Width)

	info := src.Info()
	assert.True(t, info.Acquired)
	assert.Equal(t, "cam-2", info.HandleID)
	assert.Equal(t, int64(2), info.Opens)
	assert.Equal(t, int64(1), info.Releases)
	assert.Equal(t, int64(7), info.FrameCount)
}

func TestSource_SetupFailureWrapsUnavailable(t *testing.T) {
	denied := errors.New("permission denied")
	rig := &fakeRig{}
	src := NewSource(rig, zerolog.Nop())
	require.NoError(t, src.Setup(context.Background(), params640))

	rig.fail = denied
	err := src.Setup(context.Background(), params640)

	assert.ErrorIs(t, err, ErrCameraUnavailable)
	assert.ErrorIs(t, err, denied)
	_, ok := src.Current()
	assert.False(t, ok)
	assert.Zero(t, rig.live)

	info := src.Info()
	assert.False(t, info.Acquired)
	assert.Contains(t, info.LastError, "permission denied")
}

func TestSource_InfoReportsStoppedCapture(t *testing.T) {
	rig := &fakeRig{}
	src := NewSource(rig, zerolog.Nop())
	require.NoError(t, src.Setup(context.Background(), params640))

	h, ok := src.Current()
	require.True(t, ok)
	h.(*fakeHandle).err = fmt.Errorf("%w: 10 consecutive read errors", ErrCameraUnavailable)

	info := src.Info()
	assert.True(t, info.Acquired)
	assert.False(t, info.Ready)
	assert.Contains(t, info.LastError, "consecutive read errors")
	assert.Zero(t, info.FrameCount)
}

func TestSource_InvalidParams(t *testing.T) {
	rig := &fakeRig{}
	src := NewSource(rig, zerolog.Nop())

	err := src.Setup(context.Background(), models.CameraParams{DeviceID: "0"})

	assert.ErrorIs(t, err, ErrCameraUnavailable)
	assert.Zero(t, rig.opens)
}

func TestSource_Close(t *testing.T) {
	rig := &fakeRig{}
	src := NewSource(rig, zerolog.Nop())
	require.NoError(t, src.Setup(context.Background(), params640))

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	assert.Zero(t, rig.live)
}
