package messaging

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facelive-go/internal/models"
	"facelive-go/internal/services/notify"
	"facelive-go/internal/services/stats"
	"facelive-go/internal/state"
)

type published struct {
	subject string
	data    []byte
}

type fakeSub struct{ unsubscribed bool }

func (s *fakeSub) Unsubscribe() error {
	s.unsubscribed = true
	return nil
}

type fakeConn struct {
	published []published
	handlers  map[string]func([]byte) []byte
	subs      []*fakeSub
	subErr    error
}

func (c *fakeConn) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.published = append(c.published, published{subject: subject, data: payload})
	return nil
}

func (c *fakeConn) Subscribe(subject string, handler func([]byte) []byte) (Subscription, error) {
	if c.subErr != nil {
		return nil, c.subErr
	}
	if c.handlers == nil {
		c.handlers = map[string]func([]byte) []byte{}
	}
	c.handlers[subject] = handler
	sub := &fakeSub{}
	c.subs = append(c.subs, sub)
	return sub, nil
}

func newState() *state.State {
	st := state.New(state.Snapshot{
		TargetModel: "yunet",
		Backend:     "opencv-cpu",
		Camera:      models.CameraParams{DeviceID: "0", Width: 640, Height: 480, TargetFPS: 30},
		ModelConfig: state.ModelConfig{MaxFaces: 1},
	})
	_, cs := st.Observe()
	st.Consume(cs)
	return st
}

func TestBridge_PublishesReportsAndNotifications(t *testing.T) {
	conn := &fakeConn{}
	b := NewBridge(conn, newState(), "lab", "facelive-1", zerolog.Nop())

	b.Report(stats.Report{FPS: 50, Max: 120, Samples: 30, Mean: 20 * time.Millisecond})
	b.Deliver(notify.Notification{ID: "n1", Kind: notify.KindCamera, Message: "denied"})

	require.Len(t, conn.published, 2)
	assert.Equal(t, "lab.fps", conn.published[0].subject)
	assert.Equal(t, "lab.notifications", conn.published[1].subject)

	var fps FPSMessage
	require.NoError(t, json.Unmarshal(conn.published[0].data, &fps))
	assert.Equal(t, "facelive-1", fps.Instance)
	assert.Equal(t, 50.0, fps.FPS)
	assert.Equal(t, 20.0, fps.MeanMs)

	var n notify.Notification
	require.NoError(t, json.Unmarshal(conn.published[1].data, &n))
	assert.Equal(t, notify.KindCamera, n.Kind)
}

func TestBridge_ControlRequests(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantOK      bool
		wantChanges []string
		wantErr     string
	}{
		{
			name:        "model and camera",
			payload:     `{"model":"haar","camera":{"width":1280,"height":720}}`,
			wantOK:      true,
			wantChanges: []string{"model", "camera_size"},
		},
		{
			name:        "flags",
			payload:     `{"flags":{"score_threshold":0.8}}`,
			wantOK:      true,
			wantChanges: []string{"flags"},
		},
		{
			name:    "invalid json",
			payload: `{"model":`,
			wantErr: "invalid control request",
		},
		{
			name:    "invalid value",
			payload: `{"camera":{"width":-1}}`,
			wantErr: "invalid configuration value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{}
			st := newState()
			b := NewBridge(conn, st, "", "facelive-1", zerolog.Nop())
			require.NoError(t, b.Start())

			handler, ok := conn.handlers["facelive.control"]
			require.True(t, ok)

			var reply ControlReply
			require.NoError(t, json.Unmarshal(handler([]byte(tt.payload)), &reply))

			assert.Equal(t, tt.wantOK, reply.OK)
			if tt.wantOK {
				assert.ElementsMatch(t, tt.wantChanges, reply.Changes)
				assert.False(t, st.Pending().Empty())
			} else {
				assert.Contains(t, reply.Error, tt.wantErr)
				assert.True(t, st.Pending().Empty())
			}
		})
	}
}

func TestBridge_StartAndClose(t *testing.T) {
	conn := &fakeConn{subErr: errors.New("not connected")}
	b := NewBridge(conn, newState(), "", "", zerolog.Nop())
	assert.Error(t, b.Start())

	conn.subErr = nil
	require.NoError(t, b.Start())
	require.NoError(t, b.Close())
	require.Len(t, conn.subs, 1)
	assert.True(t, conn.subs[0].unsubscribed)
	assert.NoError(t, b.Close())
}
