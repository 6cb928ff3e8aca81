package notify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkFunc func(Notification)

func (f sinkFunc) Deliver(n Notification) { f(n) }

func TestCenter_NotifyRecordsAndForwards(t *testing.T) {
	var delivered []Notification
	c := NewCenter(zerolog.Nop(), 10, sinkFunc(func(n Notification) {
		delivered = append(delivered, n)
	}))

	c.Notify(KindCamera, errors.New("permission denied"))
	c.Notify(KindInference, nil)

	history := c.History()
	require.Len(t, history, 1)
	assert.Equal(t, KindCamera, history[0].Kind)
	assert.Equal(t, "permission denied", history[0].Message)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, history, delivered)
	assert.Equal(t, int64(1), c.Count(KindCamera))
	assert.Zero(t, c.Count(KindInference))
}

func TestCenter_HistoryIsBounded(t *testing.T) {
	c := NewCenter(zerolog.Nop(), 3)

	for i := 0; i < 5; i++ {
		c.Notify(KindModelLoad, fmt.Errorf("load %d", i))
	}

	history := c.History()
	require.Len(t, history, 3)
	assert.Equal(t, "load 2", history[0].Message)
	assert.Equal(t, "load 4", history[2].Message)
	assert.Equal(t, int64(5), c.Count(KindModelLoad))
}

func TestCenter_AddSink(t *testing.T) {
	c := NewCenter(zerolog.Nop(), 0)
	calls := 0
	c.AddSink(nil)
	c.AddSink(sinkFunc(func(Notification) { calls++ }))

	c.Publish(KindInfo, "detector ready")

	assert.Equal(t, 1, calls)
}
