package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unit struct {
	ID     string
	Status string
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[unit](DefaultConfig())
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &unit{ID: "wfx-1", Status: "success"}))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wfx-1", message.T().ID)
	assert.Equal(t, 0, queue.Size())
	assert.NoError(t, message.Ack())
	assert.ErrorIs(t, message.Ack(), ErrProcessed)
	assert.ErrorIs(t, message.Nack(nil), ErrProcessed)
}

func TestQueue_Full(t *testing.T) {
	testCases := []struct {
		description  string
		dropWhenFull bool
		expectErr    bool
		expectDrops  int
	}{
		{description: "drop when full", dropWhenFull: true, expectDrops: 1},
		{description: "block until deadline", dropWhenFull: false, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			queue := NewQueue[unit](Config{QueueBuffer: 1, DropWhenFull: testCase.dropWhenFull})
			require.NoError(t, queue.Publish(context.Background(), &unit{ID: "1"}))
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := queue.Publish(ctx, &unit{ID: "2"})
			if testCase.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, testCase.expectDrops, queue.Dropped())
			assert.Equal(t, 1, queue.Size())
		})
	}
}

func TestQueue_Nack(t *testing.T) {
	queue := NewQueue[unit](Config{QueueBuffer: 4, MaxRetries: 1, RetryDelay: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, queue.Publish(ctx, &unit{ID: "act-1"}))

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, message.Nack(nil))

	retried, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "act-1", retried.T().ID)
	require.NoError(t, retried.Nack(nil))

	assert.Eventually(t, func() bool { return queue.DeadLetters() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, queue.Size())
}
