package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unit struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestQueue(t *testing.T) {
	URL := os.Getenv("OPSAGENT_TEST_NATS")
	if URL == "" {
		t.Skip("OPSAGENT_TEST_NATS not set")
	}
	config := DefaultConfig("opsagent.test." + time.Now().Format("150405.000000"))
	config.URL = URL
	queue, err := NewQueue[unit](config)
	require.NoError(t, err)
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, queue.Publish(ctx, &unit{ID: "ses-1", Status: "success"}))
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ses-1", message.T().ID)
	assert.NoError(t, message.Ack())
}

func TestNewQueue_Validation(t *testing.T) {
	_, err := NewQueue[unit](Config{})
	assert.Error(t, err)
}
