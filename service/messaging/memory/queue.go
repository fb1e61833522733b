package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/opsagent/service/messaging"
)

// ErrProcessed is returned on a second Ack or Nack.
var ErrProcessed = errors.New("message already processed")

// Config for the memory queue.
type Config struct {
	QueueBuffer int
	MaxRetries  int
	RetryDelay  time.Duration
	// DropWhenFull makes Publish discard the payload instead of blocking
	// when the buffer is full.
	DropWhenFull bool
}

// DefaultConfig returns the configuration used for unit events.
func DefaultConfig() Config {
	return Config{
		QueueBuffer:  1024,
		MaxRetries:   3,
		RetryDelay:   100 * time.Millisecond,
		DropWhenFull: true,
	}
}

// Message is an in-memory queue entry.
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	retries   int
	mu        sync.Mutex
	processed bool
}

// ID returns the message id.
func (m *Message[T]) ID() string { return m.id }

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack marks the message processed.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	return nil
}

// Nack requeues the message after RetryDelay, or moves it to the dead letter
// list once MaxRetries is exceeded.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	if m.retries >= m.queue.config.MaxRetries {
		m.queue.mu.Lock()
		m.queue.dead = append(m.queue.dead, m)
		m.queue.mu.Unlock()
		return nil
	}
	retry := &Message[T]{id: m.id, payload: m.payload, queue: m.queue, retries: m.retries + 1}
	time.AfterFunc(m.queue.config.RetryDelay, func() {
		select {
		case m.queue.messages <- retry:
		default:
			m.queue.drop()
		}
	})
	return nil
}

// Queue is a buffered in-memory messaging.Queue.
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	mu       sync.Mutex
	dead     []*Message[T]
	dropped  int
}

// NewQueue creates a memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a payload.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &Message[T]{id: uuid.New().String(), payload: *t, queue: q}
	if q.config.DropWhenFull {
		select {
		case q.messages <- msg:
		default:
			q.drop()
		}
		return nil
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until a message is available or ctx is done.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) drop() {
	q.mu.Lock()
	q.dropped++
	q.mu.Unlock()
}

// Size returns the number of buffered messages.
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// Dropped returns how many payloads were discarded on a full buffer.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// DeadLetters returns the number of messages that exhausted their retries.
func (q *Queue[T]) DeadLetters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
