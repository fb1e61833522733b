// Package nats publishes queue payloads as JSON on a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/viant/opsagent/service/messaging"
)

// Config for the NATS queue.
type Config struct {
	URL     string
	Subject string
	Buffer  int
	Timeout time.Duration
}

// DefaultConfig returns a config for the given subject on the default server.
func DefaultConfig(subject string) Config {
	return Config{URL: nats.DefaultURL, Subject: subject, Buffer: 1024, Timeout: 5 * time.Second}
}

// Message wraps a received NATS message. Core NATS has no redelivery, so
// Nack only reports the failure.
type Message[T any] struct {
	payload T
}

// T returns the decoded payload.
func (m *Message[T]) T() *T { return &m.payload }

// Ack is a no-op.
func (m *Message[T]) Ack() error { return nil }

// Nack is a no-op.
func (m *Message[T]) Nack(err error) error { return nil }

// Queue is a messaging.Queue over a NATS subject.
type Queue[T any] struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	messages chan *nats.Msg
	subject  string
}

// NewQueue connects and subscribes to config.Subject.
func NewQueue[T any](config Config) (*Queue[T], error) {
	if config.Subject == "" {
		return nil, fmt.Errorf("nats subject was empty")
	}
	if config.URL == "" {
		config.URL = nats.DefaultURL
	}
	if config.Buffer <= 0 {
		config.Buffer = 1024
	}
	options := []nats.Option{nats.Name("opsagent")}
	if config.Timeout > 0 {
		options = append(options, nats.Timeout(config.Timeout))
	}
	conn, err := nats.Connect(config.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", config.URL, err)
	}
	q := &Queue[T]{conn: conn, subject: config.Subject, messages: make(chan *nats.Msg, config.Buffer)}
	if q.sub, err = conn.ChanSubscribe(config.Subject, q.messages); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", config.Subject, err)
	}
	return q, nil
}

// Publish encodes the payload as JSON and publishes it.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return q.conn.Publish(q.subject, data)
}

// Consume waits for the next message on the subject.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		message := &Message[T]{}
		if err := json.Unmarshal(msg.Data, &message.payload); err != nil {
			return nil, fmt.Errorf("failed to decode message on %s: %w", msg.Subject, err)
		}
		return message, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close drains the subscription and closes the connection.
func (q *Queue[T]) Close() error {
	if q.sub != nil {
		_ = q.sub.Unsubscribe()
	}
	return q.conn.Drain()
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
