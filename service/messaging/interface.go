package messaging

import (
	"context"
)

// Vendor names a queue implementation.
type Vendor string

const (
	VendorMemory Vendor = "memory"
	VendorFS     Vendor = "fs"
	VendorNATS   Vendor = "nats"
)

// Queue carries payloads of one type between the publisher of unit
// events and their consumers.
type Queue[T any] interface {
	// Publish adds a payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message. A nil message with a nil error
	// means the queue is currently empty.
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a consumed queue entry.
type Message[T any] interface {
	T() *T

	Ack() error

	// Nack returns the message to the queue until its retries run out.
	Nack(err error) error
}
