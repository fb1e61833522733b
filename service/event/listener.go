package event

import (
	"context"
	"errors"
	"time"

	"github.com/viant/opsagent/internal/logging"
)

const idlePoll = 50 * time.Millisecond

// Listener dispatches consumed events to a handler on its own goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Stop cancels consumption and waits for the loop to exit.
func (l *Listener[T]) Stop() {
	l.cancel()
	<-l.done
}

func (l *Listener[T]) Start() {
	logger := logging.Logger("event")
	go func() {
		defer close(l.done)
		for {
			event, err := l.publisher.Consume(l.ctx)
			if l.ctx.Err() != nil {
				return
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Warn("failed to consume event")
			}
			if event == nil {
				select {
				case <-l.ctx.Done():
					return
				case <-time.After(idlePoll):
				}
				continue
			}
			l.handler(event)
		}
	}()
}
