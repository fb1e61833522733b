package local

import "time"

// Option configures the adapter.
type Option func(*Adapter)

// WithFailures makes the next count calls of toolID fail; a negative count fails every call.
func WithFailures(toolID string, count int) Option {
	return func(a *Adapter) {
		a.failures[toolID] = count
	}
}

// WithLatency delays every call, honouring the context deadline.
func WithLatency(latency time.Duration) Option {
	return func(a *Adapter) {
		a.latency = latency
	}
}
