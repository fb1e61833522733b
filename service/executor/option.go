package executor

import (
	"time"

	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/graph"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/event"
)

// Option customises the executor.
type Option func(*Service)

// WithStore sets the action execution store.
func WithStore(store dao.Service[string, execution.Action]) Option {
	return func(s *Service) { s.actions = store }
}

// WithEvents emits a unit event per action run.
func WithEvents(events *event.Service) Option {
	return func(s *Service) { s.events = events }
}

// WithDefaultTimeout sets the per-call timeout used when neither the node nor
// the catalog action defines one.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.timeout = timeout }
}

// RunOption carries per-run overrides from the calling node.
type RunOption func(*run)

type run struct {
	executionID string
	nodeID      string
	retry       *graph.Retry
	timeout     time.Duration
}

// WithNode records the calling execution and node on the action record.
func WithNode(executionID, nodeID string) RunOption {
	return func(r *run) {
		r.executionID = executionID
		r.nodeID = nodeID
	}
}

// WithRetry overrides the catalog retry policy.
func WithRetry(retry *graph.Retry) RunOption {
	return func(r *run) {
		if retry != nil {
			r.retry = retry
		}
	}
}

// WithTimeout overrides the catalog per-call timeout.
func WithTimeout(timeout time.Duration) RunOption {
	return func(r *run) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}
