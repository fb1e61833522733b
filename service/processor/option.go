package processor

import (
	"time"

	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/policy"
	"github.com/viant/opsagent/progress"
	"github.com/viant/opsagent/service/approval"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/event"
)

// Option customises the engine.
type Option func(*Service)

// WithExecutionDAO sets the workflow execution store.
func WithExecutionDAO(store dao.Service[string, execution.Workflow]) Option {
	return func(s *Service) {
		s.executions = store
	}
}

// WithApprovalService sets the ledger approval requests are filed with.
func WithApprovalService(approvals approval.Service) Option {
	return func(s *Service) {
		s.approvals = approvals
	}
}

// WithEvents emits node and workflow unit events.
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithApprovalTimeout sets the expiry for approval nodes without a timeout;
// zero means such requests never expire.
func WithApprovalTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.approvalTimeout = timeout
	}
}

// WithMaxDepth limits subgraph nesting.
func WithMaxDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithPolicy sets the action policy used when the request context carries none.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithProgress observes node counters of every top-level run.
func WithProgress(fn func(progress.Snapshot)) Option {
	return func(s *Service) {
		s.onProgress = fn
	}
}
