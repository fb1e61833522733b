package planner

import (
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/event"
)

// Option customises the planner.
type Option func(*Service)

// WithSessionDAO sets the session store.
func WithSessionDAO(store dao.Service[string, model.Session]) Option {
	return func(s *Service) {
		s.sessions = store
	}
}

// WithEvents emits session unit events.
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithExecutions lets summaries report per-workflow node counts.
func WithExecutions(executions Executions) Option {
	return func(s *Service) {
		s.executions = executions
	}
}
