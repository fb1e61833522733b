package dispatcher

import (
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/event"
)

// Option customises the dispatcher.
type Option func(*Service)

// WithTaskDAO sets the task store.
func WithTaskDAO(store dao.Service[string, model.Task]) Option {
	return func(s *Service) {
		s.tasks = store
	}
}

// WithEvents emits task unit events.
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}
