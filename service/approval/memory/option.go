package memory

import (
	"github.com/viant/opsagent/service/approval"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/messaging"
)

type Option func(*service)

// WithRequestDAO replaces the in-memory request store.
func WithRequestDAO(store dao.Service[string, approval.Request]) Option {
	return func(s *service) { s.requests = store }
}

// WithDecisionDAO replaces the in-memory decision store.
func WithDecisionDAO(store dao.Service[string, approval.Decision]) Option {
	return func(s *service) { s.decisions = store }
}

// WithQueue replaces the event queue.
func WithQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *service) { s.events = queue }
}
