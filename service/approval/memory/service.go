package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/service/approval"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/store"
	"github.com/viant/opsagent/service/messaging"
	qmem "github.com/viant/opsagent/service/messaging/memory"
)

// Requests accessor.
var Requests = &dao.Accessor[string, approval.Request]{
	Key:   func(r *approval.Request) string { return r.ID },
	Clone: func(r *approval.Request) *approval.Request { return r.Clone() },
	Less:  func(a, b *approval.Request) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// Decisions accessor.
var Decisions = &dao.Accessor[string, approval.Decision]{
	Key: func(d *approval.Decision) string { return d.ID },
	Clone: func(d *approval.Decision) *approval.Decision {
		ret := *d
		return &ret
	},
}

type service struct {
	requests  dao.Service[string, approval.Request]
	decisions dao.Service[string, approval.Decision]
	events    messaging.Queue[approval.Event]
	mux       sync.Mutex
}

// New creates an approval ledger backed by memory stores unless overridden.
func New(options ...Option) approval.Service {
	ret := &service{
		requests:  store.NewMemoryStore(Requests),
		decisions: store.NewMemoryStore(Decisions),
		events:    qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil || r.ID == "" {
		return errors.New("invalid approval request")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = clock.Now()
	}
	if err := s.requests.Save(ctx, r); err != nil {
		return err
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: r.Clone()})
	return nil
}

func (s *service) Request(ctx context.Context, id string) (*approval.Request, error) {
	ret, err := s.requests.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", approval.ErrNotFound, id)
	}
	return ret, err
}

func (s *service) Decision(ctx context.Context, id string) (*approval.Decision, error) {
	ret, err := s.decisions.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", approval.ErrNotFound, id)
	}
	return ret, err
}

func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	all, err := s.requests.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if d, _ := s.decisions.Load(ctx, r.ID); d == nil {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (s *service) Decide(ctx context.Context, id string, approved bool, approver, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, errors.New("empty approval request id")
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, err := s.Request(ctx, id); err != nil {
		return nil, err
	}
	if d, _ := s.decisions.Load(ctx, id); d != nil {
		return d, fmt.Errorf("%w: %s", approval.ErrDecided, id)
	}
	d := &approval.Decision{
		ID:        id,
		Approved:  approved,
		Approver:  approver,
		Reason:    reason,
		DecidedAt: clock.Now(),
	}
	if err := s.decisions.Save(ctx, d); err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: d})
	return d, nil
}

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

var _ approval.Service = (*service)(nil)
