package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/internal/logging"
)

const (
	// SystemApprover is recorded for decisions taken by the helpers below.
	SystemApprover = "system"
	// ReasonExpired is recorded for requests rejected by AutoExpire.
	ReasonExpired = "expired"
)

// DecisionFunc decides a pending request.
type DecisionFunc func(r *Request) (approved bool, reason string)

// Resolver applies a decision to whatever is paused on the request. The
// façade routes it to the session, task or execution that filed it; the
// resolved unit records the decision in the ledger.
type Resolver func(ctx context.Context, r *Request, approved bool, approver, reason string) error

// PendingFilter narrows ListPending results.
type PendingFilter func(r *Request) bool

func WithExecutionID(id string) PendingFilter {
	return func(r *Request) bool { return r.ExecutionID == id }
}

func WithWorkflowID(id string) PendingFilter {
	return func(r *Request) bool { return r.WorkflowID == id }
}

func WithSessionID(id string) PendingFilter {
	return func(r *Request) bool { return r.MetaString(MetaSessionID) == id }
}

func WithRole(role string) PendingFilter {
	return func(r *Request) bool {
		for _, candidate := range r.Roles {
			if candidate == role {
				return true
			}
		}
		return false
	}
}

// ExpiredAt keeps requests whose deadline is before now.
func ExpiredAt(now time.Time) PendingFilter {
	return func(r *Request) bool { return r.Expired(now) }
}

// ListPending returns pending requests matching every filter.
func ListPending(ctx context.Context, svc Service, filters ...PendingFilter) ([]*Request, error) {
	pending, err := svc.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	ret := pending[:0]
outer:
	for _, r := range pending {
		for _, filter := range filters {
			if !filter(r) {
				continue outer
			}
		}
		ret = append(ret, r)
	}
	return ret, nil
}

// WaitForDecision polls until the request is decided or timeout elapses.
func WaitForDecision(ctx context.Context, svc Service, id string, timeout time.Duration) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if decision, err := svc.Decision(ctx, id); err == nil && decision != nil {
			return decision, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for decision on %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Resolve decides every pending request matching filters once. Without a
// resolver the decision is recorded directly in the ledger. It returns the
// number of requests resolved.
func Resolve(ctx context.Context, svc Service, resolve Resolver, fn DecisionFunc, filters ...PendingFilter) (int, error) {
	pending, err := ListPending(ctx, svc, filters...)
	if err != nil {
		return 0, err
	}
	var errs []error
	count := 0
	for _, r := range pending {
		approved, reason := fn(r)
		if resolve != nil {
			err = resolve(ctx, r, approved, SystemApprover, reason)
		} else {
			_, err = svc.Decide(ctx, r.ID, approved, SystemApprover, reason)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", r.ID, err))
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

// ExpirePending rejects every pending request whose deadline has passed.
func ExpirePending(ctx context.Context, svc Service, resolve Resolver) (int, error) {
	now := clock.Now()
	expired, err := ListPending(ctx, svc, ExpiredAt(now))
	if err != nil {
		return 0, err
	}
	for _, r := range expired {
		_ = svc.Queue().Publish(ctx, &Event{Topic: TopicRequestExpired, Data: r})
	}
	return Resolve(ctx, svc, resolve, func(*Request) (bool, string) { return false, ReasonExpired }, ExpiredAt(now))
}

// AutoDecider polls pending requests every interval and applies fn to each
// through resolve. It returns stop(); cancelling ctx also stops it.
func AutoDecider(ctx context.Context, svc Service, resolve Resolver, fn DecisionFunc, interval time.Duration) (stop func()) {
	return poll(ctx, interval, func(ctx context.Context) (int, error) {
		return Resolve(ctx, svc, resolve, fn)
	})
}

// AutoApprove approves every pending request.
func AutoApprove(ctx context.Context, svc Service, resolve Resolver, interval time.Duration) func() {
	return AutoDecider(ctx, svc, resolve, func(*Request) (bool, string) { return true, "" }, interval)
}

// AutoReject rejects every pending request with reason.
func AutoReject(ctx context.Context, svc Service, resolve Resolver, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, svc, resolve, func(*Request) (bool, string) { return false, reason }, interval)
}

// AutoExpire rejects pending requests as their deadlines pass.
func AutoExpire(ctx context.Context, svc Service, resolve Resolver, interval time.Duration) func() {
	return poll(ctx, interval, func(ctx context.Context) (int, error) {
		return ExpirePending(ctx, svc, resolve)
	})
}

func poll(ctx context.Context, interval time.Duration, run func(ctx context.Context) (int, error)) func() {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	logger := logging.Logger("approval")
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := run(ctx)
				if err != nil {
					logger.WithError(err).Warn("failed to resolve approvals")
				}
				if count > 0 {
					logger.WithField("count", count).Debug("resolved approvals")
				}
			}
		}
	}()
	return cancel
}
