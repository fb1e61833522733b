package approval

import (
	"context"
	"errors"

	"github.com/viant/opsagent/service/messaging"
)

var (
	ErrNotFound = errors.New("approval request not found")
	ErrDecided  = errors.New("approval request already decided")
)

// Service is the approval ledger.
type Service interface {
	RequestApproval(ctx context.Context, r *Request) error
	Request(ctx context.Context, id string) (*Request, error)
	Decision(ctx context.Context, id string) (*Decision, error)
	ListPending(ctx context.Context) ([]*Request, error)
	Decide(ctx context.Context, id string, approved bool, approver, reason string) (*Decision, error)
	Queue() messaging.Queue[Event]
}
