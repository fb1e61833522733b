package approval

import (
	"time"
)

// Event is published on the service queue for every ledger change.
type Event struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"` // *Request | *Decision
}

const (
	TopicRequestCreated  = "request.created"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)

// Meta keys set by the workflow engine.
const (
	MetaSessionID       = "sessionId"
	MetaTaskID          = "taskId"
	MetaRootExecutionID = "rootExecutionId"
)

// Request is filed when an execution pauses at an approval node.
type Request struct {
	ID          string                 `json:"id"`
	ExecutionID string                 `json:"executionId"`
	WorkflowID  string                 `json:"workflowId"`
	NodeID      string                 `json:"nodeId"`
	Name        string                 `json:"name,omitempty"`
	Roles       []string               `json:"roles,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	ExpiresAt   *time.Time             `json:"expiresAt,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

// Expired reports whether the request deadline is before now.
func (r *Request) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// MetaString returns a string meta value.
func (r *Request) MetaString(key string) string {
	if r.Meta == nil {
		return ""
	}
	value, _ := r.Meta[key].(string)
	return value
}

// Clone returns a copy of the request.
func (r *Request) Clone() *Request {
	ret := *r
	ret.Roles = append([]string(nil), r.Roles...)
	if r.ExpiresAt != nil {
		expiresAt := *r.ExpiresAt
		ret.ExpiresAt = &expiresAt
	}
	if r.Meta != nil {
		ret.Meta = make(map[string]interface{}, len(r.Meta))
		for k, v := range r.Meta {
			ret.Meta[k] = v
		}
	}
	return &ret
}

// Decision records the outcome of a request.
type Decision struct {
	ID        string    `json:"id"` // same as request.ID
	Approved  bool      `json:"approved"`
	Approver  string    `json:"approver,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
