package model

import (
	"time"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model/state"
)

// Task is one agent's slice of a session.
type Task struct {
	ID          string                 `json:"id"`
	SessionID   string                 `json:"sessionId,omitempty"`
	AgentID     string                 `json:"agentId"`
	Instruction string                 `json:"instruction"`
	Context     map[string]interface{} `json:"context,omitempty"`
	// Workflows lists the planned definition ids in run order.
	Workflows []string `json:"workflows,omitempty"`
	// Executions lists the workflow execution ids produced so far.
	Executions []string `json:"executions,omitempty"`
	// Cursor is the index of the planned workflow currently running or paused.
	Cursor      int          `json:"cursor"`
	Status      state.Status `json:"status"`
	Error       string       `json:"error,omitempty"`
	ErrorUnitID string       `json:"errorUnitId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	DurationMs  int64        `json:"durationMs,omitempty"`
}

// CurrentExecution returns the id of the latest workflow execution, if any.
func (t *Task) CurrentExecution() string {
	if len(t.Executions) == 0 {
		return ""
	}
	return t.Executions[len(t.Executions)-1]
}

// Start marks the task as running.
func (t *Task) Start() {
	t.Status = state.StatusRunning
	t.UpdatedAt = clock.Now()
}

// Pause marks the task as waiting on its current workflow's approval.
func (t *Task) Pause() {
	t.Status = state.StatusAwaitingApproval
	t.UpdatedAt = clock.Now()
}

// Complete marks the task as successful.
func (t *Task) Complete() { t.finish(state.StatusSuccess) }

// Reject marks the task as rejected.
func (t *Task) Reject() { t.finish(state.StatusRejected) }

// Fail marks the task as failed by unitID.
func (t *Task) Fail(unitID, message string) {
	t.Error = message
	t.ErrorUnitID = unitID
	t.finish(state.StatusError)
}

func (t *Task) finish(status state.Status) {
	now := clock.Now()
	t.Status = status
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.DurationMs = now.Sub(t.CreatedAt).Milliseconds()
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Context = CloneMap(t.Context)
	clone.Workflows = CloneStrings(t.Workflows)
	clone.Executions = CloneStrings(t.Executions)
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}
