package execution

import (
	"time"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model"
)

// ToolCall records one external tool invocation.
type ToolCall struct {
	ToolID     string                 `json:"toolId"`
	Success    bool                   `json:"success"`
	Output     map[string]interface{} `json:"output,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Attempts   int                    `json:"attempts"`
	DurationMs int64                  `json:"durationMs"`
}

// Action is the leaf run of a catalog action.
type Action struct {
	ID          string                 `json:"id"`
	ActionID    string                 `json:"actionId"`
	ExecutionID string                 `json:"executionId,omitempty"`
	NodeID      string                 `json:"nodeId,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Calls       []*ToolCall            `json:"calls,omitempty"`
	Output      map[string]interface{} `json:"output,omitempty"`
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
	Attempts    int                    `json:"attempts"`
	StartedAt   time.Time              `json:"startedAt"`
	DurationMs  int64                  `json:"durationMs"`
}

// NewAction starts an action run.
func NewAction(id, actionID string, params map[string]interface{}) *Action {
	return &Action{
		ID:        id,
		ActionID:  actionID,
		Params:    model.CloneMap(params),
		StartedAt: clock.Now(),
	}
}

// Finish sets the outcome and duration.
func (a *Action) Finish(err error) {
	a.Success = err == nil
	if err != nil {
		a.Error = err.Error()
	}
	a.DurationMs = clock.ElapsedMs(a.StartedAt)
}

// Tools returns the ids of the tools called.
func (a *Action) Tools() []string {
	var ret []string
	for _, call := range a.Calls {
		ret = append(ret, call.ToolID)
	}
	return ret
}

// Clone returns a deep copy.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Params = model.CloneMap(a.Params)
	clone.Output = model.CloneMap(a.Output)
	if a.Calls != nil {
		clone.Calls = make([]*ToolCall, len(a.Calls))
		for i, call := range a.Calls {
			item := *call
			item.Output = model.CloneMap(call.Output)
			clone.Calls[i] = &item
		}
	}
	return &clone
}
