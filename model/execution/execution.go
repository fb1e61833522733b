// Package execution holds the runtime records of workflow, node and action runs.
package execution

import (
	"time"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/graph"
	"github.com/viant/opsagent/model/state"
)

// Workflow represents a single run of a workflow definition.
type Workflow struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflowId"`
	ParentID    string                 `json:"parentId,omitempty"`
	SessionID   string                 `json:"sessionId,omitempty"`
	TaskID      string                 `json:"taskId,omitempty"`
	Status      state.Status           `json:"status"`
	Input       map[string]interface{} `json:"input,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Nodes       []*Node                `json:"nodes,omitempty"`
	CurrentNode string                 `json:"currentNode,omitempty"`
	// PendingApproval is the id of the node the execution is paused on.
	PendingApproval string `json:"pendingApproval,omitempty"`
	// ApprovalRequestID is the approval ledger entry filed for PendingApproval.
	ApprovalRequestID string `json:"approvalRequestId,omitempty"`
	// ChildExecutionID is set when paused on a subgraph node.
	ChildExecutionID string     `json:"childExecutionId,omitempty"`
	Error            string     `json:"error,omitempty"`
	ErrorUnitID      string     `json:"errorUnitId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	DurationMs       int64      `json:"durationMs,omitempty"`
}

// NewWorkflow creates a pending execution seeded with input.
func NewWorkflow(id, workflowID string, input map[string]interface{}) *Workflow {
	now := clock.Now()
	return &Workflow{
		ID:         id,
		WorkflowID: workflowID,
		Status:     state.StatusPending,
		Input:      model.CloneMap(input),
		Context:    model.Merge(nil, input),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Start marks the execution as running.
func (w *Workflow) Start() {
	w.Status = state.StatusRunning
	w.UpdatedAt = clock.Now()
}

// Pause suspends the execution at nodeID.
func (w *Workflow) Pause(nodeID, requestID, childID string) {
	w.Status = state.StatusAwaitingApproval
	w.PendingApproval = nodeID
	w.ApprovalRequestID = requestID
	w.ChildExecutionID = childID
	w.CurrentNode = nodeID
	w.UpdatedAt = clock.Now()
}

// ClearPause removes pause markers.
func (w *Workflow) ClearPause() {
	w.PendingApproval = ""
	w.ApprovalRequestID = ""
	w.ChildExecutionID = ""
}

// Complete marks the execution as successful.
func (w *Workflow) Complete() {
	w.finish(state.StatusSuccess)
}

// Reject marks the execution as rejected.
func (w *Workflow) Reject() {
	w.ClearPause()
	w.finish(state.StatusRejected)
}

// Fail marks the execution as failed by unitID.
func (w *Workflow) Fail(unitID string, err error) {
	if err != nil {
		w.Error = err.Error()
	}
	w.ErrorUnitID = unitID
	w.finish(state.StatusError)
}

func (w *Workflow) finish(status state.Status) {
	now := clock.Now()
	w.Status = status
	w.CompletedAt = &now
	w.UpdatedAt = now
	w.DurationMs = now.Sub(w.CreatedAt).Milliseconds()
}

// Append adds a node record to the log.
func (w *Workflow) Append(records ...*Node) {
	w.Nodes = append(w.Nodes, records...)
	w.UpdatedAt = clock.Now()
}

// LastRecord returns the latest record for nodeID.
func (w *Workflow) LastRecord(nodeID string) *Node {
	for i := len(w.Nodes) - 1; i >= 0; i-- {
		if w.Nodes[i].NodeID == nodeID {
			return w.Nodes[i]
		}
	}
	return nil
}

// Output returns the accumulated context.
func (w *Workflow) Output() map[string]interface{} {
	return model.CloneMap(w.Context)
}

// Clone creates a deep copy so callers can mutate it without affecting the stored instance.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	clone := *w
	clone.Input = model.CloneMap(w.Input)
	clone.Context = model.CloneMap(w.Context)
	if w.Nodes != nil {
		clone.Nodes = make([]*Node, len(w.Nodes))
		for i, node := range w.Nodes {
			clone.Nodes[i] = node.Clone()
		}
	}
	if w.CompletedAt != nil {
		completed := *w.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}

// Node is the record of one node run. Approval and subgraph records are
// resolved in place when the execution resumes.
type Node struct {
	NodeID            string                 `json:"nodeId"`
	Kind              graph.Kind             `json:"kind"`
	Status            state.Status           `json:"status"`
	Input             map[string]interface{} `json:"input,omitempty"`
	Output            map[string]interface{} `json:"output,omitempty"`
	Error             string                 `json:"error,omitempty"`
	ActionExecutionID string                 `json:"actionExecutionId,omitempty"`
	ChildExecutionID  string                 `json:"childExecutionId,omitempty"`
	Approver          string                 `json:"approver,omitempty"`
	StartedAt         time.Time              `json:"startedAt"`
	CompletedAt       *time.Time             `json:"completedAt,omitempty"`
	DurationMs        int64                  `json:"durationMs"`
}

// NewNode starts a record for node with a snapshot of the context.
func NewNode(node graph.Node, input map[string]interface{}) *Node {
	return &Node{
		NodeID:    node.Common().ID,
		Kind:      node.Kind(),
		Status:    state.StatusRunning,
		Input:     model.CloneMap(input),
		StartedAt: clock.Now(),
	}
}

// Finish sets the terminal (or paused) status of the record.
func (n *Node) Finish(status state.Status, output map[string]interface{}, err error) {
	now := clock.Now()
	n.Status = status
	n.Output = output
	if err != nil {
		n.Error = err.Error()
	}
	n.CompletedAt = &now
	n.DurationMs = now.Sub(n.StartedAt).Milliseconds()
}

// Resolve marks an approval record with the decision.
func (n *Node) Resolve(approved bool, approver string) {
	n.Approver = approver
	if approved {
		n.Status = state.StatusApproved
	} else {
		n.Status = state.StatusRejected
	}
	if n.Output == nil {
		n.Output = map[string]interface{}{}
	}
	n.Output["approved"] = approved
	n.Output["approver"] = approver
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Input = model.CloneMap(n.Input)
	clone.Output = model.CloneMap(n.Output)
	if n.CompletedAt != nil {
		completed := *n.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}
