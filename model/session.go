package model

import (
	"time"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model/state"
)

// PlanStep assigns an instruction to an agent.
type PlanStep struct {
	AgentID     string `json:"agentId"`
	Instruction string `json:"instruction"`
	Priority    int    `json:"priority"`
}

// Plan is the immutable decomposition of a request into agent steps.
type Plan struct {
	Steps []*PlanStep `json:"steps"`
	// ApprovalNodes lists "<workflow>/<node>" for every approval gate in the planned workflows.
	ApprovalNodes []string `json:"approvalNodes,omitempty"`
}

// Agents returns agent ids in priority order.
func (p *Plan) Agents() []string {
	var ret []string
	for _, step := range p.Steps {
		ret = append(ret, step.AgentID)
	}
	return ret
}

// Clone returns a deep copy.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	clone := &Plan{ApprovalNodes: CloneStrings(p.ApprovalNodes)}
	for _, step := range p.Steps {
		item := *step
		clone.Steps = append(clone.Steps, &item)
	}
	return clone
}

// Session tracks the processing of one free-form request.
type Session struct {
	ID               string                 `json:"id"`
	Text             string                 `json:"text"`
	Intent           *Intent                `json:"intent,omitempty"`
	Plan             *Plan                  `json:"plan,omitempty"`
	Tasks            []string               `json:"tasks,omitempty"`
	Status           state.Status           `json:"status"`
	PendingApprovals []string               `json:"pendingApprovals,omitempty"`
	Context          map[string]interface{} `json:"context,omitempty"`
	Summary          string                 `json:"summary,omitempty"`
	Brief            string                 `json:"brief,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ErrorUnitID      string                 `json:"errorUnitId,omitempty"`
	Approver         string                 `json:"approver,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
	CompletedAt      *time.Time             `json:"completedAt,omitempty"`
	DurationMs       int64                  `json:"durationMs,omitempty"`
}

// Start marks the session as running.
func (s *Session) Start() {
	s.Status = state.StatusRunning
	s.UpdatedAt = clock.Now()
}

// Pause marks the session as waiting on taskIDs.
func (s *Session) Pause(taskIDs []string) {
	s.Status = state.StatusAwaitingApproval
	s.PendingApprovals = CloneStrings(taskIDs)
	s.UpdatedAt = clock.Now()
}

// Complete marks the session as successful.
func (s *Session) Complete() {
	s.PendingApprovals = nil
	s.finish(state.StatusSuccess)
}

// Reject marks the session as rejected.
func (s *Session) Reject() {
	s.PendingApprovals = nil
	s.finish(state.StatusRejected)
}

// Fail marks the session as failed by unitID.
func (s *Session) Fail(unitID, message string) {
	s.Error = message
	s.ErrorUnitID = unitID
	s.PendingApprovals = nil
	s.finish(state.StatusError)
}

func (s *Session) finish(status state.Status) {
	now := clock.Now()
	s.Status = status
	s.CompletedAt = &now
	s.UpdatedAt = now
	s.DurationMs = now.Sub(s.CreatedAt).Milliseconds()
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Intent = s.Intent.Clone()
	clone.Plan = s.Plan.Clone()
	clone.Tasks = CloneStrings(s.Tasks)
	clone.PendingApprovals = CloneStrings(s.PendingApprovals)
	clone.Context = CloneMap(s.Context)
	if s.CompletedAt != nil {
		completed := *s.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}

// Impact estimates the blast radius of a plan.
type Impact struct {
	Region            string   `json:"region"`
	AffectedStores    int      `json:"affectedStores"`
	AffectedSKUs      int      `json:"affectedSkus"`
	AffectedSystems   []string `json:"affectedSystems"`
	EstimatedMinutes  int      `json:"estimatedMinutes"`
	EstimatedDuration string   `json:"estimatedDuration"`
	RequiresApproval  bool     `json:"requiresApproval"`
	ApprovalRoles     []string `json:"approvalRoles,omitempty"`
}

// PreviewStep is one action a plan would perform.
type PreviewStep struct {
	Step       int      `json:"step"`
	AgentID    string   `json:"agentId"`
	WorkflowID string   `json:"workflowId"`
	NodeID     string   `json:"nodeId"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Systems    []string `json:"systems,omitempty"`
	Duration   string   `json:"duration,omitempty"`
}

// Preview describes what Process would do without running anything.
type Preview struct {
	Text               string         `json:"text"`
	Intent             *Intent        `json:"intent"`
	Plan               *Plan          `json:"plan"`
	RequiredAgents     []string       `json:"requiredAgents"`
	SuggestedWorkflows []string       `json:"suggestedWorkflows"`
	Impact             *Impact        `json:"impact"`
	Steps              []*PreviewStep `json:"steps"`
}
