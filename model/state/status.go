// Package state defines the lifecycle status shared by sessions, tasks,
// workflow executions, node executions and action executions.
package state

// Status is a unit lifecycle status.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusSuccess          Status = "success"
	StatusError            Status = "error"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
	StatusSkipped          Status = "skipped"
	StatusCancelled        Status = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusRejected, StatusCancelled, StatusSkipped, StatusApproved:
		return true
	}
	return false
}

// IsPaused reports whether the unit waits for an external decision.
func (s Status) IsPaused() bool {
	return s == StatusAwaitingApproval
}

func (s Status) String() string { return string(s) }
