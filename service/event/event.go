package event

import (
	"time"

	"github.com/viant/opsagent/internal/clock"
)

// Unit types.
const (
	UnitNode     = "node"
	UnitAction   = "action"
	UnitWorkflow = "workflow"
	UnitTask     = "task"
	UnitSession  = "session"
)

// Context identifies what an event is about.
type Context struct {
	EventType   string `json:"eventType"`
	UnitType    string `json:"unitType"`
	UnitID      string `json:"unitID"`
	ParentID    string `json:"parentID,omitempty"`
	TimeTakenMs int64  `json:"timeTakenMs"`
}

// Event wraps a payload with its context.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// Unit is emitted once per completed node, action, workflow, task or session.
type Unit struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	ParentID   string                 `json:"parentId,omitempty"`
	Name       string                 `json:"name,omitempty"`
	Status     string                 `json:"status"`
	DurationMs int64                  `json:"durationMs"`
	Error      string                 `json:"error,omitempty"`
	Output     map[string]interface{} `json:"output,omitempty"`
}

// NewEvent creates an event.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}

// NewUnitEvent creates a completion event for unit.
func NewUnitEvent(unit *Unit) *Event[Unit] {
	return NewEvent(&Context{
		EventType:   "completed",
		UnitType:    unit.Type,
		UnitID:      unit.ID,
		ParentID:    unit.ParentID,
		TimeTakenMs: unit.DurationMs,
	}, *unit)
}
