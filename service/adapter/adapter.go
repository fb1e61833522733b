// Package adapter defines the boundary to the external systems an action's tools call.
package adapter

import (
	"context"
	"errors"
)

// ErrUnknownTool is returned for a tool id no system exposes; it is never retried.
var ErrUnknownTool = errors.New("unknown tool")

// Result is the outcome of one tool call.
type Result struct {
	Success    bool                   `json:"success"`
	Output     map[string]interface{} `json:"output,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"durationMs"`
}

// Adapter calls an external tool; ctx carries the per-call deadline. A returned
// error is a transport failure, a Result with Success=false a tool failure.
type Adapter interface {
	Call(ctx context.Context, toolID string, params map[string]interface{}) (*Result, error)
}

// Func adapts a function to Adapter.
type Func func(ctx context.Context, toolID string, params map[string]interface{}) (*Result, error)

// Call implements Adapter
func (f Func) Call(ctx context.Context, toolID string, params map[string]interface{}) (*Result, error) {
	return f(ctx, toolID, params)
}
