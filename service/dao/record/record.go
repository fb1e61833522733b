// Package record defines store accessors for the persisted unit records.
package record

import (
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/service/dao"
)

// Session accessor.
var Session = &dao.Accessor[string, model.Session]{
	Key:   func(s *model.Session) string { return s.ID },
	Clone: func(s *model.Session) *model.Session { return s.Clone() },
	Field: func(s *model.Session, name string) (string, bool) {
		switch name {
		case dao.ParamStatus:
			return string(s.Status), true
		}
		return "", false
	},
	Less: func(a, b *model.Session) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// Task accessor.
var Task = &dao.Accessor[string, model.Task]{
	Key:   func(t *model.Task) string { return t.ID },
	Clone: func(t *model.Task) *model.Task { return t.Clone() },
	Field: func(t *model.Task, name string) (string, bool) {
		switch name {
		case dao.ParamStatus:
			return string(t.Status), true
		case dao.ParamSessionID:
			return t.SessionID, true
		}
		return "", false
	},
	Less: func(a, b *model.Task) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// Execution accessor.
var Execution = &dao.Accessor[string, execution.Workflow]{
	Key:   func(w *execution.Workflow) string { return w.ID },
	Clone: func(w *execution.Workflow) *execution.Workflow { return w.Clone() },
	Field: func(w *execution.Workflow, name string) (string, bool) {
		switch name {
		case dao.ParamStatus:
			return string(w.Status), true
		case dao.ParamSessionID:
			return w.SessionID, true
		case dao.ParamTaskID:
			return w.TaskID, true
		case dao.ParamWorkflowID:
			return w.WorkflowID, true
		case dao.ParamParentID:
			return w.ParentID, true
		}
		return "", false
	},
	Less: func(a, b *execution.Workflow) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// Action accessor.
var Action = &dao.Accessor[string, execution.Action]{
	Key:   func(a *execution.Action) string { return a.ID },
	Clone: func(a *execution.Action) *execution.Action { return a.Clone() },
	Field: func(a *execution.Action, name string) (string, bool) {
		switch name {
		case dao.ParamStatus:
			if a.Success {
				return "success", true
			}
			return "error", true
		case dao.ParamParentID:
			return a.ExecutionID, true
		}
		return "", false
	},
	Less: func(a, b *execution.Action) bool { return a.StartedAt.Before(b.StartedAt) },
}
