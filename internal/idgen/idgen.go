package idgen

import "github.com/google/uuid"

// Prefixes used for the different unit kinds.
const (
	SessionPrefix  = "ses"
	TaskPrefix     = "task"
	WorkflowPrefix = "wfx"
	ActionPrefix   = "act"
	ApprovalPrefix = "apr"
)

// NewFunc returns a new globally unique identifier. Override in tests.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// NewWithPrefix returns a new identifier in the form prefix-uuid.
func NewWithPrefix(prefix string) string {
	if prefix == "" {
		return NewFunc()
	}
	return prefix + "-" + NewFunc()
}
