package types

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the engine.
type Kind string

const (
	KindNotFound       Kind = "NotFound"
	KindInvalidState   Kind = "InvalidState"
	KindAdapterFailure Kind = "AdapterFailure"
	KindConfiguration  Kind = "ConfigurationError"
)

// Sentinels usable with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrAdapterFailure = errors.New("adapter failure")
	ErrConfiguration  = errors.New("configuration error")
)

// Error carries the failure kind, the operation and the id of the unit that failed.
type Error struct {
	Kind   Kind
	Op     string
	UnitID string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.UnitID != "" {
		msg += " [" + e.UnitID + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel so that errors.Is(err, ErrNotFound) works on wrapped errors.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidState:
		return e.Kind == KindInvalidState
	case ErrAdapterFailure:
		return e.Kind == KindAdapterFailure
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	}
	return false
}

// NewNotFoundError reports an unknown entity id.
func NewNotFoundError(op, entity, id string) error {
	return &Error{Kind: KindNotFound, Op: op, UnitID: id, Err: fmt.Errorf("%s %q not found", entity, id)}
}

// NewInvalidStateError reports an operation attempted on a unit in the wrong state.
func NewInvalidStateError(op, id string, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Op: op, UnitID: id, Err: fmt.Errorf(format, args...)}
}

// NewAdapterError wraps an external call failure.
func NewAdapterError(op, id string, err error) error {
	return &Error{Kind: KindAdapterFailure, Op: op, UnitID: id, Err: err}
}

// NewConfigurationError reports an invalid definition.
func NewConfigurationError(op, id string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, UnitID: id, Err: err}
}

// KindOf returns the kind of err or an empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UnitOf returns the id of the failing unit recorded on err.
func UnitOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UnitID
	}
	return ""
}

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("invalid input %T", in)
}

func NewInvalidOutputError(out interface{}) error {
	return fmt.Errorf("invalid output %T", out)
}
