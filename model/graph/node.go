// Package graph defines workflow nodes as a closed set of variants. Each
// variant carries only the fields its behaviour needs; nodes reference each
// other by id.
package graph

import (
	"fmt"
	"time"
)

// Kind identifies a node variant.
type Kind string

const (
	KindAction      Kind = "action"
	KindParallel    Kind = "parallel"
	KindConditional Kind = "conditional"
	KindApproval    Kind = "approval"
	KindWait        Kind = "wait"
	KindSubgraph    Kind = "subgraph"
)

// Node is implemented by *Action, *Parallel, *Conditional, *Approval, *Wait and *Subgraph.
type Node interface {
	Common() *Base
	Kind() Kind
	// Targets returns ids control may flow to on success, excluding the on-error edge.
	Targets() []string
}

// Base holds the fields shared by all variants.
type Base struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Next    string `json:"next,omitempty" yaml:"next,omitempty"`
	OnError string `json:"onError,omitempty" yaml:"onError,omitempty"`
}

func (b *Base) Common() *Base { return b }

// Label returns the name or the id.
func (b *Base) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return b.ID
}

type (
	// Action invokes a catalog action.
	Action struct {
		Base     `yaml:",inline"`
		ActionID string                 `json:"action" yaml:"action"`
		Params   map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
		Retry    *Retry                 `json:"retry,omitempty" yaml:"retry,omitempty"`
		Timeout  string                 `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	}

	// Conditional evaluates When against the context and follows Then or Else.
	Conditional struct {
		Base `yaml:",inline"`
		When string `json:"when" yaml:"when"`
		Then string `json:"then,omitempty" yaml:"then,omitempty"`
		Else string `json:"else,omitempty" yaml:"else,omitempty"`
	}

	// Parallel runs every branch chain concurrently and joins at Next.
	Parallel struct {
		Base     `yaml:",inline"`
		Branches []string `json:"branches" yaml:"branches"`
	}

	// Approval halts the execution until a decision arrives.
	Approval struct {
		Base    `yaml:",inline"`
		Roles   []string `json:"roles,omitempty" yaml:"roles,omitempty"`
		Timeout string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	}

	// Wait delays the execution.
	Wait struct {
		Base  `yaml:",inline"`
		Delay string `json:"delay,omitempty" yaml:"delay,omitempty"`
	}

	// Subgraph runs another workflow definition as a child execution.
	Subgraph struct {
		Base       `yaml:",inline"`
		WorkflowID string                 `json:"workflow" yaml:"workflow"`
		Input      map[string]interface{} `json:"input,omitempty" yaml:"input,omitempty"`
	}
)

func (n *Action) Kind() Kind      { return KindAction }
func (n *Conditional) Kind() Kind { return KindConditional }
func (n *Parallel) Kind() Kind    { return KindParallel }
func (n *Approval) Kind() Kind    { return KindApproval }
func (n *Wait) Kind() Kind        { return KindWait }
func (n *Subgraph) Kind() Kind    { return KindSubgraph }

func (n *Action) Targets() []string   { return nonEmpty(n.Next) }
func (n *Approval) Targets() []string { return nonEmpty(n.Next) }
func (n *Wait) Targets() []string     { return nonEmpty(n.Next) }
func (n *Subgraph) Targets() []string { return nonEmpty(n.Next) }

func (n *Conditional) Targets() []string {
	return nonEmpty(n.Then, n.Else, n.Next)
}

func (n *Parallel) Targets() []string {
	return nonEmpty(append(append([]string{}, n.Branches...), n.Next)...)
}

// TimeoutDuration returns the per-call timeout or zero.
func (n *Action) TimeoutDuration() (time.Duration, error) {
	return parseDuration(n.Timeout)
}

// TimeoutDuration returns how long the approval may stay pending, zero means no expiry.
func (n *Approval) TimeoutDuration() (time.Duration, error) {
	return parseDuration(n.Timeout)
}

// DelayDuration returns the wait delay.
func (n *Wait) DelayDuration() (time.Duration, error) {
	return parseDuration(n.Delay)
}

// Branch returns the target selected by a condition outcome, falling back to Next.
func (n *Conditional) Branch(outcome bool) string {
	if outcome && n.Then != "" {
		return n.Then
	}
	if !outcome && n.Else != "" {
		return n.Else
	}
	return n.Next
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return d, nil
}

func nonEmpty(ids ...string) []string {
	ret := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			ret = append(ret, id)
		}
	}
	return ret
}
