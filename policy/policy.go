// Package policy decides which catalog actions a workflow run may call. A
// policy is attached to the engine as a default and may be overridden per
// request via context.
package policy

import (
	"context"
	"strings"
)

// Execution modes.
const (
	ModeAuto = "auto" // run allowed actions (default)
	ModeDeny = "deny" // block every action, approvals and conditions still run
)

// Policy filters actions by id.
type Policy struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode" validate:"omitempty,oneof=auto deny"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty" toml:"allow"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty" toml:"block"`
}

// IsAllowed reports whether actionID may run. The block list wins over the
// allow list; an empty allow list allows everything. Ids compare case-insensitively.
func (p *Policy) IsAllowed(actionID string) bool {
	if p == nil {
		return true
	}
	if p.Mode == ModeDeny {
		return false
	}
	if contains(p.BlockList, actionID) {
		return false
	}
	return len(p.AllowList) == 0 || contains(p.AllowList, actionID)
}

// Clone returns a copy safe to mutate.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	return &Policy{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

func contains(list []string, actionID string) bool {
	for _, candidate := range list {
		if strings.EqualFold(candidate, actionID) {
			return true
		}
	}
	return false
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext returns the policy embedded in ctx or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
