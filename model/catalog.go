package model

import (
	"strings"

	"github.com/viant/opsagent/model/graph"
)

// Action is a catalog entry mapping an action id to the external tool calls it performs.
type Action struct {
	ID                string                 `json:"id" yaml:"id" validate:"required"`
	Name              string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Description       string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Tools             []string               `json:"tools" yaml:"tools" validate:"required,min=1"`
	Systems           []string               `json:"systems,omitempty" yaml:"systems,omitempty"`
	Retry             *graph.Retry           `json:"retry,omitempty" yaml:"retry,omitempty"`
	Timeout           string                 `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	EstimatedDuration string                 `json:"estimatedDuration,omitempty" yaml:"estimatedDuration,omitempty"`
	InputSchema       map[string]interface{} `json:"inputSchema,omitempty" yaml:"inputSchema,omitempty"`
}

// Label returns the name or the id.
func (a *Action) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Capability routes instructions containing any keyword to its workflows.
type Capability struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Workflows   []string `json:"workflows,omitempty" yaml:"workflows,omitempty"`
}

// Matches reports whether any keyword occurs in text, case-insensitively.
func (c *Capability) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range c.Keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// Agent is a domain-scoped dispatcher of workflows.
type Agent struct {
	ID                   string        `json:"id" yaml:"id" validate:"required"`
	Name                 string        `json:"name,omitempty" yaml:"name,omitempty"`
	Description          string        `json:"description,omitempty" yaml:"description,omitempty"`
	Domain               string        `json:"domain,omitempty" yaml:"domain,omitempty"`
	Capabilities         []*Capability `json:"capabilities" yaml:"capabilities"`
	RequiresApprovalFrom []string      `json:"requiresApprovalFrom,omitempty" yaml:"requiresApprovalFrom,omitempty"`
}

// Label returns the name or the id.
func (a *Agent) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Workflows returns the union of every capability's workflows, first-seen order.
func (a *Agent) Workflows() []string {
	var ret []string
	seen := map[string]bool{}
	for _, capability := range a.Capabilities {
		for _, id := range capability.Workflows {
			if !seen[id] {
				seen[id] = true
				ret = append(ret, id)
			}
		}
	}
	return ret
}

// IntentPattern maps keywords to an intent type and the agents it needs.
type IntentPattern struct {
	Type           string   `json:"type" yaml:"type" validate:"required"`
	Keywords       []string `json:"keywords" yaml:"keywords" validate:"required,min=1"`
	RequiredAgents []string `json:"requiredAgents" yaml:"requiredAgents"`
	OptionalAgents []string `json:"optionalAgents,omitempty" yaml:"optionalAgents,omitempty"`
}

// Catalog groups the read-only definitions loaded at startup.
type Catalog struct {
	Actions   []*Action        `json:"actions" yaml:"actions"`
	Agents    []*Agent         `json:"agents" yaml:"agents"`
	Intents   []*IntentPattern `json:"intents" yaml:"intents"`
	Workflows []*Workflow      `json:"workflows" yaml:"workflows"`
	Regions   map[string]int   `json:"regions,omitempty" yaml:"regions,omitempty"`
	Templates []*Template      `json:"templates,omitempty" yaml:"templates,omitempty"`
}
