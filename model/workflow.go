package model

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/viant/opsagent/model/graph"
)

// Workflow represents a workflow definition
type Workflow struct {
	// ID is the unique identifier referenced by agents and subgraph nodes
	ID string `json:"id" yaml:"id" validate:"required"`

	// Name is a human-readable name
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description provides a human-readable description of the workflow
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the workflow version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Start is the id of the first node
	Start string `json:"start" yaml:"start" validate:"required"`

	// Nodes is the execution graph
	Nodes graph.Nodes `json:"nodes" yaml:"nodes" validate:"required,min=1"`

	index map[string]graph.Node
	mux   sync.Mutex
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Node returns the node with the given id.
func (w *Workflow) Node(id string) (graph.Node, bool) {
	w.mux.Lock()
	defer w.mux.Unlock()
	if w.index == nil || len(w.index) != len(w.Nodes) {
		w.index = make(map[string]graph.Node, len(w.Nodes))
		for _, node := range w.Nodes {
			w.index[node.Common().ID] = node
		}
	}
	node, ok := w.index[id]
	return node, ok
}

// Label returns the name or the id.
func (w *Workflow) Label() string {
	if w.Name != "" {
		return w.Name
	}
	return w.ID
}

// ApprovalNodes returns approval gates in declaration order.
func (w *Workflow) ApprovalNodes() []*graph.Approval {
	var ret []*graph.Approval
	for _, node := range w.Nodes {
		if approval, ok := node.(*graph.Approval); ok {
			ret = append(ret, approval)
		}
	}
	return ret
}

// ActionNodes returns action nodes in declaration order.
func (w *Workflow) ActionNodes() []*graph.Action {
	var ret []*graph.Action
	for _, node := range w.Nodes {
		if action, ok := node.(*graph.Action); ok {
			ret = append(ret, action)
		}
	}
	return ret
}

// Validate performs a structural validation of the workflow. The returned
// slice is empty when the workflow is sound. It checks required fields,
// duplicate ids, dangling references, cycles, branch contents and durations;
// it does not evaluate expressions.
func (w *Workflow) Validate() []error {
	var issues []error
	if err := validate.Struct(w); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				issues = append(issues, fmt.Errorf("workflow %v: field %v failed %v", w.ID, fieldErr.Field(), fieldErr.Tag()))
			}
		} else {
			issues = append(issues, err)
		}
	}

	seen := map[string]graph.Node{}
	for _, node := range w.Nodes {
		if node == nil {
			issues = append(issues, fmt.Errorf("workflow %v: nil node", w.ID))
			continue
		}
		id := node.Common().ID
		if id == "" {
			issues = append(issues, fmt.Errorf("workflow %v: node without id", w.ID))
			continue
		}
		if _, ok := seen[id]; ok {
			issues = append(issues, fmt.Errorf("duplicate node id %s", id))
		}
		seen[id] = node
	}
	if len(issues) > 0 {
		return issues
	}
	if _, ok := seen[w.Start]; !ok {
		return append(issues, fmt.Errorf("start node %s not found", w.Start))
	}

	for _, node := range w.Nodes {
		base := node.Common()
		for _, target := range node.Targets() {
			if _, ok := seen[target]; !ok {
				issues = append(issues, fmt.Errorf("node %s refers to unknown node %s", base.ID, target))
			}
		}
		if base.OnError != "" {
			if _, ok := seen[base.OnError]; !ok {
				issues = append(issues, fmt.Errorf("node %s onError refers to unknown node %s", base.ID, base.OnError))
			}
		}
		issues = append(issues, w.validateNode(node, seen)...)
	}
	if len(issues) > 0 {
		return issues
	}

	// DFS with colour set (white/grey/black) to detect back-edge cycles,
	// on-error edges included.
	const (
		white = 0
		grey  = 1
		black = 2
	)
	colour := map[string]int{}
	var dfs func(string) bool
	dfs = func(id string) bool {
		switch colour[id] {
		case grey:
			return true
		case black:
			return false
		}
		colour[id] = grey
		node := seen[id]
		edges := node.Targets()
		if onError := node.Common().OnError; onError != "" {
			edges = append(edges, onError)
		}
		for _, next := range edges {
			if dfs(next) {
				return true
			}
		}
		colour[id] = black
		return false
	}
	if dfs(w.Start) {
		issues = append(issues, fmt.Errorf("workflow %v contains a cycle", w.ID))
	}
	return issues
}

func (w *Workflow) validateNode(node graph.Node, seen map[string]graph.Node) []error {
	var issues []error
	base := node.Common()
	switch actual := node.(type) {
	case *graph.Action:
		if actual.ActionID == "" {
			issues = append(issues, fmt.Errorf("action node %s has no action", base.ID))
		}
		if _, err := actual.TimeoutDuration(); err != nil {
			issues = append(issues, fmt.Errorf("node %s: %w", base.ID, err))
		}
	case *graph.Conditional:
		if actual.When == "" {
			issues = append(issues, fmt.Errorf("conditional node %s has no expression", base.ID))
		}
	case *graph.Approval:
		if _, err := actual.TimeoutDuration(); err != nil {
			issues = append(issues, fmt.Errorf("node %s: %w", base.ID, err))
		}
	case *graph.Wait:
		if _, err := actual.DelayDuration(); err != nil {
			issues = append(issues, fmt.Errorf("node %s: %w", base.ID, err))
		}
	case *graph.Subgraph:
		if actual.WorkflowID == "" {
			issues = append(issues, fmt.Errorf("subgraph node %s has no workflow", base.ID))
		} else if actual.WorkflowID == w.ID {
			issues = append(issues, fmt.Errorf("subgraph node %s refers to its own workflow", base.ID))
		}
	case *graph.Parallel:
		if len(actual.Branches) == 0 {
			issues = append(issues, fmt.Errorf("parallel node %s has no branches", base.ID))
		}
		for _, branch := range actual.Branches {
			issues = append(issues, w.validateBranch(actual, branch, seen)...)
		}
	}
	return issues
}

// validateBranch walks a parallel branch chain up to the join node; only
// action, wait and conditional nodes may appear inside.
func (w *Workflow) validateBranch(parallel *graph.Parallel, start string, seen map[string]graph.Node) []error {
	var issues []error
	visited := map[string]bool{}
	pending := []string{start}
	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		if id == "" || id == parallel.Next || visited[id] {
			continue
		}
		visited[id] = true
		node, ok := seen[id]
		if !ok {
			continue
		}
		switch node.Kind() {
		case graph.KindAction, graph.KindWait, graph.KindConditional:
		default:
			issues = append(issues, fmt.Errorf("parallel node %s: branch node %s of type %s is not allowed", parallel.ID, id, node.Kind()))
		}
		pending = append(pending, node.Targets()...)
		if onError := node.Common().OnError; onError != "" {
			pending = append(pending, onError)
		}
	}
	return issues
}

// NewWorkflow creates a new workflow with the given id
func NewWorkflow(id string) *Workflow {
	return &Workflow{ID: id}
}

// WithName sets the workflow name
func (w *Workflow) WithName(name string) *Workflow {
	w.Name = name
	return w
}

// WithDescription sets the description of the workflow
func (w *Workflow) WithDescription(description string) *Workflow {
	w.Description = description
	return w
}

// WithVersion sets the version of the workflow
func (w *Workflow) WithVersion(version string) *Workflow {
	w.Version = version
	return w
}

// WithStart sets the start node id
func (w *Workflow) WithStart(id string) *Workflow {
	w.Start = id
	return w
}

// AddNode appends nodes; the first node added becomes the start node when none is set.
func (w *Workflow) AddNode(nodes ...graph.Node) *Workflow {
	for _, node := range nodes {
		if w.Start == "" {
			w.Start = node.Common().ID
		}
		w.Nodes = append(w.Nodes, node)
	}
	return w
}

// Clone creates a shallow copy sharing the immutable node values.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	clone := &Workflow{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Version:     w.Version,
		Start:       w.Start,
	}
	clone.Nodes = append(graph.Nodes{}, w.Nodes...)
	return clone
}

// DurationOf parses an optional duration string.
func DurationOf(value string) time.Duration {
	if value == "" {
		return 0
	}
	d, _ := time.ParseDuration(value)
	return d
}
