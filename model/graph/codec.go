package graph

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Nodes is an ordered node list that decodes variants by their "type" field.
type Nodes []Node

// New returns an empty variant for kind.
func New(kind Kind) (Node, error) {
	switch kind {
	case KindAction:
		return &Action{}, nil
	case KindConditional:
		return &Conditional{}, nil
	case KindParallel:
		return &Parallel{}, nil
	case KindApproval:
		return &Approval{}, nil
	case KindWait:
		return &Wait{}, nil
	case KindSubgraph:
		return &Subgraph{}, nil
	}
	return nil, fmt.Errorf("unsupported node type %q", kind)
}

type typeHeader struct {
	ID   string `json:"id" yaml:"id"`
	Type Kind   `json:"type" yaml:"type"`
}

// UnmarshalYAML decodes a YAML sequence of nodes.
func (n *Nodes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("nodes: expected sequence, got %v", value.Tag)
	}
	ret := make(Nodes, 0, len(value.Content))
	for _, item := range value.Content {
		header := &typeHeader{}
		if err := item.Decode(header); err != nil {
			return err
		}
		node, err := New(header.Type)
		if err != nil {
			return fmt.Errorf("node %v: %w", header.ID, err)
		}
		if err = item.Decode(node); err != nil {
			return fmt.Errorf("node %v: %w", header.ID, err)
		}
		ret = append(ret, node)
	}
	*n = ret
	return nil
}

// MarshalJSON encodes every node with its "type" discriminator.
func (n Nodes) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(n))
	for _, node := range n {
		data, err := json.Marshal(node)
		if err != nil {
			return nil, err
		}
		fields := map[string]json.RawMessage{}
		if err = json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		fields["type"], _ = json.Marshal(node.Kind())
		if data, err = json.Marshal(fields); err != nil {
			return nil, err
		}
		items = append(items, data)
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes nodes encoded by MarshalJSON.
func (n *Nodes) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	ret := make(Nodes, 0, len(items))
	for _, item := range items {
		header := &typeHeader{}
		if err := json.Unmarshal(item, header); err != nil {
			return err
		}
		node, err := New(header.Type)
		if err != nil {
			return fmt.Errorf("node %v: %w", header.ID, err)
		}
		if err = json.Unmarshal(item, node); err != nil {
			return fmt.Errorf("node %v: %w", header.ID, err)
		}
		ret = append(ret, node)
	}
	*n = ret
	return nil
}
