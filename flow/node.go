package flow

import "github.com/lyzr/flowengine/node"

// FlowNode wraps a live node instance with its outgoing edges. A single
// branch key can fan out to more than one child — e.g. two edges from the
// same node both left on the default handle — so next holds a slice per
// key rather than a single node.
type FlowNode struct {
	ID       string
	Instance node.Node
	Next     map[string][]*FlowNode
}

// NewFlowNode wraps instance for insertion into a Graph.
func NewFlowNode(id string, instance node.Node) *FlowNode {
	return &FlowNode{ID: id, Instance: instance, Next: make(map[string][]*FlowNode)}
}

// AddNext records an outgoing edge to child under key.
func (f *FlowNode) AddNext(child *FlowNode, key string) {
	f.Next[key] = append(f.Next[key], child)
}

// AllNext flattens every branch's children into one slice.
func (f *FlowNode) AllNext() []*FlowNode {
	var all []*FlowNode
	for _, list := range f.Next {
		all = append(all, list...)
	}
	return all
}
