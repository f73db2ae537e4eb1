// Package routing decides which of a FlowNode's children receive its
// output next: every branch for a sentinel, the selected branch for a
// conditional node, and the "subdag" vs "default" split for a loop node.
package routing

import (
	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
)

// SelectNext decides which of fn's children should receive output next.
// A completed (sentinel) output always broadcasts down every branch, since
// every downstream node needs to run Cleanup regardless of which branch it
// sits on. A Conditional node routes down exactly the "yes" or "no" branch
// it selected during Run. Every other kind of node follows its "default"
// branch; a node that never registered a "default" edge (some producers
// wire straight to a differently-labeled handle) falls back to every
// branch it has.
func SelectNext(fn *flow.FlowNode, output *node.Output) []*flow.FlowNode {
	if output.IsCompleted() {
		return fn.AllNext()
	}

	if conditional, ok := fn.Instance.(node.Conditional); ok {
		route := conditional.Route()
		if route == "" {
			route = "no"
		}
		return fn.Next[route]
	}

	if next, ok := fn.Next["default"]; ok {
		return next
	}
	return fn.AllNext()
}

// LoopBody returns fn's "subdag" children: the entry points of the loop
// body a loop node's runner walks once per iteration item.
func LoopBody(fn *flow.FlowNode) []*flow.FlowNode {
	return fn.Next["subdag"]
}

// LoopExit returns fn's "default" children: where the runner continues once
// every iteration item has passed through the loop body.
func LoopExit(fn *flow.FlowNode) []*flow.FlowNode {
	return fn.Next["default"]
}

// IterationItems extracts the slice a Loop node's output designates for
// per-item sub-dag traversal, keyed by the node's own IterationKey.
func IterationItems(l node.Loop, output *node.Output) ([]interface{}, bool) {
	if output == nil {
		return nil, false
	}
	raw, ok := output.Data[l.IterationKey()]
	if !ok {
		return nil, false
	}
	items, ok := raw.([]interface{})
	return items, ok
}
