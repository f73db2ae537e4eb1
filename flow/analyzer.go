package flow

import "github.com/lyzr/flowengine/node"

// Analyzer answers traversal and reachability questions about a Graph
// without mutating it.
type Analyzer struct {
	Graph *Graph
}

// NewAnalyzer returns an Analyzer over graph.
func NewAnalyzer(graph *Graph) *Analyzer {
	return &Analyzer{Graph: graph}
}

// ProducerNodeIDs returns the ids of every node whose instance is a
// node.Producer.
func (a *Analyzer) ProducerNodeIDs() []string {
	var ids []string
	for id, fn := range a.Graph.NodeMap {
		if _, ok := fn.Instance.(node.Producer); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ProducerNodes returns the FlowNode for every producer in the graph.
func (a *Analyzer) ProducerNodes() []*FlowNode {
	var nodes []*FlowNode
	for _, id := range a.ProducerNodeIDs() {
		nodes = append(nodes, a.Graph.NodeMap[id])
	}
	return nodes
}

// GetFirstNodeID picks the entry point of the graph: a node with no
// incoming edges if one exists, else the first producer, else an
// arbitrary node, else "" if the graph is empty.
func (a *Analyzer) GetFirstNodeID() string {
	if len(a.Graph.NodeMap) == 0 {
		return ""
	}

	hasIncoming := make(map[string]bool)
	for _, fn := range a.Graph.NodeMap {
		for _, list := range fn.Next {
			for _, child := range list {
				hasIncoming[child.ID] = true
			}
		}
	}

	for id := range a.Graph.NodeMap {
		if !hasIncoming[id] {
			return id
		}
	}

	if producers := a.ProducerNodeIDs(); len(producers) > 0 {
		return producers[0]
	}

	for id := range a.Graph.NodeMap {
		return id
	}
	return ""
}

// FindNonBlockingNodes returns every FlowNode whose instance is a
// node.NonBlocking.
func (a *Analyzer) FindNonBlockingNodes() []*FlowNode {
	var nodes []*FlowNode
	for _, fn := range a.Graph.NodeMap {
		if _, ok := fn.Instance.(node.NonBlocking); ok {
			nodes = append(nodes, fn)
		}
	}
	return nodes
}

// ReachableNodeIDs returns the set of ids reachable from startID,
// including startID itself.
func (a *Analyzer) ReachableNodeIDs(startID string) map[string]bool {
	reachable := make(map[string]bool)
	start := a.Graph.NodeMap[startID]
	if start == nil {
		return reachable
	}

	var visit func(fn *FlowNode)
	visit = func(fn *FlowNode) {
		if reachable[fn.ID] {
			return
		}
		reachable[fn.ID] = true
		for _, child := range fn.AllNext() {
			visit(child)
		}
	}
	visit(start)
	return reachable
}

// FindEndingNode walks from producer following the first branch at each
// step whose subtree reaches a NonBlocking node, returning that node. It
// mirrors the source's producer-to-sink loop detection used for
// diagnostics; it returns nil if no NonBlocking node is reachable.
func (a *Analyzer) FindEndingNode(producer *FlowNode) *FlowNode {
	visited := make(map[string]bool)
	var walk func(fn *FlowNode, seen map[string]bool) *FlowNode
	walk = func(fn *FlowNode, seen map[string]bool) *FlowNode {
		if _, ok := fn.Instance.(node.NonBlocking); ok {
			return fn
		}
		if seen[fn.ID] {
			return nil
		}
		seen[fn.ID] = true

		for _, list := range fn.Next {
			for _, child := range list {
				branchSeen := make(map[string]bool, len(seen))
				for k := range seen {
					branchSeen[k] = true
				}
				if ending := walk(child, branchSeen); ending != nil {
					return ending
				}
			}
		}
		return nil
	}
	return walk(producer, visited)
}

// FindLoops pairs every producer with the NonBlocking node that terminates
// its chain, for callers that want to report on loop shape.
func (a *Analyzer) FindLoops() map[string]*FlowNode {
	loops := make(map[string]*FlowNode)
	for _, producer := range a.ProducerNodes() {
		if ending := a.FindEndingNode(producer); ending != nil {
			loops[producer.ID] = ending
		}
	}
	return loops
}
