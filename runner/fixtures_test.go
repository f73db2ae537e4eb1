package runner_test

import (
	"context"
	"sync"

	"github.com/lyzr/flowengine/node"
)

// blockingNode is a plain synchronous node whose behavior is supplied by
// the test via fn; a nil fn just clones its input through.
type blockingNode struct {
	node.Base
	fn   func(in *node.Output) (*node.Output, error)
	pool node.PoolType

	mu    sync.Mutex
	calls int
	seen  []*node.Output
}

func newBlockingNode(id string, fn func(in *node.Output) (*node.Output, error)) *blockingNode {
	return &blockingNode{Base: node.NewBase(node.Config{ID: id}), fn: fn}
}

func (n *blockingNode) Kind() node.Kind { return node.KindBlocking }
func (n *blockingNode) ExecutionPool() node.PoolType {
	if n.pool == "" {
		return node.PoolAsync
	}
	return n.pool
}
func (n *blockingNode) InputPorts() []node.Port  { return nil }
func (n *blockingNode) OutputPorts() []node.Port { return nil }
func (n *blockingNode) SupportedWorkflowTypes() []node.WorkflowType {
	return []node.WorkflowType{node.WorkflowProduction, node.WorkflowAPI}
}
func (n *blockingNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	n.mu.Lock()
	n.calls++
	n.seen = append(n.seen, in)
	n.mu.Unlock()
	if n.fn != nil {
		return n.fn(in)
	}
	return in.Clone(), nil
}
func (n *blockingNode) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}
func (n *blockingNode) Seen() []*node.Output {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*node.Output(nil), n.seen...)
}

// nonBlockingNode is a terminal sink: the production runner never walks
// past it.
type nonBlockingNode struct {
	blockingNode
	node.NonBlockingMarker
}

func newNonBlockingNode(id string, fn func(in *node.Output) (*node.Output, error)) *nonBlockingNode {
	return &nonBlockingNode{blockingNode: blockingNode{Base: node.NewBase(node.Config{ID: id}), fn: fn}}
}
func (n *nonBlockingNode) Kind() node.Kind { return node.KindNonBlocking }

// producerNode replays a fixed sequence of outputs, returning the
// completion sentinel once exhausted.
type producerNode struct {
	node.Base
	node.ProducerMarker

	mu      sync.Mutex
	outputs []*node.Output
	idx     int
	cleaned int
}

func newProducerNode(id string, outputs ...*node.Output) *producerNode {
	return &producerNode{Base: node.NewBase(node.Config{ID: id}), outputs: outputs}
}
func (p *producerNode) Kind() node.Kind              { return node.KindProducer }
func (p *producerNode) ExecutionPool() node.PoolType { return node.PoolAsync }
func (p *producerNode) InputPorts() []node.Port      { return nil }
func (p *producerNode) OutputPorts() []node.Port     { return nil }
func (p *producerNode) SupportedWorkflowTypes() []node.WorkflowType {
	return []node.WorkflowType{node.WorkflowProduction}
}
func (p *producerNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx >= len(p.outputs) {
		return node.Completed(), nil
	}
	out := p.outputs[p.idx]
	p.idx++
	return out, nil
}
func (p *producerNode) Cleanup(ctx context.Context, in *node.Output) error {
	p.mu.Lock()
	p.cleaned++
	p.mu.Unlock()
	return nil
}
func (p *producerNode) CleanupCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleaned
}

// conditionalNode sets its route from wantYes on every Run.
type conditionalNode struct {
	node.ConditionalBase
	wantYes bool
}

func newConditionalNode(id string, wantYes bool) *conditionalNode {
	return &conditionalNode{ConditionalBase: node.ConditionalBase{Base: node.NewBase(node.Config{ID: id})}, wantYes: wantYes}
}
func (c *conditionalNode) Kind() node.Kind              { return node.KindConditional }
func (c *conditionalNode) ExecutionPool() node.PoolType { return node.PoolAsync }
func (c *conditionalNode) InputPorts() []node.Port      { return nil }
func (c *conditionalNode) OutputPorts() []node.Port     { return node.ConditionalPorts() }
func (c *conditionalNode) SupportedWorkflowTypes() []node.WorkflowType {
	return []node.WorkflowType{node.WorkflowProduction, node.WorkflowAPI}
}
func (c *conditionalNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	c.SetRoute(c.wantYes)
	return in.Clone(), nil
}

// iterLoopNode puts a fixed slice under key into its output's Data so
// routing.IterationItems can extract it.
type iterLoopNode struct {
	node.Base
	key   string
	items []interface{}
}

func newIterLoopNode(id, key string, items ...interface{}) *iterLoopNode {
	return &iterLoopNode{Base: node.NewBase(node.Config{ID: id}), key: key, items: items}
}
func (l *iterLoopNode) Kind() node.Kind              { return node.KindLoop }
func (l *iterLoopNode) ExecutionPool() node.PoolType { return node.PoolAsync }
func (l *iterLoopNode) InputPorts() []node.Port      { return nil }
func (l *iterLoopNode) OutputPorts() []node.Port     { return node.LoopPorts() }
func (l *iterLoopNode) SupportedWorkflowTypes() []node.WorkflowType {
	return []node.WorkflowType{node.WorkflowProduction, node.WorkflowAPI}
}
func (l *iterLoopNode) IterationKey() string { return l.key }
func (l *iterLoopNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	out := in.Clone()
	out.Data[l.key] = l.items
	return out, nil
}
