package routing_test

import (
	"context"
	"testing"

	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/routing"
	"github.com/stretchr/testify/assert"
)

type plainNode struct {
	node.Base
}

func (p *plainNode) Kind() node.Kind                            { return node.KindBlocking }
func (p *plainNode) ExecutionPool() node.PoolType                { return node.PoolAsync }
func (p *plainNode) InputPorts() []node.Port                     { return nil }
func (p *plainNode) OutputPorts() []node.Port                    { return nil }
func (p *plainNode) SupportedWorkflowTypes() []node.WorkflowType { return nil }
func (p *plainNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	return in, nil
}

type conditionalNode struct {
	node.ConditionalBase
}

func (c *conditionalNode) Kind() node.Kind                            { return node.KindConditional }
func (c *conditionalNode) ExecutionPool() node.PoolType                { return node.PoolAsync }
func (c *conditionalNode) InputPorts() []node.Port                     { return nil }
func (c *conditionalNode) OutputPorts() []node.Port                    { return node.ConditionalPorts() }
func (c *conditionalNode) SupportedWorkflowTypes() []node.WorkflowType { return nil }
func (c *conditionalNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	return in, nil
}

type loopNode struct {
	node.Base
}

func (l *loopNode) Kind() node.Kind                            { return node.KindLoop }
func (l *loopNode) ExecutionPool() node.PoolType                { return node.PoolAsync }
func (l *loopNode) InputPorts() []node.Port                     { return nil }
func (l *loopNode) OutputPorts() []node.Port                    { return node.LoopPorts() }
func (l *loopNode) SupportedWorkflowTypes() []node.WorkflowType { return nil }
func (l *loopNode) IterationKey() string                        { return "items" }
func (l *loopNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	return in, nil
}

func newFlowNode(id string, instance node.Node) *flow.FlowNode {
	return flow.NewFlowNode(id, instance)
}

func TestSelectNextBroadcastsSentinelToAllBranches(t *testing.T) {
	fn := newFlowNode("n1", &plainNode{Base: node.NewBase(node.Config{ID: "n1"})})
	yes := newFlowNode("yes-child", &plainNode{Base: node.NewBase(node.Config{ID: "yes-child"})})
	no := newFlowNode("no-child", &plainNode{Base: node.NewBase(node.Config{ID: "no-child"})})
	fn.AddNext(yes, "yes")
	fn.AddNext(no, "no")

	next := routing.SelectNext(fn, node.Completed())

	assert.ElementsMatch(t, []*flow.FlowNode{yes, no}, next)
}

func TestSelectNextFollowsConditionalRoute(t *testing.T) {
	c := &conditionalNode{ConditionalBase: node.ConditionalBase{Base: node.NewBase(node.Config{ID: "c1"})}}
	c.SetRoute(true)
	fn := newFlowNode("c1", c)
	yesChild := newFlowNode("yes-child", &plainNode{Base: node.NewBase(node.Config{ID: "yes-child"})})
	noChild := newFlowNode("no-child", &plainNode{Base: node.NewBase(node.Config{ID: "no-child"})})
	fn.AddNext(yesChild, "yes")
	fn.AddNext(noChild, "no")

	next := routing.SelectNext(fn, node.NewOutput())

	assert.Equal(t, []*flow.FlowNode{yesChild}, next)
}

func TestSelectNextFollowsDefaultForPlainNode(t *testing.T) {
	fn := newFlowNode("n1", &plainNode{Base: node.NewBase(node.Config{ID: "n1"})})
	child := newFlowNode("child", &plainNode{Base: node.NewBase(node.Config{ID: "child"})})
	fn.AddNext(child, "default")

	next := routing.SelectNext(fn, node.NewOutput())

	assert.Equal(t, []*flow.FlowNode{child}, next)
}

func TestLoopBodyAndExitSeparateBranches(t *testing.T) {
	fn := newFlowNode("loop1", &loopNode{Base: node.NewBase(node.Config{ID: "loop1"})})
	body := newFlowNode("body", &plainNode{Base: node.NewBase(node.Config{ID: "body"})})
	exit := newFlowNode("exit", &plainNode{Base: node.NewBase(node.Config{ID: "exit"})})
	fn.AddNext(body, "subdag")
	fn.AddNext(exit, "default")

	assert.Equal(t, []*flow.FlowNode{body}, routing.LoopBody(fn))
	assert.Equal(t, []*flow.FlowNode{exit}, routing.LoopExit(fn))
}

func TestIterationItemsExtractsSlice(t *testing.T) {
	l := &loopNode{Base: node.NewBase(node.Config{ID: "loop1"})}
	out := node.NewOutput()
	out.Data["items"] = []interface{}{"a", "b", "c"}

	items, ok := routing.IterationItems(l, out)

	assert.True(t, ok)
	assert.Len(t, items, 3)
}

func TestIterationItemsMissingKey(t *testing.T) {
	l := &loopNode{Base: node.NewBase(node.Config{ID: "loop1"})}
	_, ok := routing.IterationItems(l, node.NewOutput())
	assert.False(t, ok)
}
