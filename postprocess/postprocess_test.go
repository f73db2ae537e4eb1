package postprocess_test

import (
	"context"
	"testing"

	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/postprocess"
	"github.com/lyzr/flowengine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueWriterNode struct {
	node.QueueEndpointBase
	node.QueueWriterMarker
}

func (q *queueWriterNode) Kind() node.Kind                          { return node.KindBlocking }
func (q *queueWriterNode) ExecutionPool() node.PoolType              { return node.PoolAsync }
func (q *queueWriterNode) InputPorts() []node.Port                   { return nil }
func (q *queueWriterNode) OutputPorts() []node.Port                  { return nil }
func (q *queueWriterNode) SupportedWorkflowTypes() []node.WorkflowType { return nil }
func (q *queueWriterNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	return in, nil
}

type queueReaderNode struct {
	node.QueueEndpointBase
	node.QueueReaderMarker
}

func (q *queueReaderNode) Kind() node.Kind                          { return node.KindBlocking }
func (q *queueReaderNode) ExecutionPool() node.PoolType              { return node.PoolAsync }
func (q *queueReaderNode) InputPorts() []node.Port                   { return nil }
func (q *queueReaderNode) OutputPorts() []node.Port                  { return nil }
func (q *queueReaderNode) SupportedWorkflowTypes() []node.WorkflowType { return nil }
func (q *queueReaderNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	return in, nil
}

type readyNode struct {
	node.Base
	ready  bool
	errMsg string
}

func (r *readyNode) Kind() node.Kind                          { return node.KindBlocking }
func (r *readyNode) ExecutionPool() node.PoolType              { return node.PoolAsync }
func (r *readyNode) InputPorts() []node.Port                   { return nil }
func (r *readyNode) OutputPorts() []node.Port                  { return nil }
func (r *readyNode) SupportedWorkflowTypes() []node.WorkflowType { return nil }
func (r *readyNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	return in, nil
}
func (r *readyNode) IsReady() (bool, []string) {
	if r.ready {
		return true, nil
	}
	return false, []string{r.errMsg}
}

func TestQueueMapperAssignsDeterministicName(t *testing.T) {
	g := flow.NewGraph()
	w := &queueWriterNode{QueueEndpointBase: node.QueueEndpointBase{Base: node.NewBase(node.Config{ID: "w1"})}}
	r := &queueReaderNode{QueueEndpointBase: node.QueueEndpointBase{Base: node.NewBase(node.Config{ID: "r1"})}}

	require.NoError(t, g.AddNode(flow.NewFlowNode("w1", w)))
	require.NoError(t, g.AddNode(flow.NewFlowNode("r1", r)))
	require.NoError(t, g.ConnectNodes("w1", "r1", "default"))

	mapper := postprocess.NewQueueMapper(g)
	require.NoError(t, mapper.Execute(postprocess.Options{}))

	assert.Equal(t, "queue_w1_r1", w.QueueName())
	assert.Equal(t, "queue_w1_r1", r.QueueName())
}

func TestQueueMapperDoesNotOverrideUserSuppliedName(t *testing.T) {
	g := flow.NewGraph()
	w := &queueWriterNode{QueueEndpointBase: node.QueueEndpointBase{Base: node.NewBase(node.Config{ID: "w1"})}}
	w.SetQueueName("custom-queue")
	r := &queueReaderNode{QueueEndpointBase: node.QueueEndpointBase{Base: node.NewBase(node.Config{ID: "r1"})}}

	require.NoError(t, g.AddNode(flow.NewFlowNode("w1", w)))
	require.NoError(t, g.AddNode(flow.NewFlowNode("r1", r)))
	require.NoError(t, g.ConnectNodes("w1", "r1", "default"))

	mapper := postprocess.NewQueueMapper(g)
	require.NoError(t, mapper.Execute(postprocess.Options{}))

	assert.Equal(t, "custom-queue", w.QueueName())
	assert.Equal(t, "queue_w1_r1", r.QueueName())
}

func TestNodeValidatorAggregatesFailures(t *testing.T) {
	g := flow.NewGraph()
	bad1 := &readyNode{Base: node.NewBase(node.Config{ID: "bad1"}), errMsg: "field x required"}
	bad2 := &readyNode{Base: node.NewBase(node.Config{ID: "bad2"}), errMsg: "field y required"}
	good := &readyNode{Base: node.NewBase(node.Config{ID: "good"}), ready: true}

	require.NoError(t, g.AddNode(flow.NewFlowNode("bad1", bad1)))
	require.NoError(t, g.AddNode(flow.NewFlowNode("bad2", bad2)))
	require.NoError(t, g.AddNode(flow.NewFlowNode("good", good)))

	validator := postprocess.NewNodeValidator(g)
	err := validator.Execute(postprocess.Options{})

	require.Error(t, err)
	var valErr *postprocess.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Failures, 2)
	assert.Contains(t, valErr.Failures, "bad1")
	assert.Contains(t, valErr.Failures, "bad2")
	assert.True(t, good.Validated())
}

func TestNodeValidatorScopedValidation(t *testing.T) {
	g := flow.NewGraph()
	bad := &readyNode{Base: node.NewBase(node.Config{ID: "bad"}), errMsg: "bad"}
	good := &readyNode{Base: node.NewBase(node.Config{ID: "good"}), ready: true}

	require.NoError(t, g.AddNode(flow.NewFlowNode("bad", bad)))
	require.NoError(t, g.AddNode(flow.NewFlowNode("good", good)))

	validator := postprocess.NewNodeValidator(g)
	err := validator.Execute(postprocess.Options{ValidateOnlyNodeIDs: map[string]bool{"good": true}})

	require.NoError(t, err)
	assert.True(t, good.Validated())
	assert.False(t, bad.Validated())
}

func TestDefaultPipelineRunsInOrder(t *testing.T) {
	g := flow.NewGraph()
	reg := registry.New()
	_ = reg

	w := &queueWriterNode{QueueEndpointBase: node.QueueEndpointBase{Base: node.NewBase(node.Config{ID: "w1"})}}
	r := &queueReaderNode{QueueEndpointBase: node.QueueEndpointBase{Base: node.NewBase(node.Config{ID: "r1"})}}
	require.NoError(t, g.AddNode(flow.NewFlowNode("w1", w)))
	require.NoError(t, g.AddNode(flow.NewFlowNode("r1", r)))
	require.NoError(t, g.ConnectNodes("w1", "r1", "default"))

	err := postprocess.Run(g, postprocess.Default(g), postprocess.Options{})
	require.NoError(t, err)
	assert.Equal(t, "queue_w1_r1", w.QueueName())
}
