package flow_test

import (
	"context"
	"testing"

	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	node.Base
	node.ProducerMarker
	node.NonBlockingMarker
	producer    bool
	nonBlocking bool
}

func (t *testNode) Kind() node.Kind {
	if t.producer {
		return node.KindProducer
	}
	return node.KindBlocking
}
func (t *testNode) ExecutionPool() node.PoolType                 { return node.PoolAsync }
func (t *testNode) InputPorts() []node.Port                      { return nil }
func (t *testNode) OutputPorts() []node.Port                     { return nil }
func (t *testNode) SupportedWorkflowTypes() []node.WorkflowType   { return nil }
func (t *testNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) { return in, nil }

func newTestRegistry() *registry.Registry {
	r := registry.New()
	r.Register("producer", func(cfg node.Config) (node.Node, error) {
		return &testNode{Base: node.NewBase(cfg), producer: true}, nil
	})
	r.Register("blocking", func(cfg node.Config) (node.Node, error) {
		return &testNode{Base: node.NewBase(cfg)}, nil
	})
	r.Register("sink", func(cfg node.Config) (node.Node, error) {
		return &testNode{Base: node.NewBase(cfg), nonBlocking: true}, nil
	})
	return r
}

func TestBuilderLoadsNodesAndEdges(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())

	err := b.Load(flow.Document{
		Nodes: []flow.NodeDef{
			{ID: "p1", Type: "producer"},
			{ID: "b1", Type: "blocking"},
		},
		Edges: []flow.EdgeDef{
			{Source: "p1", Target: "b1"},
		},
	})
	require.NoError(t, err)

	assert.Len(t, g.NodeMap, 2)
	next := g.GetAllNext("p1")
	require.Contains(t, next, "default")
	assert.Equal(t, "b1", next["default"][0].ID)
}

func TestBuilderSkipsEdgeToUnknownNode(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())

	err := b.Load(flow.Document{
		Nodes: []flow.NodeDef{{ID: "p1", Type: "producer"}},
		Edges: []flow.EdgeDef{{Source: "p1", Target: "missing"}},
	})

	require.NoError(t, err)
	assert.Empty(t, g.GetAllNext("p1"))
}

func TestBuilderAbortsOnUnknownNodeType(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())

	err := b.Load(flow.Document{
		Nodes: []flow.NodeDef{{ID: "p1", Type: "does-not-exist"}},
	})

	require.Error(t, err)
	var buildErr *flow.BuildError
	assert.ErrorAs(t, err, &buildErr)
}

func TestBranchKeyNormalizer(t *testing.T) {
	var n flow.BranchKeyNormalizer
	assert.Equal(t, "default", n.NormalizeToLowercase(""))
	assert.Equal(t, "yes", n.NormalizeToLowercase("Yes"))
	assert.Equal(t, "no", n.NormalizeToLowercase("No"))
	assert.Equal(t, "default", n.NormalizeForDisplay("default"))
	assert.Equal(t, "Yes", n.NormalizeForDisplay("yes"))
}

func TestAnalyzerGetFirstNodeIDPrefersRootNode(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())
	require.NoError(t, b.Load(flow.Document{
		Nodes: []flow.NodeDef{
			{ID: "p1", Type: "producer"},
			{ID: "b1", Type: "blocking"},
		},
		Edges: []flow.EdgeDef{{Source: "p1", Target: "b1"}},
	}))

	a := flow.NewAnalyzer(g)
	assert.Equal(t, "p1", a.GetFirstNodeID())
}

func TestAnalyzerReachableNodeIDs(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())
	require.NoError(t, b.Load(flow.Document{
		Nodes: []flow.NodeDef{
			{ID: "p1", Type: "producer"},
			{ID: "b1", Type: "blocking"},
			{ID: "s1", Type: "sink"},
			{ID: "isolated", Type: "blocking"},
		},
		Edges: []flow.EdgeDef{
			{Source: "p1", Target: "b1"},
			{Source: "b1", Target: "s1"},
		},
	}))

	a := flow.NewAnalyzer(g)
	reachable := a.ReachableNodeIDs("p1")
	assert.True(t, reachable["p1"])
	assert.True(t, reachable["b1"])
	assert.True(t, reachable["s1"])
	assert.False(t, reachable["isolated"])
}

func TestValidateAcyclicRejectsCycle(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())
	require.NoError(t, b.Load(flow.Document{
		Nodes: []flow.NodeDef{
			{ID: "a", Type: "blocking"},
			{ID: "b", Type: "blocking"},
		},
	}))
	require.NoError(t, g.ConnectNodes("a", "b", "default"))
	require.NoError(t, g.ConnectNodes("b", "a", "default"))

	err := flow.ValidateAcyclic(g)
	require.Error(t, err)
}

func TestValidateAcyclicAcceptsDAG(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())
	require.NoError(t, b.Load(flow.Document{
		Nodes: []flow.NodeDef{
			{ID: "a", Type: "blocking"},
			{ID: "b", Type: "blocking"},
			{ID: "c", Type: "blocking"},
		},
		Edges: []flow.EdgeDef{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "c"},
		},
	}))

	assert.NoError(t, flow.ValidateAcyclic(g))
}

func TestConnectNodesRejectsDuplicateEdge(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())
	require.NoError(t, b.Load(flow.Document{
		Nodes: []flow.NodeDef{
			{ID: "a", Type: "blocking"},
			{ID: "b", Type: "blocking"},
		},
	}))

	require.NoError(t, g.ConnectNodes("a", "b", "default"))
	err := g.ConnectNodes("a", "b", "default")

	require.Error(t, err)
	assert.Len(t, g.GetAllNext("a")["default"], 1)
}

func TestConnectNodesAllowsSameTargetOnDifferentKeys(t *testing.T) {
	g := flow.NewGraph()
	b := flow.NewBuilder(g, newTestRegistry())
	require.NoError(t, b.Load(flow.Document{
		Nodes: []flow.NodeDef{
			{ID: "a", Type: "blocking"},
			{ID: "b", Type: "blocking"},
		},
	}))

	require.NoError(t, g.ConnectNodes("a", "b", "yes"))
	require.NoError(t, g.ConnectNodes("a", "b", "no"))
}

func TestApplyPatchOverridesField(t *testing.T) {
	original := []byte(`{"nodes":[{"id":"p1","type":"producer"}]}`)
	patch := []byte(`[{"op":"add","path":"/env","value":{"k":"v"}}]`)

	out, err := flow.ApplyPatch(original, patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[{"id":"p1","type":"producer"}],"env":{"k":"v"}}`, string(out))
}
