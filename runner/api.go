package runner

import (
	"context"

	"github.com/lyzr/flowengine/events"
	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/pool"
)

// APIRunner executes a workflow once, start to finish, and returns the
// last node's output. Unlike ProductionRunner it never skips a
// NonBlocking node's downstream subtree: every API workflow is expected to
// reach a definite final node whose output becomes the response.
type APIRunner struct {
	startNode *flow.FlowNode
	executor  *pool.Executor
	emitter   *events.Emitter
	walker    *walker
}

// NewAPIRunner returns a runner that starts at startNode.
func NewAPIRunner(startNode *flow.FlowNode, graph *flow.Graph, executor *pool.Executor, emitter *events.Emitter) *APIRunner {
	return &APIRunner{
		startNode: startNode,
		executor:  executor,
		emitter:   emitter,
		walker: &walker{
			executor:        executor,
			analyzer:        flow.NewAnalyzer(graph),
			emitter:         emitter,
			skipNonBlocking: false,
		},
	}
}

// Run initializes every node reachable from the start node, dispatches the
// start node with input, walks downstream, and returns the final output.
// The caller is responsible for bounding ctx with a timeout; Run itself
// does not impose one.
func (r *APIRunner) Run(ctx context.Context, input *node.Output) (*node.Output, error) {
	if err := initGraph(ctx, r.startNode); err != nil {
		return nil, err
	}

	start := r.startNode.Instance
	kind := string(start.Kind())

	r.emitter.EmitNodeStarted(r.startNode.ID, kind)
	output, err := r.executor.Run(ctx, start, input)
	if err != nil {
		r.emitter.EmitNodeFailed(r.startNode.ID, kind, err)
		return nil, err
	}

	route := ""
	if c, ok := start.(node.Conditional); ok {
		route = c.Route()
	}
	r.emitter.EmitNodeCompleted(r.startNode.ID, kind, output.Data, route)

	final, err := r.walker.process(ctx, r.startNode, output)
	if err != nil {
		return nil, err
	}
	return final, nil
}
