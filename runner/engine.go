package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lyzr/flowengine/events"
	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/pool"
	"github.com/lyzr/flowengine/postprocess"
	"github.com/lyzr/flowengine/registry"
	"github.com/lyzr/flowengine/resolver"
	"github.com/lyzr/flowengine/storage"
)

const apiModeKey = "__api_mode__"
const requestContextKey = "__request_context__"

// Engine owns one loaded workflow: its graph, the shared runtime every node
// can resolve references against, the event bus and state tracker wired to
// it, and the set of production runners currently driving it. It is the
// single entry point embedding callers use instead of wiring flow, pool,
// postprocess, and events together by hand each time.
//
// This type is named flow.Engine in the design this engine follows, but it
// lives in this package rather than flow: it depends on ProductionRunner
// and APIRunner, and flow must never import runner, so the type has to sit
// on the runner side of that boundary.
type Engine struct {
	WorkflowID string

	Graph    *flow.Graph
	Analyzer *flow.Analyzer
	Builder  *flow.Builder
	Registry *registry.Registry
	Executor *pool.Executor
	Events   *events.Emitter
	State    *events.StateTracker
	Store    *storage.Store
	Snapshot storage.SnapshotWriter

	runtime  map[string]interface{}
	outputs  resolver.Outputs
	resolver *resolver.Resolver

	mu      sync.Mutex
	runners []*ProductionRunner
	cancel  context.CancelFunc
}

// New returns an Engine for workflowID, wiring reg into a fresh builder
// over a fresh graph with a fresh event emitter and state tracker;
// executor is used as given.
func New(workflowID string, reg *registry.Registry, executor *pool.Executor) *Engine {
	graph := flow.NewGraph()
	outputs := make(resolver.Outputs)
	return &Engine{
		WorkflowID: workflowID,
		Graph:      graph,
		Analyzer:   flow.NewAnalyzer(graph),
		Builder:    flow.NewBuilder(graph, reg),
		Registry:   reg,
		Executor:   executor,
		Events:     events.NewEmitter(workflowID),
		State:      events.NewStateTracker(workflowID, 0),
		runtime:    make(map[string]interface{}),
		outputs:    outputs,
		resolver:   resolver.New(outputs),
	}
}

// Runtime returns the shared cross-node map condition and resolver
// expressions read from and nodes may write into (e.g. loop accumulators).
func (e *Engine) Runtime() map[string]interface{} { return e.runtime }

// Resolver returns the resolver bound to this engine's live output map.
func (e *Engine) Resolver() *resolver.Resolver { return e.resolver }

// LoadWorkflow builds doc into the engine's graph, validates it is acyclic,
// runs the default post-processing pipeline over every node, and stamps
// doc.Env into the shared runtime under "workflow_env".
func (e *Engine) LoadWorkflow(doc flow.Document) error {
	return e.load(doc, nil)
}

// LoadScoped builds doc the same way LoadWorkflow does, but restricts
// NodeValidator to scopeNodeID plus everything reachable from it, so a
// loop body's sub-DAG can be validated on its own without re-validating
// nodes outside that scope.
func (e *Engine) LoadScoped(doc flow.Document, scopeNodeID string) error {
	if err := e.build(doc); err != nil {
		return err
	}
	scope := e.Analyzer.ReachableNodeIDs(scopeNodeID)
	scope[scopeNodeID] = true
	return e.postprocess(postprocess.Options{ValidateOnlyNodeIDs: scope})
}

func (e *Engine) load(doc flow.Document, scope map[string]bool) error {
	if err := e.build(doc); err != nil {
		return err
	}
	return e.postprocess(postprocess.Options{ValidateOnlyNodeIDs: scope})
}

func (e *Engine) build(doc flow.Document) error {
	if err := e.Builder.Load(doc); err != nil {
		return err
	}
	if err := flow.ValidateAcyclic(e.Graph); err != nil {
		return err
	}
	e.runtime["workflow_env"] = doc.Env
	e.State = events.NewStateTracker(e.WorkflowID, len(e.Graph.NodeMap))
	return nil
}

func (e *Engine) postprocess(opts postprocess.Options) error {
	return postprocess.Run(e.Graph, postprocess.Default(e.Graph), opts)
}

// CreateLoop wires a ProductionRunner around producerNode and registers it
// with the engine's event bus so its node lifecycle also updates the
// shared state tracker and output map.
func (e *Engine) CreateLoop(producerNode *flow.FlowNode) (*ProductionRunner, error) {
	runner, err := NewProductionRunner(producerNode, e.Graph, e.Executor, e.Events)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.runners = append(e.runners, runner)
	e.mu.Unlock()
	return runner, nil
}

// wireEventsToStateTracker subscribes the state tracker and output map to
// the engine's event bus, mirroring FlowEngine's wiring of its
// ExecutionStateTracker to every emitted node event.
func (e *Engine) wireEventsToStateTracker() {
	e.Events.Subscribe(events.NodeStarted, func(p events.Payload) {
		nodeID, _ := p["node_id"].(string)
		nodeType, _ := p["node_type"].(string)
		e.State.OnNodeStarted(nodeID, nodeType)
	})
	e.Events.Subscribe(events.NodeCompleted, func(p events.Payload) {
		nodeID, _ := p["node_id"].(string)
		nodeType, _ := p["node_type"].(string)
		route, _ := p["route"].(string)
		e.State.OnNodeCompleted(nodeID, nodeType, route)

		data, _ := p["output_data"].(map[string]interface{})
		e.outputs[nodeID] = &node.Output{Data: data}
	})
	e.Events.Subscribe(events.NodeFailed, func(p events.Payload) {
		nodeID, _ := p["node_id"].(string)
		e.State.OnNodeFailed(nodeID)
	})
}

// RunProduction starts every registered runner concurrently and blocks
// until all of them return, either because every producer emitted the
// completion sentinel or because ctx was cancelled. Each runner is
// registered with the state tracker before it starts and unregistered
// when it returns, so the tracker's activeRunners count reaches zero (and
// the workflow is marked completed) exactly when the last runner exits.
func (e *Engine) RunProduction(ctx context.Context) error {
	e.wireEventsToStateTracker()
	e.State.StartWorkflow()

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	runners := append([]*ProductionRunner(nil), e.runners...)
	e.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, len(runners))
	for i, r := range runners {
		e.State.RegisterRunner()
		wg.Add(1)
		go func(i int, r *ProductionRunner) {
			defer wg.Done()
			defer e.State.UnregisterRunner()
			errs[i] = r.Start(runCtx)
		}(i, r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			e.Events.EmitWorkflowFailed(err)
			e.State.OnWorkflowFailed(err.Error())
			return err
		}
	}
	e.Events.EmitWorkflowCompleted()
	return nil
}

// ForceShutdown cancels every runner's context and requests every runner
// stop immediately, distinct from a single runner's graceful Shutdown: it
// fans the request out across the whole engine in one call.
func (e *Engine) ForceShutdown() {
	e.mu.Lock()
	cancel := e.cancel
	runners := append([]*ProductionRunner(nil), e.runners...)
	e.runners = nil
	e.mu.Unlock()

	for _, r := range runners {
		r.Shutdown(true)
	}
	if cancel != nil {
		cancel()
	}
}

// RunDevelopmentNode runs a single node directly through node.Dispatch,
// bypassing the pool executor entirely, for interactive single-node
// testing during workflow authoring.
func (e *Engine) RunDevelopmentNode(ctx context.Context, nodeID string, input *node.Output) (*node.Output, error) {
	fn := e.Graph.GetNode(nodeID)
	if fn == nil {
		return nil, fmt.Errorf("node not found: %s", nodeID)
	}
	return node.Dispatch(ctx, fn.Instance, input)
}

// RunAPI executes the workflow once as a synchronous request/response
// flow: the graph's first node must be the configured webhook entry point,
// inputData becomes that node's input with api-mode metadata stamped on
// it, and the whole call is bounded by timeout.
func (e *Engine) RunAPI(ctx context.Context, inputData map[string]interface{}, timeout time.Duration, requestContext map[string]interface{}) (*node.Output, error) {
	startID := e.Analyzer.GetFirstNodeID()
	if startID == "" {
		return nil, fmt.Errorf("workflow %s has no nodes to run", e.WorkflowID)
	}
	start := e.Graph.GetNode(startID)

	input := node.NewOutput()
	for k, v := range inputData {
		input.Data[k] = v
	}
	input.Metadata[apiModeKey] = true
	input.Metadata[requestContextKey] = requestContext
	input.Metadata["workflow_env"] = e.runtime["workflow_env"]
	input.Metadata["runtime"] = e.runtime

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e.wireEventsToStateTracker()
	e.State.StartWorkflow()
	e.State.RegisterRunner()
	defer e.State.UnregisterRunner()

	apiRunner := NewAPIRunner(start, e.Graph, e.Executor, e.Events)
	output, err := apiRunner.Run(runCtx, input)
	if err != nil {
		e.Events.EmitWorkflowFailed(err)
		e.State.OnWorkflowFailed(err.Error())
		return nil, err
	}
	e.Events.EmitWorkflowCompleted()
	return output, nil
}
