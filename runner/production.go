package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lyzr/flowengine/events"
	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/pool"
)

// errorBackoff is how long a ProductionRunner waits before retrying its
// producer after an unhandled error, rather than spinning hot.
const errorBackoff = time.Second

// ProductionRunner drives one producer forever: run the producer, walk its
// downstream nodes, and loop, until it receives the completion sentinel or
// is shut down from outside.
type ProductionRunner struct {
	flowNode *flow.FlowNode
	executor *pool.Executor
	emitter  *events.Emitter
	walker   *walker

	mu        sync.Mutex
	running   bool
	loopCount int
	shutdown  chan struct{}
	once      sync.Once
}

// NewProductionRunner returns a runner for producerNode, which must wrap a
// node.Producer. graph is used to resolve fork/join points among its
// descendants.
func NewProductionRunner(producerNode *flow.FlowNode, graph *flow.Graph, executor *pool.Executor, emitter *events.Emitter) (*ProductionRunner, error) {
	if _, ok := producerNode.Instance.(node.Producer); !ok {
		return nil, fmt.Errorf("node %s is not a producer", producerNode.ID)
	}
	return &ProductionRunner{
		flowNode: producerNode,
		executor: executor,
		emitter:  emitter,
		walker: &walker{
			executor:        executor,
			analyzer:        flow.NewAnalyzer(graph),
			emitter:         emitter,
			skipNonBlocking: true,
		},
		shutdown: make(chan struct{}),
	}, nil
}

// Start runs the producer loop until ctx is cancelled, Shutdown is called,
// or the producer emits the completion sentinel. It always returns after
// initializing every node in its reachable subtree exactly once.
func (r *ProductionRunner) Start(ctx context.Context) error {
	if err := initGraph(ctx, r.flowNode); err != nil {
		return err
	}

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	for r.isRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.shutdown:
			return nil
		default:
		}

		r.mu.Lock()
		r.loopCount++
		r.mu.Unlock()

		if done, err := r.runOnce(ctx); err != nil {
			select {
			case <-time.After(errorBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		} else if done {
			return nil
		}
	}
	return nil
}

// runOnce executes the producer once and walks its downstream nodes,
// returning done == true once the producer emits the completion sentinel.
func (r *ProductionRunner) runOnce(ctx context.Context) (done bool, err error) {
	producer := r.flowNode.Instance
	kind := string(producer.Kind())

	r.emitter.EmitNodeStarted(r.flowNode.ID, kind)

	output, err := r.executor.Run(ctx, producer, node.NewOutput())
	if err != nil {
		r.emitter.EmitNodeFailed(r.flowNode.ID, kind, err)
		return false, err
	}

	route := ""
	if c, ok := producer.(node.Conditional); ok {
		route = c.Route()
	}
	r.emitter.EmitNodeCompleted(r.flowNode.ID, kind, output.Data, route)

	if output.IsCompleted() {
		if err := producer.Cleanup(ctx, output); err != nil {
			return false, err
		}
		if _, err := r.walker.process(ctx, r.flowNode, output); err != nil {
			return false, err
		}
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return true, nil
	}

	if _, err := r.walker.process(ctx, r.flowNode, output); err != nil {
		return false, err
	}
	return false, nil
}

func (r *ProductionRunner) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Shutdown stops the loop after its current iteration. force is accepted
// for symmetry with the caller's force-shutdown path; actually cutting off
// an in-flight node call is the caller's job, done by cancelling the ctx
// passed to Start, since this runner holds no executor of its own to
// force-stop independently of the shared pool.Executor.
func (r *ProductionRunner) Shutdown(force bool) {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.once.Do(func() { close(r.shutdown) })
}

// LoopCount reports how many producer iterations have started.
func (r *ProductionRunner) LoopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loopCount
}
