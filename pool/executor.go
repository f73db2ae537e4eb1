// Package pool routes a node's dispatch onto the worker pool its kind
// prefers: inline on the caller's goroutine for async nodes, or onto a
// bounded pool of worker goroutines for thread/process nodes.
//
// The source this engine is modeled on backs "thread" and "process" with
// genuinely different OS-level primitives (a thread pool for blocking I/O,
// a process pool for CPU-bound work that must not hold the GIL). Go has
// no GIL and no non-preemptible interpreter lock to dodge, so both pool
// kinds become the same bounded-goroutine-pool primitive here; the
// distinction is kept at the API boundary only so a node's declared
// ExecutionPool still round-trips and callers can still tune the two pool
// sizes independently.
package pool

import (
	"context"
	"fmt"

	"github.com/lyzr/flowengine/node"
)

const (
	DefaultThreadPoolSize  = 10
	DefaultProcessPoolSize = 4
)

// Executor dispatches node executions onto the pool each node declares.
type Executor struct {
	threadSlots  chan struct{}
	processSlots chan struct{}
}

// New returns an Executor with threadSize concurrent thread-pool slots
// and processSize concurrent process-pool slots. Zero or negative sizes
// fall back to the package defaults.
func New(threadSize, processSize int) *Executor {
	if threadSize <= 0 {
		threadSize = DefaultThreadPoolSize
	}
	if processSize <= 0 {
		processSize = DefaultProcessPoolSize
	}
	return &Executor{
		threadSlots:  make(chan struct{}, threadSize),
		processSlots: make(chan struct{}, processSize),
	}
}

// Run dispatches n on its declared pool and returns its output. It goes
// through node.Dispatch so the sentinel-to-cleanup rule applies
// identically no matter which pool the node prefers.
func (e *Executor) Run(ctx context.Context, n node.Node, input *node.Output) (*node.Output, error) {
	switch n.ExecutionPool() {
	case node.PoolThread:
		return e.runBounded(ctx, e.threadSlots, n, input)
	case node.PoolProcess:
		return e.runBounded(ctx, e.processSlots, n, input)
	case node.PoolAsync:
		return node.Dispatch(ctx, n, input)
	default:
		return nil, fmt.Errorf("node %s declares unknown execution pool %q", n.ID(), n.ExecutionPool())
	}
}

func (e *Executor) runBounded(ctx context.Context, slots chan struct{}, n node.Node, input *node.Output) (*node.Output, error) {
	select {
	case slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-slots }()

	type result struct {
		output *node.Output
		err    error
	}
	done := make(chan result, 1)

	go func() {
		output, err := node.Dispatch(ctx, n, input)
		done <- result{output, err}
	}()

	select {
	case r := <-done:
		return r.output, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
