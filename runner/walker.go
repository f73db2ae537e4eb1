// Package runner drives a built flow.Graph: a production runner that
// loops a producer forever, a single-pass API runner, and the fork/join
// merge the two share whenever a branch fans out to more than one child.
package runner

import (
	"context"
	"sort"
	"sync"

	"github.com/lyzr/flowengine/events"
	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/pool"
	"github.com/lyzr/flowengine/routing"
)

// walker carries the downstream-traversal policy shared by the production
// and API runners. The only behavioral difference between the two is
// whether a NonBlocking node's subtree is walked any further once it has
// run: the production runner treats it as a dead end (its job is to sink
// output, not to keep a chain alive), the API runner keeps walking so a
// single-pass request/response graph still reaches its final node.
type walker struct {
	executor        *pool.Executor
	analyzer        *flow.Analyzer
	emitter         *events.Emitter
	skipNonBlocking bool
}

// dispatch runs fn's node through the pool executor, emitting start/
// completed/failed events around the call.
func (w *walker) dispatch(ctx context.Context, fn *flow.FlowNode, input *node.Output) (*node.Output, error) {
	inst := fn.Instance
	kind := string(inst.Kind())

	if w.emitter != nil {
		w.emitter.EmitNodeStarted(fn.ID, kind)
	}

	output, err := w.executor.Run(ctx, inst, input)
	if err != nil {
		if w.emitter != nil {
			w.emitter.EmitNodeFailed(fn.ID, kind, err)
		}
		return nil, err
	}

	route := ""
	if c, ok := inst.(node.Conditional); ok {
		route = c.Route()
	}
	if w.emitter != nil {
		w.emitter.EmitNodeCompleted(fn.ID, kind, output.Data, route)
	}
	return output, nil
}

// process decides what to do with fn's output: stop if it has no
// children, recurse into the single child it has, fork across several, or
// (for a Loop node that did not just emit the completion sentinel) walk
// its sub-DAG once per iteration item before continuing through "default".
func (w *walker) process(ctx context.Context, fn *flow.FlowNode, output *node.Output) (*node.Output, error) {
	if loopNode, ok := fn.Instance.(node.Loop); ok && !output.IsCompleted() {
		return w.runLoop(ctx, fn, loopNode, output)
	}

	children := routing.SelectNext(fn, output)
	switch len(children) {
	case 0:
		return output, nil
	case 1:
		return w.runChild(ctx, children[0], output)
	default:
		return w.runFork(ctx, children, output)
	}
}

// runLoop resolves loopNode's iteration array and walks the "subdag"
// branch once per item, injecting the forEachNode payload each node in
// the body sees, before attaching the final forEachNode summary to
// output and continuing through the loop's "default" children.
func (w *walker) runLoop(ctx context.Context, fn *flow.FlowNode, loopNode node.Loop, output *node.Output) (*node.Output, error) {
	items, _ := routing.IterationItems(loopNode, output)
	body := routing.LoopBody(fn)

	results := make([]interface{}, 0, len(items))
	for i, item := range items {
		iterationInput := output.Clone()
		iterationInput.Data["forEachNode"] = map[string]interface{}{
			"input":   items,
			"results": append([]interface{}(nil), results...),
			"state": map[string]interface{}{
				"index": i,
				"item":  item,
			},
		}

		collected, err := w.runLoopBody(ctx, body, iterationInput)
		if err != nil {
			return nil, err
		}
		results = append(results, collected)
	}

	output.Data[output.UniqueKey("forEachNode")] = map[string]interface{}{
		"input":   items,
		"results": results,
	}

	exit := routing.LoopExit(fn)
	switch len(exit) {
	case 0:
		return output, nil
	case 1:
		return w.runChild(ctx, exit[0], output)
	default:
		return w.runFork(ctx, exit, output)
	}
}

// runLoopBody walks the sub-DAG rooted at body as a single-pass mini-run
// for one iteration and returns the data collected from its terminal
// node(s): the lone output if body has a single entry, or the fork-join
// merge of every entry's terminal output if it fans out.
func (w *walker) runLoopBody(ctx context.Context, body []*flow.FlowNode, input *node.Output) (interface{}, error) {
	switch len(body) {
	case 0:
		return input.Data, nil
	case 1:
		result, err := w.dispatch(ctx, body[0], input)
		if err != nil {
			return nil, err
		}
		final, err := w.process(ctx, body[0], result)
		if err != nil {
			return nil, err
		}
		return final.Data, nil
	default:
		outputs, err := runConcurrently(body, func(c *flow.FlowNode) (*node.Output, error) {
			result, err := w.dispatch(ctx, c, input.Clone())
			if err != nil {
				return nil, err
			}
			return w.process(ctx, c, result)
		})
		if err != nil {
			return nil, err
		}
		return mergeBranchOutputs(input, outputs).Data, nil
	}
}

// runChild dispatches child and, unless it is a NonBlocking sink under the
// production runner's policy, keeps walking its own children.
func (w *walker) runChild(ctx context.Context, child *flow.FlowNode, input *node.Output) (*node.Output, error) {
	result, err := w.dispatch(ctx, child, input)
	if err != nil {
		return nil, err
	}

	if w.skipNonBlocking {
		if _, ok := child.Instance.(node.NonBlocking); ok {
			return result, nil
		}
	}

	return w.process(ctx, child, result)
}

// runFork handles a node with more than one child under its selected
// branch key. If the branches reconverge at a common descendant (a join
// node), each branch is walked up to but not including the join, their
// outputs are merged, and traversal continues once from the join. If the
// branches never reconverge, they are simply run to completion
// concurrently and one of their terminal outputs is returned — which one
// is unspecified, since independent branches have no natural "last"
// output the way a join does.
func (w *walker) runFork(ctx context.Context, children []*flow.FlowNode, input *node.Output) (*node.Output, error) {
	joinNode, hasJoin := w.findJoin(children)
	if !hasJoin {
		outputs, err := runConcurrently(children, func(c *flow.FlowNode) (*node.Output, error) {
			return w.runChild(ctx, c, input.Clone())
		})
		if err != nil {
			return nil, err
		}
		return outputs[len(outputs)-1], nil
	}

	branchOutputs, err := runConcurrently(children, func(c *flow.FlowNode) (*node.Output, error) {
		return w.walkToJoin(ctx, c, input.Clone(), joinNode.ID)
	})
	if err != nil {
		return nil, err
	}

	merged := mergeBranchOutputs(input, branchOutputs)
	return w.runChild(ctx, joinNode, merged)
}

// walkToJoin processes fn and, unless its id is joinID, recurses into the
// single downstream path assumed to lead there. A branch that forks again
// before reaching joinID follows only its first selected child; nested
// forks within a fork branch are not resolved any further than that.
func (w *walker) walkToJoin(ctx context.Context, fn *flow.FlowNode, input *node.Output, joinID string) (*node.Output, error) {
	if fn.ID == joinID {
		return input, nil
	}

	result, err := w.dispatch(ctx, fn, input)
	if err != nil {
		return nil, err
	}

	if w.skipNonBlocking {
		if _, ok := fn.Instance.(node.NonBlocking); ok {
			return result, nil
		}
	}

	children := routing.SelectNext(fn, result)
	if len(children) == 0 {
		return result, nil
	}
	return w.walkToJoin(ctx, children[0], result, joinID)
}

// findJoin looks for the earliest node reachable from at least two of
// children: the node a fork started at these children would reconverge
// at. Ties are broken by node id for determinism.
func (w *walker) findJoin(children []*flow.FlowNode) (*flow.FlowNode, bool) {
	if w.analyzer == nil {
		return nil, false
	}

	reachableSets := make([]map[string]bool, len(children))
	for i, c := range children {
		reachableSets[i] = w.analyzer.ReachableNodeIDs(c.ID)
	}

	counts := make(map[string]int)
	for _, set := range reachableSets {
		for id := range set {
			counts[id]++
		}
	}

	var candidates []string
	for id, n := range counts {
		if n >= 2 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Strings(candidates)

	for _, id := range candidates {
		upstreamOfAnother := false
		for _, other := range candidates {
			if other == id {
				continue
			}
			if w.analyzer.ReachableNodeIDs(other)[id] {
				upstreamOfAnother = true
				break
			}
		}
		if !upstreamOfAnother {
			return w.analyzer.Graph.GetNode(id), true
		}
	}
	return w.analyzer.Graph.GetNode(candidates[0]), true
}

// runConcurrently runs fn over every item in parallel, returning results
// in the same order as items. The first error encountered (by index) is
// returned; other goroutines are still allowed to finish since there is no
// cancellation signal wired through fn itself.
func runConcurrently(items []*flow.FlowNode, fn func(*flow.FlowNode) (*node.Output, error)) ([]*node.Output, error) {
	outputs := make([]*node.Output, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item *flow.FlowNode) {
			defer wg.Done()
			outputs[i], errs[i] = fn(item)
		}(i, item)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outputs, nil
}
