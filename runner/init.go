package runner

import (
	"context"
	"fmt"

	"github.com/lyzr/flowengine/flow"
)

// initGraph calls Init on start and every node reachable from it, each
// exactly once, before any runner begins dispatching.
func initGraph(ctx context.Context, start *flow.FlowNode) error {
	return initRecursive(ctx, start, make(map[string]bool))
}

func initRecursive(ctx context.Context, fn *flow.FlowNode, visited map[string]bool) error {
	if visited[fn.ID] {
		return nil
	}
	visited[fn.ID] = true

	if err := fn.Instance.Init(ctx); err != nil {
		return fmt.Errorf("node %s failed to initialize: %w", fn.ID, err)
	}

	for _, children := range fn.Next {
		for _, child := range children {
			if err := initRecursive(ctx, child, visited); err != nil {
				return err
			}
		}
	}
	return nil
}
