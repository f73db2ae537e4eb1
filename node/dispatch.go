package node

import "context"

// Dispatch is the single place that decides whether a node runs its body
// or its cleanup for a given input. Every call site — the pool executor,
// the production runner, the API runner — goes through this instead of
// calling Run/Cleanup directly, so the sentinel rule only has one home:
// on an ExecutionCompleted payload, cleanup fires and the payload passes
// through unchanged; otherwise Run fires and the execution counter ticks.
func Dispatch(ctx context.Context, n Node, input *Output) (*Output, error) {
	if input.IsCompleted() {
		if err := n.Cleanup(ctx, input); err != nil {
			return nil, err
		}
		return input, nil
	}

	output, err := n.Run(ctx, input)
	if err != nil {
		return nil, err
	}
	n.Touch()
	return output, nil
}
