// Package postprocess holds the passes that run over a freshly built
// flow.Graph before it is handed to a runner: automatic queue-name
// assignment and full-graph readiness validation.
package postprocess

import "github.com/lyzr/flowengine/flow"

// PostProcessor is a pass that mutates or inspects a graph after it is
// built. Options carries the optional scoping NodeValidator needs for
// sub-DAG-only validation; other processors ignore it.
type PostProcessor interface {
	Execute(opts Options) error
}

// Options configures a PostProcessor run.
type Options struct {
	// ValidateOnlyNodeIDs restricts NodeValidator to this set of node ids.
	// A nil set means "validate every node in the graph".
	ValidateOnlyNodeIDs map[string]bool
}

// Run executes each processor in order against graph, stopping at the
// first error.
func Run(graph *flow.Graph, processors []PostProcessor, opts Options) error {
	for _, p := range processors {
		if err := p.Execute(opts); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the standard post-processing pipeline: queue-name
// assignment followed by readiness validation.
func Default(graph *flow.Graph) []PostProcessor {
	return []PostProcessor{
		NewQueueMapper(graph),
		NewNodeValidator(graph),
	}
}
