package postprocess

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
)

// ValidationError aggregates every node's readiness failures into one
// error so a caller sees the whole picture instead of stopping at the
// first bad node.
type ValidationError struct {
	Failures map[string][]string
}

func (e *ValidationError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("workflow validation failed:")
	for _, id := range ids {
		fmt.Fprintf(&b, " %s: [%s];", id, strings.Join(e.Failures[id], ", "))
	}
	return b.String()
}

// NodeValidator calls IsReady on every in-scope node, aggregating every
// failure into a single ValidationError rather than stopping at the
// first one.
type NodeValidator struct {
	graph *flow.Graph
}

// NewNodeValidator returns a NodeValidator over graph.
func NewNodeValidator(graph *flow.Graph) *NodeValidator {
	return &NodeValidator{graph: graph}
}

// Execute validates every node in opts.ValidateOnlyNodeIDs, or every node
// in the graph when that set is nil. Nodes that pass are marked
// validated so a later Init can skip re-checking them.
func (v *NodeValidator) Execute(opts Options) error {
	failures := make(map[string][]string)

	for id, fn := range v.graph.NodeMap {
		if opts.ValidateOnlyNodeIDs != nil && !opts.ValidateOnlyNodeIDs[id] {
			continue
		}

		ok, errs := fn.Instance.IsReady()
		if !ok {
			failures[id] = errs
			continue
		}

		if validatable, ok := fn.Instance.(node.Validatable); ok {
			validatable.MarkValidated()
		}
	}

	if len(failures) > 0 {
		return &ValidationError{Failures: failures}
	}
	return nil
}
