package node

import (
	"context"
	"sync"
)

// Base carries the bookkeeping every concrete node embeds regardless of
// kind: its static config and a count of non-sentinel executions.
//
// Concrete node types embed Base and implement Kind/ExecutionPool/Ports/
// Run/Cleanup/IsReady themselves; Base only supplies the parts that are
// identical across every node in the original contract.
type Base struct {
	Config Config

	mu        sync.Mutex
	count     int
	validated bool
}

// NewBase returns a Base carrying cfg.
func NewBase(cfg Config) Base {
	return Base{Config: cfg}
}

// ID returns the node's graph-unique identifier.
func (b *Base) ID() string { return b.Config.ID }

// Touch increments the execution counter. Dispatch calls this once per
// non-sentinel Run, mirroring BaseNode.execution_count in the source
// contract.
func (b *Base) Touch() {
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
}

// ExecutionCount returns how many non-sentinel Run calls this node has
// completed.
func (b *Base) ExecutionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// MarkValidated records that NodeValidator has already confirmed this
// node is ready, so Init can skip repeating that check.
func (b *Base) MarkValidated() {
	b.mu.Lock()
	b.validated = true
	b.mu.Unlock()
}

// Validated reports whether MarkValidated has been called.
func (b *Base) Validated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validated
}

// Init is a no-op default; nodes that need one-time setup override it.
func (b *Base) Init(ctx context.Context) error { return nil }

// IsReady defaults to "no required fields missing"; nodes with form
// fields override it to validate their ConfigData.Form.
func (b *Base) IsReady() (bool, []string) { return true, nil }

// Cleanup is a no-op default; stateful nodes (open handles, subscriptions)
// override it.
func (b *Base) Cleanup(ctx context.Context, input *Output) error { return nil }

// ProducerMarker is embedded by node types that start a production loop
// iteration, so they satisfy the Producer interface. Producer's defining
// method is unexported, which is what stops a plain struct outside this
// package from claiming the role by accident; embedding this marker is the
// only way in.
type ProducerMarker struct{}

func (ProducerMarker) isProducer() {}

// NonBlockingMarker is embedded by terminal-sink node types so they satisfy
// the NonBlocking interface. See ProducerMarker for why this has to be an
// embeddable type rather than a method every package can declare for
// itself.
type NonBlockingMarker struct{}

func (NonBlockingMarker) isNonBlocking() {}

// ConditionalBase adds the yes/no route state a Conditional node needs on
// top of Base.
type ConditionalBase struct {
	Base
	route string
}

// Route returns the branch this node selected after its last Run: "yes",
// "no", or "" before the first run.
func (c *ConditionalBase) Route() string { return c.route }

// SetRoute records the node's branch decision.
func (c *ConditionalBase) SetRoute(yes bool) {
	if yes {
		c.route = "yes"
	} else {
		c.route = "no"
	}
}

// ConditionalPorts returns the fixed two-port topology every conditional
// node exposes.
func ConditionalPorts() []Port {
	return []Port{{ID: "yes", Label: "Yes"}, {ID: "no", Label: "No"}}
}

// LoopPorts returns the fixed two-port topology every loop node exposes.
func LoopPorts() []Port {
	return []Port{{ID: "default", Label: "Default"}, {ID: "subdag", Label: "Loop body"}}
}
