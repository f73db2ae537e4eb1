// Package node defines the contract every workflow node implements: the
// payload it exchanges, the pool it prefers, and the lifecycle hooks a
// runner calls into.
package node

import (
	"context"

	"github.com/google/uuid"
)

// PoolType names the execution pool a node prefers.
type PoolType string

const (
	PoolAsync   PoolType = "async"
	PoolThread  PoolType = "thread"
	PoolProcess PoolType = "process"
)

// Kind discriminates the five node shapes a runner must special-case.
type Kind string

const (
	KindProducer    Kind = "producer"
	KindBlocking    Kind = "blocking"
	KindNonBlocking Kind = "non_blocking"
	KindConditional Kind = "conditional"
	KindLoop        Kind = "loop"
)

// WorkflowType names a context a node declares support for.
type WorkflowType string

const (
	WorkflowProduction WorkflowType = "production"
	WorkflowAPI        WorkflowType = "api"
)

const completedMarker = "__execution_completed__"

// Port describes one edge endpoint a node exposes.
type Port struct {
	ID    string
	Label string
}

// Output is the typed payload that flows along graph edges.
type Output struct {
	ID       string
	Data     map[string]interface{}
	Metadata map[string]interface{}
}

// NewOutput returns an empty payload with a fresh id, as producers do at
// the start of a loop iteration.
func NewOutput() *Output {
	return &Output{
		ID:       uuid.NewString(),
		Data:     make(map[string]interface{}),
		Metadata: make(map[string]interface{}),
	}
}

// Completed returns the sentinel payload that signals workflow
// termination. Every node that receives it runs Cleanup instead of Run.
func Completed() *Output {
	o := NewOutput()
	o.Metadata[completedMarker] = true
	return o
}

// IsCompleted reports whether o is the termination sentinel.
func (o *Output) IsCompleted() bool {
	if o == nil || o.Metadata == nil {
		return false
	}
	done, _ := o.Metadata[completedMarker].(bool)
	return done
}

// Clone returns a deep-enough copy of o suitable for handing to a parallel
// fork branch: the branches must not observe each other's writes.
func (o *Output) Clone() *Output {
	c := &Output{
		ID:       o.ID,
		Data:     make(map[string]interface{}, len(o.Data)),
		Metadata: make(map[string]interface{}, len(o.Metadata)),
	}
	for k, v := range o.Data {
		c.Data[k] = v
	}
	for k, v := range o.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// UniqueKey returns a key under which a value can be written into o.Data
// without clobbering an existing entry: base if free, otherwise base_2,
// base_3, ... in order.
func (o *Output) UniqueKey(base string) string {
	if _, exists := o.Data[base]; !exists {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "_" + itoa(n)
		if _, exists := o.Data[candidate]; !exists {
			return candidate
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ConfigData splits a node's static configuration into user-supplied form
// fields and engine-assigned runtime parameters.
type ConfigData struct {
	Form   map[string]interface{}
	Config map[string]interface{}
}

// Config is the immutable per-node definition loaded from workflow JSON.
type Config struct {
	ID   string
	Type string
	Data ConfigData
}

// Node is the runtime contract every concrete node implementation
// satisfies, regardless of kind.
type Node interface {
	ID() string
	Kind() Kind
	ExecutionPool() PoolType
	InputPorts() []Port
	OutputPorts() []Port
	SupportedWorkflowTypes() []WorkflowType

	Init(ctx context.Context) error
	IsReady() (bool, []string)
	Run(ctx context.Context, input *Output) (*Output, error)
	Cleanup(ctx context.Context, input *Output) error

	ExecutionCount() int
	Touch()
}

// Producer is a node with no inputs that starts a production loop
// iteration.
type Producer interface {
	Node
	isProducer()
}

// NonBlocking marks a node as a terminal sink: the production runner does
// not wait on its downstream completion before looping.
type NonBlocking interface {
	Node
	isNonBlocking()
}

// Conditional is a blocking node that, after Run, exposes the branch it
// selected.
type Conditional interface {
	Node
	Route() string
	SetRoute(yes bool)
}

// Loop is a node whose output carries an iteration array; the runner walks
// its "subdag" child once per item.
type Loop interface {
	Node
	IterationKey() string
}

// Validatable is implemented by Base and lets NodeValidator mark a node
// as already checked so a later Init does not repeat the work.
type Validatable interface {
	MarkValidated()
	Validated() bool
}

// SupportsWorkflow reports whether wt is among the types a node declares
// support for.
func SupportsWorkflow(n Node, wt WorkflowType) bool {
	for _, t := range n.SupportedWorkflowTypes() {
		if t == wt {
			return true
		}
	}
	return false
}
