// Package events provides the lifecycle event bus (node started/completed/
// failed, workflow completed/failed) and the live execution-state
// snapshot every subscriber reads from.
package events

import "sync"

// Event names every subscriber can register against.
const (
	NodeStarted       = "node_started"
	NodeCompleted     = "node_completed"
	NodeFailed        = "node_failed"
	WorkflowCompleted = "workflow_completed"
	WorkflowFailed    = "workflow_failed"
)

// Payload is the data handed to a subscriber callback. WorkflowID is
// stamped on automatically by Emit.
type Payload map[string]interface{}

// Handler receives one event payload.
type Handler func(Payload)

// Emitter is a per-workflow event bus. Subscribers registered for an
// event run synchronously, in registration order, on the emitting
// goroutine; a handler that panics or the rare handler that needs to
// report an error does so by recovering internally, since a broken
// subscriber must never interrupt the workflow it is observing.
type Emitter struct {
	workflowID string

	mu          sync.Mutex
	subscribers map[string][]Handler
	all         []Handler
	onPanic     func(event string, r interface{})
}

// NewEmitter returns an Emitter scoped to workflowID.
func NewEmitter(workflowID string) *Emitter {
	return &Emitter{
		workflowID:  workflowID,
		subscribers: make(map[string][]Handler),
	}
}

// OnSubscriberPanic installs a callback invoked whenever a subscriber
// panics, so the engine can log it without failing Emit. Optional; by
// default panics are swallowed silently.
func (e *Emitter) OnSubscriberPanic(fn func(event string, r interface{})) {
	e.mu.Lock()
	e.onPanic = fn
	e.mu.Unlock()
}

// Subscribe registers handler to run whenever event is emitted.
func (e *Emitter) Subscribe(event string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers[event] = append(e.subscribers[event], handler)
}

// SubscribeAll registers handler to run for every event, regardless of
// name.
func (e *Emitter) SubscribeAll(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, handler)
}

// Unsubscribe removes every handler registered for event.
func (e *Emitter) Unsubscribe(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, event)
}

// ClearSubscribers removes every registered handler, including
// SubscribeAll handlers.
func (e *Emitter) ClearSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = make(map[string][]Handler)
	e.all = nil
}

// Emit runs every handler registered for event (plus every SubscribeAll
// handler), after stamping workflow_id into payload.
func (e *Emitter) Emit(event string, payload Payload) {
	if payload == nil {
		payload = Payload{}
	}
	payload["workflow_id"] = e.workflowID

	e.mu.Lock()
	handlers := append([]Handler{}, e.subscribers[event]...)
	handlers = append(handlers, e.all...)
	onPanic := e.onPanic
	e.mu.Unlock()

	for _, h := range handlers {
		e.safeCall(event, h, payload, onPanic)
	}
}

func (e *Emitter) safeCall(event string, h Handler, payload Payload, onPanic func(string, interface{})) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(event, r)
		}
	}()
	h(payload)
}

// EmitNodeStarted emits NodeStarted for nodeID/nodeType.
func (e *Emitter) EmitNodeStarted(nodeID, nodeType string) {
	e.Emit(NodeStarted, Payload{"node_id": nodeID, "node_type": nodeType})
}

// EmitNodeCompleted emits NodeCompleted with the node's output data and,
// for conditional nodes, the route it selected.
func (e *Emitter) EmitNodeCompleted(nodeID, nodeType string, outputData map[string]interface{}, route string) {
	p := Payload{"node_id": nodeID, "node_type": nodeType, "output_data": outputData}
	if route != "" {
		p["route"] = route
	}
	e.Emit(NodeCompleted, p)
}

// EmitNodeFailed emits NodeFailed for nodeID/nodeType with err's message.
func (e *Emitter) EmitNodeFailed(nodeID, nodeType string, err error) {
	e.Emit(NodeFailed, Payload{"node_id": nodeID, "node_type": nodeType, "error": err.Error()})
}

// EmitWorkflowCompleted emits WorkflowCompleted.
func (e *Emitter) EmitWorkflowCompleted() {
	e.Emit(WorkflowCompleted, Payload{"status": "completed"})
}

// EmitWorkflowFailed emits WorkflowFailed with err's message.
func (e *Emitter) EmitWorkflowFailed(err error) {
	e.Emit(WorkflowFailed, Payload{"status": "failed", "error": err.Error()})
}
