package events

import (
	"sync"
	"time"
)

// Workflow-level status values.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// executingInfo tracks a node between its started and completed/failed
// events.
type executingInfo struct {
	NodeType  string
	StartedAt time.Time
}

// ToDict renders a live snapshot of an in-flight node, with duration
// computed as of now.
func (i executingInfo) ToDict(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"node_type":        i.NodeType,
		"started_at":       i.StartedAt,
		"duration_seconds": now.Sub(i.StartedAt).Seconds(),
	}
}

// CompletedNodeInfo records one finished node execution.
type CompletedNodeInfo struct {
	NodeID          string    `json:"node_id"`
	NodeType        string    `json:"node_type"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Route           string    `json:"route,omitempty"`
}

// StateTracker is the thread-safe live view of one workflow's execution:
// which nodes are currently running, which have completed, and whether
// the workflow as a whole is still active.
type StateTracker struct {
	workflowID string
	totalNodes int

	mu             sync.Mutex
	status         string
	startedAt      time.Time
	completedAt    time.Time
	executing      map[string]executingInfo
	completed      []CompletedNodeInfo
	activeRunners  int
	failureErr     string
}

// NewStateTracker returns a tracker for workflowID covering totalNodes
// nodes, starting idle.
func NewStateTracker(workflowID string, totalNodes int) *StateTracker {
	return &StateTracker{
		workflowID: workflowID,
		totalNodes: totalNodes,
		status:     StatusIdle,
		executing:  make(map[string]executingInfo),
	}
}

// StartWorkflow resets all execution state and marks the workflow
// running.
func (t *StateTracker) StartWorkflow() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusRunning
	t.startedAt = time.Now()
	t.completedAt = time.Time{}
	t.executing = make(map[string]executingInfo)
	t.completed = nil
	t.activeRunners = 0
	t.failureErr = ""
}

// RegisterRunner increments the active-runner count. Call once per
// per-producer runner before it starts.
func (t *StateTracker) RegisterRunner() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeRunners++
}

// UnregisterRunner decrements the active-runner count; when it reaches
// zero while the workflow is still marked running, the workflow is
// marked completed.
func (t *StateTracker) UnregisterRunner() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.activeRunners > 0 {
		t.activeRunners--
	}
	if t.activeRunners == 0 && t.status == StatusRunning {
		t.status = StatusCompleted
		t.completedAt = time.Now()
	}
}

// OnNodeStarted records that nodeID began executing.
func (t *StateTracker) OnNodeStarted(nodeID, nodeType string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.executing[nodeID] = executingInfo{NodeType: nodeType, StartedAt: time.Now()}
}

// OnNodeCompleted removes nodeID from the executing set and appends its
// completion record, returning how long it ran.
func (t *StateTracker) OnNodeCompleted(nodeID, nodeType, route string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	started, ok := t.executing[nodeID]
	now := time.Now()
	var duration time.Duration
	startedAt := now
	if ok {
		duration = now.Sub(started.StartedAt)
		startedAt = started.StartedAt
		delete(t.executing, nodeID)
	}

	t.completed = append(t.completed, CompletedNodeInfo{
		NodeID:          nodeID,
		NodeType:        nodeType,
		StartedAt:       startedAt,
		CompletedAt:     now,
		DurationSeconds: duration.Seconds(),
		Route:           route,
	})
	return duration
}

// OnNodeFailed removes nodeID from the executing set; the failure itself
// is surfaced through events, not stored per-node here.
func (t *StateTracker) OnNodeFailed(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.executing, nodeID)
}

// OnWorkflowFailed marks the workflow failed with msg.
func (t *StateTracker) OnWorkflowFailed(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusFailed
	t.failureErr = msg
	t.completedAt = time.Now()
}

// IsRunning reports whether the workflow's status is currently running.
func (t *StateTracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusRunning
}

// Status returns the current workflow status.
func (t *StateTracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// FullState is the exact snapshot shape external readers observe, whether
// in-process or via a cache projection.
type FullState struct {
	WorkflowID            string                   `json:"workflow_id"`
	Status                string                   `json:"status"`
	StartedAt             time.Time                `json:"started_at"`
	CompletedAt           *time.Time               `json:"completed_at,omitempty"`
	TotalDurationSeconds  *float64                 `json:"total_duration_seconds,omitempty"`
	TotalNodes            int                      `json:"total_nodes"`
	ExecutingNodes        map[string]interface{}   `json:"executing_nodes"`
	CompletedNodes        []CompletedNodeInfo      `json:"completed_nodes"`
	CompletedCount        int                      `json:"completed_count"`
	ActiveRunners         int                      `json:"active_runners"`
	Error                 string                   `json:"error,omitempty"`
}

// GetFullState returns a deep, lock-protected snapshot with live
// durations computed as of the call.
func (t *StateTracker) GetFullState() FullState {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	executing := make(map[string]interface{}, len(t.executing))
	for id, info := range t.executing {
		executing[id] = info.ToDict(now)
	}

	completed := make([]CompletedNodeInfo, len(t.completed))
	copy(completed, t.completed)

	state := FullState{
		WorkflowID:     t.workflowID,
		Status:         t.status,
		StartedAt:      t.startedAt,
		TotalNodes:     t.totalNodes,
		ExecutingNodes: executing,
		CompletedNodes: completed,
		CompletedCount: len(completed),
		ActiveRunners:  t.activeRunners,
		Error:          t.failureErr,
	}

	if !t.completedAt.IsZero() {
		ca := t.completedAt
		state.CompletedAt = &ca
		d := ca.Sub(t.startedAt).Seconds()
		state.TotalDurationSeconds = &d
	}

	return state
}
