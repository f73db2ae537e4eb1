package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisclient "github.com/lyzr/flowengine/common/redis"
	"github.com/lyzr/flowengine/events"
)

// SnapshotWriter projects an events.FullState snapshot into a shared store
// so a process other than the one running the workflow can read its live
// execution state.
type SnapshotWriter interface {
	Write(ctx context.Context, state events.FullState) error
}

// MemorySnapshotWriter writes directly into an in-process Cache, useful
// when the API runner and its callers share one process.
type MemorySnapshotWriter struct {
	cache  Cache
	ttl    time.Duration
	prefix string
}

// NewMemorySnapshotWriter returns a writer that stores each snapshot under
// prefix+"workflow_execution:"+workflow_id with ttl.
func NewMemorySnapshotWriter(cache Cache, prefix string, ttl time.Duration) *MemorySnapshotWriter {
	return &MemorySnapshotWriter{cache: cache, ttl: ttl, prefix: prefix}
}

func (w *MemorySnapshotWriter) key(workflowID string) string {
	return w.prefix + "workflow_execution:" + workflowID
}

// Write stores state under its workflow id.
func (w *MemorySnapshotWriter) Write(ctx context.Context, state events.FullState) error {
	return w.cache.Set(ctx, w.key(state.WorkflowID), state, w.ttl)
}

// RedisSnapshotWriter pipelines a SET of the latest snapshot (hot path,
// read by status queries) with an XADD onto a shared stream (cold path,
// consumed by anything tailing workflow execution history), the same
// pairing StatusManager.UpdateRunStatus uses for run status updates.
type RedisSnapshotWriter struct {
	client *redisclient.Client
	prefix string
	ttl    time.Duration
	stream string
}

// NewRedisSnapshotWriter returns a writer keyed under
// prefix+"workflow_execution:" with entries expiring after ttl, also
// appending to stream.
func NewRedisSnapshotWriter(client *redisclient.Client, prefix string, ttl time.Duration, stream string) *RedisSnapshotWriter {
	if stream == "" {
		stream = "workflow.execution.updates"
	}
	return &RedisSnapshotWriter{client: client, prefix: prefix, ttl: ttl, stream: stream}
}

func (w *RedisSnapshotWriter) key(workflowID string) string {
	return w.prefix + "workflow_execution:" + workflowID
}

// Write pipelines the hot-path SET and the cold-path XADD for state.
func (w *RedisSnapshotWriter) Write(ctx context.Context, state events.FullState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal execution state for %s: %w", state.WorkflowID, err)
	}

	pipeline := w.client.NewPipeline()
	pipeline.SetWithExpiry(ctx, w.key(state.WorkflowID), string(encoded), w.ttl)
	pipeline.AddToStream(ctx, w.stream, map[string]interface{}{
		"workflow_id": state.WorkflowID,
		"status":      state.Status,
		"snapshot":    string(encoded),
	})
	return pipeline.Exec(ctx)
}
