package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/lyzr/flowengine/events"
	"github.com/lyzr/flowengine/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueuePushPop(t *testing.T) {
	q := storage.NewMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "jobs", "payload-1"))

	length, err := q.Length(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	value, ok, err := q.Pop(ctx, "jobs", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload-1", value)
}

func TestMemoryQueuePopTimesOutWhenEmpty(t *testing.T) {
	q := storage.NewMemoryQueue()
	_, ok, err := q.Pop(context.Background(), "empty", 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryQueuePopBlocksUntilPush(t *testing.T) {
	q := storage.NewMemoryQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = q.Push(context.Background(), "jobs", "late")
	}()

	value, ok, err := q.Pop(context.Background(), "jobs", 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "late", value)
}

func TestMemoryCacheSetGetExpires(t *testing.T) {
	c := storage.NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	value, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", value)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCachePermanentEntry(t *testing.T) {
	c := storage.NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryPubSubDeliversToWaitingSubscriber(t *testing.T) {
	ps := storage.NewMemoryPubSub()
	ctx := context.Background()

	result := make(chan interface{}, 1)
	go func() {
		msg, err := ps.Subscribe(ctx, "chan-1")
		require.NoError(t, err)
		result <- msg
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ps.Publish(ctx, "chan-1", "hello"))

	select {
	case msg := <-result:
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received message")
	}
}

func TestMemorySnapshotWriterRoundTrips(t *testing.T) {
	cache := storage.NewMemoryCache()
	defer cache.Close()
	writer := storage.NewMemorySnapshotWriter(cache, "flowengine:", time.Minute)

	state := events.FullState{WorkflowID: "wf-1", Status: events.StatusRunning}
	require.NoError(t, writer.Write(context.Background(), state))

	raw, ok, err := cache.Get(context.Background(), "flowengine:workflow_execution:wf-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, raw)
}
