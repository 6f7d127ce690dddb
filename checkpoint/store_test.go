package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagengine/engine/checkpoint"
	"github.com/dagengine/engine/core"
)

func sampleState(runID string) *core.ProcessState {
	state := core.NewProcessState(runID, time.UnixMilli(1700000000000), []core.Section{
		{Content: "first"},
		{Content: "second"},
	})
	state.GlobalResults["summary"] = &core.DimensionResult{Data: "overall summary"}
	state.SectionResultsMap[0]["sentiment"] = &core.DimensionResult{Data: "positive"}
	return state
}

func TestInMemoryStoreSaveLoadRoundTrip(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	ctx := context.Background()

	original := sampleState("run-1")
	require.NoError(t, store.Save(ctx, original))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, original.ID, loaded.ID)
	assert.Equal(t, original.Sections, loaded.Sections)
	assert.Equal(t, "overall summary", loaded.GlobalResults["summary"].Data)
	assert.Equal(t, "positive", loaded.SectionResultsMap[0]["sentiment"].Data)
}

func TestInMemoryStoreLoadMissingReturnsNotFound(t *testing.T) {
	store := checkpoint.NewInMemoryStore()

	_, err := store.Load(context.Background(), "missing-run")
	require.Error(t, err)
	assert.True(t, core.IsCheckpointNotFound(err))
}

func TestInMemoryStoreDeleteRemovesCheckpoint(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleState("run-2")))
	require.NoError(t, store.Delete(ctx, "run-2"))

	_, err := store.Load(ctx, "run-2")
	assert.True(t, core.IsCheckpointNotFound(err))
}

func TestInMemoryStoreSaveClonesState(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	ctx := context.Background()

	original := sampleState("run-3")
	require.NoError(t, store.Save(ctx, original))

	original.GlobalResults["summary"].Data = "mutated after save"

	loaded, err := store.Load(ctx, "run-3")
	require.NoError(t, err)
	assert.Equal(t, "overall summary", loaded.GlobalResults["summary"].Data)
}

func TestRedisStoreCircuitBreakerFailsFastAfterRepeatedErrors(t *testing.T) {
	// Point at a port nothing listens on, with a short dial timeout, so
	// every call fails quickly with a real connection error.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 20 * time.Millisecond,
		ReadTimeout: 20 * time.Millisecond,
	})
	defer client.Close()

	store := checkpoint.NewRedisStore(client, time.Hour)
	ctx := context.Background()

	// Trip the breaker: DefaultConfig requires 10 requests before it
	// evaluates the error rate.
	for i := 0; i < 10; i++ {
		_, err := store.Load(ctx, "run-trip")
		require.Error(t, err)
	}

	// Once open, the breaker rejects without dialing, so this call
	// returns well within the dial timeout it would otherwise need.
	start := time.Now()
	_, err := store.Load(ctx, "run-trip")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 20*time.Millisecond, "expected fail-fast rejection, not a dial attempt")
}

func TestProcessStateJSONRoundTrip(t *testing.T) {
	original := sampleState("run-4")

	data, err := original.MarshalJSON()
	require.NoError(t, err)

	var restored core.ProcessState
	require.NoError(t, restored.UnmarshalJSON(data))

	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.StartTime.UnixMilli(), restored.StartTime.UnixMilli())
	assert.Equal(t, original.Sections, restored.Sections)
	assert.Equal(t, original.SectionResultsMap, restored.SectionResultsMap)
}
