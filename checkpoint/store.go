// Package checkpoint persists Process State (§6.5) so a crashed or
// restarted run can resume instead of starting over.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/resilience"
)

// Store persists and retrieves Process State snapshots keyed by run ID.
type Store interface {
	Save(ctx context.Context, state *core.ProcessState) error
	Load(ctx context.Context, runID string) (*core.ProcessState, error)
	Delete(ctx context.Context, runID string) error
}

// RedisStore implements Store against Redis. Redis calls run through a
// circuit breaker so a degraded checkpoint backend fails fast instead of
// letting every in-flight run pile up on dial/read timeouts; this has no
// bearing on provider call counts, which checkpointing never touches.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
}

// NewRedisStore creates a Redis-backed checkpoint store. ttl is how long
// a checkpoint survives after its last Save; zero means no expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	config := resilience.DefaultConfig()
	config.Name = "checkpoint:redis"
	config.ErrorClassifier = func(err error) bool {
		// A missing checkpoint is an expected outcome of Load, not a
		// backend failure, so it must not count toward the breaker.
		if errors.Is(err, redis.Nil) {
			return false
		}
		return resilience.DefaultErrorClassifier(err)
	}
	breaker, err := resilience.NewCircuitBreaker(config)
	if err != nil {
		// DefaultConfig() is always valid; this is unreachable in practice.
		breaker, _ = resilience.NewCircuitBreaker(nil)
	}
	return &RedisStore{client: client, ttl: ttl, breaker: breaker}
}

func redisKey(runID string) string {
	return fmt.Sprintf("dagengine:checkpoint:%s", runID)
}

// Save writes state, overwriting any prior checkpoint for the same run.
func (s *RedisStore) Save(ctx context.Context, state *core.ProcessState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling process state: %w", err)
	}

	err = s.breaker.Execute(ctx, func() error {
		return s.client.Set(ctx, redisKey(state.ID), data, s.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("saving checkpoint to redis: %w", err)
	}
	return nil
}

// Load retrieves the checkpoint for runID, or core.ErrCheckpointNotFound if none exists.
func (s *RedisStore) Load(ctx context.Context, runID string) (*core.ProcessState, error) {
	var data []byte
	err := s.breaker.Execute(ctx, func() error {
		var getErr error
		data, getErr = s.client.Get(ctx, redisKey(runID)).Bytes()
		return getErr
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.NewEngineError("checkpoint.Load", core.ErrCheckpointNotFound)
		}
		return nil, fmt.Errorf("loading checkpoint from redis: %w", err)
	}

	var state core.ProcessState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling process state: %w", err)
	}
	return &state, nil
}

// Delete removes the checkpoint for runID, if any.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	err := s.breaker.Execute(ctx, func() error {
		return s.client.Del(ctx, redisKey(runID)).Err()
	})
	if err != nil {
		return fmt.Errorf("deleting checkpoint from redis: %w", err)
	}
	return nil
}

// InMemoryStore implements Store in a plain map, for tests and for
// single-process deployments that don't need crash recovery across
// restarts.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]*core.ProcessState
}

// NewInMemoryStore creates an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]*core.ProcessState)}
}

func (s *InMemoryStore) Save(_ context.Context, state *core.ProcessState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling process state: %w", err)
	}
	var clone core.ProcessState
	if err := json.Unmarshal(data, &clone); err != nil {
		return fmt.Errorf("cloning process state: %w", err)
	}
	s.states[state.ID] = &clone
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, runID string) (*core.ProcessState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[runID]
	if !ok {
		return nil, core.NewEngineError("checkpoint.Load", core.ErrCheckpointNotFound)
	}
	return state, nil
}

func (s *InMemoryStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, runID)
	return nil
}
