package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyPending marks a key whose submission is still being processed.
const IdempotencyPending = "pending"

const idempotencyPrefix = "txnt:idempotency:"

// IdempotencyRepository stores submission idempotency keys in Redis.
type IdempotencyRepository struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewIdempotencyRepository constructs a Redis backed idempotency store.
func NewIdempotencyRepository(client redis.Cmdable, logger *zap.Logger) *IdempotencyRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyRepository{client: client, logger: logger}
}

// Reserve claims key with SET NX. It returns false when the key is taken.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyPrefix+key, IdempotencyPending, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Lookup returns the value stored under key, which is either
// IdempotencyPending or the completed submission id.
func (r *IdempotencyRepository) Lookup(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Complete records the submission id for key for the remaining window.
func (r *IdempotencyRepository) Complete(ctx context.Context, key, submissionID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, idempotencyPrefix+key, submissionID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Release frees key so the submitter can retry.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// MemoryIdempotencyStore keeps keys in process memory. It serves single
// instance deployments that run without Redis.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryIdempotencyStore constructs an empty in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = memoryEntry{value: IdempotencyPending, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	return entry.value, ok, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key, submissionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: submissionID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// live must be called with mu held.
func (s *MemoryIdempotencyStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}
