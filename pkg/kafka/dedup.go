package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDuplicate is returned by a Deduplicate handler for an event it has
// already delivered. Consumers commit such messages without retrying.
var ErrDuplicate = errors.New("kafka: duplicate event")

// DedupStore remembers which event ids were delivered.
type DedupStore interface {
	// Claim records id and reports whether this call was the first to do so.
	Claim(ctx context.Context, id string) (bool, error)
	// Release forgets id so a redelivery is handled again.
	Release(ctx context.Context, id string) error
}

// MemoryDedupStore keeps claims in process memory for ttl.
type MemoryDedupStore struct {
	mu        sync.Mutex
	claims    map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryDedupStore creates a store whose claims expire after ttl.
func NewMemoryDedupStore(ttl time.Duration) *MemoryDedupStore {
	return &MemoryDedupStore{
		claims: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Claim implements DedupStore. Expired claims are swept at most once per ttl.
func (s *MemoryDedupStore) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.After(s.nextSweep) {
		for k, at := range s.claims {
			if now.Sub(at) > s.ttl {
				delete(s.claims, k)
			}
		}
		s.nextSweep = now.Add(s.ttl)
	}

	if at, ok := s.claims[id]; ok && now.Sub(at) <= s.ttl {
		return false, nil
	}
	s.claims[id] = now
	return true, nil
}

// Release implements DedupStore.
func (s *MemoryDedupStore) Release(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.claims, id)
	s.mu.Unlock()
	return nil
}

// Len reports how many claims are held, expired ones included.
func (s *MemoryDedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

// RedisDedupStore keeps claims in Redis so they survive restarts. Keys are
// "{prefix}{id}".
type RedisDedupStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDedupStore creates a Redis-backed store.
func NewRedisDedupStore(client *redis.Client, prefix string, ttl time.Duration) *RedisDedupStore {
	return &RedisDedupStore{client: client, prefix: prefix, ttl: ttl}
}

// Claim implements DedupStore with SET NX.
func (s *RedisDedupStore) Claim(ctx context.Context, id string) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+id, 1, s.ttl).Result()
}

// Release implements DedupStore.
func (s *RedisDedupStore) Release(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}

// Deduplicate wraps inner so each event id is handled once. A failed
// handler releases its claim so the consumer's retry can run it again.
// When the store itself fails the event is handled anyway.
func Deduplicate(store DedupStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			return inner(ctx, event)
		}

		first, err := store.Claim(ctx, event.EventID)
		if err != nil {
			logger.WarnContext(ctx, "dedup claim failed, handling event anyway",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()),
			)
			return inner(ctx, event)
		}
		if !first {
			return ErrDuplicate
		}

		if err := inner(ctx, event); err != nil {
			if relErr := store.Release(ctx, event.EventID); relErr != nil {
				logger.WarnContext(ctx, "dedup release failed",
					slog.String("event_id", event.EventID),
					slog.String("error", relErr.Error()),
				)
			}
			return err
		}
		return nil
	}
}
