package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nongtiensonpro/yellowcat/pkg/database"
)

const (
	listKeyPrefix = "refdata:list:"
	genKeyPrefix  = "refdata:gen:"
)

// ListCache implements repository.ListCache using Redis. Page keys embed a
// per-collection generation number, so invalidation is a single INCR and
// stale pages age out through their TTL.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListCache creates a new Redis-backed list cache.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{client: client, ttl: ttl}
}

// Get looks page up in the collection's current generation and returns
// that generation even on a miss.
func (c *ListCache) Get(ctx context.Context, collection, page string) (payload []byte, gen int64, ok bool, err error) {
	ctx, end := database.TraceCommand(ctx, "GetListPage", listKeyPrefix+collection)
	defer func() { end(err) }()

	if gen, err = c.generation(ctx, collection); err != nil {
		return nil, 0, false, err
	}
	payload, err = c.client.Get(ctx, pageKey(collection, gen, page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("redis get list page: %w", err)
	}
	return payload, gen, true, nil
}

// Set stores a page under gen. A page from a retired generation is written
// but never read again.
func (c *ListCache) Set(ctx context.Context, collection string, gen int64, page string, payload []byte) (err error) {
	ctx, end := database.TraceCommand(ctx, "SetListPage", listKeyPrefix+collection)
	defer func() { end(err) }()

	if err = c.client.Set(ctx, pageKey(collection, gen, page), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set list page: %w", err)
	}
	return nil
}

// Invalidate retires every cached page of collection.
func (c *ListCache) Invalidate(ctx context.Context, collection string) (err error) {
	key := genKeyPrefix + collection
	ctx, end := database.TraceCommand(ctx, "InvalidateList", key)
	defer func() { end(err) }()

	if err = c.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis incr list generation: %w", err)
	}
	return nil
}

func (c *ListCache) generation(ctx context.Context, collection string) (int64, error) {
	gen, err := c.client.Get(ctx, genKeyPrefix+collection).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get list generation: %w", err)
	}
	return gen, nil
}

func pageKey(collection string, gen int64, page string) string {
	return fmt.Sprintf("%s%s:%d:%s", listKeyPrefix, collection, gen, page)
}
