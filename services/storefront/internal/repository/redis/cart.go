package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nongtiensonpro/yellowcat/pkg/database"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

const (
	guestKeyPrefix   = "cart:guest:"
	accountKeyPrefix = "cart:account:"
)

// GuestCartRepository implements repository.GuestCartRepository using Redis.
// Each cart is a JSON array of lines under cart:guest:{guestId}.
type GuestCartRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewGuestCartRepository creates a new Redis-backed guest cart repository.
func NewGuestCartRepository(client *redis.Client, ttl time.Duration, logger *slog.Logger) *GuestCartRepository {
	return &GuestCartRepository{client: client, ttl: ttl, logger: logger}
}

// Get retrieves a guest cart. Missing keys and corrupt payloads both read as
// an empty cart; the latter is logged.
func (r *GuestCartRepository) Get(ctx context.Context, guestID string) (items []domain.CartLineItem, err error) {
	key := guestKeyPrefix + guestID
	ctx, end := database.TraceCommand(ctx, "GetGuestCart", key)
	defer func() { end(err) }()

	lines, ok, err := readLines(ctx, r.client, key, r.logger)
	if err != nil {
		return nil, fmt.Errorf("redis get guest cart: %w", err)
	}
	if !ok {
		return []domain.CartLineItem{}, nil
	}
	return lines, nil
}

// Save persists the cart and resets its TTL.
func (r *GuestCartRepository) Save(ctx context.Context, guestID string, items []domain.CartLineItem) (err error) {
	key := guestKeyPrefix + guestID
	ctx, end := database.TraceCommand(ctx, "SaveGuestCart", key)
	defer func() { end(err) }()

	if err = writeLines(ctx, r.client, key, items, r.ttl); err != nil {
		return fmt.Errorf("redis set guest cart: %w", err)
	}
	return nil
}

// Delete removes a guest cart.
func (r *GuestCartRepository) Delete(ctx context.Context, guestID string) (err error) {
	key := guestKeyPrefix + guestID
	ctx, end := database.TraceCommand(ctx, "DeleteGuestCart", key)
	defer func() { end(err) }()

	if err = r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del guest cart: %w", err)
	}
	return nil
}

// AccountCartCache implements repository.AccountCartCache using Redis.
type AccountCartCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewAccountCartCache creates a new Redis-backed account cart cache.
func NewAccountCartCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *AccountCartCache {
	return &AccountCartCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached snapshot for an account.
func (c *AccountCartCache) Get(ctx context.Context, keycloakID string) (items []domain.CartLineItem, ok bool, err error) {
	key := accountKeyPrefix + keycloakID
	ctx, end := database.TraceCommand(ctx, "GetAccountCart", key)
	defer func() { end(err) }()

	items, ok, err = readLines(ctx, c.client, key, c.logger)
	if err != nil {
		return nil, false, fmt.Errorf("redis get account cart: %w", err)
	}
	return items, ok, nil
}

// Set stores a snapshot with the cache TTL.
func (c *AccountCartCache) Set(ctx context.Context, keycloakID string, items []domain.CartLineItem) (err error) {
	key := accountKeyPrefix + keycloakID
	ctx, end := database.TraceCommand(ctx, "SetAccountCart", key)
	defer func() { end(err) }()

	if err = writeLines(ctx, c.client, key, items, c.ttl); err != nil {
		return fmt.Errorf("redis set account cart: %w", err)
	}
	return nil
}

// Delete drops a cached snapshot.
func (c *AccountCartCache) Delete(ctx context.Context, keycloakID string) (err error) {
	key := accountKeyPrefix + keycloakID
	ctx, end := database.TraceCommand(ctx, "DeleteAccountCart", key)
	defer func() { end(err) }()

	if err = c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del account cart: %w", err)
	}
	return nil
}

func readLines(ctx context.Context, client *redis.Client, key string, logger *slog.Logger) ([]domain.CartLineItem, bool, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var items []domain.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		logger.WarnContext(ctx, "discarding unreadable cart payload",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return []domain.CartLineItem{}, false, nil
	}
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return items, true, nil
}

func writeLines(ctx context.Context, client *redis.Client, key string, items []domain.CartLineItem, ttl time.Duration) error {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	return client.Set(ctx, key, data, ttl).Err()
}
