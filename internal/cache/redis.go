package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every key written by RedisCache.
const RedisKeyPrefix = "locator:resolved:"

// redisEntry is the JSON value stored under a key: {"lat":..,"lng":..} for a
// resolved address, {"miss":true} for a known miss.
type redisEntry struct {
	*models.Coordinates

	Miss       bool      `json:"miss,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// RedisCache keeps resolutions in Redis. Writes use SETNX so concurrent
// writers for the same address cannot overwrite each other.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	clock  clockwork.Clock
	log    *slog.Logger
}

// NewRedisCache returns a Redis-backed cache. A zero ttl keeps entries forever.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, clock clockwork.Clock, log *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, clock: clock, log: log}
}

// RedisKey returns the key an address is stored under.
func RedisKey(address models.Address) string {
	return RedisKeyPrefix + address.Key()
}

func (c *RedisCache) Get(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	record, err := c.Lookup(ctx, address)
	if err != nil {
		return nil, err
	}
	if record == nil || record.IsMiss() {
		return nil, nil
	}

	return record.Coordinates, nil
}

func (c *RedisCache) Save(ctx context.Context, address models.Address, coords *models.Coordinates) error {
	value, err := json.Marshal(redisEntry{Coordinates: coords, Miss: coords == nil, ResolvedAt: c.clock.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	stored, err := c.client.SetNX(ctx, RedisKey(address), value, c.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	if !stored {
		c.log.DebugContext(ctx, "Address already cached, keeping the stored record", "address", address.String())
	}

	return nil
}

func (c *RedisCache) Lookup(ctx context.Context, address models.Address) (*models.ResolvedAddress, error) {
	raw, err := c.client.Get(ctx, RedisKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var entry redisEntry
	if err = json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	record := &models.ResolvedAddress{Address: address, ResolvedAt: entry.ResolvedAt}
	if !entry.Miss {
		record.Coordinates = entry.Coordinates
	}

	return record, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
