package cache

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

// DefaultMemorySize is the number of addresses kept by MemoryCache when no
// size is configured.
const DefaultMemorySize = 10_000

// MemoryCache keeps resolutions in a bounded in-process LRU. It is meant for
// local runs and tests; its contents are lost on restart.
type MemoryCache struct {
	entries *lru.Cache[string, models.ResolvedAddress]
	clock   clockwork.Clock
}

// NewMemoryCache returns an LRU cache holding at most size addresses.
func NewMemoryCache(size int, clock clockwork.Clock) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}

	entries, err := lru.New[string, models.ResolvedAddress](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &MemoryCache{entries: entries, clock: clock}, nil
}

func (c *MemoryCache) Get(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	record, _ := c.Lookup(ctx, address)
	if record == nil || record.IsMiss() {
		return nil, nil
	}

	return record.Coordinates, nil
}

func (c *MemoryCache) Save(_ context.Context, address models.Address, coords *models.Coordinates) error {
	record := models.ResolvedAddress{Address: address, ResolvedAt: c.clock.Now().UTC()}
	if coords != nil {
		stored := *coords
		record.Coordinates = &stored
	}

	c.entries.ContainsOrAdd(address.Key(), record)

	return nil
}

func (c *MemoryCache) Lookup(_ context.Context, address models.Address) (*models.ResolvedAddress, error) {
	record, ok := c.entries.Get(address.Key())
	if !ok {
		return nil, nil
	}

	if record.Coordinates != nil {
		coords := *record.Coordinates
		record.Coordinates = &coords
	}

	return &record, nil
}

func (c *MemoryCache) Ping(context.Context) error {
	return nil
}
