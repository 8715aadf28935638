package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/UnknownOlympus/locator/internal/repository"
)

// DBCache keeps resolutions in PostgreSQL.
type DBCache struct {
	repo repository.Interface
	log  *slog.Logger
}

// NewDBCache returns a cache backed by the repository.
func NewDBCache(repo repository.Interface, log *slog.Logger) *DBCache {
	return &DBCache{repo: repo, log: log}
}

func (c *DBCache) Get(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	record, err := c.Lookup(ctx, address)
	if err != nil {
		return nil, err
	}
	if record == nil || record.IsMiss() {
		return nil, nil
	}

	return record.Coordinates, nil
}

func (c *DBCache) Save(ctx context.Context, address models.Address, coords *models.Coordinates) error {
	inserted, err := c.repo.SaveIfNotExist(ctx, address, coords)
	if err != nil {
		return fmt.Errorf("failed to save to database cache: %w", err)
	}
	if !inserted {
		c.log.DebugContext(ctx, "Address already cached, keeping the stored record", "address", address.String())
	}

	return nil
}

func (c *DBCache) Lookup(ctx context.Context, address models.Address) (*models.ResolvedAddress, error) {
	record, err := c.repo.Lookup(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read database cache: %w", err)
	}

	return record, nil
}

func (c *DBCache) Ping(ctx context.Context) error {
	return c.repo.Ping(ctx)
}
