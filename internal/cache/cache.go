// Package cache stores the outcome of address resolutions. Every backend is
// write-once per address identity: the first stored value wins and later
// writes are silently ignored.
package cache

import (
	"context"

	"github.com/UnknownOlympus/locator/internal/models"
)

// Cache is the resolution cache used by the resolver.
type Cache interface {
	// Get returns stored coordinates, or nil when nothing is stored or the
	// stored record is a known miss.
	Get(ctx context.Context, address models.Address) (*models.Coordinates, error)
	// Save stores coordinates for the address unless a record already exists.
	// Nil coordinates record a known miss.
	Save(ctx context.Context, address models.Address, coords *models.Coordinates) error
}

// Store is a Cache that can also expose the full stored record and report
// its own health.
type Store interface {
	Cache
	Lookup(ctx context.Context, address models.Address) (*models.ResolvedAddress, error)
	Ping(ctx context.Context) error
}
