// Package resolver turns an address into coordinates by consulting the
// resolution cache and then an ordered list of geocoding providers.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/locator/internal/cache"
	"github.com/UnknownOlympus/locator/internal/geocoding"
	"github.com/UnknownOlympus/locator/internal/metrics"
	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/jonboulle/clockwork"
)

// Messages of the configuration errors returned for an incomplete Request.
const (
	ErrMsgNoProviders = "providers are not found"
	ErrMsgNoAddress   = "address is not found"
)

// Request describes one resolution. It is a plain value: build it with
// NewRequest and pass it to Resolve.
type Request struct {
	Address   *models.Address      // Address to resolve; required.
	Providers []geocoding.Provider // Providers in the order they are tried; required.
	UseCache  bool                 // UseCache allows answering from a stored hit.
}

// NewRequest returns a Request holding its own copies of the address and the
// provider list.
func NewRequest(address models.Address, providers []geocoding.Provider, useCache bool) Request {
	return Request{
		Address:   &address,
		Providers: append([]geocoding.Provider(nil), providers...),
		UseCache:  useCache,
	}
}

// Source tells where a resolution came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceProvider Source = "provider"
	SourceNone     Source = "none"
)

// Resolution is the detailed outcome of Resolve.
type Resolution struct {
	Coordinates *models.Coordinates
	Source      Source
	Provider    string // Provider that found the coordinates, if any.
}

// Resolver orchestrates cache and providers for a single address.
type Resolver struct {
	cache   cache.Cache
	log     *slog.Logger
	metrics *metrics.Metrics
	clock   clockwork.Clock
}

// NewResolver creates a Resolver writing through the given cache.
func NewResolver(store cache.Cache, log *slog.Logger, metrics *metrics.Metrics, clock clockwork.Clock) *Resolver {
	return &Resolver{cache: store, log: log, metrics: metrics, clock: clock}
}

// Resolve returns the coordinates of the request's address, or nil when no
// provider could find it. See ResolveDetailed.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*models.Coordinates, error) {
	resolution, err := r.ResolveDetailed(ctx, req)
	if err != nil {
		return nil, err
	}

	return resolution.Coordinates, nil
}

// ResolveDetailed resolves the request's address.
//
// With UseCache set a stored hit is returned without contacting any provider.
// A stored miss does not short-circuit: the providers are asked again.
// Providers are tried in order. A provider failure is logged and treated as no
// result. The first coordinates found are saved to the cache and returned.
// When every provider comes back empty a miss is saved and a nil result is
// returned without error.
//
// Cache errors and configuration errors abort the call.
func (r *Resolver) ResolveDetailed(ctx context.Context, req Request) (Resolution, error) {
	if len(req.Providers) == 0 {
		return Resolution{}, geocoding.NewConfigurationError(ErrMsgNoProviders)
	}
	if req.Address == nil {
		return Resolution{}, geocoding.NewConfigurationError(ErrMsgNoAddress)
	}
	address := *req.Address

	if req.UseCache {
		coords, err := r.cache.Get(ctx, address)
		if err != nil {
			return Resolution{}, fmt.Errorf("failed to read resolution cache: %w", err)
		}
		if coords != nil {
			r.metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
			r.log.DebugContext(ctx, "Address resolved from cache", "address", address.String())
			return Resolution{Coordinates: coords, Source: SourceCache}, nil
		}
		r.metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
	}

	for _, provider := range req.Providers {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		result := r.lookup(ctx, provider, address)

		switch result.Outcome {
		case geocoding.OutcomeFound:
			if err := r.cache.Save(ctx, address, result.Coordinates); err != nil {
				return Resolution{}, fmt.Errorf("failed to save resolution: %w", err)
			}
			return Resolution{Coordinates: result.Coordinates, Source: SourceProvider, Provider: result.Provider}, nil
		case geocoding.OutcomeFailed:
			if geocoding.IsConfigurationError(result.Err) {
				return Resolution{}, result.Err
			}
			r.log.ErrorContext(ctx, "Geocoding provider failed",
				"provider", result.Provider, "address", address.String(), "error", result.Err)
		case geocoding.OutcomeNoResult:
			r.log.DebugContext(ctx, "Provider has no result", "provider", result.Provider, "address", address.String())
		}
	}

	// A cancelled call must not leave a miss behind.
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	if err := r.cache.Save(ctx, address, nil); err != nil {
		return Resolution{}, fmt.Errorf("failed to save resolution: %w", err)
	}

	r.log.InfoContext(ctx, "Address could not be resolved by any provider", "address", address.String())

	return Resolution{Source: SourceNone}, nil
}

func (r *Resolver) lookup(ctx context.Context, provider geocoding.Provider, address models.Address) geocoding.Result {
	startTime := r.clock.Now()
	result := geocoding.Lookup(ctx, provider, address)
	duration := r.clock.Since(startTime).Seconds()

	r.metrics.RequestSeconds.WithLabelValues(result.Provider).Observe(duration)
	r.metrics.ProviderRequests.WithLabelValues(result.Provider, result.Outcome.String()).Inc()

	return result
}
