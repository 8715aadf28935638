package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/locator/internal/cache"
	"github.com/UnknownOlympus/locator/internal/events"
	"github.com/UnknownOlympus/locator/internal/geocoding"
	"github.com/UnknownOlympus/locator/internal/metrics"
	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/UnknownOlympus/locator/internal/resolver"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Defaults are applied to requests that leave a field unset.
type Defaults struct {
	Providers []string // Provider sequence used when a request names none.
	UseCache  bool     // Cache flag used when a request does not set one.
}

// GeocodeRequest is a resolution request as received from a caller. Empty
// Providers and nil UseCache fall back to the service defaults.
type GeocodeRequest struct {
	Address   models.Address
	Providers []string
	UseCache  *bool
}

// BatchResult is the outcome of one item of a batch.
type BatchResult struct {
	Resolution resolver.Resolution
	Err        error
}

// ProvidersInfo lists the providers callers may ask for.
type ProvidersInfo struct {
	Enabled []string `json:"enabled"`
	Default []string `json:"default"`
}

// GeocodingService is the application layer in front of the resolver: it
// applies request defaults, maps provider names to providers, records metrics
// and publishes a resolution event for every call.
type GeocodingService struct {
	log        *slog.Logger        // Logger for logging service activities
	resolver   *resolver.Resolver  // Resolver doing the cache and provider work
	registry   *geocoding.Registry // Registry of enabled providers
	store      cache.Store         // Resolution cache, also used for inspection
	publisher  events.Publisher    // Publisher of resolution events
	metrics    *metrics.Metrics    // Metrics for tracking service performance
	clock      clockwork.Clock     // Clock for event timestamps and durations
	defaults   Defaults            // Defaults for requests that omit fields
	numWorkers int                 // Number of concurrent workers for batches
}

// NewGeocodingService creates a new instance of GeocodingService.
func NewGeocodingService(
	log *slog.Logger,
	res *resolver.Resolver,
	registry *geocoding.Registry,
	store cache.Store,
	publisher events.Publisher,
	metrics *metrics.Metrics,
	clock clockwork.Clock,
	defaults Defaults,
	numWorkers int,
) *GeocodingService {
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &GeocodingService{
		log:        log,
		resolver:   res,
		registry:   registry,
		store:      store,
		publisher:  publisher,
		metrics:    metrics,
		clock:      clock,
		defaults:   defaults,
		numWorkers: numWorkers,
	}
}

// Geocode resolves one address. A nil result without error means that no
// provider could find the address.
func (gs *GeocodingService) Geocode(ctx context.Context, req GeocodeRequest) (resolver.Resolution, error) {
	if err := req.Address.Validate(); err != nil {
		return resolver.Resolution{}, err
	}

	names := req.Providers
	if len(names) == 0 {
		names = gs.defaults.Providers
	}
	useCache := gs.defaults.UseCache
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	providers, err := gs.registry.Resolve(names)
	if err != nil {
		return resolver.Resolution{}, err
	}

	startTime := gs.clock.Now()
	resolution, err := gs.resolver.ResolveDetailed(ctx, resolver.NewRequest(req.Address, providers, useCache))
	duration := gs.clock.Since(startTime)

	event := events.ResolutionEvent{
		ID:          uuid.NewString(),
		Address:     req.Address,
		Providers:   names,
		UseCache:    useCache,
		Source:      string(resolution.Source),
		Provider:    resolution.Provider,
		Coordinates: resolution.Coordinates,
		ResolvedAt:  gs.clock.Now().UTC(),
		DurationMs:  duration.Milliseconds(),
	}

	switch {
	case err != nil:
		event.Outcome = metrics.OutcomeError
		event.Error = err.Error()
		gs.log.ErrorContext(ctx, "Failed to resolve address", "address", req.Address.String(), "error", err)
	case resolution.Coordinates == nil:
		event.Outcome = metrics.OutcomeMiss
	default:
		event.Outcome = metrics.OutcomeHit
	}
	gs.metrics.Resolutions.WithLabelValues(event.Outcome).Inc()

	if pubErr := gs.publisher.Publish(ctx, event); pubErr != nil {
		gs.log.WarnContext(ctx, "Failed to publish resolution event", "id", event.ID, "error", pubErr)
	}

	return resolution, err
}

// GeocodeBatch resolves every request on a bounded pool of workers. Results
// are returned in the order of the requests; a failed item does not affect
// the others.
func (gs *GeocodingService) GeocodeBatch(ctx context.Context, reqs []GeocodeRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	numWorkers := min(gs.numWorkers, len(reqs))
	gs.log.InfoContext(ctx, "Starting worker pool for batch", "jobs", len(reqs), "num_workers", numWorkers)

	jobs := make(chan int, len(reqs))
	var wgr sync.WaitGroup

	for i := 1; i <= numWorkers; i++ {
		wgr.Add(1)
		go gs.worker(ctx, i, &wgr, jobs, reqs, results)
	}

	for idx := range reqs {
		jobs <- idx
	}
	close(jobs)

	wgr.Wait()
	gs.log.InfoContext(ctx, "Processing batch finished", "jobs", len(reqs))

	return results
}

// worker resolves the batch items whose indexes arrive on jobs and writes each
// outcome to the matching slot of results.
func (gs *GeocodingService) worker(
	ctx context.Context,
	idx int,
	wg *sync.WaitGroup,
	jobs <-chan int,
	reqs []GeocodeRequest,
	results []BatchResult,
) {
	defer wg.Done()
	for job := range jobs {
		gs.metrics.ActiveWorkers.Inc()
		gs.log.DebugContext(ctx, "Processing batch item", "worker", idx, "item", job)

		resolution, err := gs.Geocode(ctx, reqs[job])
		results[job] = BatchResult{Resolution: resolution, Err: err}

		gs.metrics.ActiveWorkers.Dec()
	}
}

// GeocodeWith asks a single provider directly, bypassing the cache.
func (gs *GeocodingService) GeocodeWith(
	ctx context.Context,
	providerName string,
	address models.Address,
) (*models.Coordinates, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}

	provider, err := gs.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	startTime := gs.clock.Now()
	result := geocoding.Lookup(ctx, provider, address)
	gs.metrics.RequestSeconds.WithLabelValues(result.Provider).Observe(gs.clock.Since(startTime).Seconds())
	gs.metrics.ProviderRequests.WithLabelValues(result.Provider, result.Outcome.String()).Inc()

	if result.Outcome == geocoding.OutcomeFailed {
		gs.log.ErrorContext(ctx, "Direct provider lookup failed",
			"provider", result.Provider, "address", address.String(), "error", result.Err)
		return nil, result.Err
	}

	return result.Coordinates, nil
}

// CachedRecord returns what the cache holds for the address, or nil.
func (gs *GeocodingService) CachedRecord(ctx context.Context, address models.Address) (*models.ResolvedAddress, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}

	return gs.store.Lookup(ctx, address)
}

// Providers returns the enabled providers and the default sequence.
func (gs *GeocodingService) Providers() ProvidersInfo {
	return ProvidersInfo{Enabled: gs.registry.Names(), Default: gs.defaults.Providers}
}

// Ping checks the cache backend.
func (gs *GeocodingService) Ping(ctx context.Context) error {
	return gs.store.Ping(ctx)
}

// IsValidationError reports whether err comes from address validation.
func IsValidationError(err error) bool {
	return errors.Is(err, models.ErrInvalidAddress)
}
