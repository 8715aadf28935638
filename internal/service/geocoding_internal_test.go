package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/UnknownOlympus/locator/internal/cache"
	"github.com/UnknownOlympus/locator/internal/events"
	"github.com/UnknownOlympus/locator/internal/geocoding"
	"github.com/UnknownOlympus/locator/internal/metrics"
	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/UnknownOlympus/locator/internal/resolver"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var googleplex = models.Address{
	Country:  "US",
	City:     "Mountain View",
	Street:   "1600 Amphitheatre Pkwy",
	Postcode: "94043",
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ResolutionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.ResolutionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type failingProvider struct{ name string }

func (f failingProvider) Name() string { return f.name }

func (f failingProvider) Geocode(context.Context, models.Address) (*models.Coordinates, error) {
	return nil, assert.AnError
}

type testEnv struct {
	service   *GeocodingService
	store     *cache.MemoryCache
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

func newTestEnv(t *testing.T, defaults Defaults) testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	clock := clockwork.NewFakeClock()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	store, err := cache.NewMemoryCache(64, clock)
	require.NoError(t, err)

	registry, err := geocoding.NewRegistry()
	require.NoError(t, err)
	registry.Register(geocoding.NewStubProvider(37.4220, -122.0841))
	registry.Register(geocoding.NewEmptyStubProvider().Named("empty"))
	registry.Register(failingProvider{name: "broken"})

	publisher := &recordingPublisher{}
	res := resolver.NewResolver(store, logger, appMetrics, clock)

	return testEnv{
		service:   NewGeocodingService(logger, res, registry, store, publisher, appMetrics, clock, defaults, 2),
		store:     store,
		publisher: publisher,
		metrics:   appMetrics,
	}
}

func TestGeocode(t *testing.T) {
	ctx := t.Context()

	t.Run("defaults are applied", func(t *testing.T) {
		env := newTestEnv(t, Defaults{Providers: []string{"empty", "stub"}, UseCache: true})

		resolution, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex})

		require.NoError(t, err)
		want := resolver.Resolution{
			Coordinates: &models.Coordinates{Latitude: 37.4220, Longitude: -122.0841},
			Source:      resolver.SourceProvider,
			Provider:    "stub",
		}
		if diff := cmp.Diff(want, resolution); diff != "" {
			t.Errorf("Geocode() mismatch (-want +got):\n%s", diff)
		}

		require.Len(t, env.publisher.events, 1)
		event := env.publisher.events[0]
		assert.Equal(t, "hit", event.Outcome)
		assert.Equal(t, []string{"empty", "stub"}, event.Providers)
		assert.True(t, event.UseCache)
		_, err = uuid.Parse(event.ID)
		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.Resolutions.WithLabelValues("hit")), 0)
	})

	t.Run("second call is answered from cache", func(t *testing.T) {
		env := newTestEnv(t, Defaults{Providers: []string{"stub"}, UseCache: true})

		_, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex})
		require.NoError(t, err)
		resolution, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex})
		require.NoError(t, err)

		assert.Equal(t, resolver.SourceCache, resolution.Source)
	})

	t.Run("explicit cache flag overrides default", func(t *testing.T) {
		env := newTestEnv(t, Defaults{Providers: []string{"stub"}, UseCache: true})
		noCache := false

		_, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex})
		require.NoError(t, err)
		resolution, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex, UseCache: &noCache})
		require.NoError(t, err)

		assert.Equal(t, resolver.SourceProvider, resolution.Source)
	})

	t.Run("miss", func(t *testing.T) {
		env := newTestEnv(t, Defaults{})

		resolution, err := env.service.Geocode(ctx, GeocodeRequest{
			Address:   googleplex,
			Providers: []string{"broken", "empty"},
		})

		require.NoError(t, err)
		assert.Nil(t, resolution.Coordinates)
		assert.Equal(t, "miss", env.publisher.events[0].Outcome)

		record, err := env.store.Lookup(ctx, googleplex)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.True(t, record.IsMiss())
	})

	t.Run("unknown provider", func(t *testing.T) {
		env := newTestEnv(t, Defaults{})

		_, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex, Providers: []string{"bing"}})

		require.Error(t, err)
		assert.True(t, geocoding.IsConfigurationError(err))
		assert.Empty(t, env.publisher.events)
	})

	t.Run("no providers at all", func(t *testing.T) {
		env := newTestEnv(t, Defaults{})

		_, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex})

		var cfgErr *geocoding.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "providers are not found", cfgErr.Message)
		require.Len(t, env.publisher.events, 1)
		assert.Equal(t, "error", env.publisher.events[0].Outcome)
	})

	t.Run("invalid address", func(t *testing.T) {
		env := newTestEnv(t, Defaults{Providers: []string{"stub"}})

		_, err := env.service.Geocode(ctx, GeocodeRequest{Address: models.Address{Country: "US"}})

		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		env := newTestEnv(t, Defaults{Providers: []string{"stub"}})
		env.publisher.err = assert.AnError

		resolution, err := env.service.Geocode(ctx, GeocodeRequest{Address: googleplex})

		require.NoError(t, err)
		assert.NotNil(t, resolution.Coordinates)
	})
}

func TestGeocodeBatch(t *testing.T) {
	ctx := t.Context()
	env := newTestEnv(t, Defaults{Providers: []string{"stub"}})

	other := googleplex
	other.Street = "1 Infinite Loop"

	reqs := []GeocodeRequest{
		{Address: googleplex},
		{Address: other, Providers: []string{"empty"}},
		{Address: googleplex, Providers: []string{"bing"}},
		{Address: models.Address{}},
		{Address: other, Providers: []string{"stub"}},
	}

	results := env.service.GeocodeBatch(ctx, reqs)

	require.Len(t, results, len(reqs))
	require.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Resolution.Coordinates)
	require.NoError(t, results[1].Err)
	assert.Nil(t, results[1].Resolution.Coordinates)
	assert.True(t, geocoding.IsConfigurationError(results[2].Err))
	assert.True(t, IsValidationError(results[3].Err))
	require.NoError(t, results[4].Err)
	assert.InDelta(t, 0, testutil.ToFloat64(env.metrics.ActiveWorkers), 0)

	assert.Empty(t, env.service.GeocodeBatch(ctx, nil))
}

func TestGeocodeWith(t *testing.T) {
	ctx := t.Context()
	env := newTestEnv(t, Defaults{})

	t.Run("found and not cached", func(t *testing.T) {
		coords, err := env.service.GeocodeWith(ctx, "stub", googleplex)

		require.NoError(t, err)
		assert.Equal(t, &models.Coordinates{Latitude: 37.4220, Longitude: -122.0841}, coords)

		record, err := env.store.Lookup(ctx, googleplex)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("provider failure is returned", func(t *testing.T) {
		_, err := env.service.GeocodeWith(ctx, "broken", googleplex)

		require.Error(t, err)
		assert.True(t, geocoding.IsProviderError(err))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := env.service.GeocodeWith(ctx, "bing", googleplex)

		assert.True(t, geocoding.IsConfigurationError(err))
	})
}

func TestCachedRecordAndProviders(t *testing.T) {
	ctx := t.Context()
	env := newTestEnv(t, Defaults{Providers: []string{"stub"}})

	record, err := env.service.CachedRecord(ctx, googleplex)
	require.NoError(t, err)
	assert.Nil(t, record)

	_, err = env.service.Geocode(ctx, GeocodeRequest{Address: googleplex})
	require.NoError(t, err)

	record, err = env.service.CachedRecord(ctx, googleplex)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.IsMiss())

	assert.Equal(t, ProvidersInfo{Enabled: []string{"broken", "empty", "stub"}, Default: []string{"stub"}},
		env.service.Providers())
	assert.NoError(t, env.service.Ping(ctx))
}
