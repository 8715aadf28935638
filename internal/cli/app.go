package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/locator/internal/cache"
	"github.com/UnknownOlympus/locator/internal/config"
	"github.com/UnknownOlympus/locator/internal/events"
	"github.com/UnknownOlympus/locator/internal/geocoding"
	"github.com/UnknownOlympus/locator/internal/metrics"
	"github.com/UnknownOlympus/locator/internal/repository"
	"github.com/UnknownOlympus/locator/internal/resolver"
	"github.com/UnknownOlympus/locator/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	service  *service.GeocodingService
	closers  []func() error
}

// newApp builds every component from configuration.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	application := &app{cfg: cfg, log: logger}

	// Create a separate registry for metrics
	application.registry = prometheus.NewRegistry()
	application.registry.MustRegister(collectors.NewGoCollector())
	application.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(application.registry)

	clock := clockwork.NewRealClock()

	store, err := application.openStore(ctx, clock)
	if err != nil {
		_ = application.Close()
		return nil, err
	}

	registry, err := geocoding.NewRegistry(providerConfigs(cfg.Providers, logger)...)
	if err != nil {
		_ = application.Close()
		return nil, fmt.Errorf("failed to create geocoding providers: %w", err)
	}
	logger.InfoContext(ctx, "Geocoding providers initialized", "enabled", registry.Names())

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.InfoContext(ctx, "Publishing resolution events", "topic", cfg.Kafka.Topic)
	}
	application.closers = append(application.closers, publisher.Close)

	application.service = service.NewGeocodingService(
		logger,
		resolver.NewResolver(store, logger, appMetrics, clock),
		registry,
		store,
		publisher,
		appMetrics,
		clock,
		service.Defaults{Providers: cfg.Resolution.DefaultProviders, UseCache: cfg.Resolution.UseCache},
		cfg.Workers,
	)

	return application, nil
}

// openStore connects the configured cache backend.
func (a *app) openStore(ctx context.Context, clock clockwork.Clock) (cache.Store, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return cache.NewRedisCache(client, a.cfg.Redis.TTL, clock, a.log), nil
	case config.CacheBackendMemory:
		memory, err := cache.NewMemoryCache(a.cfg.Cache.MemorySize, clock)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		return memory, nil
	default:
		repo, err := a.openRepository(ctx)
		if err != nil {
			return nil, err
		}
		return cache.NewDBCache(repo, a.log), nil
	}
}

// openRepository connects to PostgreSQL.
func (a *app) openRepository(ctx context.Context) (*repository.Repository, error) {
	dtb, err := repository.NewDatabase(ctx,
		a.cfg.Database.Host, a.cfg.Database.Port, a.cfg.Database.User, a.cfg.Database.Password, a.cfg.Database.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	a.closers = append(a.closers, func() error { dtb.Close(); return nil })

	return repository.NewRepository(dtb, a.log), nil
}

// Close releases every opened connection.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil

	return errors.Join(errs...)
}

// providerConfigs maps the enabled provider names onto factory configurations.
func providerConfigs(cfg config.ProvidersConfig, logger *slog.Logger) []geocoding.ProviderConfig {
	configs := make([]geocoding.ProviderConfig, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		providerConfig := geocoding.ProviderConfig{
			Type:      geocoding.ProviderType(name),
			RateLimit: cfg.RateLimit,
			Logger:    logger,
		}

		switch providerConfig.Type {
		case geocoding.ProviderTypeGoogle:
			providerConfig.APIKey = cfg.GoogleAPIKey
		case geocoding.ProviderTypeHere:
			providerConfig.APIKey = cfg.HereAPIKey
		case geocoding.ProviderTypeVisicom:
			providerConfig.APIKey = cfg.VisicomAPIKey
		case geocoding.ProviderTypeNominatim:
			providerConfig.UserAgent = cfg.NominatimUserAgent
		}

		configs = append(configs, providerConfig)
	}

	return configs
}
