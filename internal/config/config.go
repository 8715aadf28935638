package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends selectable with LOCATOR_CACHE_BACKEND.
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

// Config holds the configuration settings for the locator service.
//
// Every value is read from the environment (after loading an optional .env
// file). A YAML file named by LOCATOR_CONFIG_FILE may provide the same keys,
// nested by their dotted name; environment variables take precedence.
type Config struct {
	Env            string        // Env is the current environment: local, development, production.
	Port           int           // Port is the HTTP API port.
	Workers        int           // Workers bounds concurrent resolutions in a batch.
	RequestTimeout time.Duration // RequestTimeout bounds a single HTTP request.
	Resolution     ResolutionConfig
	Providers      ProvidersConfig
	Cache          CacheConfig
	Database       PostgresConfig // Database holds the postgres database configuration
	Redis          RedisConfig
	Kafka          KafkaConfig
}

// ResolutionConfig holds the defaults applied to requests that omit them.
type ResolutionConfig struct {
	DefaultProviders []string // Provider sequence used when a request names none.
	UseCache         bool     // Cache flag used when a request does not set one.
}

// ProvidersConfig lists enabled providers and their credentials.
type ProvidersConfig struct {
	Enabled            []string
	GoogleAPIKey       string
	HereAPIKey         string
	VisicomAPIKey      string
	NominatimUserAgent string
	RateLimit          int // Requests per second for rate limited providers, 0 for provider default.
}

// CacheConfig selects the resolution cache backend.
type CacheConfig struct {
	Backend    string
	MemorySize int
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // TTL of cached entries, 0 keeps them forever.
}

// KafkaConfig holds the event stream settings. Events are not published when
// no broker is configured.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

var defaults = map[string]any{
	"locator.env":                 "production",
	"locator.port":                "8080",
	"locator.workers":             "10",
	"locator.request_timeout":     "30s",
	"locator.default_providers":   "google,here",
	"locator.use_cache":           "true",
	"locator.enabled_providers":   "google,here",
	"locator.provider_rate_limit": "0",
	"locator.cache_backend":       CacheBackendPostgres,
	"locator.cache_size":          "10000",
	"locator.kafka_topic":         "locator.resolutions",
	"db.port":                     "5432",
	"redis.addr":                  "localhost:6379",
	"redis.db":                    "0",
	"redis.ttl":                   "0s",
}

// MustLoad loads the configuration and returns a Config struct.
// It panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	vpr := viper.New()
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vpr.AutomaticEnv()
	for key, value := range defaults {
		vpr.SetDefault(key, value)
	}

	if file := os.Getenv("LOCATOR_CONFIG_FILE"); file != "" {
		vpr.SetConfigFile(file)
		if err := vpr.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	requestTimeout, err := time.ParseDuration(vpr.GetString("locator.request_timeout"))
	if err != nil {
		panic("failed to parse request timeout from configuration")
	}

	port, err := strconv.Atoi(vpr.GetString("locator.port"))
	if err != nil {
		panic("failed to parse port for API server from configuration")
	}

	workers, err := strconv.Atoi(vpr.GetString("locator.workers"))
	if err != nil || workers < 1 {
		panic("failed to parse workers from configuration, must be a positive integer")
	}

	useCache, err := strconv.ParseBool(vpr.GetString("locator.use_cache"))
	if err != nil {
		panic("failed to parse use_cache from configuration, must be a boolean")
	}

	rateLimit, err := strconv.Atoi(vpr.GetString("locator.provider_rate_limit"))
	if err != nil || rateLimit < 0 {
		panic("failed to parse provider rate limit from configuration, must be a non-negative integer")
	}

	cacheSize, err := strconv.Atoi(vpr.GetString("locator.cache_size"))
	if err != nil {
		panic("failed to parse cache size from configuration, must be an integer")
	}

	cacheBackend := strings.ToLower(vpr.GetString("locator.cache_backend"))
	switch cacheBackend {
	case CacheBackendPostgres, CacheBackendRedis, CacheBackendMemory:
	default:
		panic("unsupported cache backend in configuration, use postgres, redis or memory")
	}

	redisDB, err := strconv.Atoi(vpr.GetString("redis.db"))
	if err != nil {
		panic("failed to parse redis db from configuration, must be an integer")
	}

	redisTTL, err := time.ParseDuration(vpr.GetString("redis.ttl"))
	if err != nil {
		panic("failed to parse redis ttl from configuration")
	}

	return &Config{
		Env:            vpr.GetString("locator.env"),
		Port:           port,
		Workers:        workers,
		RequestTimeout: requestTimeout,
		Resolution: ResolutionConfig{
			DefaultProviders: splitList(vpr.GetStringSlice("locator.default_providers")),
			UseCache:         useCache,
		},
		Providers: ProvidersConfig{
			Enabled:            splitList(vpr.GetStringSlice("locator.enabled_providers")),
			GoogleAPIKey:       vpr.GetString("locator.google_api_key"),
			HereAPIKey:         vpr.GetString("locator.here_api_key"),
			VisicomAPIKey:      vpr.GetString("locator.visicom_api_key"),
			NominatimUserAgent: vpr.GetString("locator.nominatim_user_agent"),
			RateLimit:          rateLimit,
		},
		Cache: CacheConfig{
			Backend:    cacheBackend,
			MemorySize: cacheSize,
		},
		Database: PostgresConfig{
			Host:     vpr.GetString("db.host"),
			Port:     vpr.GetString("db.port"),
			User:     vpr.GetString("db.username"),
			Password: vpr.GetString("db.password"),
			Name:     vpr.GetString("db.name"),
		},
		Redis: RedisConfig{
			Addr:     vpr.GetString("redis.addr"),
			Password: vpr.GetString("redis.password"),
			DB:       redisDB,
			TTL:      redisTTL,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(vpr.GetStringSlice("locator.kafka_brokers")),
			Topic:   vpr.GetString("locator.kafka_topic"),
		},
	}
}

// splitList accepts both YAML lists and comma separated strings.
func splitList(values []string) []string {
	var list []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
				list = append(list, item)
			}
		}
	}

	return list
}
