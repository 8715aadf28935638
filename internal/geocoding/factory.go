package geocoding

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeHere represents HERE Geocoding & Search provider.
	ProviderTypeHere ProviderType = "here"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeVisicom represents Visicom Maps geocoding provider.
	ProviderTypeVisicom ProviderType = "visicom"
	// ProviderTypeStub represents the deterministic in-process provider.
	ProviderTypeStub ProviderType = "stub"
)

// Coordinates returned by the stub provider when it is built through the factory.
const (
	StubLatitude  = 1.0
	StubLongitude = 2.0
)

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (Google, HERE, Visicom)
	RateLimit int          // Rate limit for requests per second
	UserAgent string       // User-Agent sent to Nominatim
	Logger    *slog.Logger // Logger for the provider
}

// Constructor builds a provider from its configuration.
type Constructor func(config ProviderConfig) (Provider, error)

var constructors = map[ProviderType]Constructor{
	ProviderTypeGoogle:    newGoogleProvider,
	ProviderTypeHere:      newHereProvider,
	ProviderTypeNominatim: newNominatimProvider,
	ProviderTypeVisicom:   newVisicomProvider,
	ProviderTypeStub:      newStubProvider,
}

// SupportedTypes returns every provider type the factory can build, sorted by name.
func SupportedTypes() []ProviderType {
	types := make([]ProviderType, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// NewProvider creates a geocoding provider based on the provided configuration.
// It applies the Factory pattern to decouple provider instantiation from business logic.
//
// Returns a ConfigurationError if the provider type is unsupported or if its
// credentials are missing.
func NewProvider(config ProviderConfig) (Provider, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	constructor, ok := constructors[config.Type]
	if !ok {
		return nil, NewConfigurationError(fmt.Sprintf("unsupported provider type: %s", config.Type))
	}

	if config.RateLimit < 0 {
		return nil, NewConfigurationError(
			fmt.Sprintf("rate limit for %s provider cannot be negative: %d", config.Type, config.RateLimit))
	}

	return constructor(config)
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, missingKeyError(string(ProviderTypeGoogle))
	}

	// Create Google Maps client with API key and rate limiting
	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}

	// Apply rate limiting if specified
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, &ConfigurationError{Message: "failed to create Google Maps client", Err: err}
	}

	return NewGoogleProvider(client, config.Logger), nil
}

// newHereProvider creates a HERE geocoding provider.
func newHereProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, missingKeyError(string(ProviderTypeHere))
	}

	if config.RateLimit == 0 {
		config.RateLimit = 5
		config.Logger.Warn("Rate limit for HERE API not set, set a default value", "value", config.RateLimit)
	}

	return NewHereProvider(config.APIKey, config.RateLimit, config.Logger), nil
}

// newNominatimProvider creates a Nominatim geocoding provider.
func newNominatimProvider(config ProviderConfig) (Provider, error) {
	// Nominatim is free and doesn't require an API key
	return NewNominatimProvider(config.UserAgent, config.Logger), nil
}

// newVisicomProvider creates a Visicom geocoding provider.
func newVisicomProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, missingKeyError(string(ProviderTypeVisicom))
	}

	if config.RateLimit == 0 {
		config.RateLimit = 5
		config.Logger.Warn("Rate limit for Visicom API not set, set a default value", "value", config.RateLimit)
	}

	return NewVisicomProvider(config.APIKey, config.RateLimit, config.Logger), nil
}

func newStubProvider(_ ProviderConfig) (Provider, error) {
	return NewStubProvider(StubLatitude, StubLongitude), nil
}

// Registry maps provider names to constructed providers. It is built once at
// startup; the order in which providers are tried is chosen per request.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds every configured provider. A provider that cannot be built
// fails the whole registry.
func NewRegistry(configs ...ProviderConfig) (*Registry, error) {
	reg := &Registry{providers: make(map[string]Provider, len(configs))}

	for _, config := range configs {
		provider, err := NewProvider(config)
		if err != nil {
			return nil, err
		}
		reg.Register(provider)
	}

	return reg, nil
}

// Register adds a provider under its own name, replacing any provider registered
// under the same name.
func (r *Registry) Register(provider Provider) {
	r.providers[provider.Name()] = provider
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	provider, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, NewConfigurationError(fmt.Sprintf("provider %q is not enabled", name))
	}

	return provider, nil
}

// Resolve maps an ordered list of names onto providers, keeping the order.
func (r *Registry) Resolve(names []string) ([]Provider, error) {
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		provider, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	return providers, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
