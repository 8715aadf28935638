package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/locator/internal/models"
)

// NominatimBaseURL is the public Nominatim search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// DefaultNominatimUserAgent identifies the service to Nominatim as its usage policy requires.
const DefaultNominatimUserAgent = "Locator-Geocoding-Service/1.0 (https://github.com/UnknownOlympus/locator)"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient   // HTTP client for making requests
	baseURL string       // Base URL for the Nominatim API
	log     *slog.Logger // Logger for logging operations
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents one jsonv2 search hit.
type nominatimResponse struct {
	Lat     string `json:"lat"` // Latitude as string
	Lon     string `json:"lon"` // Longitude as string
	Address struct {
		HouseNumber string `json:"house_number"`
	} `json:"address"`
}

// ErrNominatimInvalidCoords is returned when Nominatim answers with unparsable coordinates.
var ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")

// NewNominatimProvider creates a new Nominatim geocoding provider.
// An empty userAgent falls back to DefaultNominatimUserAgent.
func NewNominatimProvider(userAgent string, log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, userAgent, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, userAgent string, log *slog.Logger) *NominatimProvider {
	if userAgent == "" {
		userAgent = DefaultNominatimUserAgent
	}

	return &NominatimProvider{
		client:    client,
		baseURL:   NominatimBaseURL,
		log:       log,
		userAgent: userAgent,
	}
}

// Name returns the registry name of the provider.
func (np *NominatimProvider) Name() string {
	return string(ProviderTypeNominatim)
}

// Geocode converts an address to geographic coordinates using a structured Nominatim query.
// A hit that was not resolved down to a house number is treated as no result.
func (np *NominatimProvider) Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address.String())

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, np.fail(fmt.Errorf("failed to parse base URL: %w", err))
	}

	query := reqURL.Query()
	query.Set("street", address.Street)
	query.Set("city", address.City)
	query.Set("postalcode", address.Postcode)
	query.Set("countrycodes", address.Country) // ISO code filter; structured "country" expects a name
	query.Set("format", "jsonv2")
	query.Set("limit", "1")          // Only need the top result
	query.Set("addressdetails", "1") // Needed for the house number check
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, np.fail(fmt.Errorf("failed to create request: %w", err))
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, np.fail(fmt.Errorf("failed to execute geocoding request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, np.fail(fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, np.fail(fmt.Errorf("failed to read response body: %w", err))
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, np.fail(fmt.Errorf("failed to decode nominatim response: %w", err))
	}

	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]
	if first.Address.HouseNumber == "" {
		np.log.DebugContext(ctx, "Nominatim match has no house number", "address", address.String())
		return nil, nil
	}

	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, np.fail(fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, first.Lat))
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, np.fail(fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, first.Lon))
	}

	return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
}

func (np *NominatimProvider) fail(err error) error {
	return &ProviderError{Provider: np.Name(), Err: err}
}
