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
	"strings"
	"time"

	"github.com/UnknownOlympus/locator/internal/models"
	"golang.org/x/time/rate"
)

// HereBaseURL -- HERE Geocoding & Search API endpoint.
const HereBaseURL = "https://geocode.search.hereapi.com/v1/geocode"

// HereResultTypeHouseNumber is the only HERE result type accepted as a match.
const HereResultTypeHouseNumber = "houseNumber"

// HereProvider implements geocoding using the HERE Geocoding & Search API.
type HereProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the HERE API
	apiKey  string        // API key with geocoding access
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// Common errors for HERE provider.
var (
	ErrHereUnauthorized   = errors.New("here API unauthorized (invalid API key)")
	ErrHereInvalidPayload = errors.New("here API returned an invalid payload")
)

type hereResponse struct {
	Items []struct {
		ResultType string `json:"resultType"`
		Position   *struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
	} `json:"items"`
}

// NewHereProvider creates a new HERE geocoding provider.
func NewHereProvider(apiKey string, rateLimit int, log *slog.Logger) *HereProvider {
	const timeout = 10

	return &HereProvider{
		client: &http.Client{
			Timeout: timeout * time.Second,
		},
		baseURL: HereBaseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
	}
}

// NewHereProviderWithClient allows injecting custom HTTP client.
func NewHereProviderWithClient(client HTTPClient, apiKey string, limiter *rate.Limiter, log *slog.Logger) *HereProvider {
	return &HereProvider{
		client:  client,
		baseURL: HereBaseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: limiter,
	}
}

// Name returns the registry name of the provider.
func (hp *HereProvider) Name() string {
	return string(ProviderTypeHere)
}

// Geocode converts address into geographic coordinates using a qualified HERE query.
// Only results resolved down to the house number are returned.
func (hp *HereProvider) Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	if hp.apiKey == "" {
		return nil, missingKeyError(hp.Name())
	}

	if err := hp.limiter.Wait(ctx); err != nil {
		return nil, hp.fail(fmt.Errorf("rate limit exceeded: %w", err))
	}

	hp.log.DebugContext(ctx, "Geocoding using HERE", "address", address.String())

	reqURL, err := url.Parse(hp.baseURL)
	if err != nil {
		return nil, hp.fail(fmt.Errorf("failed to parse base URL: %w", err))
	}

	query := reqURL.Query()
	query.Set("qq", HereQualifiedQuery(address))
	query.Set("apiKey", hp.apiKey)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, hp.fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hp.client.Do(req)
	if err != nil {
		return nil, hp.fail(fmt.Errorf("failed to execute geocoding request: %w", err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, hp.fail(ErrHereUnauthorized)
	default:
		body, _ := io.ReadAll(resp.Body)
		hp.log.ErrorContext(ctx, "HERE API error", "status", resp.StatusCode, "body", string(body))
		return nil, hp.fail(fmt.Errorf("here API returned status %d: %s", resp.StatusCode, string(body)))
	}

	var result hereResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, hp.fail(fmt.Errorf("failed to decode here response: %w", err))
	}

	if len(result.Items) == 0 {
		return nil, nil
	}

	first := result.Items[0]
	if first.ResultType != HereResultTypeHouseNumber {
		hp.log.DebugContext(ctx, "HERE match is not precise enough",
			"address", address.String(), "result_type", first.ResultType)
		return nil, nil
	}

	if first.Position == nil {
		return nil, hp.fail(fmt.Errorf("%w: missing position", ErrHereInvalidPayload))
	}

	return &models.Coordinates{Latitude: first.Position.Lat, Longitude: first.Position.Lng}, nil
}

func (hp *HereProvider) fail(err error) error {
	return &ProviderError{Provider: hp.Name(), Err: err}
}

// HereQualifiedQuery renders the address as a HERE qualified query.
func HereQualifiedQuery(address models.Address) string {
	return strings.Join([]string{
		"country=" + address.Country,
		"city=" + address.City,
		"street=" + address.Street,
		"postalCode=" + address.Postcode,
	}, ";")
}
