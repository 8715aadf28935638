package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/locator/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleLocationTypeRooftop is the only Google location type precise enough to be
// cached; range-interpolated, geometric-center and approximate matches are dropped.
const GoogleLocationTypeRooftop = "ROOFTOP"

const googleZeroResults = "ZERO_RESULTS"

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of the Google Maps client used by GoogleProvider.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider returns a GoogleProvider backed by the given client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Name returns the registry name of the provider.
func (gp *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

// Geocode resolves the address with the Google Maps Geocoding API. The street goes
// into the free-form address while country, city and postcode are passed as
// component filters. Only ROOFTOP matches are returned.
func (gp *GoogleProvider) Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	if gp.client == nil {
		return nil, missingKeyError(gp.Name())
	}

	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address.String())

	geocodeResponse, err := gp.client.Geocode(ctx, NewGoogleRequest(address))
	if err != nil {
		if strings.Contains(err.Error(), googleZeroResults) {
			return nil, nil
		}
		return nil, &ProviderError{Provider: gp.Name(), Err: fmt.Errorf("failed to geocode address: %w", err)}
	}

	if len(geocodeResponse) == 0 {
		gp.log.DebugContext(ctx, "Google Maps returned no results", "address", address.String())
		return nil, nil
	}

	first := geocodeResponse[0]
	if first.Geometry.LocationType != GoogleLocationTypeRooftop {
		gp.log.DebugContext(ctx, "Google Maps match is not precise enough",
			"address", address.String(), "location_type", first.Geometry.LocationType)
		return nil, nil
	}

	coords := first.Geometry.Location

	return &models.Coordinates{Latitude: coords.Lat, Longitude: coords.Lng}, nil
}

// NewGoogleRequest builds the geocoding request for an address.
func NewGoogleRequest(address models.Address) *maps.GeocodingRequest {
	return &maps.GeocodingRequest{
		Address: address.Street,
		Components: map[maps.Component]string{
			maps.ComponentCountry:    address.Country,
			maps.ComponentLocality:   address.City,
			maps.ComponentPostalCode: address.Postcode,
		},
	}
}
