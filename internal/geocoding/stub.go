package geocoding

import (
	"context"

	"github.com/UnknownOlympus/locator/internal/models"
)

// StubProvider is a deterministic provider that never leaves the process.
// It answers every address with the same coordinates, or with no result when
// constructed by NewEmptyStubProvider.
type StubProvider struct {
	name   string
	coords *models.Coordinates
}

// NewStubProvider returns a stub answering every lookup with (lat, lng).
func NewStubProvider(lat, lng float64) *StubProvider {
	return &StubProvider{name: string(ProviderTypeStub), coords: &models.Coordinates{Latitude: lat, Longitude: lng}}
}

// NewEmptyStubProvider returns a stub that never finds anything.
func NewEmptyStubProvider() *StubProvider {
	return &StubProvider{name: string(ProviderTypeStub)}
}

// Named returns a copy of the stub reporting the given name, so several stubs can
// be told apart in logs and metrics.
func (sp *StubProvider) Named(name string) *StubProvider {
	return &StubProvider{name: name, coords: sp.coords}
}

// Name returns the name the stub reports.
func (sp *StubProvider) Name() string {
	return sp.name
}

// Geocode returns a copy of the configured coordinates.
func (sp *StubProvider) Geocode(_ context.Context, _ models.Address) (*models.Coordinates, error) {
	if sp.coords == nil {
		return nil, nil
	}

	coords := *sp.coords

	return &coords, nil
}
