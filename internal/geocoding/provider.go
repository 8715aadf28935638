package geocoding

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/locator/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// Geocode returns the coordinates of the address, or nil coordinates and a nil
// error when the provider has no sufficiently precise match.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error)
}

// Outcome tags the result of a single provider call.
type Outcome int

const (
	// OutcomeNoResult means the provider answered but had no precise match.
	OutcomeNoResult Outcome = iota
	// OutcomeFound means the provider returned coordinates.
	OutcomeFound
	// OutcomeFailed means the provider call failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeFailed:
		return "failed"
	default:
		return "no_result"
	}
}

// Result is the tagged outcome of calling one provider.
type Result struct {
	Provider    string
	Outcome     Outcome
	Coordinates *models.Coordinates
	Err         error
}

// Lookup calls the provider and folds its answer into a tagged Result.
// Failures that are not configuration errors are wrapped in a ProviderError
// carrying the provider identity.
func Lookup(ctx context.Context, provider Provider, address models.Address) Result {
	name := provider.Name()

	coords, err := provider.Geocode(ctx, address)
	if err != nil {
		var provErr *ProviderError
		if !errors.As(err, &provErr) && !IsConfigurationError(err) {
			err = &ProviderError{Provider: name, Err: err}
		}

		return Result{Provider: name, Outcome: OutcomeFailed, Err: err}
	}

	if coords == nil {
		return Result{Provider: name, Outcome: OutcomeNoResult}
	}

	return Result{Provider: name, Outcome: OutcomeFound, Coordinates: coords}
}
