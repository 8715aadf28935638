package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/UnknownOlympus/locator/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestVisicomProvider_Geocode(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	apiKey := "test-api-key"
	defaultRL := rate.NewLimiter(rate.Inf, 0)

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				// Verify request parameters
				assert.Equal(t, "GET", req.Method)
				assert.Contains(t, req.URL.String(), geocoding.VisicomBaseURL)
				assert.Equal(t, "1600 Amphitheatre Pkwy, Mountain View, 94043, US", req.URL.Query().Get("text"))
				assert.Equal(t, apiKey, req.URL.Query().Get("key"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Equal(t, "application/json", req.Header.Get("Accept"))

				responseBody := `{"properties":{"categories":"adr_address"},"geo_centroid":{"coordinates":[-122.0842499,37.4224764]}}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 37.4224764, coords.Latitude, 0.0001)
		assert.InEpsilon(t, -122.0842499, coords.Longitude, 0.0001)
	})

	t.Run("empty response", func(t *testing.T) {
		provider := geocoding.NewVisicomProviderWithClient(nominatimResponse(http.StatusOK, `{}`), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("street level match is dropped", func(t *testing.T) {
		body := `{"properties":{"categories":"adr_street"},"geo_centroid":{"coordinates":[30.5,50.4]}}`
		provider := geocoding.NewVisicomProviderWithClient(nominatimResponse(http.StatusOK, body), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		body := `{"properties":{"categories":"adr_address"},"geo_centroid":{"coordinates":[30.5]}}`
		provider := geocoding.NewVisicomProviderWithClient(nominatimResponse(http.StatusOK, body), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.ErrorIs(t, err, geocoding.ErrVisicomInvalidCoords)
	})

	t.Run("unauthorized", func(t *testing.T) {
		provider := geocoding.NewVisicomProviderWithClient(
			nominatimResponse(http.StatusUnauthorized, `unauthorized`), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.ErrorIs(t, err, geocoding.ErrVisicomUnauthorized)
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		rateCtx, cancel := context.WithCancel(context.Background())
		cancel() // cancel immediately
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("HTTP client should not be called when rate limit blocks")
				return &http.Response{}, nil
			},
		}

		limiter := rate.NewLimiter(rate.Every(time.Second), 1)

		provider := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, limiter, logger)
		coords, err := provider.Geocode(rateCtx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.ErrorContains(t, err, "rate limit exceeded")
	})

	t.Run("missing api key", func(t *testing.T) {
		provider := geocoding.NewVisicomProviderWithClient(nominatimResponse(http.StatusOK, `{}`), "", defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		assert.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrMissingAPIKey)
	})
}
