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

func hereResponse(status int, body string) *mockHTTPClient {
	return &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
			}, nil
		},
	}
}

func TestHereProvider_Geocode(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	apiKey := "test-api-key"
	defaultRL := rate.NewLimiter(rate.Inf, 0)

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Contains(t, req.URL.String(), geocoding.HereBaseURL)
				assert.Equal(t,
					"country=US;city=Mountain View;street=1600 Amphitheatre Pkwy;postalCode=94043",
					req.URL.Query().Get("qq"))
				assert.Equal(t, apiKey, req.URL.Query().Get("apiKey"))

				responseBody := `{"items":[{"resultType":"houseNumber","position":{"lat":37.4220,"lng":-122.0841}}]}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 37.4220, coords.Latitude, 0.0001)
		assert.InEpsilon(t, -122.0841, coords.Longitude, 0.0001)
	})

	t.Run("no items", func(t *testing.T) {
		provider := geocoding.NewHereProviderWithClient(hereResponse(http.StatusOK, `{"items":[]}`), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("street level match is dropped", func(t *testing.T) {
		body := `{"items":[{"resultType":"street","position":{"lat":37.42,"lng":-122.08}}]}`
		provider := geocoding.NewHereProviderWithClient(hereResponse(http.StatusOK, body), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("missing position", func(t *testing.T) {
		body := `{"items":[{"resultType":"houseNumber"}]}`
		provider := geocoding.NewHereProviderWithClient(hereResponse(http.StatusOK, body), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.ErrorIs(t, err, geocoding.ErrHereInvalidPayload)
	})

	t.Run("unauthorized", func(t *testing.T) {
		provider := geocoding.NewHereProviderWithClient(hereResponse(http.StatusForbidden, `forbidden`), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.ErrorIs(t, err, geocoding.ErrHereUnauthorized)
		assert.True(t, geocoding.IsProviderError(err))
	})

	t.Run("server error", func(t *testing.T) {
		provider := geocoding.NewHereProviderWithClient(hereResponse(http.StatusBadGateway, `upstream`), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.Contains(t, err.Error(), "here API returned status 502")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		provider := geocoding.NewHereProviderWithClient(hereResponse(http.StatusOK, `invalid json`), apiKey, defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.Contains(t, err.Error(), "failed to decode here response")
	})

	t.Run("missing api key fails before any request", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("HTTP client should not be called without an API key")
				return nil, nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "", defaultRL, logger)
		coords, err := provider.Geocode(ctx, googleplex)

		assert.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrMissingAPIKey)
		assert.True(t, geocoding.IsConfigurationError(err))
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		rateCtx, cancel := context.WithCancel(context.Background())
		cancel()
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("HTTP client should not be called when rate limit blocks")
				return &http.Response{}, nil
			},
		}

		limiter := rate.NewLimiter(rate.Every(time.Second), 1)

		provider := geocoding.NewHereProviderWithClient(mockClient, apiKey, limiter, logger)
		coords, err := provider.Geocode(rateCtx, googleplex)

		require.Error(t, err)
		assert.Nil(t, coords)
		assert.ErrorContains(t, err, "rate limit exceeded")
	})
}

func TestHereQualifiedQuery(t *testing.T) {
	assert.Equal(t,
		"country=US;city=Mountain View;street=1600 Amphitheatre Pkwy;postalCode=94043",
		geocoding.HereQualifiedQuery(googleplex))
}
