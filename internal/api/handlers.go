package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/UnknownOlympus/locator/internal/resolver"
	"github.com/UnknownOlympus/locator/internal/service"
	"github.com/gin-gonic/gin"
)

// Service is the application layer the handlers delegate to.
type Service interface {
	Geocode(ctx context.Context, req service.GeocodeRequest) (resolver.Resolution, error)
	GeocodeBatch(ctx context.Context, reqs []service.GeocodeRequest) []service.BatchResult
	GeocodeWith(ctx context.Context, providerName string, address models.Address) (*models.Coordinates, error)
	CachedRecord(ctx context.Context, address models.Address) (*models.ResolvedAddress, error)
	Providers() service.ProvidersInfo
	Ping(ctx context.Context) error
}

// Handler serves the HTTP API.
type Handler struct {
	svc Service
	log *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type addressQuery struct {
	Country  string `form:"country"  binding:"required,min=2,max=3"`
	City     string `form:"city"     binding:"required,max=255"`
	Street   string `form:"street"   binding:"required,max=255"`
	Postcode string `form:"postcode" binding:"required,max=16"`
}

func (q addressQuery) address() models.Address {
	return models.Address{Country: q.Country, City: q.City, Street: q.Street, Postcode: q.Postcode}
}

type geocodeQuery struct {
	addressQuery
	Providers string `form:"providers"`
	UseCache  *bool  `form:"use_cache"`
}

type batchItem struct {
	Country   string   `json:"country"   binding:"required,min=2,max=3"`
	City      string   `json:"city"      binding:"required,max=255"`
	Street    string   `json:"street"    binding:"required,max=255"`
	Postcode  string   `json:"postcode"  binding:"required,max=16"`
	Providers []string `json:"providers"`
	UseCache  *bool    `json:"use_cache"`
}

type batchRequest struct {
	Items []batchItem `json:"items" binding:"required,min=1,max=100,dive"`
}

type batchItemResult struct {
	Coordinates *models.Coordinates `json:"coordinates"`
	Error       string              `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchItemResult `json:"results"`
}

type cacheRecordResponse struct {
	Found      bool       `json:"found"`
	Miss       bool       `json:"miss"`
	Latitude   *float64   `json:"lat,omitempty"`
	Longitude  *float64   `json:"lng,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// geocode handles GET /api/v1/geocode.
func (h *Handler) geocode(c *gin.Context) {
	var query geocodeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: fieldErrors(err)})
		return
	}

	resolution, err := h.svc.Geocode(c.Request.Context(), service.GeocodeRequest{
		Address:   query.address(),
		Providers: splitProviders(query.Providers),
		UseCache:  query.UseCache,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolution.Coordinates)
}

// geocodeBatch handles POST /api/v1/geocode/batch.
func (h *Handler) geocodeBatch(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: fieldErrors(err)})
		return
	}

	reqs := make([]service.GeocodeRequest, len(body.Items))
	for i, item := range body.Items {
		reqs[i] = service.GeocodeRequest{
			Address:   models.Address{Country: item.Country, City: item.City, Street: item.Street, Postcode: item.Postcode},
			Providers: item.Providers,
			UseCache:  item.UseCache,
		}
	}

	results := h.svc.GeocodeBatch(c.Request.Context(), reqs)

	resp := batchResponse{Results: make([]batchItemResult, len(results))}
	for i, result := range results {
		resp.Results[i].Coordinates = result.Resolution.Coordinates
		if result.Err != nil {
			resp.Results[i].Error = result.Err.Error()
		}
	}

	c.JSON(http.StatusOK, resp)
}

// geocodeWithProvider handles GET /api/v1/providers/:name/geocode.
func (h *Handler) geocodeWithProvider(c *gin.Context) {
	var query addressQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: fieldErrors(err)})
		return
	}

	coords, err := h.svc.GeocodeWith(c.Request.Context(), c.Param("name"), query.address())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, coords)
}

// cacheRecord handles GET /api/v1/cache.
func (h *Handler) cacheRecord(c *gin.Context) {
	var query addressQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: fieldErrors(err)})
		return
	}

	record, err := h.svc.CachedRecord(c.Request.Context(), query.address())
	if err != nil {
		h.writeError(c, err)
		return
	}

	var resp cacheRecordResponse
	if record != nil {
		resp.Found = true
		resp.Miss = record.IsMiss()
		resp.ResolvedAt = &record.ResolvedAt
		if record.Coordinates != nil {
			resp.Latitude = &record.Coordinates.Latitude
			resp.Longitude = &record.Coordinates.Longitude
		}
	}

	c.JSON(http.StatusOK, resp)
}

// providers handles GET /api/v1/providers.
func (h *Handler) providers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Providers())
}

// healthz reports whether the cache backend is reachable.
func (h *Handler) healthz(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		h.log.WarnContext(c.Request.Context(), "Health check failed", "error", err)
		c.String(http.StatusServiceUnavailable, "cache ping failed")
		return
	}

	c.String(http.StatusOK, "OK")
}

func splitProviders(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return names
}
