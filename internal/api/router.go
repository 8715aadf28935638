// Package api exposes the geocoding service over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every route of the API on a new gin engine.
func NewRouter(handler *Handler, gatherer prometheus.Gatherer, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(log))

	router.GET("/healthz", handler.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.GET("/geocode", handler.geocode)
	v1.POST("/geocode/batch", handler.geocodeBatch)
	v1.GET("/providers", handler.providers)
	v1.GET("/providers/:name/geocode", handler.geocodeWithProvider)
	v1.GET("/cache", handler.cacheRecord)

	return router
}

// NewServer wraps the router in an HTTP server listening on port.
func NewServer(router http.Handler, port int, requestTimeout time.Duration) *http.Server {
	const readTimeout = 5 * time.Second

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           http.TimeoutHandler(router, requestTimeout, `{"error":"request timed out"}`),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      requestTimeout + readTimeout,
	}
}
