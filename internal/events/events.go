// Package events publishes a record of every resolution to a message stream.
package events

import (
	"context"
	"time"

	"github.com/UnknownOlympus/locator/internal/models"
)

// ResolutionEvent describes one finished resolution.
type ResolutionEvent struct {
	ID          string              `json:"id"`
	Address     models.Address      `json:"address"`
	Providers   []string            `json:"providers"`
	UseCache    bool                `json:"use_cache"`
	Outcome     string              `json:"outcome"` // hit, miss or error
	Source      string              `json:"source"`  // cache, provider or none
	Provider    string              `json:"provider,omitempty"`
	Coordinates *models.Coordinates `json:"coordinates,omitempty"`
	Error       string              `json:"error,omitempty"`
	ResolvedAt  time.Time           `json:"resolved_at"`
	DurationMs  int64               `json:"duration_ms"`
}

// Publisher delivers resolution events.
type Publisher interface {
	Publish(ctx context.Context, event ResolutionEvent) error
	Close() error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ResolutionEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
