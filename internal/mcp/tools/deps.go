// Package tools contains MCP tool implementations for authwatch.
package tools

import (
	"context"
	"log/slog"

	"github.com/usestring/authwatch-mcp/internal/config"
	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/redact"
)

// Navigator drives the observed browser to a URL.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Refresher pulls pending traffic into the observer on demand.
type Refresher interface {
	Poll(ctx context.Context) (int, error)
}

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Observer  *observer.Observer
	Errors    *observer.ErrorWatch
	Masker    *redact.Masker
	Config    *config.Config
	Navigator Navigator // nil when the session cannot be driven
	Refresher Refresher // nil when the session pushes events
}

// Refresh polls the session before a read so recent traffic is included.
// Poll failures are logged; the tool still answers from what is recorded.
func (d *Deps) Refresh(ctx context.Context) {
	if d.Refresher == nil {
		return
	}
	if _, err := d.Refresher.Poll(ctx); err != nil {
		slog.Warn("session refresh failed", slog.String("error", err.Error()))
	}
}
