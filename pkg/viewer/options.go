package viewer

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-viewer/pkg/audit"
)

// Option configures a Controller.
type Option func(*Controller)

// WithRenderer sets the renderer mounted on Loaded.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithFetchTimeout bounds every fetch. Zero disables the limit; a timed out
// fetch ends the cycle in Failed.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.fetchTimeout = d
	}
}

// WithAuditLogger records fetches and exports.
func WithAuditLogger(l audit.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.audit = l
		}
	}
}

// WithLogger sets the logger; the default is the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithSourceType tags audit entries with the backend type (sqlite, postgres, ...).
func WithSourceType(t string) Option {
	return func(c *Controller) {
		c.sourceType = t
	}
}
