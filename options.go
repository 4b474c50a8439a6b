package pdfjoiner

import (
	"log/slog"

	"github.com/lvillar/pdfjoiner/backend"
)

// Option configures a Joiner created with New.
type Option func(*joinerConfig)

type joinerConfig struct {
	backend backend.Backend
	verify  bool
	logger  *slog.Logger
	maxZoom float64
}

// WithBackend sets the document backend. The default is backend.NewFPDF().
func WithBackend(be backend.Backend) Option {
	return func(c *joinerConfig) {
		c.backend = be
	}
}

// WithVerify makes Merge re-read the saved file and check its page count.
func WithVerify(verify bool) Option {
	return func(c *joinerConfig) {
		c.verify = verify
	}
}

// WithLogger sets the logger used for pipeline events. Without it the
// package-level logger from the logging package is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *joinerConfig) {
		c.logger = l
	}
}

// WithMaxZoom caps the zoom used for previews. The default is 2.
func WithMaxZoom(zoom float64) Option {
	return func(c *joinerConfig) {
		if zoom > 0 {
			c.maxZoom = zoom
		}
	}
}
