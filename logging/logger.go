// Package logging holds the *slog.Logger shared by the pdfjoiner packages.
//
// Nothing is logged until a logger is installed with SetLogger. Library
// code calls Logger() on every use so that a logger installed late (for
// example after flag parsing) is still picked up.
package logging

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

var discard = slog.New(slog.DiscardHandler)

// SetLogger installs sl as the package-level logger. Passing nil restores
// the discard logger.
//
// SetLogger is safe for concurrent use.
func SetLogger(sl *slog.Logger) {
	if sl == nil {
		sl = discard
	}
	logger.Store(sl)
}

// Logger returns the installed logger, or a logger that drops every record.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return discard
}

// Or returns l when it is non-nil and the package-level logger otherwise.
// Types that accept an optional logger use it to resolve theirs lazily.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
