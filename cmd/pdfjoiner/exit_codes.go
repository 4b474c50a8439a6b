package main

import (
	"errors"
	"os"

	"github.com/lvillar/pdfjoiner"
	"github.com/lvillar/pdfjoiner/annotate"
	"github.com/lvillar/pdfjoiner/internal/config"
)

// Exit codes for the pdfjoiner CLI.
const (
	ExitSuccess = 0 // Merge completed, possibly with warnings
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // Input not found, output not writable or not verified
	ExitEmpty   = 4 // Nothing to merge, or nothing could be read
)

// exitCodeFor returns the exit code for err. Errors must be wrapped with %w
// for the checks to see through them.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, pdfjoiner.ErrEmptyInput) ||
		errors.Is(err, pdfjoiner.ErrEmptyOutput) {
		return ExitEmpty
	}

	if errors.Is(err, pdfjoiner.ErrOutputWrite) ||
		errors.Is(err, pdfjoiner.ErrVerify) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	if errors.Is(err, errUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidColor) ||
		errors.Is(err, annotate.ErrInvalid) {
		return ExitUsage
	}

	return ExitGeneral
}
