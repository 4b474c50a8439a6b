// Command pdfjoiner merges PDF and image files into one PDF, optionally
// adding page numbers, a diagonal watermark and text annotations.
//
// Usage:
//
//	pdfjoiner [flags] <file|dir>...
//
// Directories are searched recursively for supported files, which are added
// in path order. Files that cannot be read are skipped and reported.
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	verbose := false
	for _, a := range os.Args[1:] {
		if a == "-v" || a == "--verbose" {
			verbose = true
		}
	}

	// maxprocs.Set only fails on an invalid GOMAXPROCS, in which case the
	// runtime default applies.
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	}

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
