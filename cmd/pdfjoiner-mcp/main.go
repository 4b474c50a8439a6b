// Command pdfjoiner-mcp is an MCP (Model Context Protocol) server that lets
// AI assistants merge PDF and image files.
//
// # Installation
//
//	go install github.com/lvillar/pdfjoiner/cmd/pdfjoiner-mcp@latest
//
// # Configuration for Claude Desktop
//
// Add to ~/.config/claude/claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "pdfjoiner": {
//	      "command": "pdfjoiner-mcp"
//	    }
//	  }
//	}
//
// # Available Tools
//
//   - merge_files: Merge PDFs and images, with page numbers, watermark and annotations
//   - preview_pages: Render the merged pages as PNG images
//   - page_count: Count the pages a file adds to a merge
//   - pdf_info: Get detailed PDF information
//
// # Available Resources
//
//   - pdf://pages?path=... : Get page information
//   - pdf://metadata?path=... : Get document metadata
//
// Logs go to stderr as JSON; stdout carries the protocol.
package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/lvillar/pdfjoiner/logging"
	"github.com/lvillar/pdfjoiner/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	verbose := flag.BoolP("verbose", "v", false, "log every request to stderr")
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("pdfjoiner-mcp %s\n", Version)
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logging.Logger().Debug(fmt.Sprintf(format, args...))
	}))

	mcp.Version = Version
	server := mcp.NewServer()
	mcp.RegisterDefaultTools(server, nil)
	mcp.RegisterDefaultResources(server)

	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pdfjoiner-mcp: %v\n", err)
		os.Exit(1)
	}
}
