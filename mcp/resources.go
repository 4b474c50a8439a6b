package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/lvillar/pdfjoiner/reader"
)

// RegisterDefaultResources adds the pdf:// resources. The file is passed as
// a query parameter, e.g. pdf://pages?path=/path/to/file.pdf.
func RegisterDefaultResources(s *Server) {
	s.AddResource(Resource{
		URI:         "pdf://pages",
		Name:        "PDF Page Info",
		Description: "Page count and page sizes of a PDF: pdf://pages?path=/path/to/file.pdf",
		MIMEType:    "application/json",
		Handler:     handlePagesResource,
	})
	s.AddResource(Resource{
		URI:         "pdf://metadata",
		Name:        "PDF Metadata",
		Description: "Version and information dictionary of a PDF: pdf://metadata?path=/path/to/file.pdf",
		MIMEType:    "application/json",
		Handler:     handleMetadataResource,
	})
}

func pathParam(uri *url.URL) (string, error) {
	path := uri.Query().Get("path")
	if path == "" {
		return "", errors.New("missing 'path' parameter in URI")
	}
	return path, nil
}

func handlePagesResource(uri *url.URL) ([]ResourceContent, error) {
	path, err := pathParam(uri)
	if err != nil {
		return nil, err
	}
	doc, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return jsonContent(uri, map[string]any{
		"numPages": doc.NumPages(),
		"pages":    pageSizes(doc),
	})
}

func handleMetadataResource(uri *url.URL) ([]ResourceContent, error) {
	path, err := pathParam(uri)
	if err != nil {
		return nil, err
	}
	doc, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return jsonContent(uri, map[string]any{
		"version":  doc.Version,
		"numPages": doc.NumPages(),
		"metadata": doc.Metadata(),
	})
}

func jsonContent(uri *url.URL, v any) ([]ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []ResourceContent{{
		URI:      uri.String(),
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}
