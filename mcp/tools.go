package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"path/filepath"

	"github.com/lvillar/pdfjoiner"
	"github.com/lvillar/pdfjoiner/internal/config"
	"github.com/lvillar/pdfjoiner/reader"
)

// DefaultPreviewSize bounds preview images when the client gives no size.
const DefaultPreviewSize = 400

// RegisterDefaultTools adds the merge, preview and inspection tools. A nil
// joiner means pdfjoiner.New().
func RegisterDefaultTools(s *Server, j *pdfjoiner.Joiner) {
	if j == nil {
		j = pdfjoiner.New()
	}
	t := &tools{joiner: j}
	s.AddTool(t.mergeFilesTool())
	s.AddTool(t.previewPagesTool())
	s.AddTool(t.pageCountTool())
	s.AddTool(pdfInfoTool())
}

type tools struct {
	joiner *pdfjoiner.Joiner
}

var filesSchema = map[string]any{
	"type":        "array",
	"description": "Input files in merge order. Each item is a path, or an object {\"path\": ..., \"included\": false} to keep a file in the list but leave it out.",
	"items": map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string"},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":     map[string]any{"type": "string"},
					"included": map[string]any{"type": "boolean"},
				},
				"required": []string{"path"},
			},
		},
	},
}

var optionsSchema = map[string]any{
	"type":        "object",
	"description": "Stamp settings, same keys as the configuration file: pageNumbers {enabled, position, format, start, fontSize, margin, color}, watermark {enabled, text, fontSize, angle, opacity, color}, annotations [{page (1-based), x, y, text, fontSize, color}].",
}

func (t *tools) mergeFilesTool() Tool {
	return Tool{
		Name:        "merge_files",
		Description: "Merge PDF and image files (jpg, png, bmp, tiff, gif) into one PDF, optionally adding page numbers, a watermark and text annotations. Unreadable files are skipped and reported.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"files": filesSchema,
				"output": map[string]any{
					"type":        "string",
					"description": "Path of the PDF to write. If omitted, the PDF is returned as base64.",
				},
				"options": optionsSchema,
				"verify": map[string]any{
					"type":        "boolean",
					"description": "Re-read the written file and check its page count.",
				},
			},
			"required": []string{"files"},
		},
		Handler: t.handleMergeFiles,
	}
}

func (t *tools) handleMergeFiles(args map[string]any) (ToolResult, error) {
	entries, err := parseEntries(args)
	if err != nil {
		return ToolResult{}, err
	}
	opts, err := parseOptions(args)
	if err != nil {
		return ToolResult{}, err
	}

	joiner := t.joiner
	if verify, _ := args["verify"].(bool); verify {
		joiner = pdfjoiner.New(pdfjoiner.WithBackend(t.joiner.Backend()), pdfjoiner.WithVerify(true))
	}

	output, _ := args["output"].(string)
	if output == "" {
		var buf bytes.Buffer
		res, err := joiner.MergeTo(&buf, entries, opts)
		if err != nil {
			return ToolResult{}, err
		}
		return ToolResult{Content: []ContentBlock{
			jsonBlock(mergeSummary(res, "")),
			{Type: "text", Text: base64.StdEncoding.EncodeToString(buf.Bytes())},
		}}, nil
	}

	res, err := joiner.Merge(entries, output, opts)
	if err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: []ContentBlock{jsonBlock(mergeSummary(res, output))}}, nil
}

func mergeSummary(res *pdfjoiner.MergeResult, output string) map[string]any {
	out := map[string]any{
		"pageCount": res.PageCount,
		"skipped":   append([]string{}, res.Skipped...),
	}
	if output != "" {
		out["output"] = output
	}
	return out
}

func (t *tools) previewPagesTool() Tool {
	return Tool{
		Name:        "preview_pages",
		Description: "Render the merged result as PNG images without writing a file. Pages imported from PDFs appear as labelled placeholders; images, watermark, page numbers and annotations are drawn.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"files":     filesSchema,
				"options":   optionsSchema,
				"maxWidth":  map[string]any{"type": "number", "description": "Maximum image width in pixels (default 400)"},
				"maxHeight": map[string]any{"type": "number", "description": "Maximum image height in pixels (default 400)"},
				"pages": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "number"},
					"description": "Pages to return (1-based). Omit for all pages.",
				},
			},
			"required": []string{"files"},
		},
		Handler: t.handlePreviewPages,
	}
}

func (t *tools) handlePreviewPages(args map[string]any) (ToolResult, error) {
	entries, err := parseEntries(args)
	if err != nil {
		return ToolResult{}, err
	}
	opts, err := parseOptions(args)
	if err != nil {
		return ToolResult{}, err
	}
	maxW := intArg(args, "maxWidth", DefaultPreviewSize)
	maxH := intArg(args, "maxHeight", DefaultPreviewSize)

	preview, err := t.joiner.Preview(entries, opts, maxW, maxH)
	if err != nil {
		return ToolResult{}, err
	}

	want := make(map[int]bool)
	if pages, ok := args["pages"].([]any); ok {
		for _, p := range pages {
			if n, ok := p.(float64); ok {
				want[int(n)] = true
			}
		}
	}

	blocks := []ContentBlock{jsonBlock(mergeSummary(&preview.MergeResult, ""))}
	for i, img := range preview.Pages {
		if len(want) > 0 && !want[i+1] {
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return ToolResult{}, fmt.Errorf("encoding page %d: %w", i+1, err)
		}
		blocks = append(blocks, ContentBlock{
			Type:     "image",
			MIMEType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}
	return ToolResult{Content: blocks}, nil
}

func (t *tools) pageCountTool() Tool {
	return Tool{
		Name:        "page_count",
		Description: "Return how many pages a PDF or image file adds to a merge, and whether it can be opened. Unreadable files count as one page.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Path to the PDF or image file"},
			},
			"required": []string{"path"},
		},
		Handler: t.handlePageCount,
	}
}

func (t *tools) handlePageCount(args map[string]any) (ToolResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return ToolResult{}, errors.New("missing 'path' argument")
	}
	return ToolResult{Content: []ContentBlock{jsonBlock(map[string]any{
		"path":      path,
		"pageCount": t.joiner.PageCount(path),
		"canOpen":   t.joiner.CanOpen(path),
	})}}, nil
}

func pdfInfoTool() Tool {
	return Tool{
		Name:        "pdf_info",
		Description: "Get information about a PDF file: version, page count, page sizes and document metadata.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Path to the PDF file"},
			},
			"required": []string{"path"},
		},
		Handler: handlePDFInfo,
	}
}

func handlePDFInfo(args map[string]any) (ToolResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return ToolResult{}, errors.New("missing 'path' argument")
	}
	info, err := pdfInfo(path)
	if err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: []ContentBlock{jsonBlock(info)}}, nil
}

func pdfInfo(path string) (map[string]any, error) {
	doc, err := reader.Open(path)
	if errors.Is(err, reader.ErrEncrypted) {
		return map[string]any{
			"file":      filepath.Base(path),
			"encrypted": true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return map[string]any{
		"file":      filepath.Base(path),
		"version":   doc.Version,
		"numPages":  doc.NumPages(),
		"encrypted": false,
		"metadata":  doc.Metadata(),
		"pages":     pageSizes(doc),
	}, nil
}

func pageSizes(doc *reader.Document) []map[string]any {
	pages := make([]map[string]any, 0, doc.NumPages())
	for n, page := range doc.Pages() {
		w, h := page.Size()
		pages = append(pages, map[string]any{
			"page":   n,
			"width":  w,
			"height": h,
			"rotate": page.Rotate,
		})
	}
	return pages
}

func parseEntries(args map[string]any) ([]pdfjoiner.InputEntry, error) {
	files, ok := args["files"].([]any)
	if !ok || len(files) == 0 {
		return nil, errors.New("missing 'files' argument")
	}
	entries := make([]pdfjoiner.InputEntry, 0, len(files))
	for i, f := range files {
		switch v := f.(type) {
		case string:
			entries = append(entries, pdfjoiner.InputEntry{Path: v, Included: true})
		case map[string]any:
			path, _ := v["path"].(string)
			if path == "" {
				return nil, fmt.Errorf("files[%d]: missing path", i)
			}
			included := true
			if b, ok := v["included"].(bool); ok {
				included = b
			}
			entries = append(entries, pdfjoiner.InputEntry{Path: path, Included: included})
		default:
			return nil, fmt.Errorf("files[%d]: expected a path or an object, got %T", i, f)
		}
	}
	return entries, nil
}

// parseOptions decodes the "options" argument with the configuration file
// rules. JSON is valid YAML, so the arguments go through the same parser.
func parseOptions(args map[string]any) (*pdfjoiner.OutputOptions, error) {
	raw, ok := args["options"]
	if !ok || raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding options: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	opts, err := cfg.StampOptions()
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	return &opts, nil
}

func intArg(args map[string]any, key string, def int) int {
	if v, ok := args[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

func jsonBlock(v any) ContentBlock {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ContentBlock{Type: "text", Text: fmt.Sprintf("encoding result: %v", err)}
	}
	return ContentBlock{Type: "text", Text: string(data)}
}
