package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfjoiner"
	"github.com/lvillar/pdfjoiner/internal/fakebackend"
)

func sendRequest(t *testing.T, s *Server, method string, id int, params any) jsonrpcResponse {
	t.Helper()

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	reqBytes = append(reqBytes, '\n')

	var output bytes.Buffer
	s.input = bytes.NewReader(reqBytes)
	s.output = &output
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response %q: %v", output.String(), err)
	}
	return resp
}

// callTool sends tools/call and decodes the result.
func callToolRequest(t *testing.T, s *Server, name string, args map[string]any) ToolResult {
	t.Helper()
	resp := sendRequest(t, s, "tools/call", 7, map[string]any{"name": name, "arguments": args})
	if resp.Error != nil {
		t.Fatalf("tools/call %s: %s", name, resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	var res ToolResult
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func decodeText(t *testing.T, b ContentBlock) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(b.Text), &out); err != nil {
		t.Fatalf("decoding %q: %v", b.Text, err)
	}
	return out
}

func createTestPDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("Quarterly report", true)
	pdf.SetFont("Helvetica", "", 12)
	for range pages {
		pdf.AddPage()
		pdf.Text(50, 50, name)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestServer(j *pdfjoiner.Joiner) *Server {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, j)
	RegisterDefaultResources(s)
	return s
}

func TestServerInitialize(t *testing.T) {
	s := newTestServer(nil)
	resp := sendRequest(t, s, "initialize", 1, map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != "2024-11-05" {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
	if info := result["serverInfo"].(map[string]any); info["name"] != ServerName {
		t.Fatalf("unexpected server name: %v", info["name"])
	}
}

func TestServerToolsList(t *testing.T) {
	resp := sendRequest(t, newTestServer(nil), "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	var names []string
	for _, tool := range resp.Result.(map[string]any)["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	want := "merge_files,page_count,pdf_info,preview_pages"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("tools = %s, want %s", got, want)
	}
}

func TestServerResourcesList(t *testing.T) {
	resp := sendRequest(t, newTestServer(nil), "resources/list", 3, nil)
	resources := resp.Result.(map[string]any)["resources"].([]any)
	if len(resources) != 2 {
		t.Fatalf("got %d resources, want 2", len(resources))
	}
	if uri := resources[0].(map[string]any)["uri"]; uri != "pdf://metadata" {
		t.Errorf("first resource = %v", uri)
	}
}

func TestServerErrors(t *testing.T) {
	s := newTestServer(nil)
	if resp := sendRequest(t, s, "nope", 4, nil); resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Errorf("unknown method response = %+v", resp)
	}
	if resp := sendRequest(t, s, "tools/call", 5, map[string]any{"name": "rotate"}); resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("unknown tool response = %+v", resp)
	}

	var out bytes.Buffer
	s.input = strings.NewReader("{not json\n" + `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	s.output = &out
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "Parse error") {
		t.Errorf("output = %q, want a single parse error", out.String())
	}
}

func TestMergeFilesTool(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "a.pdf", 2)
	b := createTestPDF(t, dir, "b.pdf", 1)
	out := filepath.Join(dir, "out.pdf")
	s := newTestServer(nil)

	res := callToolRequest(t, s, "merge_files", map[string]any{
		"files": []any{a, map[string]any{"path": filepath.Join(dir, "gone.pdf")}, b},
		"output": out,
		"verify": true,
		"options": map[string]any{
			"pageNumbers": map[string]any{"enabled": true, "position": "top-right"},
			"watermark":   map[string]any{"enabled": true, "text": "DRAFT"},
			"annotations": []any{map[string]any{"page": 1, "x": 0.2, "y": 0.2, "text": "ok"}},
		},
	})
	if res.IsError {
		t.Fatalf("merge_files failed: %s", res.Content[0].Text)
	}
	summary := decodeText(t, res.Content[0])
	if summary["pageCount"] != float64(3) {
		t.Errorf("pageCount = %v", summary["pageCount"])
	}
	if skipped := summary["skipped"].([]any); len(skipped) != 1 || !strings.HasPrefix(skipped[0].(string), "gone.pdf: ") {
		t.Errorf("skipped = %v", skipped)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestMergeFilesToolBase64(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "a.pdf", 1)
	res := callToolRequest(t, newTestServer(nil), "merge_files", map[string]any{"files": []any{a}})
	if res.IsError || len(res.Content) != 2 {
		t.Fatalf("result = %+v", res)
	}
	data, err := base64.StdEncoding.DecodeString(res.Content[1].Text)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("decoded output starts with %q", data[:min(len(data), 8)])
	}
}

func TestMergeFilesToolErrors(t *testing.T) {
	s := newTestServer(nil)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no files", map[string]any{}, "missing 'files'"},
		{"bad entry", map[string]any{"files": []any{42.0}}, "files[0]"},
		{"bad options", map[string]any{"files": []any{"a.pdf"}, "options": map[string]any{"watermark": map[string]any{"colour": "red"}}}, "options"},
		{"nothing readable", map[string]any{"files": []any{"/nope/a.pdf"}}, "no valid pages"},
		{"nothing included", map[string]any{"files": []any{map[string]any{"path": "a.pdf", "included": false}}}, "no files are included"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callToolRequest(t, s, "merge_files", tt.args)
			if !res.IsError || !strings.Contains(res.Content[0].Text, tt.want) {
				t.Errorf("result = %+v, want error containing %q", res, tt.want)
			}
		})
	}
}

func TestPreviewPagesTool(t *testing.T) {
	be := fakebackend.New(map[string]fakebackend.File{
		"/in/doc.pdf": fakebackend.PDF([2]float64{595, 842}, [2]float64{595, 842}, [2]float64{842, 595}),
	})
	s := newTestServer(pdfjoiner.New(pdfjoiner.WithBackend(be)))

	res := callToolRequest(t, s, "preview_pages", map[string]any{
		"files":    []any{"/in/doc.pdf"},
		"pages":    []any{1.0, 3.0},
		"maxWidth": 100.0,
	})
	if res.IsError {
		t.Fatalf("preview failed: %s", res.Content[0].Text)
	}
	if len(res.Content) != 3 {
		t.Fatalf("got %d blocks, want summary + 2 images", len(res.Content))
	}
	for _, b := range res.Content[1:] {
		if b.Type != "image" || b.MIMEType != "image/png" || b.Data == "" {
			t.Errorf("block = %+v", b)
		}
	}
}

func TestPageCountAndInfoTools(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "report.pdf", 3)
	s := newTestServer(nil)

	got := decodeText(t, callToolRequest(t, s, "page_count", map[string]any{"path": a}).Content[0])
	if got["pageCount"] != float64(3) || got["canOpen"] != true {
		t.Errorf("page_count = %v", got)
	}
	got = decodeText(t, callToolRequest(t, s, "page_count", map[string]any{"path": filepath.Join(dir, "x.pdf")}).Content[0])
	if got["pageCount"] != float64(1) || got["canOpen"] != false {
		t.Errorf("page_count of missing file = %v", got)
	}

	info := decodeText(t, callToolRequest(t, s, "pdf_info", map[string]any{"path": a}).Content[0])
	if info["numPages"] != float64(3) || info["encrypted"] != false {
		t.Errorf("pdf_info = %v", info)
	}
	if title := info["metadata"].(map[string]any)["Title"]; title != "Quarterly report" {
		t.Errorf("title = %v", title)
	}
}

func TestResourcesRead(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "doc.pdf", 2)
	s := newTestServer(nil)

	uri := "pdf://pages?path=" + url.QueryEscape(a)
	resp := sendRequest(t, s, "resources/read", 9, map[string]any{"uri": uri})
	if resp.Error != nil {
		t.Fatalf("resources/read: %v", resp.Error.Message)
	}
	contents := resp.Result.(map[string]any)["contents"].([]any)
	var pages map[string]any
	if err := json.Unmarshal([]byte(contents[0].(map[string]any)["text"].(string)), &pages); err != nil {
		t.Fatal(err)
	}
	if pages["numPages"] != float64(2) {
		t.Errorf("numPages = %v", pages["numPages"])
	}

	resp = sendRequest(t, s, "resources/read", 10, map[string]any{"uri": "pdf://metadata"})
	if resp.Error == nil || !strings.Contains(resp.Error.Data.(string), "missing 'path'") {
		t.Errorf("missing path response = %+v", resp)
	}
	resp = sendRequest(t, s, "resources/read", 11, map[string]any{"uri": "pdf://text?path=x"})
	if resp.Error == nil || resp.Error.Message != "Unknown resource" {
		t.Errorf("unknown resource response = %+v", resp)
	}
}
