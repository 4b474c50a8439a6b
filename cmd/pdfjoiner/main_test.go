package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfjoiner"
	"github.com/lvillar/pdfjoiner/backend"
	"github.com/lvillar/pdfjoiner/internal/config"
)

func createTestPDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := range pages {
		pdf.AddPage()
		pdf.Text(50, 50, fmt.Sprintf("%s page %d", name, i+1))
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func createTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := range 30 {
		for x := range 40 {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunMerge(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "a.pdf", 2)
	img := createTestPNG(t, dir, "photo.png")
	b := createTestPDF(t, dir, "b.pdf", 1)
	out := filepath.Join(dir, "out", "merged.pdf")
	os.MkdirAll(filepath.Dir(out), 0o755)

	code, stdout, stderr := runCLI(
		"-o", out,
		"--pn-position", "top-right",
		"--wm-text", "DRAFT", "--wm-angle", "30",
		"--annotate", "1:0.5:0.5:checked: ok",
		"--exclude", "b.pdf",
		"--verify",
		a, img, b,
	)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "wrote 3 pages to "+out) {
		t.Errorf("stdout = %q", stdout)
	}
	n, err := backend.CountPages(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("output has %d pages, want 3", n)
	}
}

func TestRunFolder(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	os.MkdirAll(filepath.Join(in, "sub"), 0o755)
	createTestPDF(t, in, "2.pdf", 1)
	createTestPDF(t, filepath.Join(in, "sub"), "1.pdf", 2)
	os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip me"), 0o644)
	out := filepath.Join(dir, "merged.pdf")

	code, _, stderr := runCLI("-q", "-o", out, in)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if stderr != "" {
		t.Errorf("quiet run wrote to stderr: %q", stderr)
	}
	if n, _ := backend.CountPages(out); n != 3 {
		t.Errorf("output has %d pages, want 3", n)
	}
}

func TestRunSkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "a.pdf", 1)
	broken := filepath.Join(dir, "broken.pdf")
	os.WriteFile(broken, []byte("not a pdf"), 0o644)
	out := filepath.Join(dir, "merged.pdf")

	code, stdout, stderr := runCLI("-o", out, broken, a)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stderr, "warning: broken.pdf: ") {
		t.Errorf("stderr = %q, want a warning for broken.pdf", stderr)
	}
	if !strings.Contains(stdout, "wrote 1 pages") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "a.pdf", 2)
	out := filepath.Join(dir, "from-config.pdf")
	cfgPath := filepath.Join(dir, "job.yaml")
	cfg := fmt.Sprintf(`output: %q
pageNumbers:
  enabled: true
  format: "Page {n} of {total}"
watermark:
  enabled: true
  text: CONFIDENTIAL
  color: "#cc0000"
annotations:
  - page: 2
    x: 0.1
    y: 0.9
    text: signed
`, out)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI("-c", cfgPath, a)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if n, _ := backend.CountPages(out); n != 2 {
		t.Errorf("output has %d pages, want 2", n)
	}
}

func TestRunPreview(t *testing.T) {
	dir := t.TempDir()
	img := createTestPNG(t, dir, "photo.png")
	a := createTestPDF(t, dir, "a.pdf", 1)
	previews := filepath.Join(dir, "previews")

	code, stdout, stderr := runCLI("--preview", previews, "--preview-size", "100", "--page-numbers", img, a)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "wrote 2 preview images") {
		t.Errorf("stdout = %q", stdout)
	}
	for _, name := range []string{"page-001.png", "page-002.png"} {
		f, err := os.Open(filepath.Join(previews, name))
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := png.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if cfg.Width > 100 || cfg.Height > 100 {
			t.Errorf("%s is %dx%d, want at most 100x100", name, cfg.Width, cfg.Height)
		}
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "a.pdf", 1)
	broken := filepath.Join(dir, "broken.pdf")
	os.WriteFile(broken, []byte("garbage"), 0o644)
	out := filepath.Join(dir, "out.pdf")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"--version"}, ExitSuccess},
		{"help", []string{"--help"}, ExitSuccess},
		{"unknown flag", []string{"--frobnicate", a}, ExitUsage},
		{"no inputs", []string{"-o", out}, ExitUsage},
		{"no output", []string{a}, ExitUsage},
		{"quiet and verbose", []string{"-q", "-v", "-o", out, a}, ExitUsage},
		{"bad position", []string{"--pn-position", "middle", "-o", out, a}, ExitUsage},
		{"bad color", []string{"--wm-text", "X", "--wm-color", "#12", "-o", out, a}, ExitUsage},
		{"bad opacity", []string{"--wm-text", "X", "--wm-opacity", "2", "-o", out, a}, ExitUsage},
		{"bad annotation", []string{"--annotate", "one:0:0:x", "-o", out, a}, ExitUsage},
		{"annotation off page", []string{"--annotate", "1:1.5:0:x", "-o", out, a}, ExitUsage},
		{"missing config", []string{"-c", filepath.Join(dir, "none.yaml"), "-o", out, a}, ExitUsage},
		{"missing input", []string{"-o", out, filepath.Join(dir, "gone.pdf")}, ExitIO},
		{"unwritable output", []string{"-o", filepath.Join(dir, "no", "dir", "out.pdf"), a}, ExitIO},
		{"all excluded", []string{"--exclude", a, "-o", out, a}, ExitEmpty},
		{"nothing readable", []string{"-o", out, broken}, ExitEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(tt.args...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d; stderr:\n%s", code, tt.want, stderr)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	f, inputs, err := parseFlags([]string{
		"--pn-size", "12", "--pn-start", "5",
		"--wm-text", "COPY", "--wm-opacity", "0.3",
		"--annotate", "2:0.25:0.75:a:b",
		"-o", "out.pdf", "x.pdf",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x.pdf"}, inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}

	cfg := config.DefaultConfig()
	if err := f.apply(cfg); err != nil {
		t.Fatal(err)
	}

	want := config.DefaultConfig()
	want.Output = "out.pdf"
	want.PageNumbers.Enabled = true
	want.PageNumbers.FontSize = 12
	want.PageNumbers.Start = 5
	want.Watermark.Enabled = true
	want.Watermark.Text = "COPY"
	want.Watermark.Opacity = 0.3
	want.Annotations = []config.AnnotationConfig{{Page: 2, X: 0.25, Y: 0.75, Text: "a:b"}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFlagsKeepsConfig(t *testing.T) {
	f, _, err := parseFlags([]string{"--wm-size", "40", "x.pdf"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Output = "from-config.pdf"
	cfg.Watermark.Enabled = true
	cfg.Watermark.Text = "KEEP"
	if err := f.apply(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Output != "from-config.pdf" || cfg.Watermark.Text != "KEEP" || cfg.Watermark.FontSize != 40 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.PageNumbers.Enabled {
		t.Error("page numbers enabled without a page number flag")
	}
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		in      string
		want    config.AnnotationConfig
		wantErr bool
	}{
		{in: "1:0.5:0.5:hello", want: config.AnnotationConfig{Page: 1, X: 0.5, Y: 0.5, Text: "hello"}},
		{in: "3:0:1:time: 10:30", want: config.AnnotationConfig{Page: 3, X: 0, Y: 1, Text: "time: 10:30"}},
		{in: "1:0.5:0.5", wantErr: true},
		{in: "a:0.5:0.5:x", wantErr: true},
		{in: "1:left:0.5:x", wantErr: true},
		{in: "1:0.5:top:x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAnnotation(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errUsage) {
				t.Errorf("parseAnnotation(%q) error = %v, want usage error", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAnnotation(%q): %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parseAnnotation(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneral},
		{fmt.Errorf("x: %w", errUsage), ExitUsage},
		{config.ErrConfigParse, ExitUsage},
		{fmt.Errorf("open: %w", os.ErrNotExist), ExitIO},
		{fmt.Errorf("save: %w", pdfjoiner.ErrOutputWrite), ExitIO},
		{pdfjoiner.ErrVerify, ExitIO},
		{pdfjoiner.ErrEmptyInput, ExitEmpty},
		{&pdfjoiner.EmptyOutputError{Skipped: []string{"a.pdf: bad"}}, ExitEmpty},
	}
	for _, tt := range tests {
		if got := exitCodeFor(tt.err); got != tt.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
