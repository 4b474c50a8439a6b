package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/lvillar/pdfjoiner/internal/config"
)

// errUsage marks errors caused by the command line.
var errUsage = errors.New("invalid usage")

// DefaultPreviewSize bounds preview images written with --preview.
const DefaultPreviewSize = 800

// commonFlags holds flags shared by every mode.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageNumberFlags holds page numbering flags.
type pageNumberFlags struct {
	enabled  bool
	position string
	format   string
	start    int
	size     float64
	margin   float64
	color    string
}

// watermarkFlags holds watermark flags.
type watermarkFlags struct {
	text    string
	size    float64
	angle   float64
	opacity float64
	color   string
}

// cliFlags holds every flag of the command.
type cliFlags struct {
	common      commonFlags
	output      string
	exclude     []string
	annotations []string
	preview     string
	previewSize int
	verify      bool
	version     bool
	pageNumbers pageNumberFlags
	watermark   watermarkFlags

	fs *flag.FlagSet
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log every step")
}

func addPageNumberFlags(fs *flag.FlagSet, f *pageNumberFlags) {
	fs.BoolVar(&f.enabled, "page-numbers", false, "stamp page numbers")
	fs.StringVar(&f.position, "pn-position", "", "page number position: bottom-center, bottom-left, bottom-right, top-left, top-center, top-right")
	fs.StringVar(&f.format, "pn-format", "", "page number format, {n} and {total} are replaced")
	fs.IntVar(&f.start, "pn-start", 0, "number of the first page")
	fs.Float64Var(&f.size, "pn-size", 0, "page number font size in points")
	fs.Float64Var(&f.margin, "pn-margin", 0, "distance from the page edge in points")
	fs.StringVar(&f.color, "pn-color", "", "page number color (#rrggbb or name)")
}

func addWatermarkFlags(fs *flag.FlagSet, f *watermarkFlags) {
	fs.StringVar(&f.text, "wm-text", "", "watermark text, enables the watermark")
	fs.Float64Var(&f.size, "wm-size", 0, "watermark font size in points")
	fs.Float64Var(&f.angle, "wm-angle", 0, "watermark angle in degrees, counter-clockwise")
	fs.Float64Var(&f.opacity, "wm-opacity", 0, "watermark opacity (0 to 1]")
	fs.StringVar(&f.color, "wm-color", "", "watermark color (#rrggbb or name)")
}

// parseFlags parses args, which must not include the program name.
func parseFlags(args []string, stderr io.Writer) (*cliFlags, []string, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("pdfjoiner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pdfjoiner [flags] <file|dir>...\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.StringVarP(&f.output, "output", "o", "", "output PDF path")
	addCommonFlags(fs, &f.common)
	fs.StringArrayVar(&f.exclude, "exclude", nil, "leave a listed file out of the merge (repeatable)")
	addPageNumberFlags(fs, &f.pageNumbers)
	addWatermarkFlags(fs, &f.watermark)
	fs.StringArrayVar(&f.annotations, "annotate", nil, "add a note as page:x:y:text, x and y in [0, 1] from the top-left (repeatable)")
	fs.StringVar(&f.preview, "preview", "", "write a PNG preview of every page to this directory")
	fs.IntVar(&f.previewSize, "preview-size", DefaultPreviewSize, "maximum preview width and height in pixels")
	fs.BoolVar(&f.verify, "verify", false, "re-read the output and check its page count")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if f.common.quiet && f.common.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", errUsage)
	}
	f.fs = fs
	return f, fs.Args(), nil
}

// apply overrides cfg with the flags given on the command line. Any --pn-*
// flag turns page numbering on.
func (f *cliFlags) apply(cfg *config.Config) error {
	changed := f.fs.Changed

	if f.output != "" {
		cfg.Output = f.output
	}
	if f.verify {
		cfg.Verify = true
	}

	pn := &cfg.PageNumbers
	if changed("page-numbers") {
		pn.Enabled = f.pageNumbers.enabled
	}
	for name, set := range map[string]func(){
		"pn-position": func() { pn.Position = f.pageNumbers.position },
		"pn-format":   func() { pn.Format = f.pageNumbers.format },
		"pn-start":    func() { pn.Start = f.pageNumbers.start },
		"pn-size":     func() { pn.FontSize = f.pageNumbers.size },
		"pn-margin":   func() { pn.Margin = f.pageNumbers.margin },
		"pn-color":    func() { pn.Color = f.pageNumbers.color },
	} {
		if changed(name) {
			set()
			pn.Enabled = true
		}
	}

	wm := &cfg.Watermark
	if changed("wm-text") {
		wm.Text = f.watermark.text
		wm.Enabled = strings.TrimSpace(wm.Text) != ""
	}
	if changed("wm-size") {
		wm.FontSize = f.watermark.size
	}
	if changed("wm-angle") {
		wm.Angle = f.watermark.angle
	}
	if changed("wm-opacity") {
		wm.Opacity = f.watermark.opacity
	}
	if changed("wm-color") {
		wm.Color = f.watermark.color
	}

	for _, s := range f.annotations {
		a, err := parseAnnotation(s)
		if err != nil {
			return err
		}
		cfg.Annotations = append(cfg.Annotations, a)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

// parseAnnotation parses "page:x:y:text". The text may contain colons.
func parseAnnotation(s string) (config.AnnotationConfig, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return config.AnnotationConfig{}, fmt.Errorf("%w: --annotate %q: want page:x:y:text", errUsage, s)
	}
	page, err := strconv.Atoi(parts[0])
	if err != nil {
		return config.AnnotationConfig{}, fmt.Errorf("%w: --annotate %q: page: %w", errUsage, s, err)
	}
	x, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return config.AnnotationConfig{}, fmt.Errorf("%w: --annotate %q: x: %w", errUsage, s, err)
	}
	y, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return config.AnnotationConfig{}, fmt.Errorf("%w: --annotate %q: y: %w", errUsage, s, err)
	}
	return config.AnnotationConfig{Page: page, X: x, Y: y, Text: parts[3]}, nil
}
