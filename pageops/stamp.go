package pageops

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lvillar/pdfjoiner/annotate"
	"github.com/lvillar/pdfjoiner/backend"
	"github.com/lvillar/pdfjoiner/logging"
)

// Stage names a stamping pass.
type Stage string

const (
	StageWatermark   Stage = "Watermark"
	StagePageNumbers Stage = "Page numbers"
	StageAnnotations Stage = "Annotations"
)

// StageError is the first failure of one stamping stage.
type StageError struct {
	Stage Stage
	Page  int // 0-based index of the failing page
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// TextMeasurer measures text advance widths in points.
type TextMeasurer interface {
	MeasureText(text, font string, size float64) float64
}

// Stamper draws stamps onto assembled documents.
type Stamper struct {
	measure TextMeasurer
}

// NewStamper returns a Stamper measuring text with m.
func NewStamper(m TextMeasurer) *Stamper {
	return &Stamper{measure: m}
}

// Stamp draws the watermark, then page numbers, then annotations onto every
// page of doc. A stage that fails on some page stops there and reports one
// StageError; the remaining stages still run.
func (s *Stamper) Stamp(doc backend.Document, opts StampOptions) []*StageError {
	log := logging.Logger()
	var warnings []*StageError
	report := func(err *StageError) {
		if err != nil {
			log.Warn("pageops: stamping stage failed", "stage", string(err.Stage), "page", err.Page, "error", err.Err)
			warnings = append(warnings, err)
		}
	}

	total := doc.PageCount()
	if opts.Watermark.Active() {
		wm := opts.Watermark
		report(s.run(doc, StageWatermark, func(_ int, p backend.Page) error {
			w, h := p.Size()
			return p.DrawText(WatermarkPlacement(wm, w, h, s.measure))
		}))
	}
	if opts.PageNumbers.Enabled {
		pn := opts.PageNumbers
		report(s.run(doc, StagePageNumbers, func(i int, p backend.Page) error {
			w, h := p.Size()
			return p.DrawText(PageNumberPlacement(pn, i, total, w, h, s.measure))
		}))
	}
	if opts.Annotations != nil {
		byPage := make(map[int][]annotate.Annotation)
		for _, a := range opts.Annotations.Snapshot() {
			if strings.TrimSpace(a.Text) == "" {
				continue
			}
			if a.Page >= total {
				log.Debug("pageops: annotation beyond last page", "id", a.ID, "page", a.Page, "pages", total)
				continue
			}
			byPage[a.Page] = append(byPage[a.Page], a)
		}
		if len(byPage) > 0 {
			report(s.run(doc, StageAnnotations, func(i int, p backend.Page) error {
				w, h := p.Size()
				for _, a := range byPage[i] {
					if err := p.DrawText(AnnotationPlacement(a, w, h)); err != nil {
						return fmt.Errorf("annotation %d: %w", a.ID, err)
					}
				}
				return nil
			}))
		}
	}
	return warnings
}

// run applies fn to each page in order and stops at the first failure.
func (s *Stamper) run(doc backend.Document, stage Stage, fn func(int, backend.Page) error) *StageError {
	for i := range doc.PageCount() {
		p, err := doc.Page(i)
		if err == nil {
			err = guard(func() error { return fn(i, p) })
		}
		if err != nil {
			return &StageError{Stage: stage, Page: i, Err: err}
		}
	}
	logging.Logger().Debug("pageops: stage done", slog.String("stage", string(stage)), slog.Int("pages", doc.PageCount()))
	return nil
}

// guard turns a panic in fn into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return fn()
}

// PageNumberText substitutes {n} and {total} in format.
func PageNumberText(format string, n, total int) string {
	return strings.NewReplacer("{n}", strconv.Itoa(n), "{total}", strconv.Itoa(total)).Replace(format)
}

// PageNumberPlacement returns the text run numbering page i (0-based) of
// total on a w×h page. The baseline is margin+fontSize below the top edge
// for top positions and margin above the bottom edge otherwise. The result
// is kept inside the page with a 2pt inset; when the text is wider than the
// page it starts at the left inset.
func PageNumberPlacement(o PageNumberOptions, i, total int, w, h float64, m TextMeasurer) backend.Text {
	scale := Scale(h)
	size := o.FontSize * scale
	margin := o.Margin * scale
	font := o.Font
	if font == "" {
		font = backend.DefaultFont
	}
	text := PageNumberText(o.Format, o.Start+i, total)
	tw := m.MeasureText(text, font, size)

	var x, y float64
	switch {
	case o.Position.IsLeft():
		x = margin
	case o.Position.IsRight():
		x = w - margin - tw
	default:
		x = (w - tw) / 2
	}
	if o.Position.IsTop() {
		y = margin + size
	} else {
		y = h - margin
	}
	x = max(min(x, w-tw-2), 2)
	y = max(min(y, h-2), size+2)

	return backend.Text{X: x, Y: y, Value: text, Font: font, Size: size, Color: o.Color}
}

// WatermarkPlacement returns the watermark run for a w×h page: text centered
// on the page and rotated about the center by o.Angle.
func WatermarkPlacement(o WatermarkOptions, w, h float64, m TextMeasurer) backend.Text {
	size := o.FontSize * Scale(h)
	font := o.Font
	if font == "" {
		font = backend.DefaultFont
	}
	tw := m.MeasureText(o.Text, font, size)
	cx, cy := w/2, h/2
	dx, dy := Rotation(o.Angle).Apply(-tw/2, size/3)
	return backend.Text{
		X:        cx + dx,
		Y:        cy + dy,
		Value:    o.Text,
		Font:     font,
		Size:     size,
		Color:    o.Color,
		Rotation: o.Angle,
		Opacity:  o.Opacity,
	}
}

// AnnotationPlacement returns the run drawing a on a w×h page. The baseline
// starts at the ratio position and the font size scales with page height.
func AnnotationPlacement(a annotate.Annotation, w, h float64) backend.Text {
	size := a.FontSize
	if size <= 0 {
		size = annotate.DefaultFontSize
	}
	return backend.Text{
		X:     a.XRatio * w,
		Y:     a.YRatio * h,
		Value: a.Text,
		Font:  backend.DefaultFont,
		Size:  size * Scale(h),
		Color: a.Color,
	}
}
