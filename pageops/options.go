package pageops

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lvillar/pdfjoiner/annotate"
	"github.com/lvillar/pdfjoiner/backend"
)

// PageNumberOptions controls page numbering. Sizes are in points at
// ReferenceHeight.
type PageNumberOptions struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Position Position      `yaml:"position" json:"position"`
	Format   string        `yaml:"format" json:"format"` // {n} and {total} are substituted
	Start    int           `yaml:"start" json:"start"`
	FontSize float64       `yaml:"fontSize" json:"fontSize"`
	Margin   float64       `yaml:"margin" json:"margin"`
	Color    backend.Color `yaml:"color" json:"color"`
	Font     string        `yaml:"font,omitempty" json:"font,omitempty"`
}

// DefaultPageNumberOptions returns the defaults: "{n} / {total}" at the
// bottom center, starting at 1, 10pt black, 30pt from the edge.
func DefaultPageNumberOptions() PageNumberOptions {
	return PageNumberOptions{
		Position: BottomCenter,
		Format:   "{n} / {total}",
		Start:    1,
		FontSize: 10,
		Margin:   30,
		Color:    backend.Black,
		Font:     backend.DefaultFont,
	}
}

// Validate reports option values that cannot produce a visible number.
func (o PageNumberOptions) Validate() error {
	var errs []error
	if !validSize(o.FontSize) {
		errs = append(errs, fmt.Errorf("font size must be positive, got %g", o.FontSize))
	}
	if o.Margin < 0 || math.IsNaN(o.Margin) {
		errs = append(errs, fmt.Errorf("margin must not be negative, got %g", o.Margin))
	}
	if o.Position < BottomCenter || o.Position > TopRight {
		errs = append(errs, fmt.Errorf("invalid position %d", int(o.Position)))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("pageops: page numbers: %w", err)
	}
	return nil
}

// WatermarkOptions controls the diagonal watermark.
type WatermarkOptions struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Text     string        `yaml:"text" json:"text"`
	FontSize float64       `yaml:"fontSize" json:"fontSize"`
	Angle    float64       `yaml:"angle" json:"angle"` // degrees, counter-clockwise
	Opacity  float64       `yaml:"opacity" json:"opacity"`
	Color    backend.Color `yaml:"color" json:"color"`
	Font     string        `yaml:"font,omitempty" json:"font,omitempty"`
}

// DefaultWatermarkOptions returns the defaults: 60pt bold light gray text at
// 45 degrees and 15% opacity.
func DefaultWatermarkOptions() WatermarkOptions {
	return WatermarkOptions{
		FontSize: 60,
		Angle:    45,
		Opacity:  0.15,
		Color:    backend.LightGray,
		Font:     "Helvetica-Bold",
	}
}

// Active reports whether the watermark would draw anything.
func (o WatermarkOptions) Active() bool {
	return o.Enabled && strings.TrimSpace(o.Text) != ""
}

// Validate reports option values outside their ranges.
func (o WatermarkOptions) Validate() error {
	var errs []error
	if !validSize(o.FontSize) {
		errs = append(errs, fmt.Errorf("font size must be positive, got %g", o.FontSize))
	}
	if !(o.Opacity > 0 && o.Opacity <= 1) {
		errs = append(errs, fmt.Errorf("opacity must be in (0, 1], got %g", o.Opacity))
	}
	if math.IsNaN(o.Angle) || math.IsInf(o.Angle, 0) {
		errs = append(errs, fmt.Errorf("invalid angle %g", o.Angle))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("pageops: watermark: %w", err)
	}
	return nil
}

// StampOptions groups everything drawn over the assembled pages. A nil
// Annotations overlay draws no annotations.
type StampOptions struct {
	PageNumbers PageNumberOptions `yaml:"pageNumbers" json:"pageNumbers"`
	Watermark   WatermarkOptions  `yaml:"watermark" json:"watermark"`
	Annotations *annotate.Overlay `yaml:"-" json:"-"`
}

// DefaultStampOptions returns options with both stamps disabled and their
// defaults filled in.
func DefaultStampOptions() StampOptions {
	return StampOptions{
		PageNumbers: DefaultPageNumberOptions(),
		Watermark:   DefaultWatermarkOptions(),
	}
}

// Active reports whether any stage has work to do.
func (o *StampOptions) Active() bool {
	if o == nil {
		return false
	}
	return o.PageNumbers.Enabled || o.Watermark.Active() || (o.Annotations != nil && o.Annotations.Len() > 0)
}

// Validate checks the enabled stages.
func (o *StampOptions) Validate() error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.PageNumbers.Enabled {
		errs = append(errs, o.PageNumbers.Validate())
	}
	if o.Watermark.Active() {
		errs = append(errs, o.Watermark.Validate())
	}
	return errors.Join(errs...)
}

func validSize(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
