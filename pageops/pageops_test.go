package pageops_test

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/lvillar/pdfjoiner/pageops"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in   string
		want pageops.Position
	}{
		{"bottom-center", pageops.BottomCenter},
		{"Bottom_Left", pageops.BottomLeft},
		{"bottomright", pageops.BottomRight},
		{"TopLeft", pageops.TopLeft},
		{"top center", pageops.TopCenter},
		{"TOP-RIGHT", pageops.TopRight},
	}
	for _, tt := range tests {
		got, err := pageops.ParsePosition(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParsePosition(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := pageops.ParsePosition("middle"); err == nil {
		t.Error("ParsePosition(middle) succeeded")
	}

	var p pageops.Position
	if err := p.UnmarshalText([]byte("top-right")); err != nil || p != pageops.TopRight {
		t.Errorf("UnmarshalText = %v, %v", p, err)
	}
	if _, err := pageops.Position(42).MarshalText(); err == nil {
		t.Error("MarshalText accepted an invalid position")
	}
}

func TestScale(t *testing.T) {
	if got := pageops.Scale(pageops.ReferenceHeight); got != 1 {
		t.Errorf("Scale(842) = %g", got)
	}
	if got := pageops.Scale(421); got != 0.5 {
		t.Errorf("Scale(421) = %g", got)
	}
	if got := pageops.Scale(0); got != 1 {
		t.Errorf("Scale(0) = %g", got)
	}
}

func TestRotation(t *testing.T) {
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	// Counter-clockwise on a page whose y axis points down: +x turns to -y.
	x, y := pageops.Rotation(90).Apply(1, 0)
	if !near(x, 0) || !near(y, -1) {
		t.Errorf("Rotation(90)(1, 0) = (%g, %g), want (0, -1)", x, y)
	}

	m := pageops.RotationAbout(30, 100, 50)
	if x, y := m.Apply(100, 50); !near(x, 100) || !near(y, 50) {
		t.Errorf("rotation center moved to (%g, %g)", x, y)
	}

	r := pageops.Rotation(30).Then(pageops.Rotation(-30))
	if x, y := r.Apply(3, 4); !near(x, 3) || !near(y, 4) {
		t.Errorf("rotation did not invert: (%g, %g)", x, y)
	}

	s := pageops.Scaling(2, 3).Then(pageops.Translation(1, 1))
	if x, y := s.Apply(1, 1); x != 3 || y != 4 {
		t.Errorf("scale then translate = (%g, %g), want (3, 4)", x, y)
	}
	if x, y := pageops.Identity().Apply(7, 8); x != 7 || y != 8 {
		t.Errorf("identity moved point to (%g, %g)", x, y)
	}
}

func TestOptionsValidate(t *testing.T) {
	o := pageops.DefaultStampOptions()
	if err := o.Validate(); err != nil {
		t.Errorf("defaults: %v", err)
	}
	if o.Active() {
		t.Error("defaults are active")
	}

	o.PageNumbers.Enabled = true
	o.PageNumbers.FontSize = 0
	o.Watermark.Enabled = true
	o.Watermark.Text = "X"
	o.Watermark.Opacity = 1.5
	err := o.Validate()
	if err == nil {
		t.Fatal("Validate() accepted bad options")
	}
	for _, part := range []string{"page numbers: font size", "watermark: opacity"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("error %q does not mention %q", err, part)
		}
	}

	var nilOpts *pageops.StampOptions
	if nilOpts.Active() || nilOpts.Validate() != nil {
		t.Error("nil options should be inactive and valid")
	}
}

func ExamplePageNumberText() {
	fmt.Println(pageops.PageNumberText("Page {n} of {total}", 3, 10))
	// Output: Page 3 of 10
}
