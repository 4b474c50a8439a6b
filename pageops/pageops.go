// Package pageops assembles PDF and image files into one document and
// stamps the assembled pages with a watermark, page numbers and free text
// annotations.
//
// Everything here works through the backend interfaces. Stamp sizes are
// given at a reference page height of 842 points and scaled to the height
// of each page, so a stamp looks the same on an A4 page and on a scanned
// image many times larger.
package pageops

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lvillar/pdfjoiner/backend"
)

// ReferenceHeight is the page height at which stamp sizes apply unscaled.
const ReferenceHeight = 842.0

// ErrUnsupportedType is returned for entries that are neither PDF nor a
// supported image.
var ErrUnsupportedType = errors.New("pageops: unsupported file type")

// Scale returns the factor stamp sizes are multiplied by on a page of the
// given height.
func Scale(pageHeight float64) float64 {
	if pageHeight <= 0 {
		return 1
	}
	return pageHeight / ReferenceHeight
}

// Entry is one input file.
type Entry struct {
	Path     string
	Included bool
}

// Filename returns the base name of the entry's path.
func (e Entry) Filename() string { return filepath.Base(e.Path) }

// IsPDF reports whether the entry has a .pdf extension.
func (e Entry) IsPDF() bool { return strings.EqualFold(filepath.Ext(e.Path), ".pdf") }

// IsImage reports whether the entry has a supported image extension.
func (e Entry) IsImage() bool { return backend.IsImageExt(filepath.Ext(e.Path)) }

// IsSupported reports whether path names a file type the assembler accepts.
func IsSupported(path string) bool {
	e := Entry{Path: path}
	return e.IsPDF() || e.IsImage()
}

// Position is where page numbers are placed. The zero value is
// BottomCenter.
type Position int

const (
	BottomCenter Position = iota
	BottomLeft
	BottomRight
	TopLeft
	TopCenter
	TopRight
)

var positionNames = [...]string{
	BottomCenter: "bottom-center",
	BottomLeft:   "bottom-left",
	BottomRight:  "bottom-right",
	TopLeft:      "top-left",
	TopCenter:    "top-center",
	TopRight:     "top-right",
}

func (p Position) String() string {
	if p < 0 || int(p) >= len(positionNames) {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// IsTop reports whether p is one of the top positions.
func (p Position) IsTop() bool { return p == TopLeft || p == TopCenter || p == TopRight }

// IsLeft reports whether p is aligned to the left margin.
func (p Position) IsLeft() bool { return p == TopLeft || p == BottomLeft }

// IsRight reports whether p is aligned to the right margin.
func (p Position) IsRight() bool { return p == TopRight || p == BottomRight }

// ParsePosition parses names such as "top-left", "bottom_center" or
// "TopRight".
func ParsePosition(s string) (Position, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	for p, name := range positionNames {
		if strings.ReplaceAll(name, "-", "") == norm {
			return Position(p), nil
		}
	}
	return BottomCenter, fmt.Errorf("pageops: unknown position %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(positionNames) {
		return nil, fmt.Errorf("pageops: invalid position %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(text []byte) error {
	v, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
