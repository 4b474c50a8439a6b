// Package backend defines the narrow capability surface the assembler and
// stamping engine need from a PDF library, and provides an implementation
// built on gofpdf with gofpdi page import.
//
// All coordinates are in points with the origin at the top-left corner of
// the page and y growing downwards. Rotation angles are in degrees,
// counter-clockwise as seen on the page.
package backend

import (
	"errors"
	"image"
	"image/color"
)

var (
	// ErrUnsupportedFont is returned when a text run names a font the
	// backend cannot draw.
	ErrUnsupportedFont = errors.New("backend: unsupported font")

	// ErrPageRange is returned for page indexes outside a document.
	ErrPageRange = errors.New("backend: page index out of range")

	// ErrClosed is returned by operations on a closed document.
	ErrClosed = errors.New("backend: document is closed")
)

// DefaultFont is used when a Text leaves Font empty.
const DefaultFont = "Helvetica"

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Common colors.
var (
	Black     = Color{}
	LightGray = Color{R: 0.75, G: 0.75, B: 0.75}
)

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: 0xff}.RGBA()
}

// Bytes returns the components scaled to 0..255.
func (c Color) Bytes() (r, g, b int) {
	return int(channel(c.R)), int(channel(c.G)), int(channel(c.B))
}

func channel(v float64) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}

// Rect is an axis-aligned rectangle: top-left corner plus size.
type Rect struct {
	X, Y, W, H float64
}

// Text is a single run of text. X and Y give the left end of the baseline;
// the run is rotated by Rotation degrees about that point.
type Text struct {
	X, Y     float64
	Value    string
	Font     string  // core font name; DefaultFont when empty
	Size     float64 // points
	Color    Color
	Rotation float64
	Opacity  float64 // 0 means fully opaque
}

// Backend opens and creates documents.
type Backend interface {
	// Open loads a PDF or a supported image file. An image opens as a
	// one-page document whose page has the image's pixel dimensions.
	Open(path string) (Document, error)

	// NewDocument returns an empty document.
	NewDocument() Document

	// MeasureText returns the advance width of text in points.
	MeasureText(text, font string, size float64) float64
}

// Document is an ordered, mutable list of pages.
type Document interface {
	PageCount() int

	// Page returns the page at 0-based index i.
	Page(i int) (Page, error)

	// NewPage appends a blank page of the given size.
	NewPage(w, h float64) (Page, error)

	// InsertPages appends pages start..end (0-based, inclusive) of from.
	InsertPages(from Document, start, end int) error

	Save(path string) error
	Bytes() ([]byte, error)
	Close() error
}

// Page is one page of a Document.
type Page interface {
	Size() (w, h float64)

	// DrawImage draws the image file at sourcePath scaled into r.
	DrawImage(r Rect, sourcePath string) error

	DrawText(t Text) error
}

// Rasterizer renders a page of a document to an image at the given zoom,
// where zoom 1 maps one point to one pixel.
type Rasterizer interface {
	Rasterize(doc Document, i int, zoom float64) (image.Image, error)
}

// Reopener is implemented by backends whose freshly assembled documents
// must be serialized and reloaded before they can be rasterized.
type Reopener interface {
	Reopen(data []byte) (Document, error)
}
