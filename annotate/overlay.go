// Package annotate holds free text annotations placed on pages of an
// assembled document.
//
// Positions are stored as ratios of the page width and height, so the same
// annotation lands in the same place whether the page is rendered as a small
// preview raster or written at full size.
//
// An Overlay may be edited by one goroutine while others render it. All
// mutations go through Overlay methods, which take the write lock; renderers
// read owned copies through Snapshot or OnPage. Fields of an *Annotation
// returned by Add or Get must not be read directly while other goroutines
// may be editing the overlay.
package annotate

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/lvillar/pdfjoiner/backend"
)

// DefaultFontSize is the reference-scale size used when an annotation is
// added without one.
const DefaultFontSize = 14

var (
	// ErrNotFound is returned when an annotation is not part of the overlay.
	ErrNotFound = errors.New("annotate: annotation not in overlay")

	// ErrInvalid is returned for annotations that cannot be drawn.
	ErrInvalid = errors.New("annotate: invalid annotation")
)

// Annotation is a text marker on one page.
type Annotation struct {
	ID       int
	Page     int     // 0-based index into the assembled document
	XRatio   float64 // 0 is the left edge, 1 the right edge
	YRatio   float64 // 0 is the top edge, 1 the bottom edge
	Text     string
	FontSize float64 // points at the 842pt reference height
	Color    backend.Color
}

// Overlay is an ordered collection of annotations. The zero value is an
// empty overlay ready to use.
type Overlay struct {
	mu     sync.RWMutex
	items  []*Annotation
	nextID int
}

// New returns an overlay holding the given annotations.
func New(items ...*Annotation) (*Overlay, error) {
	o := &Overlay{}
	for _, a := range items {
		if err := o.Add(a); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Clamp limits a ratio to [0, 1]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

// Add appends a to the overlay. Ratios are clamped, a zero FontSize becomes
// DefaultFontSize and a zero ID is replaced by the next free one.
func (o *Overlay) Add(a *Annotation) error {
	if a == nil {
		return fmt.Errorf("%w: nil annotation", ErrInvalid)
	}
	if a.Page < 0 {
		return fmt.Errorf("%w: negative page %d", ErrInvalid, a.Page)
	}
	if a.FontSize < 0 || math.IsNaN(a.FontSize) {
		return fmt.Errorf("%w: font size %g", ErrInvalid, a.FontSize)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if slices.Contains(o.items, a) {
		return nil
	}
	if a.FontSize == 0 {
		a.FontSize = DefaultFontSize
	}
	a.XRatio, a.YRatio = Clamp(a.XRatio), Clamp(a.YRatio)
	if a.ID == 0 {
		o.nextID++
		a.ID = o.nextID
	} else {
		o.nextID = max(o.nextID, a.ID)
	}
	o.items = append(o.items, a)
	return nil
}

// MoveTo places a at the given ratios, clamped to [0, 1].
func (o *Overlay) MoveTo(a *Annotation, xRatio, yRatio float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !slices.Contains(o.items, a) {
		return ErrNotFound
	}
	a.XRatio, a.YRatio = Clamp(xRatio), Clamp(yRatio)
	return nil
}

// Edit replaces the text, size and color of a in place.
func (o *Overlay) Edit(a *Annotation, text string, fontSize float64, color backend.Color) error {
	if fontSize <= 0 || math.IsNaN(fontSize) {
		return fmt.Errorf("%w: font size %g", ErrInvalid, fontSize)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !slices.Contains(o.items, a) {
		return ErrNotFound
	}
	a.Text, a.FontSize, a.Color = text, fontSize, color
	return nil
}

// Remove deletes a from the overlay.
func (o *Overlay) Remove(a *Annotation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := slices.Index(o.items, a)
	if i < 0 {
		return ErrNotFound
	}
	o.items = slices.Delete(o.items, i, i+1)
	return nil
}

// Clear removes every annotation.
func (o *Overlay) Clear() {
	o.mu.Lock()
	o.items = nil
	o.mu.Unlock()
}

// Len returns the number of annotations.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// Get returns the annotation with the given ID, or nil.
func (o *Overlay) Get(id int) *Annotation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, a := range o.items {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Snapshot returns copies of all annotations in insertion order.
func (o *Overlay) Snapshot() []Annotation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Annotation, len(o.items))
	for i, a := range o.items {
		out[i] = *a
	}
	return out
}

// OnPage returns copies of the annotations on page, in insertion order.
// Annotations with blank text are left out.
func (o *Overlay) OnPage(page int) []Annotation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []Annotation
	for _, a := range o.items {
		if a.Page == page && strings.TrimSpace(a.Text) != "" {
			out = append(out, *a)
		}
	}
	return out
}

// NearestOnPage returns the annotation on page closest to the ratio point
// (x, y), or nil when none lies within radius. Distances are measured in
// ratio units.
func (o *Overlay) NearestOnPage(page int, x, y, radius float64) *Annotation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var best *Annotation
	bestDist := radius
	for _, a := range o.items {
		if a.Page != page {
			continue
		}
		if d := math.Hypot(a.XRatio-x, a.YRatio-y); d <= bestDist {
			best, bestDist = a, d
		}
	}
	return best
}
