package reader

import (
	"fmt"
	"math"
)

// Rectangle is a PDF rectangle [llx lly urx ury] in default user space.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent of r.
func (r Rectangle) Width() float64 { return math.Abs(r.URX - r.LLX) }

// Height returns the vertical extent of r.
func (r Rectangle) Height() float64 { return math.Abs(r.URY - r.LLY) }

func (r Rectangle) normalize() Rectangle {
	return Rectangle{
		LLX: min(r.LLX, r.URX), LLY: min(r.LLY, r.URY),
		URX: max(r.LLX, r.URX), URY: max(r.LLY, r.URY),
	}
}

func (r Rectangle) intersect(o Rectangle) Rectangle {
	r, o = r.normalize(), o.normalize()
	out := Rectangle{
		LLX: max(r.LLX, o.LLX), LLY: max(r.LLY, o.LLY),
		URX: min(r.URX, o.URX), URY: min(r.URY, o.URY),
	}
	if out.URX < out.LLX || out.URY < out.LLY {
		return Rectangle{}
	}
	return out
}

// A4 is the media box assumed for pages that do not declare one.
var A4 = Rectangle{URX: 595.28, URY: 841.89}

// Page describes the geometry of a single page.
type Page struct {
	Number   int
	MediaBox Rectangle
	CropBox  *Rectangle
	Rotate   int // 0, 90, 180 or 270
	UserUnit float64
}

// Box returns the visible region: the crop box clipped to the media box.
func (p *Page) Box() Rectangle {
	if p.CropBox == nil {
		return p.MediaBox.normalize()
	}
	if b := p.CropBox.intersect(p.MediaBox); b.Width() > 0 && b.Height() > 0 {
		return b
	}
	return p.MediaBox.normalize()
}

// Size returns the width and height of the page in points as it is
// displayed, after /Rotate and /UserUnit are applied.
func (p *Page) Size() (w, h float64) {
	b := p.Box()
	unit := p.UserUnit
	if unit <= 0 {
		unit = 1
	}
	w, h = b.Width()*unit, b.Height()*unit
	if p.Rotate == 90 || p.Rotate == 270 {
		w, h = h, w
	}
	return w, h
}

func parseRectangle(obj Object) (Rectangle, error) {
	arr, ok := obj.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, fmt.Errorf("reader: rectangle must be a 4-element array: %w", ErrMalformed)
	}
	var v [4]float64
	for i, item := range arr {
		f, ok := number(item)
		if !ok {
			return Rectangle{}, fmt.Errorf("reader: rectangle element %d is %T: %w", i, item, ErrMalformed)
		}
		v[i] = f
	}
	return Rectangle{LLX: v[0], LLY: v[1], URX: v[2], URY: v[3]}, nil
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return r / 90 * 90
}

// inherited holds the page attributes that pass from a /Pages node to
// its kids.
type inherited struct {
	mediaBox *Rectangle
	cropBox  *Rectangle
	rotate   int
}

const maxTreeDepth = 64

// buildPageList walks the page tree in document order.
func (d *Document) buildPageList() error {
	root, err := d.resolveDict(d.trailer["Root"])
	if err != nil || root == nil {
		return fmt.Errorf("reader: missing document catalog: %w", ErrMalformed)
	}
	pagesRef := root["Pages"]
	if pagesRef == nil {
		return fmt.Errorf("reader: catalog has no /Pages: %w", ErrMalformed)
	}
	d.pages = nil
	return d.walkPages(pagesRef, inherited{}, map[Reference]bool{}, 0)
}

func (d *Document) walkPages(obj Object, in inherited, visited map[Reference]bool, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("reader: page tree deeper than %d: %w", maxTreeDepth, ErrMalformed)
	}
	if ref, ok := obj.(Reference); ok {
		if visited[ref] {
			return fmt.Errorf("reader: page tree cycle at %s: %w", ref, ErrMalformed)
		}
		visited[ref] = true
	}
	node, err := d.resolveDict(obj)
	if err != nil {
		return err
	}
	if node == nil {
		return nil
	}

	if mb, err := d.rectangle(node["MediaBox"]); err == nil {
		in.mediaBox = &mb
	}
	if cb, err := d.rectangle(node["CropBox"]); err == nil {
		in.cropBox = &cb
	}
	if r, err := d.Resolve(node["Rotate"]); err == nil {
		if f, ok := number(r); ok {
			in.rotate = normalizeRotation(int(f))
		}
	}

	kids, _ := d.Resolve(node["Kids"])
	if node.Name("Type") == "Pages" || (node.Name("Type") == "" && kids != nil) {
		arr, _ := kids.(Array)
		for _, kid := range arr {
			if err := d.walkPages(kid, in, visited, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	page := &Page{
		Number:   len(d.pages) + 1,
		MediaBox: A4,
		CropBox:  in.cropBox,
		Rotate:   in.rotate,
		UserUnit: 1,
	}
	if in.mediaBox != nil {
		page.MediaBox = *in.mediaBox
	}
	if u, err := d.Resolve(node["UserUnit"]); err == nil {
		if f, ok := number(u); ok && f > 0 {
			page.UserUnit = f
		}
	}
	d.pages = append(d.pages, page)
	return nil
}

func (d *Document) rectangle(obj Object) (Rectangle, error) {
	if obj == nil {
		return Rectangle{}, fmt.Errorf("reader: no rectangle")
	}
	v, err := d.Resolve(obj)
	if err != nil {
		return Rectangle{}, err
	}
	if arr, ok := v.(Array); ok {
		resolved := make(Array, len(arr))
		for i, item := range arr {
			if resolved[i], err = d.Resolve(item); err != nil {
				return Rectangle{}, err
			}
		}
		v = resolved
	}
	return parseRectangle(v)
}

func (d *Document) resolveDict(obj Object) (Dict, error) {
	v, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case Dict:
		return v, nil
	case Stream:
		return v.Dict, nil
	}
	return nil, nil
}
