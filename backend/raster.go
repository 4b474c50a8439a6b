package backend

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// MaxRasterSide bounds either dimension of a rasterized page in pixels.
const MaxRasterSide = 8192

var (
	placeholderFill   = color.RGBA{0xf4, 0xf4, 0xf4, 0xff}
	placeholderBorder = color.RGBA{0xc8, 0xc8, 0xc8, 0xff}
	placeholderInk    = Color{R: 0.55, G: 0.55, B: 0.55}
)

// Rasterize renders page i of doc. Images and text are drawn as they will
// appear in the saved file. Imported PDF pages are shown as a labelled
// placeholder, since page content streams are not interpreted.
func (b *FPDF) Rasterize(doc Document, i int, zoom float64) (image.Image, error) {
	d, ok := doc.(*fpdfDocument)
	if !ok {
		return nil, fmt.Errorf("backend: cannot rasterize %T", doc)
	}
	if d.closed {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, i, len(d.pages))
	}
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return nil, fmt.Errorf("backend: invalid zoom %g", zoom)
	}
	p := d.pages[i]
	// The epsilon keeps a zoom chosen to fit an exact pixel bound from
	// rounding up past it.
	pw, ph := int(math.Ceil(p.w*zoom-1e-6)), int(math.Ceil(p.h*zoom-1e-6))
	if pw > MaxRasterSide || ph > MaxRasterSide {
		return nil, fmt.Errorf("backend: raster %dx%d exceeds %d pixels", pw, ph, MaxRasterSide)
	}

	dst := image.NewRGBA(image.Rect(0, 0, max(pw, 1), max(ph, 1)))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	for _, op := range p.ops {
		var err error
		switch op.kind {
		case opTemplate:
			err = drawPlaceholder(dst, op, zoom)
		case opImage:
			img := d.images[op.src]
			if img == nil {
				return nil, fmt.Errorf("backend: image %s was not loaded", op.src)
			}
			xdraw.CatmullRom.Scale(dst, scaleRect(op.rect, zoom), img.img, img.img.Bounds(), xdraw.Over, nil)
		case opText:
			err = rasterText(dst, op.text, zoom)
		}
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func scaleRect(r Rect, zoom float64) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X*zoom)), int(math.Round(r.Y*zoom)),
		int(math.Round((r.X+r.W)*zoom)), int(math.Round((r.Y+r.H)*zoom)),
	)
}

func drawPlaceholder(dst *image.RGBA, op drawOp, zoom float64) error {
	r := scaleRect(op.rect, zoom).Intersect(dst.Bounds())
	draw.Draw(dst, r, image.NewUniform(placeholderFill), image.Point{}, draw.Src)
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.Set(x, r.Min.Y, placeholderBorder)
		dst.Set(x, r.Max.Y-1, placeholderBorder)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.Set(r.Min.X, y, placeholderBorder)
		dst.Set(r.Max.X-1, y, placeholderBorder)
	}

	label := fmt.Sprintf("%s p. %d", filepath.Base(op.src), op.srcPage)
	size := max(min(op.rect.W/24, 14), 6)
	face, err := rasterFace(DefaultFont, size*zoom)
	if err != nil {
		return err
	}
	width := float64(font.MeasureString(face, label)) / 64 / zoom
	face.Close()
	return rasterText(dst, Text{
		X:     op.rect.X + (op.rect.W-width)/2,
		Y:     op.rect.Y + op.rect.H/2,
		Value: label,
		Size:  size,
		Color: placeholderInk,
	}, zoom)
}

// rasterText draws t onto dst. The run is rendered upright into a tile and
// mapped onto the page with an affine transform that rotates it about its
// baseline origin.
func rasterText(dst *image.RGBA, t Text, zoom float64) error {
	if t.Value == "" {
		return nil
	}
	face, err := rasterFace(t.Font, t.Size*zoom)
	if err != nil {
		return err
	}
	defer face.Close()

	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	advance := font.MeasureString(face, t.Value).Ceil()
	if advance <= 0 {
		return nil
	}
	const pad = 2
	mask := image.NewAlpha(image.Rect(0, 0, advance+2*pad, ascent+descent+2*pad))
	origin := fixed.P(pad, pad+ascent)
	(&font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: origin}).DrawString(t.Value)

	alpha := t.Opacity
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	r, g, b := t.Color.Bytes()
	ink := image.NewUniform(color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(alpha*255 + 0.5)})
	tile := image.NewRGBA(mask.Bounds())
	draw.DrawMask(tile, tile.Bounds(), ink, image.Point{}, mask, image.Point{}, draw.Over)

	theta := t.Rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)
	ox, oy := float64(pad), float64(pad+ascent)
	px, py := t.X*zoom, t.Y*zoom
	s2d := f64.Aff3{
		cos, sin, px - (cos*ox + sin*oy),
		-sin, cos, py - (-sin*ox + cos*oy),
	}
	xdraw.BiLinear.Transform(dst, s2d, tile, tile.Bounds(), xdraw.Over, nil)
	return nil
}

var (
	fontsOnce sync.Once
	fontsErr  error
	fonts     map[string]*opentype.Font
)

func loadFonts() {
	fonts = make(map[string]*opentype.Font)
	for name, ttf := range map[string][]byte{
		"regular": goregular.TTF,
		"bold":    gobold.TTF,
		"mono":    gomono.TTF,
	} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			fontsErr = fmt.Errorf("backend: parsing %s font: %w", name, err)
			return
		}
		fonts[name] = f
	}
}

// rasterFace returns a Go font face standing in for the named core font.
func rasterFace(name string, size float64) (font.Face, error) {
	family, style, ok := coreFont(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFont, name)
	}
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fontsErr
	}
	f := fonts["regular"]
	switch {
	case family == "Courier":
		f = fonts["mono"]
	case strings.Contains(style, "B"):
		f = fonts["bold"]
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
