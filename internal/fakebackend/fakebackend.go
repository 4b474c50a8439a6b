// Package fakebackend is an in-memory backend.Backend for tests. Files are
// declared up front, draws are recorded on the pages, and failures can be
// injected per file or per draw.
package fakebackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/lvillar/pdfjoiner/backend"
)

// File describes a source file known to the backend.
type File struct {
	Pages [][2]float64 // page sizes; an image has exactly one
	Err   error        // returned by Open
	Panic any          // raised by Open when non-nil
}

// ImageDraw records one DrawImage call.
type ImageDraw struct {
	Rect backend.Rect
	Path string
}

// Backend is the fake. The zero value has no files and measures every rune
// as half the font size.
type Backend struct {
	mu    sync.Mutex
	files map[string]File

	// CharWidth is the advance of one rune per point of font size.
	CharWidth float64

	// DrawTextErr, when set, is consulted before recording a text run.
	DrawTextErr func(p *Page, t backend.Text) error

	// SaveErr is returned by Save when set.
	SaveErr error

	Opened    []string
	Reopened  int
	Rasters   int
	NoRasters bool // when set, Rasterize reports an error
}

// New returns a backend knowing files.
func New(files map[string]File) *Backend {
	b := &Backend{files: make(map[string]File)}
	for k, v := range files {
		b.files[k] = v
	}
	return b
}

// AddFile registers or replaces a file.
func (b *Backend) AddFile(path string, f File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.files == nil {
		b.files = make(map[string]File)
	}
	b.files[path] = f
}

// PDF is shorthand for a file with the given page sizes.
func PDF(sizes ...[2]float64) File { return File{Pages: sizes} }

// Image is shorthand for a one-page image file.
func Image(w, h float64) File { return File{Pages: [][2]float64{{w, h}}} }

func (b *Backend) Open(path string) (backend.Document, error) {
	b.mu.Lock()
	f, ok := b.files[path]
	b.Opened = append(b.Opened, path)
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), fs.ErrNotExist)
	}
	if f.Panic != nil {
		panic(f.Panic)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	d := &Document{be: b}
	for i, s := range f.Pages {
		d.Pages = append(d.Pages, &Page{doc: d, W: s[0], H: s[1], Source: path, SourcePage: i})
	}
	return d, nil
}

func (b *Backend) NewDocument() backend.Document {
	return &Document{be: b}
}

func (b *Backend) MeasureText(text, font string, size float64) float64 {
	cw := b.CharWidth
	if cw == 0 {
		cw = 0.5
	}
	return float64(utf8.RuneCountInString(text)) * size * cw
}

// Rasterize returns a white image of the page's size at zoom.
func (b *Backend) Rasterize(doc backend.Document, i int, zoom float64) (image.Image, error) {
	b.mu.Lock()
	b.Rasters++
	fail := b.NoRasters
	b.mu.Unlock()
	if fail {
		return nil, errors.New("fakebackend: rasterizing disabled")
	}
	p, err := doc.Page(i)
	if err != nil {
		return nil, err
	}
	w, h := p.Size()
	img := image.NewGray(image.Rect(0, 0, max(int(w*zoom+0.5), 1), max(int(h*zoom+0.5), 1)))
	for j := range img.Pix {
		img.Pix[j] = 0xff
	}
	if len(p.(*Page).Texts) > 0 {
		img.SetGray(0, 0, color.Gray{})
	}
	return img, nil
}

// Reopen decodes data written by Bytes.
func (b *Backend) Reopen(data []byte) (backend.Document, error) {
	b.mu.Lock()
	b.Reopened++
	b.mu.Unlock()
	d := &Document{be: b}
	if err := json.Unmarshal(data, &d.Pages); err != nil {
		return nil, fmt.Errorf("fakebackend: reopening: %w", err)
	}
	for _, p := range d.Pages {
		p.doc = d
	}
	return d, nil
}

// Document is a recorded document.
type Document struct {
	be     *Backend
	Pages  []*Page
	Closed bool
}

// Page is a recorded page.
type Page struct {
	doc        *Document
	W, H       float64
	Source     string
	SourcePage int
	Images     []ImageDraw
	Texts      []backend.Text
}

func (d *Document) PageCount() int { return len(d.Pages) }

func (d *Document) Page(i int) (backend.Page, error) {
	if d.Closed {
		return nil, backend.ErrClosed
	}
	if i < 0 || i >= len(d.Pages) {
		return nil, fmt.Errorf("%w: %d of %d", backend.ErrPageRange, i, len(d.Pages))
	}
	return d.Pages[i], nil
}

func (d *Document) NewPage(w, h float64) (backend.Page, error) {
	if d.Closed {
		return nil, backend.ErrClosed
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("fakebackend: invalid page size %gx%g", w, h)
	}
	p := &Page{doc: d, W: w, H: h, SourcePage: -1}
	d.Pages = append(d.Pages, p)
	return p, nil
}

func (d *Document) InsertPages(from backend.Document, start, end int) error {
	src, ok := from.(*Document)
	if !ok {
		return fmt.Errorf("fakebackend: cannot insert pages from %T", from)
	}
	if d.Closed || src.Closed {
		return backend.ErrClosed
	}
	if start < 0 || end >= len(src.Pages) || start > end {
		return fmt.Errorf("%w: %d..%d of %d", backend.ErrPageRange, start, end, len(src.Pages))
	}
	for _, p := range src.Pages[start : end+1] {
		c := *p
		c.doc = d
		c.Images = append([]ImageDraw(nil), p.Images...)
		c.Texts = append([]backend.Text(nil), p.Texts...)
		d.Pages = append(d.Pages, &c)
	}
	return nil
}

func (d *Document) Save(path string) error {
	if d.be.SaveErr != nil {
		return d.be.SaveErr
	}
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Bytes encodes the pages as JSON.
func (d *Document) Bytes() ([]byte, error) {
	if d.Closed {
		return nil, backend.ErrClosed
	}
	return json.Marshal(d.Pages)
}

func (d *Document) Close() error {
	d.Closed = true
	return nil
}

// Labels returns "source#page" for every page, or "blank" for pages created
// with NewPage, and appends the drawn image names.
func (d *Document) Labels() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		var sb strings.Builder
		if p.Source != "" {
			fmt.Fprintf(&sb, "%s#%d", filepath.Base(p.Source), p.SourcePage)
		} else {
			sb.WriteString("blank")
		}
		for _, im := range p.Images {
			sb.WriteString("+" + filepath.Base(im.Path))
		}
		out[i] = sb.String()
	}
	return out
}

func (p *Page) Size() (w, h float64) { return p.W, p.H }

func (p *Page) DrawImage(r backend.Rect, sourcePath string) error {
	if p.doc.Closed {
		return backend.ErrClosed
	}
	p.Images = append(p.Images, ImageDraw{Rect: r, Path: sourcePath})
	return nil
}

func (p *Page) DrawText(t backend.Text) error {
	if p.doc.Closed {
		return backend.ErrClosed
	}
	if hook := p.doc.be.DrawTextErr; hook != nil {
		if err := hook(p, t); err != nil {
			return err
		}
	}
	p.Texts = append(p.Texts, t)
	return nil
}

var (
	_ backend.Backend    = (*Backend)(nil)
	_ backend.Rasterizer = (*Backend)(nil)
	_ backend.Reopener   = (*Backend)(nil)
)
