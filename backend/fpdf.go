package backend

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/lvillar/pdfjoiner/logging"
	"github.com/lvillar/pdfjoiner/reader"
)

// Producer is written into the information dictionary of saved documents.
const Producer = "pdfjoiner"

type opKind int

const (
	opTemplate opKind = iota
	opImage
	opText
)

// drawOp is one entry of a page's display list.
type drawOp struct {
	kind opKind
	rect Rect

	src     string // PDF path for templates, image path for images
	srcPage int    // 1-based
	box     string // gofpdi box name

	text Text
}

type fpdfPage struct {
	doc  *fpdfDocument
	w, h float64
	ops  []drawOp
}

// fpdfDocument records pages as display lists. Nothing is written until
// Save or Bytes replays them into a fresh gofpdf document, so pages can be
// copied between documents and stamped without re-importing anything.
type fpdfDocument struct {
	be     *FPDF
	pages  []*fpdfPage
	images map[string]*preparedImage
	closed bool
}

// FPDF is the Backend implementation backed by gofpdf and gofpdi.
type FPDF struct {
	mu      sync.Mutex
	measure *gofpdf.Fpdf
}

// NewFPDF returns a ready FPDF backend.
func NewFPDF() *FPDF {
	m := gofpdf.New("P", "pt", "A4", "")
	m.SetFont(DefaultFont, "", 12)
	return &FPDF{measure: m}
}

// Open loads a PDF or image file.
func (b *FPDF) Open(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return b.openPDF(path)
	case IsImageExt(ext):
		return b.openImage(path)
	}
	return nil, fmt.Errorf("backend: %s: unsupported file type %q", filepath.Base(path), ext)
}

func (b *FPDF) openPDF(path string) (Document, error) {
	pages, err := probePDF(path)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, reader.ErrNoPages
	}
	if err := checkImport(path, pages); err != nil {
		return nil, err
	}

	doc := b.newDocument()
	for i, p := range pages {
		doc.pages = append(doc.pages, &fpdfPage{
			doc: doc,
			w:   p.w,
			h:   p.h,
			ops: []drawOp{{
				kind:    opTemplate,
				rect:    Rect{W: p.w, H: p.h},
				src:     path,
				srcPage: i + 1,
				box:     p.box,
			}},
		})
	}
	logging.Logger().Debug("backend: opened PDF", "path", path, "pages", len(pages))
	return doc, nil
}

func (b *FPDF) openImage(path string) (Document, error) {
	img, err := prepareImage(path)
	if err != nil {
		return nil, err
	}
	doc := b.newDocument()
	doc.images[path] = img
	w, h := float64(img.width), float64(img.height)
	doc.pages = append(doc.pages, &fpdfPage{
		doc: doc,
		w:   w,
		h:   h,
		ops: []drawOp{{kind: opImage, rect: Rect{W: w, H: h}, src: path}},
	})
	logging.Logger().Debug("backend: opened image", "path", path, "width", img.width, "height", img.height)
	return doc, nil
}

// NewDocument returns an empty document.
func (b *FPDF) NewDocument() Document {
	return b.newDocument()
}

func (b *FPDF) newDocument() *fpdfDocument {
	return &fpdfDocument{be: b, images: make(map[string]*preparedImage)}
}

// MeasureText returns the width of text set in a core font. Unknown fonts
// are measured as DefaultFont.
func (b *FPDF) MeasureText(text, font string, size float64) float64 {
	family, style, ok := coreFont(font)
	if !ok {
		family, style, _ = coreFont(DefaultFont)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.measure.SetFont(family, style, size)
	return b.measure.GetStringWidth(encodeWinAnsi(text))
}

func (d *fpdfDocument) PageCount() int { return len(d.pages) }

func (d *fpdfDocument) Page(i int) (Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, i, len(d.pages))
	}
	return d.pages[i], nil
}

func (d *fpdfDocument) NewPage(w, h float64) (Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("backend: invalid page size %gx%g", w, h)
	}
	p := &fpdfPage{doc: d, w: w, h: h}
	d.pages = append(d.pages, p)
	return p, nil
}

func (d *fpdfDocument) InsertPages(from Document, start, end int) error {
	if d.closed {
		return ErrClosed
	}
	src, ok := from.(*fpdfDocument)
	if !ok {
		return fmt.Errorf("backend: cannot insert pages from %T", from)
	}
	if src.closed {
		return ErrClosed
	}
	if start < 0 || end >= len(src.pages) || start > end {
		return fmt.Errorf("%w: %d..%d of %d", ErrPageRange, start, end, len(src.pages))
	}
	for _, p := range src.pages[start : end+1] {
		d.pages = append(d.pages, &fpdfPage{doc: d, w: p.w, h: p.h, ops: slices.Clone(p.ops)})
	}
	for path, img := range src.images {
		if _, ok := d.images[path]; !ok {
			d.images[path] = img
		}
	}
	return nil
}

// Save writes the document to path. The file is written under a temporary
// name in the same directory and renamed into place.
func (d *fpdfDocument) Save(path string) error {
	if d.closed {
		return ErrClosed
	}
	pdf, err := d.render()
	if err != nil {
		return err
	}
	return writeAtomic(path, pdf.Output)
}

func (d *fpdfDocument) Bytes() ([]byte, error) {
	if d.closed {
		return nil, ErrClosed
	}
	pdf, err := d.render()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("backend: writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *fpdfDocument) Close() error {
	d.closed = true
	d.pages = nil
	d.images = nil
	return nil
}

// render replays every display list into a new gofpdf document.
func (d *fpdfDocument) render() (pdf *gofpdf.Fpdf, err error) {
	if len(d.pages) == 0 {
		return nil, errors.New("backend: document has no pages")
	}
	defer func() {
		if r := recover(); r != nil {
			pdf, err = nil, fmt.Errorf("backend: rendering: %v", r)
		}
	}()

	pdf = gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetProducer(Producer, false)
	imp := gofpdi.NewImporter()
	type tplKey struct {
		src  string
		page int
		box  string
	}
	tpls := make(map[tplKey]int)

	for _, p := range d.pages {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: p.w, Ht: p.h})
		for _, op := range p.ops {
			switch op.kind {
			case opTemplate:
				key := tplKey{op.src, op.srcPage, op.box}
				tpl, ok := tpls[key]
				if !ok {
					tpl = imp.ImportPage(pdf, op.src, op.srcPage, op.box)
					tpls[key] = tpl
				}
				imp.UseImportedTemplate(pdf, tpl, op.rect.X, op.rect.Y, op.rect.W, op.rect.H)
			case opImage:
				img := d.images[op.src]
				if img == nil {
					return nil, fmt.Errorf("backend: image %s was not loaded", op.src)
				}
				if pdf.GetImageInfo(op.src) == nil {
					pdf.RegisterImageOptionsReader(op.src, gofpdf.ImageOptions{ImageType: img.pdfType}, bytes.NewReader(img.data))
				}
				pdf.ImageOptions(op.src, op.rect.X, op.rect.Y, op.rect.W, op.rect.H, false,
					gofpdf.ImageOptions{ImageType: img.pdfType}, 0, "")
			case opText:
				drawFPDFText(pdf, op.text)
			}
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("backend: rendering: %w", err)
		}
	}
	return pdf, nil
}

func drawFPDFText(pdf *gofpdf.Fpdf, t Text) {
	family, style, _ := coreFont(t.Font)
	pdf.SetFont(family, style, t.Size)
	pdf.SetTextColor(t.Color.Bytes())

	opacity := t.Opacity
	if opacity > 0 && opacity < 1 {
		pdf.SetAlpha(opacity, "Normal")
		defer pdf.SetAlpha(1, "Normal")
	}
	if t.Rotation != 0 {
		pdf.TransformBegin()
		pdf.TransformRotate(t.Rotation, t.X, t.Y)
		defer pdf.TransformEnd()
	}
	pdf.Text(t.X, t.Y, encodeWinAnsi(t.Value))
}

func (p *fpdfPage) Size() (w, h float64) { return p.w, p.h }

func (p *fpdfPage) DrawImage(r Rect, sourcePath string) error {
	if p.doc.closed {
		return ErrClosed
	}
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("backend: invalid image rectangle %+v", r)
	}
	if _, ok := p.doc.images[sourcePath]; !ok {
		img, err := prepareImage(sourcePath)
		if err != nil {
			return err
		}
		p.doc.images[sourcePath] = img
	}
	p.ops = append(p.ops, drawOp{kind: opImage, rect: r, src: sourcePath})
	return nil
}

func (p *fpdfPage) DrawText(t Text) error {
	if p.doc.closed {
		return ErrClosed
	}
	if t.Font == "" {
		t.Font = DefaultFont
	}
	if _, _, ok := coreFont(t.Font); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFont, t.Font)
	}
	if t.Size <= 0 {
		return fmt.Errorf("backend: invalid font size %g", t.Size)
	}
	if t.Opacity < 0 || t.Opacity > 1 {
		return fmt.Errorf("backend: opacity %g outside [0, 1]", t.Opacity)
	}
	p.ops = append(p.ops, drawOp{kind: opText, text: t})
	return nil
}

// writeAtomic writes through a temporary file next to path and renames it
// over path once the write succeeded.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("backend: creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("backend: writing %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("backend: writing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("backend: writing %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("backend: writing %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("backend: writing %s: %w", path, err)
	}
	return nil
}
