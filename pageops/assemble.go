package pageops

import (
	"fmt"

	"github.com/lvillar/pdfjoiner/backend"
	"github.com/lvillar/pdfjoiner/logging"
	"github.com/lvillar/pdfjoiner/reader"
)

// EntryResult records what happened to one included entry.
type EntryResult struct {
	Entry Entry
	Pages int   // pages appended
	Err   error // why the entry was skipped
}

// Skipped reports whether the entry contributed no pages.
func (r EntryResult) Skipped() bool { return r.Err != nil }

// Reason returns "<filename>: <reason>" for skipped entries.
func (r EntryResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", r.Entry.Filename(), r.Err)
}

// Assembly is the outcome of Assemble. The caller owns Doc and must close
// it.
type Assembly struct {
	Doc     backend.Document
	Results []EntryResult
}

// Skipped returns the reasons of every skipped entry, in entry order.
func (a *Assembly) Skipped() []string {
	var out []string
	for _, r := range a.Results {
		if r.Skipped() {
			out = append(out, r.Reason())
		}
	}
	return out
}

// PageCount returns the number of assembled pages.
func (a *Assembly) PageCount() int { return a.Doc.PageCount() }

// Assembler concatenates entries into one document.
type Assembler struct {
	be backend.Backend
}

// NewAssembler returns an Assembler using be.
func NewAssembler(be backend.Backend) *Assembler {
	return &Assembler{be: be}
}

// Assemble appends the pages of every included entry, in order. PDFs
// contribute all their pages, images one page of their pixel size. Entries
// that fail are skipped and recorded; Assemble itself never fails.
func (a *Assembler) Assemble(entries []Entry) *Assembly {
	log := logging.Logger()
	out := &Assembly{Doc: a.be.NewDocument()}
	for _, e := range entries {
		if !e.Included {
			continue
		}
		n, err := a.append(out.Doc, e)
		if err != nil {
			log.Warn("pageops: skipping entry", "path", e.Path, "error", err)
		} else {
			log.Debug("pageops: appended entry", "path", e.Path, "pages", n)
		}
		out.Results = append(out.Results, EntryResult{Entry: e, Pages: n, Err: err})
	}
	return out
}

func (a *Assembler) append(doc backend.Document, e Entry) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("backend panic: %v", r)
		}
	}()
	switch {
	case e.IsPDF():
		return a.appendPDF(doc, e.Path)
	case e.IsImage():
		return 1, a.appendImage(doc, e.Path)
	}
	return 0, ErrUnsupportedType
}

func (a *Assembler) appendPDF(doc backend.Document, path string) (int, error) {
	src, err := a.be.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	n := src.PageCount()
	if n == 0 {
		return 0, reader.ErrNoPages
	}
	if err := doc.InsertPages(src, 0, n-1); err != nil {
		return 0, err
	}
	return n, nil
}

func (a *Assembler) appendImage(doc backend.Document, path string) error {
	src, err := a.be.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	p, err := src.Page(0)
	if err != nil {
		return err
	}
	w, h := p.Size()

	single := a.be.NewDocument()
	defer single.Close()
	page, err := single.NewPage(w, h)
	if err != nil {
		return err
	}
	if err := page.DrawImage(backend.Rect{W: w, H: h}, path); err != nil {
		return err
	}
	return doc.InsertPages(single, 0, 0)
}
