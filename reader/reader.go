package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrNotPDF is returned when the data does not start with a PDF header.
	ErrNotPDF = errors.New("reader: not a PDF file")

	// ErrMalformed wraps structural errors in the file.
	ErrMalformed = errors.New("reader: malformed PDF")

	// ErrNoPages is returned by callers that require at least one page.
	ErrNoPages = errors.New("reader: document has no pages")

	// ErrEncrypted is returned for documents protected by a security handler.
	ErrEncrypted = errors.New("reader: document is encrypted")
)

// Document is a parsed PDF document.
type Document struct {
	Version string // from the file header, e.g. "1.7"

	data       []byte
	xref       xrefTable
	trailer    Dict
	cache      map[int]Object
	resolving  map[int]bool
	objStreams map[int]*objectStream
	pages      []*Page
}

// Open opens and parses a PDF file from disk.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reader: opening %s: %w", filename, err)
	}
	return Parse(data)
}

// ReadFrom parses a PDF document from r. The whole input is read into
// memory.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return Parse(data)
}

// Parse builds a Document from raw PDF bytes. When the cross-reference
// data cannot be used the object table is rebuilt from the file body.
func Parse(data []byte) (*Document, error) {
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	d := &Document{
		Version:    parseVersion(data),
		data:       data,
		xref:       make(xrefTable),
		cache:      make(map[int]Object),
		resolving:  make(map[int]bool),
		objStreams: make(map[int]*objectStream),
	}

	err := d.load()
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, ErrEncrypted):
		return nil, err
	}
	if rerr := d.rebuildXRef(); rerr != nil {
		return nil, fmt.Errorf("%w (rebuild: %v)", err, rerr)
	}
	if err := d.checkEncrypted(); err != nil {
		return nil, err
	}
	if err := d.buildPageList(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) load() error {
	off, err := findStartXRef(d.data)
	if err != nil {
		return err
	}
	if err := d.loadXRef(off); err != nil {
		return err
	}
	if err := d.checkEncrypted(); err != nil {
		return err
	}
	return d.buildPageList()
}

func (d *Document) checkEncrypted() error {
	if d.trailer["Encrypt"] != nil {
		return ErrEncrypted
	}
	return nil
}

func parseVersion(data []byte) string {
	header := string(data[:min(len(data), 1024)])
	idx := strings.Index(header, "%PDF-")
	if idx < 0 {
		return ""
	}
	v := header[idx+len("%PDF-"):]
	if end := strings.IndexAny(v, "\r\n \t%"); end >= 0 {
		v = v[:end]
	}
	return v
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Page returns the page with the given 1-based number.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("reader: page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// Pages returns an iterator over all pages. Index is 1-based.
func (d *Document) Pages() iter.Seq2[int, *Page] {
	return func(yield func(int, *Page) bool) {
		for i, page := range d.pages {
			if !yield(i+1, page) {
				return
			}
		}
	}
}

// Metadata returns the text entries of the document information dictionary.
func (d *Document) Metadata() map[string]string {
	meta := make(map[string]string)
	info, err := d.resolveDict(d.trailer["Info"])
	if err != nil || info == nil {
		return meta
	}
	for _, key := range []Name{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"} {
		v, err := d.Resolve(info[key])
		if err != nil {
			continue
		}
		if s, ok := v.(String); ok {
			meta[string(key)] = decodeText(s.Value)
		}
	}
	return meta
}

// decodeText decodes a PDF text string: UTF-16BE when it carries a byte
// order mark, otherwise a single-byte encoding.
func decodeText(b []byte) string {
	if bytes.HasPrefix(b, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if s, err := dec.Bytes(b); err == nil {
			return string(s)
		}
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// Resolve follows indirect references until it reaches a direct object.
// Missing objects resolve to Null.
func (d *Document) Resolve(obj Object) (Object, error) {
	for range 32 {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		var err error
		if obj, err = d.resolve(ref); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reader: reference chain too long: %w", ErrMalformed)
}

func (d *Document) resolve(ref Reference) (Object, error) {
	if obj, ok := d.cache[ref.Number]; ok {
		return obj, nil
	}
	if d.resolving[ref.Number] {
		return nil, fmt.Errorf("reader: object %d refers to itself: %w", ref.Number, ErrMalformed)
	}
	d.resolving[ref.Number] = true
	defer delete(d.resolving, ref.Number)

	entry, ok := d.xref[ref.Number]
	var obj Object
	switch {
	case !ok || entry.kind == entryFree:
		return Null{}, nil
	case entry.kind == entryCompressed:
		stm, err := d.objectStream(entry.stream)
		if err != nil {
			return nil, err
		}
		if obj, err = stm.member(ref.Number); err != nil {
			return nil, err
		}
	default:
		if entry.offset < 0 || entry.offset >= int64(len(d.data)) {
			return nil, fmt.Errorf("reader: object %d offset %d out of bounds: %w", ref.Number, entry.offset, ErrMalformed)
		}
		got, v, err := newLexer(d.data[entry.offset:]).indirect(d.streamLength)
		if err != nil {
			return nil, fmt.Errorf("reader: object %d: %w", ref.Number, err)
		}
		if got.Number != ref.Number {
			return nil, fmt.Errorf("reader: xref points object %d at object %d: %w", ref.Number, got.Number, ErrMalformed)
		}
		obj = v
	}
	d.cache[ref.Number] = obj
	return obj, nil
}

// streamLength resolves a stream's /Length, or returns -1.
func (d *Document) streamLength(obj Object) int {
	v, err := d.Resolve(obj)
	if err != nil {
		return -1
	}
	if f, ok := number(v); ok && f >= 0 {
		return int(f)
	}
	return -1
}
