package reader

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

type entryKind byte

const (
	entryFree entryKind = iota
	entryInUse
	entryCompressed
)

// xrefEntry locates one object. In-use objects live at a byte offset;
// compressed objects live inside the object stream numbered stream.
type xrefEntry struct {
	kind   entryKind
	offset int64
	stream int
	gen    int
}

type xrefTable map[int]xrefEntry

// add merges entries into t. Sections are read newest first, so an
// existing entry always wins.
func (t xrefTable) add(entries xrefTable) {
	for num, e := range entries {
		if _, ok := t[num]; !ok {
			t[num] = e
		}
	}
}

// findStartXRef reads the offset after the last "startxref" keyword.
func findStartXRef(data []byte) (int64, error) {
	tail := data[max(0, len(data)-2048):]
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("reader: startxref not found: %w", ErrMalformed)
	}
	w := newLexer(tail[i+len("startxref"):]).word()
	off, err := strconv.ParseInt(w, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reader: startxref offset %q: %w", w, ErrMalformed)
	}
	return off, nil
}

// loadXRef follows the chain of cross-reference sections starting at offset.
// The first trailer read (the newest) becomes the document trailer.
func (d *Document) loadXRef(offset int64) error {
	seen := make(map[int64]bool)
	for !seen[offset] {
		seen[offset] = true
		if offset < 0 || offset >= int64(len(d.data)) {
			return fmt.Errorf("reader: xref offset %d out of bounds: %w", offset, ErrMalformed)
		}
		trailer, err := d.readSection(offset)
		if err != nil {
			return err
		}
		if d.trailer == nil {
			d.trailer = trailer
		}
		prev, ok := trailer.Int("Prev")
		if !ok {
			return nil
		}
		offset = int64(prev)
	}
	return nil
}

// readSection reads one classic xref table with its trailer, or one
// cross-reference stream.
func (d *Document) readSection(offset int64) (Dict, error) {
	l := newLexer(d.data[offset:])
	l.skipSpace()
	if !l.hasPrefix("xref") {
		return d.readXRefStream(offset)
	}
	l.pos += len("xref")

	entries := make(xrefTable)
	for {
		l.skipSpace()
		if l.hasPrefix("trailer") {
			l.pos += len("trailer")
			break
		}
		first, err1 := strconv.Atoi(l.word())
		count, err2 := strconv.Atoi(l.word())
		if err1 != nil || err2 != nil || count < 0 {
			return nil, l.errorf("bad xref subsection header")
		}
		for i := range count {
			off, err1 := strconv.ParseInt(l.word(), 10, 64)
			gen, err2 := strconv.Atoi(l.word())
			kind := l.word()
			if err1 != nil || err2 != nil || (kind != "n" && kind != "f") {
				return nil, l.errorf("bad xref entry for object %d", first+i)
			}
			if kind == "n" {
				entries[first+i] = xrefEntry{kind: entryInUse, offset: off, gen: gen}
			} else {
				entries[first+i] = xrefEntry{kind: entryFree, gen: gen}
			}
		}
	}

	obj, err := l.object()
	if err != nil {
		return nil, fmt.Errorf("reader: trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("reader: trailer is %T, not a dictionary: %w", obj, ErrMalformed)
	}

	// In hybrid files the stream holds the compressed objects that the
	// table lists as free, so it is merged first.
	if stm, ok := trailer.Int("XRefStm"); ok && stm >= 0 && stm < len(d.data) {
		if _, err := d.readXRefStream(int64(stm)); err != nil {
			return nil, err
		}
	}
	d.xref.add(entries)
	return trailer, nil
}

// readXRefStream reads a cross-reference stream and returns its dictionary,
// which doubles as the trailer.
func (d *Document) readXRefStream(offset int64) (Dict, error) {
	_, obj, err := newLexer(d.data[offset:]).indirect(d.streamLength)
	if err != nil {
		return nil, fmt.Errorf("reader: xref stream: %w", err)
	}
	stm, ok := obj.(Stream)
	if !ok || stm.Dict.Name("Type") != "XRef" {
		return nil, fmt.Errorf("reader: no xref section at offset %d: %w", offset, ErrMalformed)
	}
	raw, err := decodeStream(stm)
	if err != nil {
		return nil, err
	}

	w, err := ints(stm.Dict.Array("W"))
	if err != nil || len(w) != 3 || w[0] < 0 || w[1] < 0 || w[2] < 0 {
		return nil, fmt.Errorf("reader: xref stream /W must hold 3 widths: %w", ErrMalformed)
	}
	index := []int{0, 0}
	if a := stm.Dict.Array("Index"); a != nil {
		if index, err = ints(a); err != nil {
			return nil, err
		}
	} else if size, ok := stm.Dict.Int("Size"); ok {
		index[1] = size
	}

	rowLen := w[0] + w[1] + w[2]
	field := func(row []byte, i int) int64 {
		start := 0
		for _, n := range w[:i] {
			start += n
		}
		var v int64
		for _, b := range row[start : start+w[i]] {
			v = v<<8 | int64(b)
		}
		return v
	}

	entries := make(xrefTable)
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		for j := range index[i+1] {
			if pos+rowLen > len(raw) {
				break
			}
			row := raw[pos : pos+rowLen]
			pos += rowLen

			kind := int64(1)
			if w[0] > 0 {
				kind = field(row, 0)
			}
			num := index[i] + j
			switch kind {
			case 0:
				entries[num] = xrefEntry{kind: entryFree}
			case 1:
				entries[num] = xrefEntry{kind: entryInUse, offset: field(row, 1), gen: int(field(row, 2))}
			case 2:
				entries[num] = xrefEntry{kind: entryCompressed, stream: int(field(row, 1))}
			}
		}
	}
	d.xref.add(entries)
	return stm.Dict, nil
}

// rebuildXRef recovers the object table of a file whose cross-reference
// data is missing or wrong by scanning for "N G obj" headers. Later
// definitions replace earlier ones, as an incremental update would.
func (d *Document) rebuildXRef() error {
	d.xref = make(xrefTable)
	d.trailer = nil
	d.cache = make(map[int]Object)
	d.objStreams = make(map[int]*objectStream)

	for i := 0; ; {
		j := bytes.Index(d.data[i:], []byte("obj"))
		if j < 0 {
			break
		}
		at := i + j
		i = at + len("obj")
		if at >= 3 && string(d.data[at-3:at]) == "end" {
			continue
		}
		if start, num, gen, ok := objectHeaderBefore(d.data, at); ok {
			d.xref[num] = xrefEntry{kind: entryInUse, offset: int64(start), gen: gen}
		}
	}

	// Members of object streams are invisible to the scan above.
	for _, num := range slices.Sorted(maps.Keys(d.xref)) {
		obj, err := d.resolve(Reference{Number: num})
		if err != nil {
			continue
		}
		if stm, ok := obj.(Stream); ok && stm.Dict.Name("Type") == "ObjStm" {
			if ostm, err := d.objectStream(num); err == nil {
				for member := range ostm.offsets {
					if _, ok := d.xref[member]; !ok {
						d.xref[member] = xrefEntry{kind: entryCompressed, stream: num}
					}
				}
			}
		}
	}

	if k := bytes.LastIndex(d.data, []byte("trailer")); k >= 0 {
		if obj, err := newLexer(d.data[k+len("trailer"):]).object(); err == nil {
			if t, ok := obj.(Dict); ok && t["Root"] != nil {
				d.trailer = t
			}
		}
	}
	if d.trailer == nil {
		for _, num := range slices.Sorted(maps.Keys(d.xref)) {
			obj, err := d.resolve(Reference{Number: num})
			if err != nil {
				continue
			}
			if dict, ok := obj.(Dict); ok && dict.Name("Type") == "Catalog" {
				d.trailer = Dict{"Root": Reference{Number: num, Generation: d.xref[num].gen}}
				break
			}
		}
	}
	if d.trailer == nil {
		return fmt.Errorf("reader: no document catalog found: %w", ErrMalformed)
	}
	return nil
}

// objectHeaderBefore parses the "N G " that precedes an "obj" keyword at at.
func objectHeaderBefore(data []byte, at int) (start, num, gen int, ok bool) {
	i := at
	digits := func() (int, bool) {
		for i > 0 && isSpace(data[i-1]) {
			i--
		}
		end := i
		for i > 0 && data[i-1] >= '0' && data[i-1] <= '9' {
			i--
		}
		if i == end {
			return 0, false
		}
		v, err := strconv.Atoi(string(data[i:end]))
		return v, err == nil
	}
	if at+3 < len(data) && !isSpace(data[at+3]) && !isDelim(data[at+3]) {
		return 0, 0, 0, false
	}
	if gen, ok = digits(); !ok {
		return 0, 0, 0, false
	}
	if num, ok = digits(); !ok {
		return 0, 0, 0, false
	}
	if i > 0 && !isSpace(data[i-1]) && !isDelim(data[i-1]) {
		return 0, 0, 0, false
	}
	return i, num, gen, true
}
