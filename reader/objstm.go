package reader

import (
	"fmt"
	"strconv"
)

// objectStream is a decoded /Type /ObjStm stream with its member offsets.
type objectStream struct {
	data    []byte
	offsets map[int]int
}

func (d *Document) objectStream(num int) (*objectStream, error) {
	if ostm, ok := d.objStreams[num]; ok {
		return ostm, nil
	}

	obj, err := d.resolve(Reference{Number: num})
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(Stream)
	if !ok || stm.Dict.Name("Type") != "ObjStm" {
		return nil, fmt.Errorf("reader: object %d is not an object stream: %w", num, ErrMalformed)
	}
	n, ok1 := stm.Dict.Int("N")
	first, ok2 := stm.Dict.Int("First")
	if !ok1 || !ok2 || n < 0 || first < 0 {
		return nil, fmt.Errorf("reader: object stream %d lacks /N or /First: %w", num, ErrMalformed)
	}
	data, err := decodeStream(stm)
	if err != nil {
		return nil, err
	}
	if first > len(data) {
		return nil, fmt.Errorf("reader: object stream %d: /First beyond data: %w", num, ErrMalformed)
	}

	ostm := &objectStream{data: data[first:], offsets: make(map[int]int, n)}
	header := newLexer(data[:first])
	for range n {
		member, err1 := strconv.Atoi(header.word())
		off, err2 := strconv.Atoi(header.word())
		if err1 != nil || err2 != nil {
			break
		}
		ostm.offsets[member] = off
	}
	d.objStreams[num] = ostm
	return ostm, nil
}

// member reads object num out of the stream.
func (s *objectStream) member(num int) (Object, error) {
	off, ok := s.offsets[num]
	if !ok || off < 0 || off >= len(s.data) {
		return nil, fmt.Errorf("reader: object %d not in object stream: %w", num, ErrMalformed)
	}
	return newLexer(s.data[off:]).object()
}
