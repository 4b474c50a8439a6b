// Package reader parses existing PDF files far enough to answer the questions
// an assembler asks before importing them: how many pages a document has,
// how large each page is, and whether the file can be read at all.
//
// Cross-reference tables, cross-reference streams, object streams and
// incremental updates are supported. Damaged cross-reference data is
// rebuilt by scanning the file for object headers. Encrypted documents are
// reported with ErrEncrypted rather than decrypted.
package reader

import (
	"fmt"
	"strconv"
)

// Object is implemented by every PDF object type.
type Object interface {
	isObject()
}

// Null is the PDF null object.
type Null struct{}

// Boolean is a PDF boolean.
type Boolean bool

// Integer is a PDF integer.
type Integer int64

// Real is a PDF real number.
type Real float64

// Name is a PDF name without its leading slash.
type Name string

// String is a PDF string. Hex records whether it was written in hex form.
type String struct {
	Value []byte
	Hex   bool
}

// Array is a PDF array.
type Array []Object

// Dict is a PDF dictionary.
type Dict map[Name]Object

// Stream is a PDF stream: its dictionary and the still-encoded data.
type Stream struct {
	Dict Dict
	Data []byte
}

// Reference is an indirect reference such as "12 0 R".
type Reference struct {
	Number     int
	Generation int
}

func (Null) isObject()      {}
func (Boolean) isObject()   {}
func (Integer) isObject()   {}
func (Real) isObject()      {}
func (Name) isObject()      {}
func (String) isObject()    {}
func (Array) isObject()     {}
func (Dict) isObject()      {}
func (Stream) isObject()    {}
func (Reference) isObject() {}

func (r Reference) String() string {
	return strconv.Itoa(r.Number) + " " + strconv.Itoa(r.Generation) + " R"
}

func (n Name) String() string { return "/" + string(n) }

// number converts Integer and Real objects to float64.
func number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Name returns the name stored under key, or "".
func (d Dict) Name(key Name) Name {
	n, _ := d[key].(Name)
	return n
}

// Int returns the integer stored under key. Reals are truncated.
func (d Dict) Int(key Name) (int, bool) {
	switch v := d[key].(type) {
	case Integer:
		return int(v), true
	case Real:
		return int(v), true
	}
	return 0, false
}

// Array returns the array stored directly under key, or nil.
func (d Dict) Array(key Name) Array {
	a, _ := d[key].(Array)
	return a
}

// Dict returns the dictionary stored directly under key, or nil.
func (d Dict) Dict(key Name) Dict {
	sub, _ := d[key].(Dict)
	return sub
}

// ints converts an array of numbers to ints.
func ints(a Array) ([]int, error) {
	out := make([]int, len(a))
	for i, v := range a {
		f, ok := number(v)
		if !ok {
			return nil, fmt.Errorf("reader: array element %d is %T, not a number", i, v)
		}
		out[i] = int(f)
	}
	return out, nil
}
