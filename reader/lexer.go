package reader

import (
	"bytes"
	"fmt"
	"strconv"
)

// lexer reads PDF objects from a byte slice.
type lexer struct {
	buf []byte
	pos int
}

func newLexer(buf []byte) *lexer {
	return &lexer{buf: buf}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) eof() bool { return l.pos >= len(l.buf) }

func (l *lexer) hasPrefix(s string) bool {
	return bytes.HasPrefix(l.buf[l.pos:], []byte(s))
}

func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("reader: offset %d: %s: %w", l.pos, fmt.Sprintf(format, args...), ErrMalformed)
}

// skipSpace skips white space and comments.
func (l *lexer) skipSpace() {
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// word returns the next run of regular characters: a keyword or a number.
func (l *lexer) word() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.buf) && !isSpace(l.buf[l.pos]) && !isDelim(l.buf[l.pos]) {
		l.pos++
	}
	return string(l.buf[start:l.pos])
}

// object reads one direct object. References are returned unresolved.
func (l *lexer) object() (Object, error) {
	l.skipSpace()
	if l.eof() {
		return nil, l.errorf("unexpected end of data")
	}

	c := l.buf[l.pos]
	switch {
	case l.hasPrefix("<<"):
		return l.dict()
	case c == '<':
		return l.hexString()
	case c == '(':
		return l.literalString()
	case c == '/':
		return l.name(), nil
	case c == '[':
		return l.array()
	case c == '+', c == '-', c == '.', c >= '0' && c <= '9':
		return l.numberOrRef()
	}

	switch w := l.word(); w {
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	case "null":
		return Null{}, nil
	case "":
		return nil, l.errorf("unexpected %q", l.buf[l.pos])
	default:
		return nil, l.errorf("unexpected keyword %q", w)
	}
}

func (l *lexer) name() Name {
	l.pos++ // '/'
	var b []byte
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		if isSpace(c) || isDelim(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.buf) {
			hi, lo := unhex(l.buf[l.pos+1]), unhex(l.buf[l.pos+2])
			if hi >= 0 && lo >= 0 {
				b = append(b, byte(hi<<4|lo))
				l.pos += 3
				continue
			}
		}
		b = append(b, c)
		l.pos++
	}
	return Name(b)
}

func (l *lexer) numberOrRef() (Object, error) {
	start := l.pos
	w := l.word()

	if n, err := strconv.ParseInt(w, 10, 64); err == nil {
		// "N G R" is a reference; anything else leaves the lexer after N.
		after := l.pos
		if g, err := strconv.Atoi(l.word()); err == nil && g >= 0 && l.word() == "R" {
			return Reference{Number: int(n), Generation: g}, nil
		}
		l.pos = after
		return Integer(n), nil
	}

	f, err := strconv.ParseFloat(w, 64)
	if err != nil {
		l.pos = start
		return nil, l.errorf("invalid number %q", w)
	}
	return Real(f), nil
}

func (l *lexer) literalString() (String, error) {
	l.pos++ // '('
	var b []byte
	depth := 1
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return String{Value: b}, nil
			}
		case '\r':
			// An unescaped end-of-line is always read as a single \n.
			if l.pos < len(l.buf) && l.buf[l.pos] == '\n' {
				l.pos++
			}
			c = '\n'
		case '\\':
			if l.eof() {
				return String{}, l.errorf("unterminated escape")
			}
			e := l.buf[l.pos]
			l.pos++
			switch e {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r':
				if l.pos < len(l.buf) && l.buf[l.pos] == '\n' {
					l.pos++
				}
				continue
			case '\n':
				continue
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.buf) && l.buf[l.pos] >= '0' && l.buf[l.pos] <= '7'; i++ {
						v = v*8 + int(l.buf[l.pos]-'0')
						l.pos++
					}
					c = byte(v)
				} else {
					c = e
				}
			}
		}
		b = append(b, c)
	}
	return String{}, l.errorf("unterminated string")
}

func (l *lexer) hexString() (String, error) {
	l.pos++ // '<'
	var b []byte
	hi := -1
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		if c == '>' {
			if hi >= 0 {
				b = append(b, byte(hi<<4))
			}
			return String{Value: b, Hex: true}, nil
		}
		if isSpace(c) {
			continue
		}
		v := unhex(c)
		if v < 0 {
			return String{}, l.errorf("invalid hex digit %q", c)
		}
		if hi < 0 {
			hi = v
		} else {
			b = append(b, byte(hi<<4|v))
			hi = -1
		}
	}
	return String{}, l.errorf("unterminated hex string")
}

func (l *lexer) array() (Array, error) {
	l.pos++ // '['
	a := Array{}
	for {
		l.skipSpace()
		if l.eof() {
			return nil, l.errorf("unterminated array")
		}
		if l.buf[l.pos] == ']' {
			l.pos++
			return a, nil
		}
		obj, err := l.object()
		if err != nil {
			return nil, err
		}
		a = append(a, obj)
	}
}

func (l *lexer) dict() (Dict, error) {
	l.pos += 2 // "<<"
	d := Dict{}
	for {
		l.skipSpace()
		if l.eof() {
			return nil, l.errorf("unterminated dictionary")
		}
		if l.hasPrefix(">>") {
			l.pos += 2
			return d, nil
		}
		if l.buf[l.pos] != '/' {
			return nil, l.errorf("dictionary key is not a name")
		}
		key := l.name()
		val, err := l.object()
		if err != nil {
			return nil, fmt.Errorf("reader: value of %s: %w", key, err)
		}
		d[key] = val
	}
}

// indirect reads "N G obj ... endobj". length resolves a stream's /Length
// entry and returns -1 when it cannot; the data is then delimited by the
// endstream keyword.
func (l *lexer) indirect(length func(Object) int) (Reference, Object, error) {
	num, err1 := strconv.Atoi(l.word())
	gen, err2 := strconv.Atoi(l.word())
	if err1 != nil || err2 != nil || l.word() != "obj" {
		return Reference{}, nil, l.errorf("expected object header")
	}
	ref := Reference{Number: num, Generation: gen}

	val, err := l.object()
	if err != nil {
		return ref, nil, err
	}
	l.skipSpace()
	if !l.hasPrefix("stream") {
		return ref, val, nil
	}

	dict, ok := val.(Dict)
	if !ok {
		return ref, nil, l.errorf("stream without dictionary")
	}
	l.pos += len("stream")
	switch {
	case l.hasPrefix("\r\n"):
		l.pos += 2
	case l.hasPrefix("\n"), l.hasPrefix("\r"):
		l.pos++
	}

	start := l.pos
	n := -1
	if length != nil {
		n = length(dict["Length"])
	}
	end := start + n
	if n < 0 || end > len(l.buf) || !endstreamAt(l.buf[end:]) {
		i := bytes.Index(l.buf[start:], []byte("endstream"))
		if i < 0 {
			return ref, nil, l.errorf("unterminated stream")
		}
		end = start + i
		for end > start && (l.buf[end-1] == '\n' || l.buf[end-1] == '\r') {
			end--
		}
	}

	l.pos = end
	l.skipSpace()
	if l.hasPrefix("endstream") {
		l.pos += len("endstream")
	}
	return ref, Stream{Dict: dict, Data: l.buf[start:end]}, nil
}

func endstreamAt(b []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(b, "\r\n \t"), []byte("endstream"))
}

func unhex(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}
