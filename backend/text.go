package backend

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var coreFamilies = map[string]string{
	"helvetica": "Helvetica",
	"arial":     "Helvetica",
	"times":     "Times",
	"courier":   "Courier",
}

// coreFont maps names such as "Helvetica-Bold" or "Times-Italic" to a
// gofpdf core font family and style.
func coreFont(name string) (family, style string, ok bool) {
	if name == "" {
		name = DefaultFont
	}
	base, variant, _ := strings.Cut(strings.ToLower(name), "-")
	if base == "times" && variant == "roman" {
		variant = ""
	}
	family, ok = coreFamilies[base]
	if !ok {
		return "", "", false
	}
	switch variant {
	case "":
	case "bold":
		style = "B"
	case "italic", "oblique":
		style = "I"
	case "bolditalic", "boldoblique":
		style = "BI"
	default:
		return "", "", false
	}
	return family, style, true
}

// encodeWinAnsi converts UTF-8 text to the cp1252 bytes the core fonts
// expect. Runes outside cp1252 become '?'.
func encodeWinAnsi(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
