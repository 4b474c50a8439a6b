package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
)

// decodeStream applies the stream's filter chain and returns the decoded data.
func decodeStream(s Stream) ([]byte, error) {
	var filters []Name
	var parms []Dict

	switch f := s.Dict["Filter"].(type) {
	case nil:
		return s.Data, nil
	case Name:
		filters = []Name{f}
		parms = []Dict{s.Dict.Dict("DecodeParms")}
	case Array:
		dp := s.Dict.Array("DecodeParms")
		for i, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("reader: filter %d is %T, not a name", i, item)
			}
			filters = append(filters, n)
			var p Dict
			if i < len(dp) {
				p, _ = dp[i].(Dict)
			}
			parms = append(parms, p)
		}
	default:
		return nil, fmt.Errorf("reader: unexpected /Filter of type %T", f)
	}

	data := s.Data
	for i, f := range filters {
		var err error
		switch f {
		case "FlateDecode", "Fl":
			data, err = inflate(data)
			if err == nil {
				data, err = unpredict(data, parms[i])
			}
		case "ASCIIHexDecode", "AHx":
			data, err = decodeASCIIHex(data)
		case "ASCII85Decode", "A85":
			data, err = decodeASCII85(data)
		default:
			err = fmt.Errorf("unsupported filter %s", f)
		}
		if err != nil {
			return nil, fmt.Errorf("reader: %s: %w", f, err)
		}
	}
	return data, nil
}

// inflate decompresses zlib data. A truncated or checksum-damaged stream
// still yields whatever was decoded before the damage.
func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil && buf.Len() == 0 {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unpredict reverses the TIFF and PNG predictors named in DecodeParms.
func unpredict(data []byte, parms Dict) ([]byte, error) {
	param := func(key Name, def int) int {
		if v, ok := parms.Int(key); ok {
			return v
		}
		return def
	}
	predictor := param("Predictor", 1)
	if predictor < 2 {
		return data, nil
	}
	colors := param("Colors", 1)
	bpc := param("BitsPerComponent", 8)
	columns := param("Columns", 1)
	bpp := max(1, (colors*bpc+7)/8)
	rowLen := (colors*bpc*columns + 7) / 8
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid predictor row length %d", rowLen)
	}

	if predictor == 2 {
		if bpc != 8 {
			return nil, fmt.Errorf("TIFF predictor with %d bits per component", bpc)
		}
		out := slices.Clone(data)
		for r := 0; r+rowLen <= len(out); r += rowLen {
			row := out[r : r+rowLen]
			for i := bpp; i < len(row); i++ {
				row[i] += row[i-bpp]
			}
		}
		return out, nil
	}

	prev := make([]byte, rowLen)
	out := make([]byte, 0, len(data))
	for p := 0; p+1+rowLen <= len(data); p += rowLen + 1 {
		row := slices.Clone(data[p+1 : p+1+rowLen])
		switch data[p] {
		case 0:
		case 1:
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2:
			for i := range row {
				row[i] += prev[i]
			}
		case 3:
			for i := range row {
				var left int
				if i >= bpp {
					left = int(row[i-bpp])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4:
			for i := range row {
				var a, c byte
				if i >= bpp {
					a, c = row[i-bpp], prev[i-bpp]
				}
				row[i] += paeth(a, prev[i], c)
			}
		default:
			return nil, fmt.Errorf("unknown PNG filter type %d", data[p])
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func decodeASCIIHex(data []byte) ([]byte, error) {
	var digits []byte
	for _, b := range data {
		if b == '>' {
			break
		}
		if !isSpace(b) {
			digits = append(digits, b)
		}
	}
	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeASCII85(data []byte) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end]
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	return io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
}
