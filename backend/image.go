package backend

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageExts lists the image file extensions Open accepts.
var ImageExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".gif"}

// IsImageExt reports whether ext (with its dot) names a supported image type.
func IsImageExt(ext string) bool {
	return slices.Contains(ImageExts, strings.ToLower(ext))
}

// preparedImage is an image decoded once and encoded in a form gofpdf
// embeds directly: baseline JPEG as is, anything else as 8-bit PNG.
type preparedImage struct {
	width, height int
	pdfType       string
	data          []byte
	img           image.Image
}

func prepareImage(path string) (*preparedImage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backend: reading image: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("backend: decoding %s: %w", filepath.Base(path), err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("backend: %s: image has no pixels", filepath.Base(path))
	}

	p := &preparedImage{width: b.Dx(), height: b.Dy(), img: img}
	if _, cmyk := img.(*image.CMYK); format == "jpeg" && !cmyk {
		if _, err := jpeg.DecodeConfig(bytes.NewReader(raw)); err == nil {
			p.pdfType, p.data = "JPG", raw
			return p, nil
		}
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, fmt.Errorf("backend: re-encoding %s: %w", filepath.Base(path), err)
	}
	p.pdfType, p.data = "PNG", buf.Bytes()
	return p, nil
}
