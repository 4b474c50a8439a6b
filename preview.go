package pdfjoiner

import (
	"fmt"
	"image"

	"github.com/lvillar/pdfjoiner/backend"
)

// DefaultThumbnailSize is the bounding box of RenderThumbnail when size is
// not positive.
const DefaultThumbnailSize = 64

// Preview is the rendered result of a merge that was not saved.
type Preview struct {
	Pages []image.Image
	MergeResult
}

// FitZoom returns the zoom that fits a w×h page into maxW×maxH pixels
// without exceeding maxZoom. A non-positive bound leaves that axis free.
func FitZoom(w, h float64, maxW, maxH int, maxZoom float64) float64 {
	zoom := maxZoom
	if maxW > 0 && w > 0 {
		zoom = min(zoom, float64(maxW)/w)
	}
	if maxH > 0 && h > 0 {
		zoom = min(zoom, float64(maxH)/h)
	}
	return zoom
}

// Preview runs the merge pipeline without saving and renders every page to
// fit maxW×maxH pixels.
func (j *Joiner) Preview(entries []InputEntry, opts *OutputOptions, maxW, maxH int) (*Preview, error) {
	rast, ok := j.be.(backend.Rasterizer)
	if !ok {
		return nil, ErrNoRasterizer
	}
	doc, res, err := j.build(entries, opts)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	// Some backends only show freshly drawn stamps after a round trip
	// through their serialized form.
	if ro, ok := j.be.(backend.Reopener); ok {
		data, err := doc.Bytes()
		if err != nil {
			return nil, newJoinError("preview", "", err)
		}
		reopened, err := ro.Reopen(data)
		if err != nil {
			return nil, newJoinError("preview", "", err)
		}
		defer reopened.Close()
		doc = reopened
	}

	out := &Preview{MergeResult: *res, Pages: make([]image.Image, 0, doc.PageCount())}
	for i := range doc.PageCount() {
		img, err := j.rasterize(rast, doc, i, maxW, maxH)
		if err != nil {
			return nil, newJoinError("preview", "", fmt.Errorf("page %d: %w", i+1, err))
		}
		out.Pages = append(out.Pages, img)
	}
	return out, nil
}

func (j *Joiner) rasterize(rast backend.Rasterizer, doc backend.Document, i, maxW, maxH int) (image.Image, error) {
	p, err := doc.Page(i)
	if err != nil {
		return nil, err
	}
	w, h := p.Size()
	return rast.Rasterize(doc, i, FitZoom(w, h, maxW, maxH, j.maxZoom))
}

// RenderPreview renders page (0-based) of a single input file to fit
// maxW×maxH pixels.
func (j *Joiner) RenderPreview(path string, page, maxW, maxH int) (image.Image, error) {
	rast, ok := j.be.(backend.Rasterizer)
	if !ok {
		return nil, ErrNoRasterizer
	}
	doc, err := j.be.Open(path)
	if err != nil {
		return nil, newJoinError("preview", path, err)
	}
	defer doc.Close()
	img, err := j.rasterize(rast, doc, page, maxW, maxH)
	if err != nil {
		return nil, newJoinError("preview", path, err)
	}
	return img, nil
}

// RenderThumbnail renders the first page of path into a size×size box.
func (j *Joiner) RenderThumbnail(path string, size int) (image.Image, error) {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	return j.RenderPreview(path, 0, size, size)
}
