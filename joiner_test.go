package pdfjoiner_test

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/pdfjoiner"
	"github.com/lvillar/pdfjoiner/annotate"
	"github.com/lvillar/pdfjoiner/backend"
	"github.com/lvillar/pdfjoiner/internal/fakebackend"
)

func included(paths ...string) []pdfjoiner.InputEntry {
	out := make([]pdfjoiner.InputEntry, len(paths))
	for i, p := range paths {
		out[i] = pdfjoiner.InputEntry{Path: p, Included: true}
	}
	return out
}

func a4(n int) fakebackend.File {
	sizes := make([][2]float64, n)
	for i := range sizes {
		sizes[i] = [2]float64{595, 842}
	}
	return fakebackend.PDF(sizes...)
}

func newFake() *fakebackend.Backend {
	return fakebackend.New(map[string]fakebackend.File{
		"/in/three.pdf": a4(3),
		"/in/two.pdf":   a4(2),
		"/in/photo.jpg": fakebackend.Image(100, 50),
		"/in/bad.pdf":   {Err: errors.New("xref table is damaged")},
	})
}

func TestMergeEmptyInput(t *testing.T) {
	be := newFake()
	j := pdfjoiner.New(pdfjoiner.WithBackend(be))
	dest := filepath.Join(t.TempDir(), "out.pdf")

	_, err := j.Merge(nil, dest, nil)
	assert.ErrorIs(t, err, pdfjoiner.ErrEmptyInput)

	in := included("/in/three.pdf")
	in[0].Included = false
	_, err = j.Merge(in, dest, nil)
	assert.ErrorIs(t, err, pdfjoiner.ErrEmptyInput)
	assert.Empty(t, be.Opened, "nothing is opened before the input check")
	assert.NoFileExists(t, dest)
}

func TestMergeEmptyOutput(t *testing.T) {
	j := pdfjoiner.New(pdfjoiner.WithBackend(newFake()))
	dest := filepath.Join(t.TempDir(), "out.pdf")

	_, err := j.Merge(included("/in/missing.pdf", "/in/bad.pdf"), dest, nil)
	require.ErrorIs(t, err, pdfjoiner.ErrEmptyOutput)

	var empty *pdfjoiner.EmptyOutputError
	require.True(t, errors.As(err, &empty))
	assert.Len(t, empty.Skipped, 2)
	assert.Contains(t, err.Error(), "missing.pdf: ")
	assert.Contains(t, err.Error(), "bad.pdf: xref table is damaged")
	assert.NoFileExists(t, dest)
}

func TestMergePageCountIgnoresBadEntryPosition(t *testing.T) {
	good := []string{"/in/three.pdf", "/in/photo.jpg", "/in/two.pdf"}
	for pos := 0; pos <= len(good); pos++ {
		paths := append([]string{}, good[:pos]...)
		paths = append(paths, "/in/bad.pdf")
		paths = append(paths, good[pos:]...)

		j := pdfjoiner.New(pdfjoiner.WithBackend(newFake()))
		res, err := j.Merge(included(paths...), filepath.Join(t.TempDir(), "out.pdf"), nil)
		require.NoError(t, err)
		assert.Equal(t, 6, res.PageCount, "bad entry at %d", pos)
		require.Len(t, res.Skipped, 1)
		assert.True(t, strings.HasPrefix(res.Skipped[0], "bad.pdf: "), res.Skipped[0])
		assert.True(t, res.HasWarnings())
	}
}

func TestMergeStampWarnings(t *testing.T) {
	be := newFake()
	be.DrawTextErr = func(_ *fakebackend.Page, tx backend.Text) error {
		if tx.Value == "DRAFT" {
			return backend.ErrUnsupportedFont
		}
		return nil
	}
	opts := pdfjoiner.DefaultOutputOptions()
	opts.Watermark.Enabled = true
	opts.Watermark.Text = "DRAFT"
	opts.PageNumbers.Enabled = true

	j := pdfjoiner.New(pdfjoiner.WithBackend(be))
	dest := filepath.Join(t.TempDir(), "out.pdf")
	res, err := j.Merge(included("/in/missing.pdf", "/in/two.pdf"), dest, &opts)
	require.NoError(t, err)

	assert.Equal(t, 2, res.PageCount)
	require.Len(t, res.Skipped, 2)
	assert.True(t, strings.HasPrefix(res.Skipped[0], "missing.pdf: "))
	assert.True(t, strings.HasPrefix(res.Skipped[1], "Watermark: "))
	assert.FileExists(t, dest)
}

func TestMergeSaveFailure(t *testing.T) {
	be := newFake()
	be.SaveErr = os.ErrPermission
	j := pdfjoiner.New(pdfjoiner.WithBackend(be))

	_, err := j.Merge(included("/in/two.pdf"), "/readonly/out.pdf", nil)
	require.ErrorIs(t, err, pdfjoiner.ErrOutputWrite)
	assert.ErrorIs(t, err, os.ErrPermission)

	var je *pdfjoiner.JoinError
	require.True(t, errors.As(err, &je))
	assert.Equal(t, "save", je.Op)
	assert.Equal(t, "/readonly/out.pdf", je.Path)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestMergeTo(t *testing.T) {
	j := pdfjoiner.New(pdfjoiner.WithBackend(newFake()))

	var buf bytes.Buffer
	res, err := j.MergeTo(&buf, included("/in/three.pdf", "/in/photo.jpg"), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.PageCount)
	assert.NotZero(t, buf.Len())

	_, err = j.MergeTo(failingWriter{}, included("/in/three.pdf"), nil)
	assert.ErrorIs(t, err, pdfjoiner.ErrOutputWrite)
}

func TestPreview(t *testing.T) {
	be := newFake()
	overlay, err := annotate.New(&annotate.Annotation{Page: 3, XRatio: 0.5, YRatio: 0.5, Text: "checked"})
	require.NoError(t, err)
	opts := pdfjoiner.DefaultOutputOptions()
	opts.Annotations = overlay

	j := pdfjoiner.New(pdfjoiner.WithBackend(be))
	p, err := j.Preview(included("/in/three.pdf", "/in/photo.jpg"), &opts, 300, 300)
	require.NoError(t, err)

	assert.Equal(t, 1, be.Reopened, "fake backend asks for a round trip")
	assert.Equal(t, 4, p.PageCount)
	require.Len(t, p.Pages, 4)
	assert.Equal(t, image.Rect(0, 0, 212, 300), p.Pages[0].Bounds())
	assert.Equal(t, image.Rect(0, 0, 200, 100), p.Pages[3].Bounds(), "zoom is capped at 2")

	// The annotation survives the round trip.
	r, _, _, _ := p.Pages[3].At(0, 0).RGBA()
	assert.Zero(t, r)
}

func TestPreviewErrors(t *testing.T) {
	be := newFake()
	be.NoRasters = true
	j := pdfjoiner.New(pdfjoiner.WithBackend(be))

	_, err := j.Preview(nil, nil, 100, 100)
	assert.ErrorIs(t, err, pdfjoiner.ErrEmptyInput)

	_, err = j.Preview(included("/in/two.pdf"), nil, 100, 100)
	var je *pdfjoiner.JoinError
	require.True(t, errors.As(err, &je))
	assert.Equal(t, "preview", je.Op)
}

func TestFitZoom(t *testing.T) {
	tests := []struct {
		w, h       float64
		maxW, maxH int
		want       float64
	}{
		{595, 842, 842, 842, 1},
		{100, 100, 1000, 1000, 2},
		{200, 100, 100, 1000, 0.5},
		{100, 200, 1000, 100, 0.5},
		{100, 100, 0, 50, 0.5},
		{100, 100, 0, 0, 2},
	}
	for _, tt := range tests {
		got := pdfjoiner.FitZoom(tt.w, tt.h, tt.maxW, tt.maxH, 2)
		assert.InDelta(t, tt.want, got, 1e-9, "%gx%g into %dx%d", tt.w, tt.h, tt.maxW, tt.maxH)
	}
}

func TestProbeHelpers(t *testing.T) {
	j := pdfjoiner.New(pdfjoiner.WithBackend(newFake()))

	assert.Equal(t, 3, j.PageCount("/in/three.pdf"))
	assert.Equal(t, 1, j.PageCount("/in/photo.jpg"))
	assert.Equal(t, 1, j.PageCount("/in/missing.pdf"))
	assert.True(t, j.CanOpen("/in/two.pdf"))
	assert.False(t, j.CanOpen("/in/bad.pdf"))

	thumb, err := j.RenderThumbnail("/in/photo.jpg", 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), thumb.Bounds())

	_, err = j.RenderPreview("/in/two.pdf", 5, 100, 100)
	assert.ErrorIs(t, err, backend.ErrPageRange)
}

type noRaster struct{ backend.Backend }

func TestNoRasterizer(t *testing.T) {
	j := pdfjoiner.New(pdfjoiner.WithBackend(noRaster{newFake()}))
	_, err := j.Preview(included("/in/two.pdf"), nil, 10, 10)
	assert.ErrorIs(t, err, pdfjoiner.ErrNoRasterizer)
	_, err = j.RenderThumbnail("/in/two.pdf", 10)
	assert.ErrorIs(t, err, pdfjoiner.ErrNoRasterizer)
}
