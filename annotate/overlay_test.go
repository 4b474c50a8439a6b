package annotate_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/pdfjoiner/annotate"
	"github.com/lvillar/pdfjoiner/backend"
)

func TestAddDefaults(t *testing.T) {
	var o annotate.Overlay
	a := &annotate.Annotation{Page: 1, XRatio: 1.5, YRatio: -3, Text: "note"}
	require.NoError(t, o.Add(a))

	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 1.0, a.XRatio)
	assert.Equal(t, 0.0, a.YRatio)
	assert.Equal(t, float64(annotate.DefaultFontSize), a.FontSize)

	b := &annotate.Annotation{ID: 10, Text: "b"}
	c := &annotate.Annotation{Text: "c"}
	require.NoError(t, o.Add(b))
	require.NoError(t, o.Add(c))
	assert.Equal(t, 11, c.ID)

	require.NoError(t, o.Add(a), "adding twice is a no-op")
	assert.Equal(t, 3, o.Len())
}

func TestAddInvalid(t *testing.T) {
	var o annotate.Overlay
	assert.ErrorIs(t, o.Add(nil), annotate.ErrInvalid)
	assert.ErrorIs(t, o.Add(&annotate.Annotation{Page: -1}), annotate.ErrInvalid)
	assert.ErrorIs(t, o.Add(&annotate.Annotation{FontSize: -2}), annotate.ErrInvalid)
	assert.Zero(t, o.Len())
}

func TestMoveToClamps(t *testing.T) {
	var o annotate.Overlay
	a := &annotate.Annotation{Text: "x"}
	require.NoError(t, o.Add(a))

	moves := [][2]float64{
		{0.25, 0.75}, {-1, 2}, {1e9, -1e9}, {math.Inf(1), math.Inf(-1)}, {math.NaN(), 0.5},
	}
	for _, m := range moves {
		require.NoError(t, o.MoveTo(a, m[0], m[1]))
		assert.True(t, a.XRatio >= 0 && a.XRatio <= 1, "x=%v after MoveTo(%v)", a.XRatio, m)
		assert.True(t, a.YRatio >= 0 && a.YRatio <= 1, "y=%v after MoveTo(%v)", a.YRatio, m)
	}
	require.NoError(t, o.MoveTo(a, 0.25, 0.75))
	assert.Equal(t, 0.25, a.XRatio)
	assert.Equal(t, 0.75, a.YRatio)

	assert.ErrorIs(t, o.MoveTo(&annotate.Annotation{}, 0, 0), annotate.ErrNotFound)
}

func TestEditKeepsIdentity(t *testing.T) {
	var o annotate.Overlay
	a := &annotate.Annotation{Text: "old", Page: 2}
	require.NoError(t, o.Add(a))

	red := backend.Color{R: 1}
	require.NoError(t, o.Edit(a, "new", 20, red))
	assert.Same(t, a, o.Get(a.ID))
	assert.Equal(t, "new", a.Text)
	assert.Equal(t, 20.0, a.FontSize)
	assert.Equal(t, red, a.Color)

	assert.ErrorIs(t, o.Edit(a, "x", 0, red), annotate.ErrInvalid)
	assert.ErrorIs(t, o.Edit(&annotate.Annotation{}, "x", 10, red), annotate.ErrNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	a := &annotate.Annotation{Text: "a"}
	b := &annotate.Annotation{Text: "b"}
	o, err := annotate.New(a, b)
	require.NoError(t, err)

	require.NoError(t, o.Remove(a))
	assert.ErrorIs(t, o.Remove(a), annotate.ErrNotFound)
	assert.Nil(t, o.Get(a.ID))
	assert.Equal(t, 1, o.Len())

	o.Clear()
	assert.Zero(t, o.Len())
}

func TestSnapshotIsOwned(t *testing.T) {
	var o annotate.Overlay
	a := &annotate.Annotation{Text: "a", XRatio: 0.1}
	require.NoError(t, o.Add(a))

	snap := o.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Text = "changed"
	snap[0].XRatio = 0.9
	assert.Equal(t, "a", a.Text)
	assert.Equal(t, 0.1, a.XRatio)

	require.NoError(t, o.MoveTo(a, 0.5, 0.5))
	assert.Equal(t, 0.9, snap[0].XRatio, "snapshot must not follow later edits")
}

func TestOnPage(t *testing.T) {
	o, err := annotate.New(
		&annotate.Annotation{Page: 0, Text: "first"},
		&annotate.Annotation{Page: 1, Text: "other page"},
		&annotate.Annotation{Page: 0, Text: "   "},
		&annotate.Annotation{Page: 0, Text: "second"},
	)
	require.NoError(t, err)

	got := o.OnPage(0)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Empty(t, o.OnPage(5))
}

func TestNearestOnPage(t *testing.T) {
	near := &annotate.Annotation{Page: 0, Text: "near", XRatio: 0.5, YRatio: 0.5}
	far := &annotate.Annotation{Page: 0, Text: "far", XRatio: 0.9, YRatio: 0.9}
	other := &annotate.Annotation{Page: 1, Text: "other", XRatio: 0.51, YRatio: 0.5}
	o, err := annotate.New(near, far, other)
	require.NoError(t, err)

	assert.Same(t, near, o.NearestOnPage(0, 0.52, 0.5, 0.05))
	assert.Same(t, other, o.NearestOnPage(1, 0.52, 0.5, 0.05))
	assert.Nil(t, o.NearestOnPage(0, 0.2, 0.2, 0.05))
}

func TestConcurrentEditAndSnapshot(t *testing.T) {
	var o annotate.Overlay
	a := &annotate.Annotation{Text: "drag me"}
	require.NoError(t, o.Add(a))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			r := float64(i) / 1000
			o.MoveTo(a, r, 1-r)
			o.Edit(a, "drag me", 10+r, backend.Black)
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			for _, s := range o.Snapshot() {
				if s.XRatio < 0 || s.XRatio > 1 {
					t.Errorf("ratio out of range: %v", s.XRatio)
				}
			}
			o.OnPage(0)
		}
	}()
	wg.Wait()
	assert.Equal(t, 1, o.Len())
}
