package overlay

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"

	"honnef.co/go/horizon/gfx"
	"honnef.co/go/horizon/hmath"
)

var red = gfx.PremulRGBA(1, 0, 0, 1)

func TestRect(t *testing.T) {
	var l List
	l.Rect(hmath.V2(10, 20), hmath.V2(30, 50), red)

	require.Len(t, l.Vertices(), 4)
	require.Len(t, l.Indices(), 6)
	assert.Equal(t, hmath.V2(10, 20), l.Vertices()[0].Position)
	assert.Equal(t, hmath.V2(30, 50), l.Vertices()[2].Position)
	for _, v := range l.Vertices() {
		assert.Equal(t, red, v.Color)
	}
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, l.Indices())
}

func TestLine(t *testing.T) {
	var l List
	l.Line(hmath.V2(0, 0), hmath.V2(10, 0), 2, red)

	require.Len(t, l.Vertices(), 4)
	// A horizontal line of width 2 expands one pixel up and down.
	ys := make(map[float32]int)
	for _, v := range l.Vertices() {
		ys[v.Position.Y]++
	}
	assert.Equal(t, 2, ys[-1])
	assert.Equal(t, 2, ys[1])
}

func TestLineDegenerate(t *testing.T) {
	var l List
	l.Line(hmath.V2(5, 5), hmath.V2(5, 5), 2, red)
	assert.True(t, l.Empty())
}

func TestRectOutline(t *testing.T) {
	var l List
	l.RectOutline(hmath.V2(0, 0), hmath.V2(10, 10), 1, red)
	assert.Len(t, l.Vertices(), 16)
	assert.Len(t, l.Indices(), 24)
}

func TestReset(t *testing.T) {
	var l List
	l.Rect(hmath.V2(0, 0), hmath.V2(1, 1), red)
	require.False(t, l.Empty())

	l.Reset()
	assert.True(t, l.Empty())
	assert.Empty(t, l.Vertices())

	// Indices restart at zero after a reset.
	l.Rect(hmath.V2(0, 0), hmath.V2(1, 1), red)
	assert.Equal(t, uint32(0), l.Indices()[0])
}

func elements(els ...curve.PathElement) iter.Seq[curve.PathElement] {
	return func(yield func(curve.PathElement) bool) {
		for _, el := range els {
			if !yield(el) {
				return
			}
		}
	}
}

func TestFillPathSquare(t *testing.T) {
	var l List
	l.FillPath(elements(
		curve.PathElement{Kind: curve.MoveToKind, P0: curve.Point{X: 0, Y: 0}},
		curve.PathElement{Kind: curve.LineToKind, P0: curve.Point{X: 10, Y: 0}},
		curve.PathElement{Kind: curve.LineToKind, P0: curve.Point{X: 10, Y: 10}},
		curve.PathElement{Kind: curve.LineToKind, P0: curve.Point{X: 0, Y: 10}},
		curve.PathElement{Kind: curve.ClosePathKind},
	), red)

	// A quad fans into two triangles.
	require.Len(t, l.Vertices(), 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, l.Indices())
}

func TestFillPathCurved(t *testing.T) {
	var l List
	l.FillPath(elements(
		curve.PathElement{Kind: curve.MoveToKind, P0: curve.Point{X: 0, Y: 0}},
		curve.PathElement{Kind: curve.QuadToKind, P0: curve.Point{X: 50, Y: 0}, P1: curve.Point{X: 50, Y: 50}},
		curve.PathElement{Kind: curve.ClosePathKind},
	), red)

	// The quadratic flattens into multiple segments.
	assert.Greater(t, len(l.Vertices()), 3)
	require.NotEmpty(t, l.Indices())
	// All triangles fan out from the subpath start.
	for i := 0; i < len(l.Indices()); i += 3 {
		assert.Equal(t, uint32(0), l.Indices()[i])
	}
}

func TestStrokePathProducesGeometry(t *testing.T) {
	var l List
	l.StrokePath(elements(
		curve.PathElement{Kind: curve.MoveToKind, P0: curve.Point{X: 0, Y: 0}},
		curve.PathElement{Kind: curve.LineToKind, P0: curve.Point{X: 100, Y: 0}},
	), 4, red)

	assert.False(t, l.Empty())
}
