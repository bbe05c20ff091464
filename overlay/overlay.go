// Package overlay builds the vertex stream for the 2D UI pass drawn over the
// 3D scene. Geometry is specified in pixels with a top-left origin; the
// overlay shader maps it to clip space and blends it premultiplied over the
// frame, without depth testing.
//
// Colors are premultiplied linear RGBA; use gfx.Premul32 to convert color
// values carrying a color space.
package overlay

import (
	"iter"
	"structs"

	"github.com/chewxy/math32"
	"honnef.co/go/curve"

	"honnef.co/go/horizon/hmath"
)

// Vertex matches the overlay shader's vertex input: pixel position at
// location 0, premultiplied color at location 1.
type Vertex struct {
	_ structs.HostLayout

	Position hmath.Vec2
	Color    [4]float32
}

// List is a per-frame draw list. The zero value is ready to use; Reset
// reuses the backing storage for the next frame.
type List struct {
	vertices []Vertex
	indices  []uint32
}

func (l *List) Reset() {
	l.vertices = l.vertices[:0]
	l.indices = l.indices[:0]
}

func (l *List) Empty() bool { return len(l.indices) == 0 }

func (l *List) Vertices() []Vertex { return l.vertices }
func (l *List) Indices() []uint32  { return l.indices }

func (l *List) quad(p0, p1, p2, p3 hmath.Vec2, c [4]float32) {
	base := uint32(len(l.vertices))
	l.vertices = append(l.vertices,
		Vertex{Position: p0, Color: c},
		Vertex{Position: p1, Color: c},
		Vertex{Position: p2, Color: c},
		Vertex{Position: p3, Color: c},
	)
	l.indices = append(l.indices,
		base, base+1, base+2,
		base, base+2, base+3,
	)
}

// Rect fills the axis-aligned rectangle from min to max.
func (l *List) Rect(min, max hmath.Vec2, c [4]float32) {
	l.quad(
		min,
		hmath.V2(max.X, min.Y),
		max,
		hmath.V2(min.X, max.Y),
		c,
	)
}

// Line draws a line segment of the given width.
func (l *List) Line(a, b hmath.Vec2, width float32, c [4]float32) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math32.Hypot(dx, dy)
	if length < hmath.Epsilon {
		return
	}
	// Perpendicular offset of half the width.
	nx := -dy / length * width / 2
	ny := dx / length * width / 2
	l.quad(
		hmath.V2(a.X+nx, a.Y+ny),
		hmath.V2(b.X+nx, b.Y+ny),
		hmath.V2(b.X-nx, b.Y-ny),
		hmath.V2(a.X-nx, a.Y-ny),
		c,
	)
}

// RectOutline strokes the rectangle's border with the given line width.
func (l *List) RectOutline(min, max hmath.Vec2, width float32, c [4]float32) {
	l.Line(min, hmath.V2(max.X, min.Y), width, c)
	l.Line(hmath.V2(max.X, min.Y), max, width, c)
	l.Line(max, hmath.V2(min.X, max.Y), width, c)
	l.Line(hmath.V2(min.X, max.Y), min, width, c)
}

// Flattening tolerance in pixels.
const tolerance = 0.25

// StrokePath strokes a Bézier path. The stroke outline is computed by
// honnef.co/go/curve and filled like any other closed path.
func (l *List) StrokePath(path iter.Seq[curve.PathElement], width float32, c [4]float32) {
	stroked := curve.StrokePath(
		path,
		curve.Stroke{
			Width:      float64(width),
			StartCap:   curve.RoundCap,
			EndCap:     curve.RoundCap,
			Join:       curve.RoundJoin,
			MiterLimit: 4,
		},
		curve.StrokeOpts{},
		tolerance,
	)
	l.FillPath(stroked, c)
}

// FillPath fills a closed path with a triangle fan per subpath. Only convex
// subpaths fill correctly; the overlay's shapes all are.
func (l *List) FillPath(path iter.Seq[curve.PathElement], c [4]float32) {
	var fanBase uint32
	inSubpath := false

	emit := func(p hmath.Vec2) {
		idx := uint32(len(l.vertices))
		if inSubpath && idx >= fanBase+2 {
			l.indices = append(l.indices, fanBase, idx-1, idx)
		}
		l.vertices = append(l.vertices, Vertex{Position: p, Color: c})
	}

	var cur hmath.Vec2
	for el := range path {
		switch el.Kind {
		case curve.MoveToKind:
			fanBase = uint32(len(l.vertices))
			inSubpath = true
			cur = pt(el.P0)
			emit(cur)
		case curve.LineToKind:
			cur = pt(el.P0)
			emit(cur)
		case curve.QuadToKind:
			p1, p2 := pt(el.P0), pt(el.P1)
			for _, p := range flattenQuad(cur, p1, p2) {
				emit(p)
			}
			cur = p2
		case curve.CubicToKind:
			p1, p2, p3 := pt(el.P0), pt(el.P1), pt(el.P2)
			for _, p := range flattenCubic(cur, p1, p2, p3) {
				emit(p)
			}
			cur = p3
		case curve.ClosePathKind:
			inSubpath = false
		}
	}
}

func pt(p curve.Point) hmath.Vec2 {
	return hmath.V2(float32(p.X), float32(p.Y))
}

// flattenQuad subdivides a quadratic Bézier uniformly, sized so the maximum
// deviation stays within the tolerance.
func flattenQuad(p0, p1, p2 hmath.Vec2) []hmath.Vec2 {
	n := segmentsFor(polylineLength(p0, p1, p2))
	out := make([]hmath.Vec2, 0, n)
	for i := 1; i <= n; i++ {
		t := float32(i) / float32(n)
		mt := 1 - t
		out = append(out, hmath.V2(
			mt*mt*p0.X+2*mt*t*p1.X+t*t*p2.X,
			mt*mt*p0.Y+2*mt*t*p1.Y+t*t*p2.Y,
		))
	}
	return out
}

func flattenCubic(p0, p1, p2, p3 hmath.Vec2) []hmath.Vec2 {
	n := segmentsFor(polylineLength(p0, p1, p2, p3))
	out := make([]hmath.Vec2, 0, n)
	for i := 1; i <= n; i++ {
		t := float32(i) / float32(n)
		mt := 1 - t
		a := mt * mt * mt
		b := 3 * mt * mt * t
		cc := 3 * mt * t * t
		d := t * t * t
		out = append(out, hmath.V2(
			a*p0.X+b*p1.X+cc*p2.X+d*p3.X,
			a*p0.Y+b*p1.Y+cc*p2.Y+d*p3.Y,
		))
	}
	return out
}

func polylineLength(pts ...hmath.Vec2) float32 {
	var sum float32
	for i := 1; i < len(pts); i++ {
		sum += math32.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	return sum
}

func segmentsFor(length float32) int {
	n := int(math32.Ceil(math32.Sqrt(length / tolerance)))
	if n < 1 {
		n = 1
	}
	if n > 64 {
		n = 64
	}
	return n
}
