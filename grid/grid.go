// Package grid implements the analytic infinite ground grid: a procedural
// plane at world Y=0 rendered from two full-screen triangles, with
// antialiased lines derived from screen-space derivatives and depth
// reconstructed so the plane composites against real geometry.
//
// The package is the reference evaluation of the technique. The GPU runs the
// same math in the grid shader; here the screen-space derivative is an
// explicit input where the shader would use fwidth.
package grid

import (
	"github.com/chewxy/math32"

	"honnef.co/go/horizon/hmath"
)

type Params struct {
	// LinesPerUnit holds the spatial frequencies of the line pattern. Lines
	// lie at integer multiples of 1/LinesPerUnit[i] along world X and Z. At
	// least one frequency is required.
	LinesPerUnit []float32
	LineColor    hmath.Vec4
	// XAxisColor overrides LineColor within one derivative width of world
	// Z=0, ZAxisColor within one derivative width of world X=0.
	XAxisColor hmath.Vec4
	ZAxisColor hmath.Vec4
	Near, Far  float32
}

func DefaultParams() Params {
	return Params{
		LinesPerUnit: []float32{1, 0.1},
		LineColor:    hmath.V4(0.3, 0.3, 0.3, 1),
		XAxisColor:   hmath.V4(0.8, 0.2, 0.2, 1),
		ZAxisColor:   hmath.V4(0.2, 0.3, 0.8, 1),
		Near:         0.1,
		Far:          100,
	}
}

// Fragment is one shaded point on the plane.
type Fragment struct {
	// Pos is the world-space intersection with the Y=0 plane.
	Pos hmath.Vec3
	// Color is the straight-alpha output color. Alpha 0 means the fragment
	// is discarded.
	Color hmath.Vec4
	// Depth is the reconstructed clip-space depth of Pos in [0, 1].
	Depth float32
}

// RayPlaneT returns the parametric intersection of the ray through the
// unprojected near and far points with the world Y=0 plane. ok is false when
// the ray is parallel to the plane.
func RayPlaneT(near, far hmath.Vec3) (float32, bool) {
	dy := far.Y - near.Y
	if math32.Abs(dy) < hmath.Epsilon {
		return 0, false
	}
	return -near.Y / dy, true
}

// Rays unprojects a point in normalized device coordinates to the world-space
// near and far points of its view ray. This is the vertex-stage half of the
// technique; the two values are interpolated across the full-screen triangles.
func Rays(invViewProj hmath.Mat4, ndc hmath.Vec2) (near, far hmath.Vec3) {
	near = hmath.Unproject(invViewProj, hmath.V3(ndc.X, ndc.Y, 0))
	far = hmath.Unproject(invViewProj, hmath.V3(ndc.X, ndc.Y, 1))
	return near, far
}

// LineCoverage returns the antialiased coverage of the line pattern at world
// position (x, z) for one spatial frequency. deriv is the screen-space
// derivative magnitude of the world position per axis (the fwidth input on
// the GPU). Coverage is 1 on line centers and falls off symmetrically over
// one derivative width.
func LineCoverage(x, z float32, deriv hmath.Vec2, linesPerUnit float32) float32 {
	dx := deriv.X * linesPerUnit
	dz := deriv.Y * linesPerUnit
	if dx < hmath.Epsilon {
		dx = hmath.Epsilon
	}
	if dz < hmath.Epsilon {
		dz = hmath.Epsilon
	}
	// Distance to the nearest integer multiple of the spacing, in units of
	// the derivative.
	gx := distToLine(x*linesPerUnit) / dx
	gz := distToLine(z*linesPerUnit) / dz
	line := math32.Min(gx, gz)
	return 1 - math32.Min(line, 1)
}

// distToLine is the distance from coord to the nearest integer.
func distToLine(coord float32) float32 {
	f := coord - math32.Floor(coord)
	return 0.5 - math32.Abs(f-0.5)
}

// Shade evaluates the fragment stage of the grid for the interpolated
// world-space near and far points of a view ray. deriv is the per-axis
// screen-space derivative of the intersected world position; viewProj
// reconstructs depth. ok is false when the ray misses the plane (t <= 0), in
// which case the fragment is discarded.
func (p *Params) Shade(near, far hmath.Vec3, deriv hmath.Vec2, viewProj hmath.Mat4) (Fragment, bool) {
	t, hit := RayPlaneT(near, far)
	if !hit || t <= 0 {
		return Fragment{}, false
	}
	pos := near.Lerp(far, t)

	var coverage float32
	for _, freq := range p.LinesPerUnit {
		coverage = math32.Max(coverage, LineCoverage(pos.X, pos.Z, deriv, freq))
	}

	color := p.LineColor
	// Principal axes override the line color within one derivative width.
	if math32.Abs(pos.X) < deriv.X {
		color = p.ZAxisColor
	} else if math32.Abs(pos.Z) < deriv.Y {
		color = p.XAxisColor
	}

	clip := viewProj.MulVec4(hmath.V4(pos.X, pos.Y, pos.Z, 1))
	if clip.W <= 0 {
		return Fragment{}, false
	}
	depth := clip.Z / clip.W

	// clip.W is the view-space distance along the camera forward axis; fade
	// the grid out toward the far plane.
	fade := hmath.Clamp(1-clip.W/p.Far, 0, 1)

	alpha := color.W * coverage * fade
	if alpha <= 0 {
		return Fragment{}, false
	}
	return Fragment{
		Pos:   pos,
		Color: hmath.V4(color.X, color.Y, color.Z, alpha),
		Depth: depth,
	}, true
}
