// Package hmath provides the float32 linear algebra used by the renderer.
// Matrices are column-major, matching WGSL's mat4x4<f32> memory layout.
package hmath

import (
	"structs"

	"github.com/chewxy/math32"
)

const Epsilon = 1e-6

type Vec2 struct {
	_ structs.HostLayout

	X, Y float32
}

type Vec3 struct {
	_ structs.HostLayout

	X, Y, Z float32
}

type Vec4 struct {
	_ structs.HostLayout

	X, Y, Z, W float32
}

func V2(x, y float32) Vec2    { return Vec2{X: x, Y: y} }
func V3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func V4(x, y, z, w float32) Vec4 { return Vec4{X: x, Y: y, Z: z, W: w} }

func (v Vec3) Add(o Vec3) Vec3     { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3     { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }
func (v Vec3) Scale(s float32) Vec3 { return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s} }
func (v Vec3) Neg() Vec3           { return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z} }

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float32 {
	return math32.Sqrt(v.Dot(v))
}

func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < Epsilon {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

func (v Vec4) XYZ() Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// PerspectiveDivide maps a clip-space point to normalized device coordinates.
// It panics on w == 0; callers guard against degenerate projections.
func (v Vec4) PerspectiveDivide() Vec3 {
	if v.W == 0 {
		panic("perspective divide by w == 0")
	}
	inv := 1 / v.W
	return Vec3{X: v.X * inv, Y: v.Y * inv, Z: v.Z * inv}
}

// Mat4 is a 4x4 matrix stored column-major: element (row i, column j) is at
// index j*4+i.
type Mat4 struct {
	_ structs.HostLayout

	Cols [16]float32
}

func Identity() Mat4 {
	return Mat4{Cols: [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

func (m Mat4) At(i, j int) float32 { return m.Cols[j*4+i] }

func (m *Mat4) Set(i, j int, v float32) { m.Cols[j*4+i] = v }

func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.Cols[k*4+i] * o.Cols[j*4+k]
			}
			out.Cols[j*4+i] = sum
		}
	}
	return out
}

func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		X: m.Cols[0]*v.X + m.Cols[4]*v.Y + m.Cols[8]*v.Z + m.Cols[12]*v.W,
		Y: m.Cols[1]*v.X + m.Cols[5]*v.Y + m.Cols[9]*v.Z + m.Cols[13]*v.W,
		Z: m.Cols[2]*v.X + m.Cols[6]*v.Y + m.Cols[10]*v.Z + m.Cols[14]*v.W,
		W: m.Cols[3]*v.X + m.Cols[7]*v.Y + m.Cols[11]*v.Z + m.Cols[15]*v.W,
	}
}

func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			out.Cols[j*4+i] = m.Cols[i*4+j]
		}
	}
	return out
}

// Inverse computes the general inverse via cofactor expansion. ok is false if
// the matrix is singular, in which case the result is the zero matrix.
func (m Mat4) Inverse() (Mat4, bool) {
	a := &m.Cols
	var inv [16]float32

	inv[0] = a[5]*a[10]*a[15] - a[5]*a[11]*a[14] - a[9]*a[6]*a[15] +
		a[9]*a[7]*a[14] + a[13]*a[6]*a[11] - a[13]*a[7]*a[10]
	inv[4] = -a[4]*a[10]*a[15] + a[4]*a[11]*a[14] + a[8]*a[6]*a[15] -
		a[8]*a[7]*a[14] - a[12]*a[6]*a[11] + a[12]*a[7]*a[10]
	inv[8] = a[4]*a[9]*a[15] - a[4]*a[11]*a[13] - a[8]*a[5]*a[15] +
		a[8]*a[7]*a[13] + a[12]*a[5]*a[11] - a[12]*a[7]*a[9]
	inv[12] = -a[4]*a[9]*a[14] + a[4]*a[10]*a[13] + a[8]*a[5]*a[14] -
		a[8]*a[6]*a[13] - a[12]*a[5]*a[10] + a[12]*a[6]*a[9]
	inv[1] = -a[1]*a[10]*a[15] + a[1]*a[11]*a[14] + a[9]*a[2]*a[15] -
		a[9]*a[3]*a[14] - a[13]*a[2]*a[11] + a[13]*a[3]*a[10]
	inv[5] = a[0]*a[10]*a[15] - a[0]*a[11]*a[14] - a[8]*a[2]*a[15] +
		a[8]*a[3]*a[14] + a[12]*a[2]*a[11] - a[12]*a[3]*a[10]
	inv[9] = -a[0]*a[9]*a[15] + a[0]*a[11]*a[13] + a[8]*a[1]*a[15] -
		a[8]*a[3]*a[13] - a[12]*a[1]*a[11] + a[12]*a[3]*a[9]
	inv[13] = a[0]*a[9]*a[14] - a[0]*a[10]*a[13] - a[8]*a[1]*a[14] +
		a[8]*a[2]*a[13] + a[12]*a[1]*a[10] - a[12]*a[2]*a[9]
	inv[2] = a[1]*a[6]*a[15] - a[1]*a[7]*a[14] - a[5]*a[2]*a[15] +
		a[5]*a[3]*a[14] + a[13]*a[2]*a[7] - a[13]*a[3]*a[6]
	inv[6] = -a[0]*a[6]*a[15] + a[0]*a[7]*a[14] + a[4]*a[2]*a[15] -
		a[4]*a[3]*a[14] - a[12]*a[2]*a[7] + a[12]*a[3]*a[6]
	inv[10] = a[0]*a[5]*a[15] - a[0]*a[7]*a[13] - a[4]*a[1]*a[15] +
		a[4]*a[3]*a[13] + a[12]*a[1]*a[7] - a[12]*a[3]*a[5]
	inv[14] = -a[0]*a[5]*a[14] + a[0]*a[6]*a[13] + a[4]*a[1]*a[14] -
		a[4]*a[2]*a[13] - a[12]*a[1]*a[6] + a[12]*a[2]*a[5]
	inv[3] = -a[1]*a[6]*a[11] + a[1]*a[7]*a[10] + a[5]*a[2]*a[11] -
		a[5]*a[3]*a[10] - a[9]*a[2]*a[7] + a[9]*a[3]*a[6]
	inv[7] = a[0]*a[6]*a[11] - a[0]*a[7]*a[10] - a[4]*a[2]*a[11] +
		a[4]*a[3]*a[10] + a[8]*a[2]*a[7] - a[8]*a[3]*a[6]
	inv[11] = -a[0]*a[5]*a[11] + a[0]*a[7]*a[9] + a[4]*a[1]*a[11] -
		a[4]*a[3]*a[9] - a[8]*a[1]*a[7] + a[8]*a[3]*a[5]
	inv[15] = a[0]*a[5]*a[10] - a[0]*a[6]*a[9] - a[4]*a[1]*a[10] +
		a[4]*a[2]*a[9] + a[8]*a[1]*a[6] - a[8]*a[2]*a[5]

	det := a[0]*inv[0] + a[1]*inv[4] + a[2]*inv[8] + a[3]*inv[12]
	if math32.Abs(det) < Epsilon {
		return Mat4{}, false
	}
	det = 1 / det
	var out Mat4
	for i := range inv {
		out.Cols[i] = inv[i] * det
	}
	return out, true
}

func Translation(v Vec3) Mat4 {
	out := Identity()
	out.Cols[12] = v.X
	out.Cols[13] = v.Y
	out.Cols[14] = v.Z
	return out
}

func Scaling(v Vec3) Mat4 {
	var out Mat4
	out.Cols[0] = v.X
	out.Cols[5] = v.Y
	out.Cols[10] = v.Z
	out.Cols[15] = 1
	return out
}

func RotationX(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	out := Identity()
	out.Cols[5] = c
	out.Cols[6] = s
	out.Cols[9] = -s
	out.Cols[10] = c
	return out
}

func RotationY(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	out := Identity()
	out.Cols[0] = c
	out.Cols[2] = -s
	out.Cols[8] = s
	out.Cols[10] = c
	return out
}

// Perspective returns a right-handed perspective projection with a [0, 1]
// depth range and the Y axis flipped for the render target's top-left origin.
func Perspective(fovy, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovy/2)
	var out Mat4
	out.Cols[0] = f / aspect
	out.Cols[5] = -f
	out.Cols[10] = far / (near - far)
	out.Cols[11] = -1
	out.Cols[14] = near * far / (near - far)
	return out
}

// LookTo returns a right-handed view matrix for a camera at eye looking along
// dir, which need not be normalized.
func LookTo(eye, dir, up Vec3) Mat4 {
	f := dir.Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Mat4{Cols: [16]float32{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}}
}

func LookAt(eye, center, up Vec3) Mat4 {
	return LookTo(eye, center.Sub(eye), up)
}

// Unproject maps a point in normalized device coordinates back to world space
// through the inverse view-projection matrix inv.
func Unproject(inv Mat4, ndc Vec3) Vec3 {
	return inv.MulVec4(Vec4{X: ndc.X, Y: ndc.Y, Z: ndc.Z, W: 1}).PerspectiveDivide()
}

func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func AlignUp(len int, alignment int) int {
	return (len + alignment - 1) & -alignment
}
