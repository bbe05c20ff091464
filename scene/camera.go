package scene

import (
	"github.com/chewxy/math32"

	"honnef.co/go/horizon/hmath"
)

const defaultFovDeg = 45

// Camera is a perspective camera with an orthonormal basis. The zero value is
// not useful; use NewCamera.
type Camera struct {
	Position hmath.Vec3
	Forward  hmath.Vec3
	Up       hmath.Vec3
	Right    hmath.Vec3
	WorldUp  hmath.Vec3
	// FovDeg is the vertical field of view in degrees.
	FovDeg float32
	Near   float32
	Far    float32
}

func NewCamera() Camera {
	return Camera{
		Forward: hmath.V3(0, 0, -1),
		Up:      hmath.V3(0, 1, 0),
		Right:   hmath.V3(1, 0, 0),
		WorldUp: hmath.V3(0, 1, 0),
		FovDeg:  defaultFovDeg,
		Near:    0.1,
		Far:     100,
	}
}

// LookTo orients the camera along direction, rebuilding the basis from the
// world up vector. A zero direction leaves the camera unchanged.
func (c *Camera) LookTo(direction hmath.Vec3) {
	if direction.Length() < hmath.Epsilon {
		return
	}
	c.Forward = direction.Normalize()
	c.Right = c.Forward.Cross(c.WorldUp).Normalize()
	c.Up = c.Right.Cross(c.Forward)
}

func (c *Camera) LookAt(target hmath.Vec3) {
	c.LookTo(target.Sub(c.Position))
}

func (c *Camera) View() hmath.Mat4 {
	return hmath.LookTo(c.Position, c.Forward, c.Up)
}

func (c *Camera) Projection(width, height float32) hmath.Mat4 {
	return hmath.Perspective(c.FovDeg*math32.Pi/180, width/height, c.Near, c.Far)
}

func (c *Camera) ViewProjection(width, height float32) hmath.Mat4 {
	return c.Projection(width, height).Mul(c.View())
}

// Arcball orbits a camera around a pivot point.
type Arcball struct {
	Camera Camera
	Pivot  hmath.Vec3
}

func NewArcball() Arcball {
	cam := NewCamera()
	cam.Position = hmath.V3(0, 2, 5)
	ab := Arcball{Camera: cam}
	ab.Camera.LookAt(ab.Pivot)
	return ab
}

// Rotate orbits the camera around the pivot by yaw (about world up) and pitch
// (about the camera's right axis), in radians.
func (ab *Arcball) Rotate(yaw, pitch float32) {
	offset := ab.Camera.Position.Sub(ab.Pivot)

	rot := hmath.RotationY(yaw)
	offset = rot.MulVec4(hmath.V4(offset.X, offset.Y, offset.Z, 0)).XYZ()

	// Clamp pitch so the camera cannot flip over the pivot.
	dir := offset.Neg().Normalize()
	cur := math32.Asin(hmath.Clamp(-dir.Y, -1, 1))
	pitch = hmath.Clamp(pitch, -maxPitch-cur, maxPitch-cur)

	right := dir.Cross(ab.Camera.WorldUp).Normalize()
	offset = rotateAbout(offset, right, pitch)

	ab.Camera.Position = ab.Pivot.Add(offset)
	ab.Camera.LookAt(ab.Pivot)
}

const maxPitch = math32.Pi/2 - 0.01

// Zoom moves the camera along its forward axis, keeping at least minDistance
// to the pivot.
func (ab *Arcball) Zoom(delta float32) {
	const minDistance = 0.1
	offset := ab.Camera.Position.Sub(ab.Pivot)
	dist := offset.Length() - delta
	if dist < minDistance {
		dist = minDistance
	}
	ab.Camera.Position = ab.Pivot.Add(offset.Normalize().Scale(dist))
}

// Pan translates both camera and pivot in the camera's screen plane.
func (ab *Arcball) Pan(dx, dy float32) {
	move := ab.Camera.Right.Scale(-dx).Add(ab.Camera.Up.Scale(dy))
	ab.Camera.Position = ab.Camera.Position.Add(move)
	ab.Pivot = ab.Pivot.Add(move)
}

// rotateAbout rotates v around the normalized axis by angle (Rodrigues).
func rotateAbout(v, axis hmath.Vec3, angle float32) hmath.Vec3 {
	s, c := math32.Sincos(angle)
	return v.Scale(c).
		Add(axis.Cross(v).Scale(s)).
		Add(axis.Scale(axis.Dot(v) * (1 - c)))
}
