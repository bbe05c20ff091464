package grid

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"honnef.co/go/horizon/hmath"
)

// testCamera is a camera a little above the plane, looking down at the
// origin.
func testCamera(t *testing.T) (viewProj, invViewProj hmath.Mat4) {
	t.Helper()
	view := hmath.LookAt(hmath.V3(0, 2, 5), hmath.V3(0, 0, 0), hmath.V3(0, 1, 0))
	proj := hmath.Perspective(math32.Pi/4, 16.0/9.0, 0.1, 100)
	viewProj = proj.Mul(view)
	inv, ok := viewProj.Inverse()
	require.True(t, ok)
	return viewProj, inv
}

func TestRayPlaneT(t *testing.T) {
	t.Run("parallel ray misses", func(t *testing.T) {
		_, ok := RayPlaneT(hmath.V3(0, 1, 0), hmath.V3(10, 1, 10))
		assert.False(t, ok)
	})

	t.Run("descending ray hits", func(t *testing.T) {
		got, ok := RayPlaneT(hmath.V3(0, 2, 0), hmath.V3(0, -2, -8))
		require.True(t, ok)
		assert.InDelta(t, 0.5, got, 1e-6)
	})

	t.Run("plane behind the ray", func(t *testing.T) {
		got, ok := RayPlaneT(hmath.V3(0, 2, 0), hmath.V3(0, 6, -8))
		require.True(t, ok)
		assert.LessOrEqual(t, got, float32(0))
	})
}

func TestShadeIntersectionLiesOnPlane(t *testing.T) {
	viewProj, inv := testCamera(t)
	params := DefaultParams()

	// Half the line spacing, so the pattern has coverage everywhere.
	deriv := hmath.V2(0.5, 0.5)
	for _, ndc := range []hmath.Vec2{
		hmath.V2(0, 0),
		hmath.V2(-0.5, -0.25),
		hmath.V2(0.75, -0.5),
	} {
		near, far := Rays(inv, ndc)
		frag, ok := params.Shade(near, far, deriv, viewProj)
		require.True(t, ok, "ray through %v should hit the plane", ndc)
		assert.InDelta(t, 0, frag.Pos.Y, 1e-3)
	}
}

func TestShadeDiscardsSky(t *testing.T) {
	viewProj, inv := testCamera(t)
	params := DefaultParams()

	// The top of the screen looks above the horizon.
	near, far := Rays(inv, hmath.V2(0, -0.95))
	_, ok := params.Shade(near, far, hmath.V2(0.01, 0.01), viewProj)
	assert.False(t, ok)
}

func TestLineCoverage(t *testing.T) {
	deriv := hmath.V2(0.05, 0.05)

	t.Run("maximal on line centers", func(t *testing.T) {
		for _, x := range []float32{-2, -1, 0, 1, 7} {
			assert.InDelta(t, 1, LineCoverage(x, 0.5, deriv, 1), 1e-6, "x=%v", x)
		}
	})

	t.Run("zero between lines", func(t *testing.T) {
		assert.Zero(t, LineCoverage(0.5, 0.5, deriv, 1))
	})

	t.Run("symmetric falloff", func(t *testing.T) {
		left := LineCoverage(-0.02, 0.5, deriv, 1)
		right := LineCoverage(0.02, 0.5, deriv, 1)
		assert.InDelta(t, left, right, 1e-6)
		assert.Greater(t, left, float32(0))
		assert.Less(t, left, float32(1))
	})

	t.Run("frequency scales spacing", func(t *testing.T) {
		// At 10 lines per unit, multiples of 0.1 are line centers.
		assert.InDelta(t, 1, LineCoverage(0.3, 0.55, hmath.V2(0.001, 0.001), 10), 1e-4)
	})
}

func TestShadeAxisColors(t *testing.T) {
	viewProj, inv := testCamera(t)
	params := DefaultParams()
	deriv := hmath.V2(0.01, 0.01)

	// The center column of the screen looks along the Z axis (world X=0).
	near, far := Rays(inv, hmath.V2(0, 0.5))
	frag, ok := params.Shade(near, far, deriv, viewProj)
	require.True(t, ok)
	require.InDelta(t, 0, frag.Pos.X, 1e-3)
	assert.Equal(t, params.ZAxisColor.X, frag.Color.X)
	assert.Equal(t, params.ZAxisColor.Y, frag.Color.Y)
	assert.Equal(t, params.ZAxisColor.Z, frag.Color.Z)
}

func TestShadeXAxisColor(t *testing.T) {
	viewProj, _ := testCamera(t)
	params := DefaultParams()

	// A fragment on the X axis: world Z near zero, X clearly off axis.
	near := hmath.V3(3, 1, 0.0001)
	far := hmath.V3(3, -1, -0.0001)
	frag, ok := params.Shade(near, far, hmath.V2(0.01, 0.01), viewProj)
	require.True(t, ok)
	require.Less(t, math32.Abs(frag.Pos.Z), float32(0.01))
	require.Greater(t, math32.Abs(frag.Pos.X), float32(0.01))
	assert.Equal(t, params.XAxisColor.X, frag.Color.X)
}

func TestShadeDepthMatchesProjection(t *testing.T) {
	viewProj, inv := testCamera(t)
	params := DefaultParams()

	near, far := Rays(inv, hmath.V2(0.25, 0.5))
	frag, ok := params.Shade(near, far, hmath.V2(0.5, 0.5), viewProj)
	require.True(t, ok)

	clip := viewProj.MulVec4(hmath.V4(frag.Pos.X, frag.Pos.Y, frag.Pos.Z, 1))
	assert.InDelta(t, clip.Z/clip.W, frag.Depth, 1e-6)
	assert.GreaterOrEqual(t, frag.Depth, float32(0))
	assert.LessOrEqual(t, frag.Depth, float32(1))
}

func TestShadeFadesWithDistance(t *testing.T) {
	viewProj, inv := testCamera(t)
	params := DefaultParams()
	deriv := hmath.V2(0.01, 0.01)

	// Rays closer to the horizon intersect the plane farther away.
	alpha := func(ndcY float32) float32 {
		near, far := Rays(inv, hmath.V2(0, ndcY))
		frag, ok := params.Shade(near, far, deriv, viewProj)
		require.True(t, ok, "ndc y %v", ndcY)
		return frag.Color.W
	}

	nearAlpha := alpha(0.8)
	midAlpha := alpha(0.4)
	assert.Greater(t, nearAlpha, midAlpha)
}

func TestShadeDiscardsBeyondFar(t *testing.T) {
	viewProj, _ := testCamera(t)
	params := DefaultParams()
	params.Far = 10

	// An intersection well beyond the far plane fades to nothing.
	near := hmath.V3(0, 1, -30)
	far := hmath.V3(0, -1, -31)
	_, ok := params.Shade(near, far, hmath.V2(0.01, 0.01), viewProj)
	assert.False(t, ok)
}

func TestShadeDiscardsBehindCamera(t *testing.T) {
	viewProj, _ := testCamera(t)
	params := DefaultParams()

	// The intersection point sits behind the camera plane.
	near := hmath.V3(0, 1, 20)
	far := hmath.V3(0, -1, 21)
	_, ok := params.Shade(near, far, hmath.V2(0.01, 0.01), viewProj)
	assert.False(t, ok)
}
