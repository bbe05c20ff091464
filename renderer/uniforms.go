package renderer

import (
	"structs"

	"honnef.co/go/horizon/hmath"
	"honnef.co/go/horizon/scene"
)

// SceneUniform is the combined camera and lighting uniform bound at group 0,
// binding 0 of every pipeline.
//
// This data structure must be kept in sync with the Scene struct in
// shaders/src/shared/scene.wgsl.
type SceneUniform struct {
	_ structs.HostLayout

	View        hmath.Mat4
	Proj        hmath.Mat4
	ViewProj    hmath.Mat4
	InvViewProj hmath.Mat4
	Near        float32
	Far         float32
	Viewport    hmath.Vec2
	FogColor    hmath.Vec4
	Ambient     hmath.Vec4
	SunDir      hmath.Vec4
	SunColor    hmath.Vec4
}

// DrawUniform is the per-draw block bound at group 0, binding 1.
//
// Must be kept in sync with the DrawData struct in shaders/src/shared/draw.wgsl.
type DrawUniform struct {
	_ structs.HostLayout

	Model     hmath.Mat4
	BaseColor hmath.Vec4
	// Material packs the metallic and roughness factors into X and Y.
	Material hmath.Vec4
	// Data is free per-draw data passed through from the render object.
	Data hmath.Vec4
}

// GridUniform replaces DrawUniform for the grid pipeline.
//
// Must be kept in sync with the Grid struct in the grid shader.
type GridUniform struct {
	_ structs.HostLayout

	LineColor hmath.Vec4
	XAxis     hmath.Vec4
	ZAxis     hmath.Vec4
	// Freqs holds up to four line frequencies; unused slots are zero.
	Freqs hmath.Vec4
}

func NewSceneUniform(cam *scene.Camera, data scene.Data, width, height uint32) SceneUniform {
	view := cam.View()
	proj := cam.Projection(float32(width), float32(height))
	viewProj := proj.Mul(view)
	inv, ok := viewProj.Inverse()
	if !ok {
		panic("singular view-projection matrix")
	}
	return SceneUniform{
		View:        view,
		Proj:        proj,
		ViewProj:    viewProj,
		InvViewProj: inv,
		Near:        cam.Near,
		Far:         cam.Far,
		Viewport:    hmath.V2(float32(width), float32(height)),
		FogColor:    data.FogColor,
		Ambient:     data.AmbientColor,
		SunDir:      data.SunlightDirection,
		SunColor:    data.SunlightColor,
	}
}

func NewGridUniform(s *scene.GridSettings) GridUniform {
	out := GridUniform{
		LineColor: s.LineColor,
		XAxis:     s.XAxisColor,
		ZAxis:     s.ZAxisColor,
	}
	freqs := []*float32{&out.Freqs.X, &out.Freqs.Y, &out.Freqs.Z, &out.Freqs.W}
	for i, f := range s.LinesPerUnit {
		if i >= len(freqs) {
			break
		}
		*freqs[i] = f
	}
	return out
}
