// Package scene holds the CPU-side description of what a frame renders:
// camera, lighting, materials, meshes and the objects composed from them.
package scene

import (
	"structs"

	"honnef.co/go/horizon/hmath"
)

// Data is the per-frame lighting state uploaded alongside the camera.
type Data struct {
	// FogColor's alpha channel is the fog exponent.
	FogColor hmath.Vec4
	// AmbientColor's alpha channel is the ambient strength.
	AmbientColor hmath.Vec4
	// SunlightDirection points from the light toward the scene; W is the
	// light strength.
	SunlightDirection hmath.Vec4
	SunlightColor     hmath.Vec4
}

func DefaultData() Data {
	return Data{
		FogColor:          hmath.V4(0.05, 0.05, 0.07, 0.02),
		AmbientColor:      hmath.V4(1, 1, 1, 0.1),
		SunlightDirection: hmath.V4(-0.3, -1, -0.2, 1),
		SunlightColor:     hmath.V4(1, 0.96, 0.88, 1),
	}
}

type PipelineKind int

const (
	// PipelineLit shades vertex colors with ambient, sun and fog.
	PipelineLit PipelineKind = iota + 1
	// PipelineTextured samples an albedo texture instead of vertex color.
	PipelineTextured
	// PipelineGrid is the full-screen infinite ground grid.
	PipelineGrid
	// PipelineOverlay is the 2D UI pass drawn after the 3D scene.
	PipelineOverlay
)

type Material struct {
	Name     string
	Pipeline PipelineKind
	// BaseColorFactor multiplies the vertex or texture color.
	BaseColorFactor hmath.Vec4
	MetalFactor     float32
	RoughFactor     float32
	// Texture is the albedo image for PipelineTextured, tightly packed RGBA.
	Texture       []byte
	TextureWidth  uint32
	TextureHeight uint32
}

// Vertex matches the vertex input layout of the mesh shaders: position,
// normal, color and texture coordinate at shader locations 0-3.
type Vertex struct {
	_ structs.HostLayout

	Position hmath.Vec3
	Normal   hmath.Vec3
	Color    hmath.Vec4
	UV       hmath.Vec2
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

type RenderObject struct {
	Mesh     *Mesh
	Material *Material
	// Model transforms the mesh into world space.
	Model hmath.Mat4
	// Data is the per-draw vec4 passed through to the shader.
	Data hmath.Vec4
}

// Scene is everything RenderFrame needs to encode one frame.
type Scene struct {
	Camera  Camera
	Data    Data
	Objects []RenderObject
	// Grid enables the ground grid pass.
	Grid *GridSettings
}

type GridSettings struct {
	LinesPerUnit []float32
	LineColor    hmath.Vec4
	XAxisColor   hmath.Vec4
	ZAxisColor   hmath.Vec4
}

// Quad returns a unit quad in the XZ plane centered on the origin, facing +Y.
func Quad() *Mesh {
	return &Mesh{
		Vertices: []Vertex{
			{Position: hmath.V3(-0.5, 0, -0.5), Normal: hmath.V3(0, 1, 0), UV: hmath.V2(0, 0), Color: hmath.V4(1, 1, 1, 1)},
			{Position: hmath.V3(0.5, 0, -0.5), Normal: hmath.V3(0, 1, 0), UV: hmath.V2(1, 0), Color: hmath.V4(1, 1, 1, 1)},
			{Position: hmath.V3(0.5, 0, 0.5), Normal: hmath.V3(0, 1, 0), UV: hmath.V2(1, 1), Color: hmath.V4(1, 1, 1, 1)},
			{Position: hmath.V3(-0.5, 0, 0.5), Normal: hmath.V3(0, 1, 0), UV: hmath.V2(0, 1), Color: hmath.V4(1, 1, 1, 1)},
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	}
}

// Cube returns a unit cube centered on the origin with per-face normals.
func Cube() *Mesh {
	faces := []struct {
		normal hmath.Vec3
		right  hmath.Vec3
		up     hmath.Vec3
	}{
		{hmath.V3(0, 0, 1), hmath.V3(1, 0, 0), hmath.V3(0, 1, 0)},
		{hmath.V3(0, 0, -1), hmath.V3(-1, 0, 0), hmath.V3(0, 1, 0)},
		{hmath.V3(1, 0, 0), hmath.V3(0, 0, -1), hmath.V3(0, 1, 0)},
		{hmath.V3(-1, 0, 0), hmath.V3(0, 0, 1), hmath.V3(0, 1, 0)},
		{hmath.V3(0, 1, 0), hmath.V3(1, 0, 0), hmath.V3(0, 0, -1)},
		{hmath.V3(0, -1, 0), hmath.V3(1, 0, 0), hmath.V3(0, 0, 1)},
	}
	mesh := &Mesh{}
	for _, f := range faces {
		base := uint32(len(mesh.Vertices))
		center := f.normal.Scale(0.5)
		for _, uv := range [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
			off := f.right.Scale(uv[0] - 0.5).Add(f.up.Scale(uv[1] - 0.5))
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: center.Add(off),
				Normal:   f.normal,
				UV:       hmath.V2(uv[0], uv[1]),
				Color:    hmath.V4(1, 1, 1, 1),
			})
		}
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return mesh
}
