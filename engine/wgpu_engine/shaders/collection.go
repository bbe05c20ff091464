package shaders

import _ "embed"

// The files in wgsl/ are generated from src/ by compile-shaders; run go
// generate after editing src/.

//go:generate go run honnef.co/go/horizon/internal/cmd/compile-shaders --in src --out wgsl

//go:embed wgsl/scene_lit.wgsl
var sceneLitWGSL []byte

//go:embed wgsl/scene_textured.wgsl
var sceneTexturedWGSL []byte

//go:embed wgsl/grid.wgsl
var gridWGSL []byte

//go:embed wgsl/overlay.wgsl
var overlayWGSL []byte

var meshVertexAttributes = []VertexAttribute{
	{Format: Float32x3, Offset: 0, ShaderLocation: 0},
	{Format: Float32x3, Offset: 12, ShaderLocation: 1},
	{Format: Float32x4, Offset: 24, ShaderLocation: 2},
	{Format: Float32x2, Offset: 40, ShaderLocation: 3},
}

var Collection = struct {
	SceneLit      RenderShader
	SceneTextured RenderShader
	Grid          RenderShader
	Overlay       RenderShader
}{
	SceneLit: RenderShader{
		Name:             "scene_lit",
		Bindings:         []BindType{Uniform, Uniform},
		VertexStride:     48,
		VertexAttributes: meshVertexAttributes,
		Blend:            BlendOpaque,
		Depth:            DepthReadWrite,
		CullBack:         true,
		WGSL:             WGSLSource{Code: sceneLitWGSL},
	},
	SceneTextured: RenderShader{
		Name:             "scene_textured",
		Bindings:         []BindType{Uniform, Uniform, Texture, Sampler},
		VertexStride:     48,
		VertexAttributes: meshVertexAttributes,
		Blend:            BlendOpaque,
		Depth:            DepthReadWrite,
		CullBack:         true,
		WGSL:             WGSLSource{Code: sceneTexturedWGSL},
	},
	Grid: RenderShader{
		Name:     "grid",
		Bindings: []BindType{Uniform, Uniform},
		Blend:    BlendAlpha,
		Depth:    DepthReadWrite,
		WGSL:     WGSLSource{Code: gridWGSL},
	},
	Overlay: RenderShader{
		Name:         "overlay",
		Bindings:     []BindType{Uniform},
		VertexStride: 24,
		VertexAttributes: []VertexAttribute{
			{Format: Float32x2, Offset: 0, ShaderLocation: 0},
			{Format: Float32x4, Offset: 8, ShaderLocation: 1},
		},
		Blend: BlendPremultiplied,
		WGSL:  WGSLSource{Code: overlayWGSL},
	},
}
