package shaders

type BindType int

const (
	Uniform BindType = iota + 1
	Texture
	Sampler
)

type VertexFormat int

const (
	Float32x2 VertexFormat = iota + 1
	Float32x3
	Float32x4
)

func (f VertexFormat) Size() uint32 {
	switch f {
	case Float32x2:
		return 8
	case Float32x3:
		return 12
	case Float32x4:
		return 16
	default:
		panic("invalid vertex format")
	}
}

type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint32
	ShaderLocation uint32
}

type Blend int

const (
	// BlendOpaque overwrites the target.
	BlendOpaque Blend = iota
	// BlendAlpha blends a straight-alpha source over the target.
	BlendAlpha
	// BlendPremultiplied blends a premultiplied source over the target.
	BlendPremultiplied
)

type Depth int

const (
	// DepthNone disables the depth attachment for this pipeline.
	DepthNone Depth = iota
	// DepthReadWrite tests against and writes the depth attachment.
	DepthReadWrite
)

// RenderShader describes one render pipeline: its WGSL module with vs_main
// and fs_main entry points, its bind group 0 layout, and its fixed-function
// state.
type RenderShader struct {
	Name string
	// Bindings are the group 0 bindings in binding index order. Sampler
	// slots are filled by the engine; the rest are matched positionally
	// against the resources of a draw.
	Bindings []BindType
	// VertexStride is zero for pipelines that synthesize their geometry
	// from the vertex index.
	VertexStride     uint32
	VertexAttributes []VertexAttribute
	Blend            Blend
	Depth            Depth
	CullBack         bool
	WGSL             WGSLSource
}

type WGSLSource struct {
	Code []byte
}
