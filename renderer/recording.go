package renderer

import (
	"fmt"
	"sync/atomic"

	"honnef.co/go/horizon/mem"
)

var resourceID atomic.Uint64

func nextResourceID() ResourceID {
	return ResourceID(resourceID.Add(1))
}

type ResourceID uint64

type ResourceProxyKind int

const (
	ResourceProxyKindBuffer ResourceProxyKind = iota + 1
	ResourceProxyKindImage
)

type ResourceProxy struct {
	Kind ResourceProxyKind
	BufferProxy
	ImageProxy
}

// Recording is a frame's worth of commands on resource proxies, materialized
// later by an engine.
type Recording struct {
	Commands []Command
}

func (rec *Recording) push(arena *mem.Arena, cmd Command) {
	rec.Commands = mem.Append(arena, rec.Commands, cmd)
}

func (rec *Recording) Upload(arena *mem.Arena, name string, data []byte) BufferProxy {
	buf := NewBufferProxy(uint64(len(data)), name)
	rec.push(arena, mem.Make(arena, Upload{buf, data}))
	return buf
}

func (rec *Recording) UploadUniform(arena *mem.Arena, name string, data []byte) BufferProxy {
	buf := NewBufferProxy(uint64(len(data)), name)
	rec.push(arena, mem.Make(arena, UploadUniform{buf, data}))
	return buf
}

func (rec *Recording) UploadVertices(arena *mem.Arena, name string, data []byte) BufferProxy {
	buf := NewBufferProxy(uint64(len(data)), name)
	rec.push(arena, mem.Make(arena, UploadVertices{buf, data}))
	return buf
}

func (rec *Recording) UploadIndices(arena *mem.Arena, name string, data []byte) BufferProxy {
	buf := NewBufferProxy(uint64(len(data)), name)
	rec.push(arena, mem.Make(arena, UploadIndices{buf, data}))
	return buf
}

func (rec *Recording) UploadImage(arena *mem.Arena, width, height uint32, format ImageFormat, data []byte) ImageProxy {
	imageProxy := NewImageProxy(width, height, format)
	rec.push(arena, mem.Make(arena, UploadImage{imageProxy, data}))
	return imageProxy
}

func (rec *Recording) DrawPass(arena *mem.Arena, pass DrawPass) {
	rec.push(arena, mem.Make(arena, pass))
}

func (rec *Recording) Download(arena *mem.Arena, buf BufferProxy) {
	rec.push(arena, mem.Make(arena, Download{buf}))
}

func (rec *Recording) ClearAll(arena *mem.Arena, buf BufferProxy) {
	rec.push(arena, mem.Make(arena, Clear{buf, 0, -1}))
}

func (rec *Recording) FreeBuffer(arena *mem.Arena, buf BufferProxy) {
	rec.push(arena, mem.Make(arena, FreeBuffer{buf}))
}

func (rec *Recording) FreeImage(arena *mem.Arena, image ImageProxy) {
	rec.push(arena, mem.Make(arena, FreeImage{image}))
}

func (rec *Recording) FreeResource(arena *mem.Arena, resource ResourceProxy) {
	switch resource.Kind {
	case ResourceProxyKindBuffer:
		rec.FreeBuffer(arena, resource.BufferProxy)
	case ResourceProxyKindImage:
		rec.FreeImage(arena, resource.ImageProxy)
	default:
		panic(fmt.Sprintf("unhandled type %T", resource))
	}
}

func NewBufferProxy(size uint64, name string) BufferProxy {
	id := nextResourceID()
	return BufferProxy{size, id, name}
}

func NewImageProxy(width, height uint32, format ImageFormat) ImageProxy {
	id := nextResourceID()
	return ImageProxy{
		Width:  width,
		Height: height,
		Format: format,
		ID:     id,
	}
}

type BufferProxy struct {
	Size uint64
	ID   ResourceID
	Name string
}

func (p BufferProxy) Resource() ResourceProxy {
	return ResourceProxy{
		Kind:        ResourceProxyKindBuffer,
		BufferProxy: p,
	}
}

type ImageFormat int

const (
	Rgba8 ImageFormat = iota
	Rgba8Srgb
	Bgra8
)

type ImageProxy struct {
	Width  uint32
	Height uint32
	Format ImageFormat
	ID     ResourceID
}

func (p ImageProxy) Resource() ResourceProxy {
	return ResourceProxy{
		Kind:       ResourceProxyKindImage,
		ImageProxy: p,
	}
}

// ShaderID names a render pipeline registered with the engine.
type ShaderID int

type Command interface {
	isCommand()
}

func (*Upload) isCommand()         {}
func (*UploadUniform) isCommand()  {}
func (*UploadVertices) isCommand() {}
func (*UploadIndices) isCommand()  {}
func (*UploadImage) isCommand()    {}
func (*WriteImage) isCommand()     {}
func (*DrawPass) isCommand()       {}
func (*Download) isCommand()       {}
func (*Clear) isCommand()          {}
func (*FreeBuffer) isCommand()     {}
func (*FreeImage) isCommand()      {}

type Upload struct {
	Buffer BufferProxy
	Data   []byte
}

type UploadUniform struct {
	Buffer BufferProxy
	Data   []byte
}

type UploadVertices struct {
	Buffer BufferProxy
	Data   []byte
}

type UploadIndices struct {
	Buffer BufferProxy
	Data   []byte
}

type UploadImage struct {
	Image ImageProxy
	Data  []byte
}

type WriteImage struct {
	Image  ImageProxy
	Coords [4]uint32
	Data   []byte
}

type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// DrawPass encodes one render pass against a color target, with an
// engine-managed depth attachment, and the draws recorded into it.
type DrawPass struct {
	Label  string
	Target ImageProxy
	Load   LoadOp
	// ClearColor is the straight-alpha clear color used with LoadOpClear.
	ClearColor [4]float32
	// Depth enables the depth attachment for this pass.
	Depth      bool
	ClearDepth float32
	Draws      []Draw
}

// Draw is a single draw call within a DrawPass. Bindings are matched
// positionally against the shader's buffer and texture binding slots; sampler
// slots are filled by the engine.
type Draw struct {
	Shader   ShaderID
	Bindings []ResourceProxy
	// Vertices may be the zero proxy for pipelines that synthesize their
	// geometry from the vertex index (the grid pass).
	Vertices      BufferProxy
	Indices       BufferProxy
	IndexCount    uint32
	VertexCount   uint32
	InstanceCount uint32
}

type Download struct {
	Buffer BufferProxy
}

type Clear struct {
	Buffer BufferProxy
	Offset uint64
	Size   int64
}

type FreeBuffer struct {
	Buffer BufferProxy
}

type FreeImage struct {
	Image ImageProxy
}
