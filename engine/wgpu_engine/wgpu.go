package wgpu_engine

// OPT reuse bind groups

import (
	"fmt"
	"math"
	"math/bits"

	"honnef.co/go/wgpu"

	"honnef.co/go/horizon/engine/wgpu_engine/shaders"
	"honnef.co/go/horizon/mem"
	"honnef.co/go/horizon/renderer"
)

type uninitializedShader struct {
	Desc     *shaders.RenderShader
	ShaderID renderer.ShaderID
}

type Engine struct {
	Device              *wgpu.Device
	shaders             []shader
	pool                resourcePool
	downloads           map[renderer.ResourceID]*wgpu.Buffer
	shadersToInitialize []uninitializedShader

	renderer    *renderer.Renderer
	sampler     *wgpu.Sampler
	blit        *blitPipeline
	fullShaders *renderer.FullShaders
	target      *targetTexture
	depth       *depthTexture
}

type shader struct {
	label           string
	bindings        []shaders.BindType
	pipeline        *wgpu.RenderPipeline
	bindGroupLayout *wgpu.BindGroupLayout
}

type ExternalResource interface {
	// One of ExternalBuffer and ExternalImage
}

type ExternalBuffer struct {
	Proxy  renderer.BufferProxy
	Buffer *wgpu.Buffer
}

type ExternalImage struct {
	Proxy renderer.ImageProxy
	View  *wgpu.TextureView
}

type bindMapBuffer struct {
	Buffer *wgpu.Buffer
	Label  string
}

type bindMapImage struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type bindMap struct {
	bufMap        mem.BinaryTreeMap[renderer.ResourceID, *bindMapBuffer]
	imageMap      mem.BinaryTreeMap[renderer.ResourceID, *bindMapImage]
	pendingClears mem.BinaryTreeMap[renderer.ResourceID, struct{}]
}

type bufferProperties struct {
	size   uint64
	usages wgpu.BufferUsage
}

type resourcePool struct {
	bufs map[bufferProperties][]*wgpu.Buffer
}

type transientBindMap struct {
	bufs   mem.BinaryTreeMap[renderer.ResourceID, *wgpu.Buffer]
	images mem.BinaryTreeMap[renderer.ResourceID, *wgpu.TextureView]
}

func New(dev *wgpu.Device, options *RendererOptions) *Engine {
	eng := &Engine{
		Device: dev,
		pool: resourcePool{
			bufs: make(map[bufferProperties][]*wgpu.Buffer),
		},
		downloads: make(map[renderer.ResourceID]*wgpu.Buffer),

		renderer: renderer.New(),
	}
	eng.sampler = dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "default sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		MaxAnisotropy: 1,
	})
	eng.fullShaders = eng.newFullShaders()
	eng.buildShadersIfNeeded(1)
	// XXX support surfaceless engine use
	eng.blit = newBlitPipeline(eng.Device, options.SurfaceFormat)
	return eng
}

func (eng *Engine) UseParallelInitialization() {
	if eng.shadersToInitialize != nil {
		return
	}
	eng.shadersToInitialize = []uninitializedShader{}
}

func (eng *Engine) buildShadersIfNeeded(numThreads int) {
	if eng.shadersToInitialize == nil {
		return
	}
	newShaders := eng.shadersToInitialize
	// XXX implement parallelism
	for _, s := range newShaders {
		sh := eng.createRenderPipeline(s.Desc)
		if int(s.ShaderID) >= len(eng.shaders) {
			if cap(eng.shaders) <= int(s.ShaderID) {
				c := make([]shader, s.ShaderID+1)
				copy(c, eng.shaders)
				eng.shaders = c
			} else {
				eng.shaders = eng.shaders[:s.ShaderID+1]
			}
		}
		eng.shaders[s.ShaderID] = sh
	}
}

func (eng *Engine) addRenderShader(desc *shaders.RenderShader) renderer.ShaderID {
	add := func(shader shader) renderer.ShaderID {
		id := len(eng.shaders)
		eng.shaders = append(eng.shaders, shader)
		return renderer.ShaderID(id)
	}

	if eng.shadersToInitialize != nil {
		id := add(shader{label: desc.Name, bindings: desc.Bindings})
		eng.shadersToInitialize = append(eng.shadersToInitialize, uninitializedShader{
			Desc:     desc,
			ShaderID: id,
		})
		return id
	}

	return add(eng.createRenderPipeline(desc))
}

func (eng *Engine) RunRecording(
	arena *mem.Arena,
	queue *wgpu.Queue,
	recording *renderer.Recording,
	externalResources []ExternalResource,
	label string,
	pgroup *ProfilerGroup,
) {
	pgroup = pgroup.Nest("RunRecording")
	defer pgroup.End()

	var freeBufs, freeImages mem.BinaryTreeMap[renderer.ResourceID, struct{}]
	transientMap := newTransientBindMap(arena, externalResources)
	bindMap := bindMap{}

	encoder := eng.Device.CreateCommandEncoder(mem.Make(arena, wgpu.CommandEncoderDescriptor{Label: label}))

	uploadBuf := func(proxy renderer.BufferProxy, data []byte, usage wgpu.BufferUsage) {
		buf := eng.pool.getBuf(proxy.Size, proxy.Name, usage, eng.Device)
		queue.WriteBuffer(buf, 0, data)
		bindMap.insertBuf(arena, proxy, buf)
	}

	for _, cmd := range recording.Commands {
		switch cmd := cmd.(type) {
		case *renderer.Upload:
			uploadBuf(cmd.Buffer, cmd.Data, wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst|wgpu.BufferUsageStorage)

		case *renderer.UploadUniform:
			uploadBuf(cmd.Buffer, cmd.Data, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)

		case *renderer.UploadVertices:
			uploadBuf(cmd.Buffer, cmd.Data, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)

		case *renderer.UploadIndices:
			uploadBuf(cmd.Buffer, cmd.Data, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)

		case *renderer.UploadImage:
			imageProxy := cmd.Image
			bytes := cmd.Data
			format := imageFormatToWGPU(imageProxy.Format)
			blockSize, ok := format.BlockCopySize(wgpu.TextureAspectAll)
			if !ok {
				panic("image format must have a valid block size")
			}
			texture := eng.Device.CreateTexture(mem.Make(arena, wgpu.TextureDescriptor{
				Size: wgpu.Extent3D{
					Width:              imageProxy.Width,
					Height:             imageProxy.Height,
					DepthOrArrayLayers: 1,
				},
				MipLevelCount: 1,
				SampleCount:   1,
				Dimension:     wgpu.TextureDimension2D,
				Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
				Format:        format,
			}))
			textureView := texture.CreateView(mem.Make(arena, wgpu.TextureViewDescriptor{
				Dimension:       wgpu.TextureViewDimension2D,
				Aspect:          wgpu.TextureAspectAll,
				MipLevelCount:   ^uint32(0),
				ArrayLayerCount: ^uint32(0),
				BaseMipLevel:    0,
				BaseArrayLayer:  0,
				Format:          format,
			}))
			queue.WriteTexture(
				mem.Make(arena, wgpu.ImageCopyTexture{
					Texture:  texture,
					MipLevel: 0,
					Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: 0},
					Aspect:   wgpu.TextureAspectAll,
				}),
				bytes,
				mem.Make(arena, wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  imageProxy.Width * blockSize,
					RowsPerImage: ^uint32(0), // XXX 0 or Undefined?
				}),
				mem.Make(arena, wgpu.Extent3D{
					Width:              imageProxy.Width,
					Height:             imageProxy.Height,
					DepthOrArrayLayers: 1,
				}),
			)
			bindMap.insertImage(arena, imageProxy.ID, texture, textureView)

		case *renderer.WriteImage:
			proxy := cmd.Image
			x := cmd.Coords[0]
			y := cmd.Coords[1]
			width := cmd.Coords[2]
			height := cmd.Coords[3]
			data := cmd.Data
			texture, _ := bindMap.getOrCreateImage(arena, proxy, eng.Device)
			format := imageFormatToWGPU(proxy.Format)
			blockSize, ok := format.BlockCopySize(wgpu.TextureAspectAll)
			if !ok {
				panic("image format must have a valid block size")
			}
			queue.WriteTexture(
				mem.Make(arena, wgpu.ImageCopyTexture{
					Texture:  texture,
					MipLevel: 0,
					Origin:   wgpu.Origin3D{X: x, Y: y, Z: 0},
					Aspect:   wgpu.TextureAspectAll,
				}),
				data,
				mem.Make(arena, wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  width * blockSize,
					RowsPerImage: 0, // XXX 0 or Undefined?
				}),
				mem.Make(arena, wgpu.Extent3D{
					Width:              width,
					Height:             height,
					DepthOrArrayLayers: 1,
				}),
			)

		case *renderer.DrawPass:
			eng.runDrawPass(arena, queue, encoder, &bindMap, &transientMap, cmd, pgroup)

		case *renderer.Download:
			proxy := cmd.Buffer
			srcBuf, ok := bindMap.getGPUBuf(proxy.ID)
			if !ok {
				panic("tried using unavailable buffer for download")
			}
			usage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
			buf := eng.pool.getBuf(proxy.Size, "download", usage, eng.Device)
			encoder.CopyBufferToBuffer(srcBuf, 0, buf, 0, proxy.Size)
			eng.downloads[proxy.ID] = buf

		case *renderer.Clear:
			proxy := cmd.Buffer
			offset := cmd.Offset
			size := cmd.Size
			if buf, ok := bindMap.getBuf(proxy); ok {
				encoder.ClearBuffer(buf.Buffer, offset, uint64(size))
			} else {
				bindMap.pendingClears.Insert(arena, proxy.ID, struct{}{})
			}

		case *renderer.FreeBuffer:
			freeBufs.Insert(arena, cmd.Buffer.ID, struct{}{})

		case *renderer.FreeImage:
			freeImages.Insert(arena, cmd.Image.ID, struct{}{})

		default:
			panic(fmt.Sprintf("unhandled command %T", cmd))
		}
	}

	cmd := encoder.Finish(nil)
	encoder.Release()
	queue.Submit(cmd)
	cmd.Release()

	for id := range freeBufs.Keys() {
		buf, ok := bindMap.bufMap.Get(id)
		if ok {
			bindMap.bufMap.Delete(id)
			props := bufferProperties{
				size:   buf.Buffer.Size(),
				usages: buf.Buffer.Usage(),
			}
			// TODO(dh): add a method to ResourcePool to return buffers
			eng.pool.bufs[props] = append(eng.pool.bufs[props], buf.Buffer)
		}
	}
	for id := range freeImages.Keys() {
		tex, ok := bindMap.imageMap.Get(id)
		if ok {
			bindMap.imageMap.Delete(id)
			// TODO: have a pool to avoid needless re-allocation
			tex.texture.Release()
			tex.view.Release()
		}
	}
}

func (eng *Engine) runDrawPass(
	arena *mem.Arena,
	queue *wgpu.Queue,
	encoder *wgpu.CommandEncoder,
	bindMap *bindMap,
	transientMap *transientBindMap,
	pass *renderer.DrawPass,
	pgroup *ProfilerGroup,
) {
	targetView, ok := transientMap.images.Get(pass.Target.ID)
	if !ok {
		_, targetView = bindMap.getOrCreateImage(arena, pass.Target, eng.Device)
	}

	var loadOp wgpu.LoadOp
	switch pass.Load {
	case renderer.LoadOpClear:
		loadOp = wgpu.LoadOpClear
	case renderer.LoadOpLoad:
		loadOp = wgpu.LoadOpLoad
	default:
		panic(fmt.Sprintf("unhandled load op %d", pass.Load))
	}

	var depthAttachment *wgpu.RenderPassDepthStencilAttachment
	if pass.Depth {
		depthAttachment = mem.Make(arena, wgpu.RenderPassDepthStencilAttachment{
			View:            eng.depthView(pass.Target.Width, pass.Target.Height),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: pass.ClearDepth,
		})
	}

	rpass := encoder.BeginRenderPass(mem.Make(arena, wgpu.RenderPassDescriptor{
		Label: pass.Label,
		ColorAttachments: mem.Varargs(arena, wgpu.RenderPassColorAttachment{
			View:    targetView,
			LoadOp:  loadOp,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(pass.ClearColor[0]),
				G: float64(pass.ClearColor[1]),
				B: float64(pass.ClearColor[2]),
				A: float64(pass.ClearColor[3]),
			},
		}),
		DepthStencilAttachment: depthAttachment,
		TimestampWrites:        pgroup.Render(arena, pass.Label),
	}))

	for _, draw := range pass.Draws {
		s := eng.shaders[draw.Shader]
		bindGroup := transientMap.createBindGroup(
			arena,
			bindMap,
			eng.Device,
			eng.sampler,
			s.bindGroupLayout,
			s.bindings,
			draw.Bindings,
		)

		rpass.SetPipeline(s.pipeline)
		rpass.SetBindGroup(0, bindGroup, nil)
		if draw.Vertices.ID != 0 {
			buf, ok := bindMap.getGPUBuf(draw.Vertices.ID)
			if !ok {
				panic("tried using unavailable vertex buffer")
			}
			rpass.SetVertexBuffer(0, buf, 0, ^uint64(0))
		}
		if draw.Indices.ID != 0 {
			buf, ok := bindMap.getGPUBuf(draw.Indices.ID)
			if !ok {
				panic("tried using unavailable index buffer")
			}
			rpass.SetIndexBuffer(buf, wgpu.IndexFormatUint32, 0, ^uint64(0))
			rpass.DrawIndexed(draw.IndexCount, draw.InstanceCount, 0, 0, 0)
		} else {
			rpass.Draw(draw.VertexCount, draw.InstanceCount, 0, 0)
		}
		bindGroup.Release()
	}

	rpass.End()
	rpass.Release()
}

func (eng *Engine) getDownload(buf renderer.BufferProxy) (*wgpu.Buffer, bool) {
	got, ok := eng.downloads[buf.ID]
	return got, ok
}

func (eng *Engine) freeDownload(buf renderer.BufferProxy) {
	delete(eng.downloads, buf.ID)
}

func (eng *Engine) createRenderPipeline(desc *shaders.RenderShader) shader {
	// OPT(dh): use SPIR-V instead of WGSL for faster engine creation.
	shaderModule := eng.Device.CreateShaderModule(wgpu.ShaderModuleDescriptor{
		Label:  desc.Name,
		Source: wgpu.ShaderSourceWGSL(desc.WGSL.Code),
	})

	entries := make([]wgpu.BindGroupLayoutEntry, len(desc.Bindings))
	for i, bindType := range desc.Bindings {
		switch bindType {
		case shaders.Uniform:
			entries[i] = wgpu.BindGroupLayoutEntry{
				Binding:    uint32(i),
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: &wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: false,
					MinBindingSize:   0, // XXX 0 or Undefined?
				},
			}
		case shaders.Texture:
			entries[i] = wgpu.BindGroupLayoutEntry{
				Binding:    uint32(i),
				Visibility: wgpu.ShaderStageFragment,
				Texture: &wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			}
		case shaders.Sampler:
			entries[i] = wgpu.BindGroupLayoutEntry{
				Binding:    uint32(i),
				Visibility: wgpu.ShaderStageFragment,
				Sampler: &wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			}
		default:
			panic(fmt.Sprintf("invalid bind type %d", bindType))
		}
	}
	bindGroupLayout := eng.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Entries: entries,
	})
	pipelineLayout := eng.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindGroupLayout},
	})

	var vertexBuffers []wgpu.VertexBufferLayout
	if desc.VertexStride != 0 {
		attrs := make([]wgpu.VertexAttribute, len(desc.VertexAttributes))
		for i, attr := range desc.VertexAttributes {
			attrs[i] = wgpu.VertexAttribute{
				Format:         vertexFormatToWGPU(attr.Format),
				Offset:         uint64(attr.Offset),
				ShaderLocation: attr.ShaderLocation,
			}
		}
		vertexBuffers = []wgpu.VertexBufferLayout{
			{
				ArrayStride: uint64(desc.VertexStride),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attrs,
			},
		}
	}

	var blend *wgpu.BlendState
	switch desc.Blend {
	case shaders.BlendOpaque:
	case shaders.BlendAlpha:
		blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case shaders.BlendPremultiplied:
		blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	default:
		panic(fmt.Sprintf("invalid blend mode %d", desc.Blend))
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.Depth == shaders.DepthReadWrite {
		depthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
		}
	}

	cullMode := wgpu.CullModeNone
	if desc.CullBack {
		cullMode = wgpu.CullModeBack
	}

	pipeline := eng.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Name,
		Layout: pipelineLayout,
		Vertex: &wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers:    vertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormatRGBA8Unorm,
					Blend:     blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: &wgpu.PrimitiveState{
			Topology:         wgpu.PrimitiveTopologyTriangleList,
			StripIndexFormat: ^wgpu.IndexFormat(0),
			FrontFace:        wgpu.FrontFaceCCW,
			CullMode:         cullMode,
		},
		DepthStencil: depthStencil,
		Multisample: &wgpu.MultisampleState{
			Count:                  1,
			Mask:                   ^uint32(0),
			AlphaToCoverageEnabled: false,
		},
	})
	pipelineLayout.Release()

	return shader{
		label:           desc.Name,
		bindings:        desc.Bindings,
		pipeline:        pipeline,
		bindGroupLayout: bindGroupLayout,
	}
}

func vertexFormatToWGPU(f shaders.VertexFormat) wgpu.VertexFormat {
	switch f {
	case shaders.Float32x2:
		return wgpu.VertexFormatFloat32x2
	case shaders.Float32x3:
		return wgpu.VertexFormatFloat32x3
	case shaders.Float32x4:
		return wgpu.VertexFormatFloat32x4
	default:
		panic(fmt.Sprintf("unhandled value %d", f))
	}
}

func (m *bindMap) insertBuf(arena *mem.Arena, proxy renderer.BufferProxy, buffer *wgpu.Buffer) {
	m.bufMap.Insert(arena, proxy.ID, &bindMapBuffer{
		Buffer: buffer,
		Label:  proxy.Name,
	})
}

func (m *bindMap) getGPUBuf(id renderer.ResourceID) (*wgpu.Buffer, bool) {
	mbuf, ok := m.bufMap.Get(id)
	if !ok {
		return nil, false
	}
	return mbuf.Buffer, true
}

func (m *bindMap) insertImage(arena *mem.Arena, id renderer.ResourceID, image *wgpu.Texture, imageView *wgpu.TextureView) {
	m.imageMap.Insert(arena, id, &bindMapImage{image, imageView})
}

func (m *bindMap) getBuf(proxy renderer.BufferProxy) (*bindMapBuffer, bool) {
	b, ok := m.bufMap.Get(proxy.ID)
	return b, ok
}

func (m *bindMap) getOrCreateImage(
	arena *mem.Arena,
	proxy renderer.ImageProxy,
	dev *wgpu.Device,
) (*wgpu.Texture, *wgpu.TextureView) {
	if entry, ok := m.imageMap.Get(proxy.ID); ok {
		return entry.texture, entry.view
	}

	format := imageFormatToWGPU(proxy.Format)
	texture := dev.CreateTexture(&wgpu.TextureDescriptor{
		Size: wgpu.Extent3D{
			Width:              proxy.Width,
			Height:             proxy.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst | wgpu.TextureUsageRenderAttachment,
		Format:        format,
	})
	textureView := texture.CreateView(&wgpu.TextureViewDescriptor{
		Dimension:       wgpu.TextureViewDimension2D,
		Aspect:          wgpu.TextureAspectAll,
		MipLevelCount:   ^uint32(0),
		BaseMipLevel:    0,
		BaseArrayLayer:  0,
		ArrayLayerCount: ^uint32(0),
		Format:          imageFormatToWGPU(proxy.Format),
	})
	m.imageMap.Insert(arena, proxy.ID, &bindMapImage{
		texture, textureView,
	})

	return texture, textureView
}

func (pool *resourcePool) getBuf(
	size uint64,
	name string,
	usage wgpu.BufferUsage,
	dev *wgpu.Device,
) *wgpu.Buffer {
	const sizeClassBits = 1

	roundedSize := poolSizeClass(size, sizeClassBits)
	props := bufferProperties{
		size:   roundedSize,
		usages: usage,
	}
	if bufVec, ok := pool.bufs[props]; ok {
		if len(bufVec) > 0 {
			buf := bufVec[len(bufVec)-1]
			bufVec = bufVec[:len(bufVec)-1]
			pool.bufs[props] = bufVec
			return buf
		}
	}
	return dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  roundedSize,
		Usage: usage,
	})
}

func poolSizeClass(x uint64, numBits uint32) uint64 {
	if x > 1<<numBits {
		a := bits.LeadingZeros64(x - 1)
		b := (x - 1) | (((math.MaxUint64 / 2) >> numBits) >> a)
		return b + 1
	} else {
		return 1 << numBits
	}
}

func newTransientBindMap(arena *mem.Arena, externalResources []ExternalResource) transientBindMap {
	bufs := mem.BinaryTreeMap[renderer.ResourceID, *wgpu.Buffer]{}
	images := mem.BinaryTreeMap[renderer.ResourceID, *wgpu.TextureView]{}
	for _, res := range externalResources {
		switch res := res.(type) {
		case ExternalBuffer:
			bufs.Insert(arena, res.Proxy.ID, res.Buffer)
		case ExternalImage:
			images.Insert(arena, res.Proxy.ID, res.View)
		}
	}
	return transientBindMap{
		bufs:   bufs,
		images: images,
	}
}

// createBindGroup builds the group 0 bind group of a draw. bindTypes is the
// shader's binding list; sampler slots take the engine's sampler, the rest
// consume the draw's resources in order.
func (m *transientBindMap) createBindGroup(
	arena *mem.Arena,
	bindMap *bindMap,
	dev *wgpu.Device,
	sampler *wgpu.Sampler,
	layout *wgpu.BindGroupLayout,
	bindTypes []shaders.BindType,
	bindings []renderer.ResourceProxy,
) *wgpu.BindGroup {
	entries := mem.NewSlice[[]wgpu.BindGroupEntry](arena, len(bindTypes), len(bindTypes))
	next := 0
	takeProxy := func() renderer.ResourceProxy {
		if next >= len(bindings) {
			panic("not enough resources for shader bindings")
		}
		proxy := bindings[next]
		next++
		return proxy
	}
	for i, typ := range bindTypes {
		switch typ {
		case shaders.Uniform:
			proxy := takeProxy()
			if proxy.Kind != renderer.ResourceProxyKindBuffer {
				panic("expected buffer resource for uniform binding")
			}
			buf, ok := m.bufs.Get(proxy.BufferProxy.ID)
			if !ok {
				buf, ok = bindMap.getGPUBuf(proxy.BufferProxy.ID)
				if !ok {
					panic("tried using unavailable buffer in bind group")
				}
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: uint32(i),
				Buffer:  buf,
				Size:    ^uint64(0),
			}
		case shaders.Texture:
			proxy := takeProxy()
			if proxy.Kind != renderer.ResourceProxyKindImage {
				panic("expected image resource for texture binding")
			}
			view, ok := m.images.Get(proxy.ImageProxy.ID)
			if !ok {
				img, ok := bindMap.imageMap.Get(proxy.ImageProxy.ID)
				if !ok {
					panic("tried using unavailable image in bind group")
				}
				view = img.view
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding:     uint32(i),
				TextureView: view,
				Size:        ^uint64(0),
			}
		case shaders.Sampler:
			entries[i] = wgpu.BindGroupEntry{
				Binding: uint32(i),
				Sampler: sampler,
				Size:    ^uint64(0),
			}
		default:
			panic(fmt.Sprintf("unhandled bind type %d", typ))
		}
	}
	if next != len(bindings) {
		panic(fmt.Sprintf("draw provides %d resources, shader consumes %d", len(bindings), next))
	}

	return dev.CreateBindGroup(mem.Make(arena, wgpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: entries,
	}))
}
