// Copyright 2022 the Vello Authors
// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package renderer

import (
	"fmt"

	"honnef.co/go/safeish"

	"honnef.co/go/horizon/hmath"
	"honnef.co/go/horizon/mem"
	"honnef.co/go/horizon/overlay"
	"honnef.co/go/horizon/profiler"
	"honnef.co/go/horizon/scene"
)

// FullShaders holds the IDs of all render pipelines, as registered with the
// engine.
type FullShaders struct {
	SceneLit      ShaderID
	SceneTextured ShaderID
	Grid          ShaderID
	Overlay       ShaderID
}

type RenderParams struct {
	// BaseColor is the straight-alpha clear color of the frame.
	BaseColor [4]float32
	Width     uint32
	Height    uint32
}

// Renderer encodes scenes into recordings. Meshes and textures are uploaded
// every frame, deduplicated within the frame, and freed at its end; the
// engine resolves resources per recording, so nothing may reference an
// upload from an earlier frame.
//
// OPT(dh): keeping meshes and textures resident across frames would avoid
// the re-uploads, but needs the engine to track buffer residency across
// recordings first.
type Renderer struct{}

type meshBuffers struct {
	vertices BufferProxy
	indices  BufferProxy
}

// frameResources deduplicates uploads within a single frame.
type frameResources struct {
	images map[*scene.Material]ImageProxy
	meshes map[*scene.Mesh]meshBuffers
}

func New() *Renderer {
	return &Renderer{}
}

func (fr *frameResources) meshFor(arena *mem.Arena, recording *Recording, mesh *scene.Mesh) meshBuffers {
	if bufs, ok := fr.meshes[mesh]; ok {
		return bufs
	}
	bufs := meshBuffers{
		vertices: recording.UploadVertices(arena, "vertices", safeish.SliceCast[[]byte](mesh.Vertices)),
		indices:  recording.UploadIndices(arena, "indices", safeish.SliceCast[[]byte](mesh.Indices)),
	}
	fr.meshes[mesh] = bufs
	return bufs
}

func (fr *frameResources) imageFor(arena *mem.Arena, recording *Recording, mat *scene.Material) ImageProxy {
	if proxy, ok := fr.images[mat]; ok {
		return proxy
	}
	proxy := recording.UploadImage(arena, mat.TextureWidth, mat.TextureHeight, Rgba8Srgb, mat.Texture)
	fr.images[mat] = proxy
	return proxy
}

// RenderFrame encodes one frame of scn, plus the 2D overlay, into a
// Recording targeting target. Objects draw front to back in scene order, the
// ground grid draws after them, and the overlay draws last, without depth
// testing.
func (rd *Renderer) RenderFrame(
	arena *mem.Arena,
	scn *scene.Scene,
	ol *overlay.List,
	shaders *FullShaders,
	params *RenderParams,
	pgroup profiler.ProfilerGroup,
) (Recording, ImageProxy) {
	pgroup = pgroup.Start("RenderFrame")
	defer pgroup.End()

	var recording Recording

	u := NewSceneUniform(&scn.Camera, scn.Data, params.Width, params.Height)
	sceneBuf := recording.UploadUniform(arena, "scene", safeish.AsBytes(&u))

	var frameBufs []BufferProxy
	frameBufs = mem.Append(arena, frameBufs, sceneBuf)
	fr := frameResources{
		images: make(map[*scene.Material]ImageProxy),
		meshes: make(map[*scene.Mesh]meshBuffers),
	}

	var draws []Draw
	for i := range scn.Objects {
		obj := &scn.Objects[i]
		du := DrawUniform{
			Model:     obj.Model,
			BaseColor: obj.Material.BaseColorFactor,
			Material:  hmath.V4(obj.Material.MetalFactor, obj.Material.RoughFactor, 0, 0),
			Data:      obj.Data,
		}
		drawBuf := recording.UploadUniform(arena, "draw", safeish.AsBytes(&du))
		frameBufs = mem.Append(arena, frameBufs, drawBuf)

		bufs := fr.meshFor(arena, &recording, obj.Mesh)
		draw := Draw{
			Vertices:      bufs.vertices,
			Indices:       bufs.indices,
			IndexCount:    uint32(len(obj.Mesh.Indices)),
			InstanceCount: 1,
		}
		switch obj.Material.Pipeline {
		case scene.PipelineLit:
			draw.Shader = shaders.SceneLit
			draw.Bindings = mem.MakeSlice(arena, []ResourceProxy{sceneBuf.Resource(), drawBuf.Resource()})
		case scene.PipelineTextured:
			img := fr.imageFor(arena, &recording, obj.Material)
			draw.Shader = shaders.SceneTextured
			draw.Bindings = mem.MakeSlice(arena, []ResourceProxy{sceneBuf.Resource(), drawBuf.Resource(), img.Resource()})
		default:
			panic(fmt.Sprintf("material %q has pipeline %d, which isn't a mesh pipeline", obj.Material.Name, obj.Material.Pipeline))
		}
		draws = mem.Append(arena, draws, draw)
	}

	if scn.Grid != nil {
		gu := NewGridUniform(scn.Grid)
		gridBuf := recording.UploadUniform(arena, "grid", safeish.AsBytes(&gu))
		frameBufs = mem.Append(arena, frameBufs, gridBuf)
		// The grid synthesizes two full-screen triangles from the vertex
		// index and needs no buffers. It draws after the scene geometry so
		// its blending sees the final opaque depth.
		draws = mem.Append(arena, draws, Draw{
			Shader:        shaders.Grid,
			Bindings:      mem.MakeSlice(arena, []ResourceProxy{sceneBuf.Resource(), gridBuf.Resource()}),
			VertexCount:   6,
			InstanceCount: 1,
		})
	}

	target := NewImageProxy(params.Width, params.Height, Rgba8)
	recording.DrawPass(arena, DrawPass{
		Label:      "scene",
		Target:     target,
		Load:       LoadOpClear,
		ClearColor: params.BaseColor,
		Depth:      true,
		ClearDepth: 1,
		Draws:      draws,
	})

	if ol != nil && !ol.Empty() {
		vertexBuf := recording.UploadVertices(arena, "overlay vertices", safeish.SliceCast[[]byte](ol.Vertices()))
		indexBuf := recording.UploadIndices(arena, "overlay indices", safeish.SliceCast[[]byte](ol.Indices()))
		frameBufs = mem.Append(arena, frameBufs, vertexBuf, indexBuf)
		recording.DrawPass(arena, DrawPass{
			Label:  "overlay",
			Target: target,
			Load:   LoadOpLoad,
			Draws: mem.Varargs(arena, Draw{
				Shader:        shaders.Overlay,
				Bindings:      mem.MakeSlice(arena, []ResourceProxy{sceneBuf.Resource()}),
				Vertices:      vertexBuf,
				Indices:       indexBuf,
				IndexCount:    uint32(len(ol.Indices())),
				InstanceCount: 1,
			}),
		})
	}

	for _, buf := range frameBufs {
		recording.FreeBuffer(arena, buf)
	}
	for _, bufs := range fr.meshes {
		recording.FreeBuffer(arena, bufs.vertices)
		recording.FreeBuffer(arena, bufs.indices)
	}
	for _, img := range fr.images {
		recording.FreeImage(arena, img)
	}
	return recording, target
}
