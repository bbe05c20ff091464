package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"honnef.co/go/horizon/hmath"
	"honnef.co/go/horizon/mem"
	"honnef.co/go/horizon/overlay"
	"honnef.co/go/horizon/profiler"
	"honnef.co/go/horizon/scene"
)

type noopProfiler struct{}

func (noopProfiler) Start(label string) profiler.ProfilerGroup { return noopProfiler{} }
func (noopProfiler) End()                                      {}

var testShaders = FullShaders{
	SceneLit:      1,
	SceneTextured: 2,
	Grid:          3,
	Overlay:       4,
}

func testScene() *scene.Scene {
	cam := scene.NewCamera()
	cam.Position = hmath.V3(0, 2, 5)
	cam.LookAt(hmath.V3(0, 0, 0))
	return &scene.Scene{
		Camera: cam,
		Data:   scene.DefaultData(),
		Objects: []scene.RenderObject{
			{
				Mesh: scene.Quad(),
				Material: &scene.Material{
					Name:            "flat",
					Pipeline:        scene.PipelineLit,
					BaseColorFactor: hmath.V4(1, 1, 1, 1),
				},
				Model: hmath.Identity(),
			},
		},
		Grid: &scene.GridSettings{
			LinesPerUnit: []float32{1},
			LineColor:    hmath.V4(0.5, 0.5, 0.5, 1),
			XAxisColor:   hmath.V4(1, 0, 0, 1),
			ZAxisColor:   hmath.V4(0, 0, 1, 1),
		},
	}
}

func render(rd *Renderer, scn *scene.Scene, ol *overlay.List) (Recording, ImageProxy) {
	arena := mem.NewArena()
	return rd.RenderFrame(arena, scn, ol, &testShaders, &RenderParams{Width: 1280, Height: 720}, noopProfiler{})
}

func TestRenderFrameCommands(t *testing.T) {
	scn := testScene()
	var ol overlay.List
	ol.Rect(hmath.V2(0, 0), hmath.V2(100, 20), [4]float32{1, 1, 1, 1})

	recording, target := render(New(), scn, &ol)
	assert.Equal(t, uint32(1280), target.Width)
	assert.Equal(t, uint32(720), target.Height)

	var kinds []string
	var passes []*DrawPass
	var frees int
	for _, cmd := range recording.Commands {
		switch cmd := cmd.(type) {
		case *UploadUniform:
			kinds = append(kinds, "uniform "+cmd.Buffer.Name)
		case *UploadVertices:
			kinds = append(kinds, "vertices")
		case *UploadIndices:
			kinds = append(kinds, "indices")
		case *DrawPass:
			kinds = append(kinds, "pass "+cmd.Label)
			passes = append(passes, cmd)
		case *FreeBuffer:
			frees++
		default:
			t.Fatalf("unexpected command %T", cmd)
		}
	}
	assert.Equal(t, []string{
		"uniform scene",
		"uniform draw",
		"vertices",
		"indices",
		"uniform grid",
		"pass scene",
		"vertices",
		"indices",
		"pass overlay",
	}, kinds)
	// Every buffer the frame uploaded is freed again: the scene, draw and
	// grid uniforms, the overlay buffers, and the mesh buffers.
	assert.Equal(t, 7, frees)

	require.Len(t, passes, 2)
	sp := passes[0]
	assert.Equal(t, LoadOpClear, sp.Load)
	assert.True(t, sp.Depth)
	assert.Equal(t, float32(1), sp.ClearDepth)
	require.Len(t, sp.Draws, 2)

	lit := sp.Draws[0]
	assert.Equal(t, testShaders.SceneLit, lit.Shader)
	assert.Len(t, lit.Bindings, 2)
	assert.Equal(t, uint32(6), lit.IndexCount)
	assert.NotZero(t, lit.Vertices.ID)

	grid := sp.Draws[1]
	assert.Equal(t, testShaders.Grid, grid.Shader)
	assert.Len(t, grid.Bindings, 2)
	assert.Equal(t, uint32(6), grid.VertexCount)
	assert.Zero(t, grid.Vertices.ID)

	op := passes[1]
	assert.Equal(t, LoadOpLoad, op.Load)
	assert.False(t, op.Depth)
	assert.Equal(t, target, op.Target)
	require.Len(t, op.Draws, 1)
	assert.Equal(t, testShaders.Overlay, op.Draws[0].Shader)
	assert.Len(t, op.Draws[0].Bindings, 1)
	assert.Equal(t, uint32(6), op.Draws[0].IndexCount)
}

func TestRenderFrameUploadsMeshesPerFrame(t *testing.T) {
	rd := New()
	scn := testScene()
	// A second object sharing the mesh must not upload it twice.
	scn.Objects = append(scn.Objects, scn.Objects[0])

	count := func(rec Recording) int {
		n := 0
		for _, cmd := range rec.Commands {
			switch cmd.(type) {
			case *UploadVertices, *UploadIndices:
				n++
			}
		}
		return n
	}

	first, _ := render(rd, scn, nil)
	assert.Equal(t, 2, count(first))

	// The engine resolves buffers per recording, so the next frame uploads
	// the mesh again.
	second, _ := render(rd, scn, nil)
	assert.Equal(t, 2, count(second))
}

// uploadedIDs collects the IDs of every resource a recording's commands
// create.
func uploadedIDs(rec Recording) map[ResourceID]bool {
	ids := make(map[ResourceID]bool)
	for _, cmd := range rec.Commands {
		switch cmd := cmd.(type) {
		case *Upload:
			ids[cmd.Buffer.ID] = true
		case *UploadUniform:
			ids[cmd.Buffer.ID] = true
		case *UploadVertices:
			ids[cmd.Buffer.ID] = true
		case *UploadIndices:
			ids[cmd.Buffer.ID] = true
		case *UploadImage:
			ids[cmd.Image.ID] = true
		}
	}
	return ids
}

func TestRenderFrameResourcesResolvable(t *testing.T) {
	// The engine builds its resource map from scratch for each recording.
	// Every resource a draw references must be uploaded by a command in the
	// same recording, in every frame, or the engine cannot resolve it.
	rd := New()
	scn := testScene()
	scn.Objects = append(scn.Objects, scene.RenderObject{
		Mesh: scene.Cube(),
		Material: &scene.Material{
			Name:          "checker",
			Pipeline:      scene.PipelineTextured,
			Texture:       make([]byte, 2*2*4),
			TextureWidth:  2,
			TextureHeight: 2,
		},
		Model: hmath.Identity(),
	})

	for frame := 0; frame < 2; frame++ {
		recording, target := render(rd, scn, nil)
		ids := uploadedIDs(recording)
		for _, cmd := range recording.Commands {
			pass, ok := cmd.(*DrawPass)
			if !ok {
				continue
			}
			for _, draw := range pass.Draws {
				if draw.Vertices.ID != 0 {
					assert.True(t, ids[draw.Vertices.ID], "frame %d: vertex buffer %d not uploaded in this frame", frame, draw.Vertices.ID)
				}
				if draw.Indices.ID != 0 {
					assert.True(t, ids[draw.Indices.ID], "frame %d: index buffer %d not uploaded in this frame", frame, draw.Indices.ID)
				}
				for _, res := range draw.Bindings {
					switch res.Kind {
					case ResourceProxyKindBuffer:
						assert.True(t, ids[res.BufferProxy.ID], "frame %d: buffer %q not uploaded in this frame", frame, res.BufferProxy.Name)
					case ResourceProxyKindImage:
						if res.ImageProxy.ID != target.ID {
							assert.True(t, ids[res.ImageProxy.ID], "frame %d: image %d not uploaded in this frame", frame, res.ImageProxy.ID)
						}
					}
				}
			}
		}
	}
}

func TestRenderFrameTextured(t *testing.T) {
	rd := New()
	scn := testScene()
	scn.Objects[0].Material = &scene.Material{
		Name:            "checker",
		Pipeline:        scene.PipelineTextured,
		BaseColorFactor: hmath.V4(1, 1, 1, 1),
		Texture:         make([]byte, 2*2*4),
		TextureWidth:    2,
		TextureHeight:   2,
	}

	images := func(rec Recording) (uploads, frees int) {
		for _, cmd := range rec.Commands {
			switch cmd.(type) {
			case *UploadImage:
				uploads++
			case *FreeImage:
				frees++
			}
		}
		return uploads, frees
	}

	first, _ := render(rd, scn, nil)
	uploads, frees := images(first)
	assert.Equal(t, 1, uploads)
	assert.Equal(t, 1, frees)
	for _, cmd := range first.Commands {
		if pass, ok := cmd.(*DrawPass); ok && pass.Label == "scene" {
			draw := pass.Draws[0]
			assert.Equal(t, testShaders.SceneTextured, draw.Shader)
			require.Len(t, draw.Bindings, 3)
			assert.Equal(t, ResourceProxyKindImage, draw.Bindings[2].Kind)
		}
	}

	second, _ := render(rd, scn, nil)
	uploads, frees = images(second)
	assert.Equal(t, 1, uploads)
	assert.Equal(t, 1, frees)
}

func TestRenderFrameWithoutGridOrOverlay(t *testing.T) {
	scn := testScene()
	scn.Grid = nil

	recording, _ := render(New(), scn, nil)
	var passes []*DrawPass
	for _, cmd := range recording.Commands {
		if pass, ok := cmd.(*DrawPass); ok {
			passes = append(passes, pass)
		}
	}
	require.Len(t, passes, 1)
	assert.Len(t, passes[0].Draws, 1)
}

func TestRenderFrameEmptyOverlayList(t *testing.T) {
	scn := testScene()
	var ol overlay.List

	recording, _ := render(New(), scn, &ol)
	for _, cmd := range recording.Commands {
		if pass, ok := cmd.(*DrawPass); ok {
			assert.NotEqual(t, "overlay", pass.Label)
		}
	}
}

func TestRenderFrameRejectsGridMaterial(t *testing.T) {
	scn := testScene()
	scn.Objects[0].Material.Pipeline = scene.PipelineGrid

	assert.Panics(t, func() {
		render(New(), scn, nil)
	})
}

func TestNewSceneUniform(t *testing.T) {
	cam := scene.NewCamera()
	cam.Position = hmath.V3(0, 2, 5)
	cam.LookAt(hmath.V3(0, 0, 0))
	u := NewSceneUniform(&cam, scene.DefaultData(), 1920, 1080)

	assert.Equal(t, hmath.V2(1920, 1080), u.Viewport)
	assert.Equal(t, cam.Near, u.Near)
	assert.Equal(t, cam.Far, u.Far)

	// InvViewProj really is the inverse.
	id := u.ViewProj.Mul(u.InvViewProj)
	want := hmath.Identity()
	for i := range id.Cols {
		assert.InDelta(t, want.Cols[i], id.Cols[i], 1e-4)
	}
}

func TestNewGridUniform(t *testing.T) {
	u := NewGridUniform(&scene.GridSettings{
		LinesPerUnit: []float32{1, 0.1},
		LineColor:    hmath.V4(0.5, 0.5, 0.5, 1),
	})
	assert.Equal(t, hmath.V4(1, 0.1, 0, 0), u.Freqs)
	assert.Equal(t, hmath.V4(0.5, 0.5, 0.5, 1), u.LineColor)

	// Extra frequencies beyond the four slots are dropped.
	u = NewGridUniform(&scene.GridSettings{
		LinesPerUnit: []float32{1, 2, 3, 4, 5},
	})
	assert.Equal(t, hmath.V4(1, 2, 3, 4), u.Freqs)
}
