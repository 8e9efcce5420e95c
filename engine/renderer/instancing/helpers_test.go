package instancing_test

import (
	"context"
	"iter"
	"testing"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
	"github.com/spaghettifunk/instancer/engine/renderer/trace"
)

type entity struct {
	camera    *components.Camera
	instance  *instancing.Instance
	transform *components.Transform
}

// sliceStore is an EntityStore backed by a slice, iterated in order.
type sliceStore []entity

func (s sliceStore) Cameras() iter.Seq2[*components.Camera, *components.Transform] {
	return func(yield func(*components.Camera, *components.Transform) bool) {
		for _, e := range s {
			if e.camera != nil && !yield(e.camera, e.transform) {
				return
			}
		}
	}
}

func (s sliceStore) Instances() iter.Seq2[*instancing.Instance, *components.Transform] {
	return func(yield func(*instancing.Instance, *components.Transform) bool) {
		for _, e := range s {
			if e.instance != nil && !yield(e.instance, e.transform) {
				return
			}
		}
	}
}

func (s *sliceStore) addCamera(cam *components.Camera) {
	*s = append(*s, entity{camera: cam, transform: components.NewTransform(math.NewVec2(0, 0))})
}

func (s *sliceStore) addInstance(inst *instancing.Instance, x float32) *components.Transform {
	t := components.NewTransform(math.NewVec2(x, 0))
	*s = append(*s, entity{instance: inst, transform: t})
	return t
}

var spriteShaders = metadata.ShaderPair{
	Name:     "sprite",
	Vertex:   metadata.ShaderModule{Stage: metadata.ShaderStageVertex, EntryPoint: "vs_main"},
	Fragment: metadata.ShaderModule{Stage: metadata.ShaderStageFragment, EntryPoint: "fs_main"},
}

type harness struct {
	backend  *trace.Backend
	renderer *instancing.Renderer
	pipeline *instancing.PipelineCache
	target   metadata.RenderTarget
	quad     *metadata.Shape
	white    *metadata.Texture
}

func newHarness(t *testing.T, config instancing.RendererConfig, opts ...trace.Option) *harness {
	t.Helper()
	backend := trace.New(opts...)
	renderer := instancing.NewRenderer(backend, config)
	target := metadata.RenderTarget{Generation: 1, Extent: metadata.Extent2D{Width: 800, Height: 600}}
	pipeline, err := renderer.NewPipeline("sprite", spriteShaders, target)
	if err != nil {
		t.Fatalf("creating pipeline: %v", err)
	}
	t.Cleanup(renderer.Shutdown)
	return &harness{
		backend:  backend,
		renderer: renderer,
		pipeline: pipeline,
		target:   target,
		quad:     metadata.NewQuad("quad", 1, 1),
		white:    metadata.NewSolidTexture("white", 255, 255, 255, 255),
	}
}

func (h *harness) sprite(layer int32) *instancing.Instance {
	return instancing.NewInstance(h.quad, h.white, h.pipeline, layer)
}

// frame renders one frame and returns its trace.
func (h *harness) frame(t *testing.T, store instancing.EntityStore) (*trace.FrameTrace, core.RenderStats, error) {
	t.Helper()
	frame, err := h.backend.BeginFrame(h.target)
	if err != nil {
		t.Fatalf("begin frame: %v", err)
	}
	stats, drawErr := h.renderer.Draw(context.Background(), frame, store)
	if err := h.backend.EndFrame(frame); err != nil {
		t.Fatalf("end frame: %v", err)
	}
	return h.backend.Last(), stats, drawErr
}
