package instancing_test

import (
	"encoding/binary"
	"errors"
	gomath "math"
	"slices"
	"testing"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
	"github.com/spaghettifunk/instancer/engine/renderer/trace"
)

var batchCommands = []string{
	trace.CmdBindPipeline,
	trace.CmdBindDescriptorSet,
	trace.CmdBindDescriptorSet,
	trace.CmdBindVertexBuffers,
	trace.CmdDraw,
}

func TestDrawWithoutCameraRecordsNothing(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addInstance(h.sprite(0), 0)

	tr, stats, err := h.frame(t, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Commands) != 0 || stats.DrawCalls != 0 {
		t.Fatalf("expected an empty frame, got %v", tr.Names())
	}
}

func TestDrawRecordsBatchesInOrder(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600).WithLayers(0, 2))
	for i, layer := range []int32{2, 0, 1, 0} {
		store.addInstance(h.sprite(layer), float32(i))
	}

	tr, stats, err := h.frame(t, store)
	if err != nil {
		t.Fatal(err)
	}
	want := slices.Concat(batchCommands, batchCommands, batchCommands)
	if !slices.Equal(tr.Names(), want) {
		t.Fatalf("got commands %v", tr.Names())
	}
	if stats.Batches != 3 || stats.Instances != 4 || stats.DrawCalls != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	draws := tr.Draws()
	if draws[0].InstanceCount != 2 || draws[1].InstanceCount != 1 || draws[2].InstanceCount != 1 {
		t.Fatalf("unexpected instance counts %v", draws)
	}
	for _, d := range draws {
		if d.Count != h.quad.VertexCount() {
			t.Fatalf("draw count %d, want %d vertices", d.Count, h.quad.VertexCount())
		}
	}

	// set 0 carries the view uniform whose depth follows the batch layer
	var depths []float32
	for _, c := range tr.Commands {
		if c.Name == trace.CmdBindDescriptorSet && c.Set == instancing.ViewSetIndex {
			raw := c.Descriptor.Uniform.Data
			if len(raw) != instancing.ViewUniformSize {
				t.Fatalf("uniform is %d bytes", len(raw))
			}
			depths = append(depths, gomath.Float32frombits(binary.LittleEndian.Uint32(raw[112:])))
		}
		if c.Name == trace.CmdBindVertexBuffers {
			if c.FirstBinding != instancing.GeometryBinding || len(c.Buffers) != 2 || c.Buffers[1].Kind != "instances" {
				t.Fatalf("unexpected vertex buffer bind %s", c)
			}
		}
	}
	cam := store[0].camera
	for i, d := range depths {
		if d != cam.ComputeDepth(int32(i)) {
			t.Fatalf("batch %d depth %f, want %f", i, d, cam.ComputeDepth(int32(i)))
		}
	}
}

func TestDrawUnmappedLayersStayInClipRange(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	cam := components.NewCamera(800, 600)
	store.addCamera(cam)
	layers := []int32{7, -3, 2, 0}
	for _, layer := range layers {
		store.addInstance(h.sprite(layer), 0)
	}

	tr, stats, err := h.frame(t, store)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Batches != len(layers) {
		t.Fatalf("got %d batches, want %d", stats.Batches, len(layers))
	}
	proj := cam.Projection()
	sorted := []int32{-3, 0, 2, 7}
	i := 0
	for _, c := range tr.Commands {
		if c.Name != trace.CmdBindDescriptorSet || c.Set != instancing.ViewSetIndex {
			continue
		}
		z := gomath.Float32frombits(binary.LittleEndian.Uint32(c.Descriptor.Uniform.Data[112:]))
		if z != cam.ComputeDepth(sorted[i]) {
			t.Fatalf("batch %d depth %f, want %f", i, z, cam.ComputeDepth(sorted[i]))
		}
		ndc := proj.MulVec4(math.NewVec4(0, 0, z, 1))
		if ndc.Z < 0 || ndc.Z > 1 {
			t.Fatalf("layer %d: clip depth %f outside [0,1]", sorted[i], ndc.Z)
		}
		i++
	}
	if i != len(sorted) {
		t.Fatalf("got %d view uniforms, want %d", i, len(sorted))
	}
}

func TestDrawIndexedShape(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	indexed := metadata.NewShape("indexed-quad", h.quad.Vertices, []uint32{0, 1, 2, 3})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))
	inst := h.sprite(0)
	inst.Shape = indexed
	store.addInstance(inst, 0)

	tr, _, err := h.frame(t, store)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		trace.CmdBindPipeline,
		trace.CmdBindDescriptorSet,
		trace.CmdBindDescriptorSet,
		trace.CmdBindVertexBuffers,
		trace.CmdBindIndexBuffer,
		trace.CmdDrawIndexed,
	}
	if !slices.Equal(tr.Names(), want) {
		t.Fatalf("got commands %v", tr.Names())
	}
	if d := tr.Draws()[0]; d.Count != 4 || d.InstanceCount != 1 {
		t.Fatalf("unexpected indexed draw %s", d)
	}
}

func TestResizeRebuildsOnceBeforeDrawing(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))
	for _, layer := range []int32{0, 1, 2} {
		store.addInstance(h.sprite(layer), 0)
	}

	first, stats, err := h.frame(t, store)
	if err != nil {
		t.Fatal(err)
	}
	if stats.PipelineRebuilds != 0 {
		t.Fatalf("no rebuild expected on an unchanged target, got %d", stats.PipelineRebuilds)
	}
	before := first.Commands[0].Pipeline

	h.target = metadata.RenderTarget{Generation: 2, Changed: true, Extent: metadata.Extent2D{Width: 1024, Height: 768}}
	second, stats, err := h.frame(t, store)
	if err != nil {
		t.Fatal(err)
	}
	if stats.PipelineRebuilds != 1 {
		t.Fatalf("got %d rebuilds, want exactly 1", stats.PipelineRebuilds)
	}
	for _, c := range second.Commands {
		if c.Name == trace.CmdBindPipeline && (c.Pipeline == before || c.Pipeline.Destroyed) {
			t.Fatal("a draw used the pipeline of the old render target")
		}
	}
	if got := second.Commands[0].Pipeline.Descriptor.Extent.Width; got != 1024 {
		t.Fatalf("rebuilt for width %d", got)
	}

	_, stats, _ = h.frame(t, store)
	if stats.PipelineRebuilds != 0 {
		t.Fatal("the new generation must be reused on the following frame")
	}
}

func TestFailedFrameRecordsNothing(t *testing.T) {
	tests := []struct {
		name string
		op   trace.Op
		want error
	}{
		{"uniform allocation", trace.OpAllocateUniform, core.ErrBufferAllocation},
		{"instance allocation", trace.OpAllocateVertex, core.ErrBufferAllocation},
		{"view set", trace.OpViewSet, core.ErrDescriptorAllocation},
		{"texture set", trace.OpTextureSet, core.ErrDescriptorAllocation},
		{"geometry upload", trace.OpCreateGeometry, core.ErrGeometryUpload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, instancing.RendererConfig{})
			other := metadata.NewQuad("other", 1, 1)
			store := sliceStore{}
			store.addCamera(components.NewCamera(800, 600))
			store.addInstance(h.sprite(0), 0)
			second := h.sprite(1)
			second.Shape = other
			store.addInstance(second, 0)

			// let the first batch succeed so the failure hits mid-frame
			h.backend.FailAfter(tt.op, 1, nil)
			tr, _, err := h.frame(t, store)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(tr.Commands) != 0 {
				t.Fatalf("failed frame recorded %v", tr.Names())
			}

			tr, stats, err := h.frame(t, store)
			if err != nil {
				t.Fatalf("next frame must recover: %v", err)
			}
			if stats.DrawCalls != 2 || len(tr.Draws()) != 2 {
				t.Fatalf("got %d draws after recovery", len(tr.Draws()))
			}
		})
	}
}

func TestPipelineFailureAbandonsFrame(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))
	store.addInstance(h.sprite(0), 0)

	h.target.Generation++
	h.backend.FailAfter(trace.OpCreatePipeline, 0, nil)
	tr, _, err := h.frame(t, store)
	if !errors.Is(err, core.ErrPipelineCreate) || len(tr.Commands) != 0 {
		t.Fatalf("expected abandoned frame, got %v and %v", err, tr.Names())
	}
	if _, stats, err := h.frame(t, store); err != nil || stats.PipelineRebuilds != 1 {
		t.Fatalf("retry: err=%v stats=%+v", err, stats)
	}
}

func TestSingularCameraRecordsNothing(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))
	store[0].transform.Scale = math.NewVec2(0, 1)
	store.addInstance(h.sprite(0), 0)

	tr, _, err := h.frame(t, store)
	if err != nil || len(tr.Commands) != 0 {
		t.Fatalf("expected silent empty frame, got %v %v", err, tr.Names())
	}
}

func TestShaderReloadRebuildsPipeline(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))
	store.addInstance(h.sprite(0), 0)

	reloaded := spriteShaders
	reloaded.Fragment.Code = []uint32{1, 2, 3}
	h.renderer.RequestShaderReload(reloaded)
	other := reloaded
	other.Name = "unrelated"
	h.renderer.RequestShaderReload(other)

	tr, stats, err := h.frame(t, store)
	if err != nil {
		t.Fatal(err)
	}
	if stats.PipelineRebuilds != 1 {
		t.Fatalf("got %d rebuilds", stats.PipelineRebuilds)
	}
	if got := tr.Commands[0].Pipeline.Descriptor.Shaders.Fragment.Code; len(got) != 3 {
		t.Fatal("frame drew with the old shaders")
	}
}

func TestParallelEncodeProducesSameCommands(t *testing.T) {
	names := func(parallel bool) []string {
		h := newHarness(t, instancing.RendererConfig{ParallelEncode: parallel})
		store := sliceStore{}
		store.addCamera(components.NewCamera(800, 600))
		for i := 0; i < 50; i++ {
			store.addInstance(h.sprite(int32(i%5)), float32(i))
		}
		tr, _, err := h.frame(t, store)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, d := range tr.Draws() {
			out = append(out, d.String())
		}
		return out
	}
	if !slices.Equal(names(false), names(true)) {
		t.Fatal("parallel encode changed the draw stream")
	}
}

func TestExecutorSkipsEmptyBatch(t *testing.T) {
	backend := trace.New()
	frame, _ := backend.BeginFrame(metadata.RenderTarget{})
	draws, skipped := instancing.NewDrawExecutor().Execute(frame.Recorder, []*instancing.BoundBatch{
		{Batch: &instancing.Batch{}, Geometry: &instancing.GeometryBuffers{VertexCount: 4}},
	})
	if draws != 0 || skipped != 1 {
		t.Fatalf("got draws=%d skipped=%d", draws, skipped)
	}
	if n := len(frame.Recorder.(*trace.Recorder).Trace().Commands); n != 0 {
		t.Fatalf("empty batch recorded %d commands", n)
	}
}
