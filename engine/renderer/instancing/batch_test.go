package instancing_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

func TestCollectWithoutCamera(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addInstance(h.sprite(0), 0)

	if _, ok := instancing.NewBatchCollector().Collect(store); ok {
		t.Fatal("expected no frame without a camera")
	}

	inactive := components.NewCamera(800, 600)
	inactive.Active = false
	store.addCamera(inactive)
	if _, ok := instancing.NewBatchCollector().Collect(store); ok {
		t.Fatal("an inactive camera must not be used")
	}
}

func TestCollectPartitionsActiveInstances(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	circle := metadata.NewRegularPolygon("circle", 12, 1)
	red := metadata.NewSolidTexture("red", 255, 0, 0, 255)

	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))
	var want []*instancing.Instance
	for i := 0; i < 30; i++ {
		inst := h.sprite(int32(i % 3))
		if i%2 == 0 {
			inst.Shape = circle
		}
		if i%5 == 0 {
			inst.Texture = red
		}
		store.addInstance(inst, float32(i))
		want = append(want, inst)
	}

	frame, ok := instancing.NewBatchCollector().Collect(store)
	if !ok {
		t.Fatal("expected a frame")
	}
	seen := make(map[*instancing.Instance]int)
	for _, b := range frame.Batches {
		if b.Len() == 0 {
			t.Fatalf("empty batch for key %+v", b.Key)
		}
		for _, rec := range b.Records {
			if rec.Key() != b.Key {
				t.Fatalf("instance with key %+v in batch %+v", rec.Key(), b.Key)
			}
			seen[rec]++
		}
	}
	for _, inst := range want {
		if seen[inst] != 1 {
			t.Fatalf("instance seen %d times, want exactly once", seen[inst])
		}
	}
	if frame.Instances() != len(want) {
		t.Fatalf("got %d instances, want %d", frame.Instances(), len(want))
	}
}

func TestCollectExcludesInactive(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))

	visible := h.sprite(0)
	store.addInstance(visible, 0)

	hidden := h.sprite(0)
	hidden.Active = false
	store.addInstance(hidden, 1)

	detached := h.sprite(0)
	store.addInstance(detached, 2).Active = false

	frame, _ := instancing.NewBatchCollector().Collect(store)
	if len(frame.Batches) != 1 || frame.Batches[0].Len() != 1 || frame.Batches[0].Records[0] != visible {
		t.Fatalf("expected only the visible instance, got %d batches", len(frame.Batches))
	}
}

func TestCollectIsDeterministic(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	other := metadata.NewQuad("other", 2, 2)
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600))
	for i := 0; i < 20; i++ {
		inst := h.sprite(int32(i % 4))
		if i%3 == 0 {
			inst.Shape = other
		}
		store.addInstance(inst, float32(i))
	}

	c := instancing.NewBatchCollector()
	first, _ := c.Collect(store)
	second, _ := c.Collect(store)
	if len(first.Batches) != len(second.Batches) {
		t.Fatalf("batch count changed: %d vs %d", len(first.Batches), len(second.Batches))
	}
	for i := range first.Batches {
		a, b := first.Batches[i], second.Batches[i]
		if a.Key != b.Key || a.Len() != b.Len() {
			t.Fatalf("batch %d differs", i)
		}
		for j := range a.Records {
			if a.Records[j] != b.Records[j] {
				t.Fatalf("batch %d record %d differs", i, j)
			}
		}
	}
}

func TestCollectOrdersLayers(t *testing.T) {
	tests := []struct {
		name   string
		camera *components.Camera
	}{
		{"raw layers", components.NewCamera(800, 600)},
		{"mapped layers", components.NewCamera(800, 600).WithLayers(0, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, instancing.RendererConfig{})
			store := sliceStore{}
			store.addCamera(tt.camera)
			for _, layer := range []int32{2, 0, 1} {
				store.addInstance(h.sprite(layer), 0)
			}

			frame, _ := instancing.NewBatchCollector().Collect(store)
			if len(frame.Batches) != 3 {
				t.Fatalf("got %d batches, want 3", len(frame.Batches))
			}
			for i, b := range frame.Batches {
				if b.Key.Layer != int32(i) {
					t.Fatalf("batch %d has layer %d", i, b.Key.Layer)
				}
				if b.Depth != tt.camera.ComputeDepth(b.Key.Layer) {
					t.Fatalf("batch %d depth %f, want %f", i, b.Depth, tt.camera.ComputeDepth(b.Key.Layer))
				}
				if i > 0 && b.Order <= frame.Batches[i-1].Order {
					t.Fatalf("batch %d not strictly after batch %d", i, i-1)
				}
			}
		})
	}
}

func TestCollectSplitsByShapeWithinLayer(t *testing.T) {
	h := newHarness(t, instancing.RendererConfig{})
	shapeB := metadata.NewQuad("b", 1, 1)
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600).WithLayers(0, 4))

	a1, a2 := h.sprite(0), h.sprite(0)
	b1 := h.sprite(0)
	b1.Shape = shapeB
	store.addInstance(a1, 0)
	store.addInstance(b1, 1)
	store.addInstance(a2, 2)

	frame, _ := instancing.NewBatchCollector().Collect(store)
	if len(frame.Batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(frame.Batches))
	}
	first, second := frame.Batches[0], frame.Batches[1]
	if first.Len() != 2 || second.Len() != 1 {
		t.Fatalf("got sizes %d and %d, want 2 and 1", first.Len(), second.Len())
	}
	if first.Order != second.Order {
		t.Fatalf("same layer must share the order value: %f vs %f", first.Order, second.Order)
	}
	if first.Records[0] != a1 || first.Records[1] != a2 || first.Representative != a1 {
		t.Fatal("records must keep discovery order")
	}
}

func TestCollectUsesFirstActiveCamera(t *testing.T) {
	store := sliceStore{}
	off := components.NewCamera(1, 1)
	off.Active = false
	store.addCamera(off)
	primary := components.NewCamera(800, 600)
	store.addCamera(primary)
	store.addCamera(components.NewCamera(2, 2))

	frame, ok := instancing.NewBatchCollector().Collect(store)
	if !ok || frame.Camera != primary {
		t.Fatal("expected the first active camera")
	}
	if len(frame.Batches) != 0 {
		t.Fatalf("got %d batches from an empty store", len(frame.Batches))
	}
}

func TestCollectClampedLayersShareDepth(t *testing.T) {
	var buf bytes.Buffer
	core.SetLogLevel(core.LogLevelInfo)
	core.SetLogOutput(&buf)
	t.Cleanup(func() { core.SetLogOutput(os.Stderr) })

	h := newHarness(t, instancing.RendererConfig{})
	store := sliceStore{}
	store.addCamera(components.NewCamera(800, 600).WithLayers(0, 4))
	for _, layer := range []int32{10, 5, 2} {
		store.addInstance(h.sprite(layer), 0)
	}

	c := instancing.NewBatchCollector()
	frame, _ := c.Collect(store)
	c.Collect(store)

	var layers []int32
	for _, b := range frame.Batches {
		layers = append(layers, b.Key.Layer)
	}
	// 10 and 5 clamp to the top of the range and keep discovery order
	want := []int32{2, 10, 5}
	for i := range want {
		if layers[i] != want[i] {
			t.Fatalf("got layers %v, want %v", layers, want)
		}
	}
	if frame.Batches[1].Depth != frame.Batches[2].Depth {
		t.Fatal("clamped layers must share a depth")
	}
	for _, layer := range []string{"layer 10 ", "layer 5 "} {
		if n := strings.Count(buf.String(), layer); n != 1 {
			t.Fatalf("%q reported %d times, want once:\n%s", layer, n, buf.String())
		}
	}
	if strings.Contains(buf.String(), "layer 2 ") {
		t.Fatal("layers inside the range must not be reported")
	}
}
