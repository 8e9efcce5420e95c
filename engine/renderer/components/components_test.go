package components

import (
	"testing"

	"github.com/spaghettifunk/instancer/engine/math"
)

func TestComputeDepthIsMonotonic(t *testing.T) {
	cam := NewCamera(800, 600).WithLayers(-5, 10)
	prev := float32(-1)
	for layer := int32(-8); layer <= 12; layer++ {
		d := cam.ComputeDepth(layer)
		if d <= 0 || d >= 1 {
			t.Fatalf("layer %d: depth %f outside (0,1)", layer, d)
		}
		if d < prev {
			t.Fatalf("layer %d: depth %f decreased from %f", layer, d, prev)
		}
		prev = d
	}
	if cam.ComputeDepth(0) >= cam.ComputeDepth(1) {
		t.Fatal("distinct layers inside the range must map to distinct depths")
	}
}

func TestComputeDepthWithoutRange(t *testing.T) {
	cam := NewCamera(800, 600)
	if cam.MapsLayers() {
		t.Fatal("camera without range must not map layers")
	}
	proj := cam.Projection()
	prev := float32(0)
	for _, layer := range []int32{-1 << 30, -3, -1, 0, 1, 2, 7, 1 << 30} {
		d := cam.ComputeDepth(layer)
		if d <= 0 || d >= 1 {
			t.Fatalf("layer %d: depth %f outside (0,1)", layer, d)
		}
		if d < prev {
			t.Fatalf("layer %d: depth %f decreased from %f", layer, d, prev)
		}
		prev = d
		ndc := proj.MulVec4(math.NewVec4(0, 0, d, 1))
		if ndc.Z < 0 || ndc.Z > 1 {
			t.Fatalf("layer %d: clip depth %f outside [0,1]", layer, ndc.Z)
		}
	}
	if cam.ComputeDepth(0) != 0.5 {
		t.Fatalf("layer 0 got %f, want 0.5", cam.ComputeDepth(0))
	}
	if cam.ComputeDepth(2) <= cam.ComputeDepth(1) {
		t.Fatal("neighbouring layers must map to distinct depths")
	}
}

func TestLayerRangeContains(t *testing.T) {
	r := NewCamera(1, 1).WithLayers(4, 0).Layers
	tests := []struct {
		layer int32
		want  bool
	}{
		{-1, false},
		{0, true},
		{4, true},
		{5, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.layer); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.layer, got, tt.want)
		}
	}
}

func TestTransformMatrix(t *testing.T) {
	tr := NewTransform(math.NewVec2(5, 6))
	mt := tr.Matrix()
	if mt.Data[2] != 5 || mt.Data[5] != 6 || mt.Data[0] != 1 || mt.Data[4] != 1 {
		t.Fatalf("unexpected matrix %+v", mt.Data)
	}
}
