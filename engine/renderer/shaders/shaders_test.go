package shaders

import (
	"errors"
	"strings"
	"testing"

	"github.com/spaghettifunk/instancer/engine/core"
)

func TestSpriteSourceContainsBindings(t *testing.T) {
	src := SpriteSource()
	required := []string{
		"@vertex",
		"@fragment",
		VertexEntryPoint,
		FragmentEntryPoint,
		"@group(0) @binding(0) var<uniform> view",
		"@group(1) @binding(0) var sprite_sampler: sampler",
		"@group(1) @binding(1) var sprite_texture: texture_2d<f32>",
		"@location(5) transform_z",
		"textureSample",
	}
	for _, req := range required {
		if !strings.Contains(src, req) {
			t.Errorf("sprite shader missing %q", req)
		}
	}
}

func TestSpriteCompiles(t *testing.T) {
	pair, err := Sprite()
	if err != nil {
		if s := err.Error(); strings.Contains(s, "not yet implemented") || strings.Contains(s, "not supported") {
			t.Skipf("compiler limitation: %v", err)
		}
		t.Fatalf("failed to compile sprite shader: %v", err)
	}
	if pair.Name != SpriteShaderName || pair.Vertex.Code[0] != spirvMagic {
		t.Fatalf("unexpected shader pair %q", pair.Name)
	}
	if pair.Vertex.EntryPoint != VertexEntryPoint || pair.Fragment.EntryPoint != FragmentEntryPoint {
		t.Fatal("wrong entry points")
	}
}

func TestWords(t *testing.T) {
	words, err := Words([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[0] != spirvMagic || words[1] != 1 {
		t.Fatalf("got %#v", words)
	}

	for _, bad := range [][]byte{nil, {1, 2, 3}, {0, 0, 0, 0}} {
		if _, err := Words(bad); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
	if _, err := FromSPIRV("broken", []byte{1, 2, 3, 4}); !errors.Is(err, core.ErrShaderCompile) {
		t.Fatalf("expected ErrShaderCompile, got %v", err)
	}
}
