package text

import (
	"testing"

	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

func testFont() *Font {
	data := &metadata.FontData{
		Face:       "mono",
		LineHeight: 20,
		AtlasSizeX: 64,
		AtlasSizeY: 64,
		Glyphs: map[rune]metadata.FontGlyph{
			'A': {Codepoint: 'A', X: 0, Y: 0, Width: 8, Height: 16, XAdvance: 10},
			'V': {Codepoint: 'V', X: 8, Y: 0, Width: 8, Height: 16, YOffset: 2, XAdvance: 10},
			' ': {Codepoint: ' ', XAdvance: 5},
			'?': {Codepoint: '?', X: 16, Y: 0, Width: 8, Height: 16, XAdvance: 10},
		},
		Kernings: map[[2]rune]int16{{'A', 'V'}: -3},
	}
	return NewFont(data, map[int]*metadata.Texture{0: metadata.NewSolidTexture("atlas", 255, 255, 255, 255)})
}

func TestLayoutAppliesKerningAndSpaces(t *testing.T) {
	f := testFont()
	glyphs := f.Layout("AV A", math.NewVec2(100, 50), Style{Color: math.NewVec4One(), Layer: 3})
	if len(glyphs) != 3 {
		t.Fatalf("got %d glyphs, spaces must not produce instances", len(glyphs))
	}
	xs := []float32{100, 107, 122}
	for i, g := range glyphs {
		if g.Transform.Position.X != xs[i] {
			t.Fatalf("glyph %d at x=%f, want %f", i, g.Transform.Position.X, xs[i])
		}
		if g.Instance.Layer != 3 || !g.Instance.Active {
			t.Fatalf("glyph %d instance %+v", i, g.Instance)
		}
	}
	if glyphs[1].Transform.Position.Y != 48 {
		t.Fatalf("y offset not applied: %f", glyphs[1].Transform.Position.Y)
	}
	if glyphs[0].Instance.Shape != glyphs[2].Instance.Shape {
		t.Fatal("equal runes must share one shape")
	}
	if glyphs[0].Instance.Shape == glyphs[1].Instance.Shape {
		t.Fatal("different runes must not share a shape")
	}
}

func TestLayoutNewlineAndFallback(t *testing.T) {
	f := testFont()
	glyphs := f.Layout("A\nZ", math.NewVec2(0, 0), Style{Scale: 2})
	if len(glyphs) != 2 {
		t.Fatalf("got %d glyphs", len(glyphs))
	}
	if glyphs[1].Rune != '?' {
		t.Fatalf("unknown rune must fall back to '?', got %q", glyphs[1].Rune)
	}
	if glyphs[1].Transform.Position.X != 0 || glyphs[1].Transform.Position.Y != -40 {
		t.Fatalf("second line at %+v", glyphs[1].Transform.Position)
	}
	if glyphs[0].Transform.Scale.X != 2 {
		t.Fatal("scale not applied")
	}
}

func TestGlyphShapeUVs(t *testing.T) {
	f := testFont()
	glyphs := f.Layout("V", math.Vec2{}, Style{})
	v := glyphs[0].Instance.Shape.Vertices
	if v[0].Texcoord != math.NewVec2(0.125, 0.25) || v[2].Texcoord != math.NewVec2(0.25, 0) {
		t.Fatalf("unexpected uvs %+v", v)
	}
}

func TestMeasure(t *testing.T) {
	w, h := testFont().Measure("AV\nA", 1)
	if w != 17 || h != 40 {
		t.Fatalf("got %fx%f", w, h)
	}
}
