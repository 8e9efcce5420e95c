package loaders

import (
	"image"
	"image/color"
	"testing"

	"github.com/fzipp/bmfont"
)

func TestFontDataFromDescriptor(t *testing.T) {
	desc := &bmfont.Descriptor{
		Info:   bmfont.Info{Face: "mono", Size: 16},
		Common: bmfont.Common{LineHeight: 18, Base: 14, ScaleW: 128, ScaleH: 64},
		Pages:  map[int]bmfont.Page{0: {ID: 0, File: "mono_0.png"}},
		Chars: map[rune]bmfont.Char{
			'A': {ID: 'A', X: 1, Y: 2, Width: 7, Height: 12, XOffset: 1, YOffset: 2, XAdvance: 8},
		},
		Kerning: map[bmfont.CharPair]bmfont.Kerning{
			{First: 'A', Second: 'V'}: {Amount: -2},
		},
	}

	data := FontDataFromDescriptor(desc)
	if data.Face != "mono" || data.LineHeight != 18 || data.AtlasSizeX != 128 || data.AtlasSizeY != 64 {
		t.Fatalf("unexpected metrics %+v", data)
	}
	g, ok := data.Glyphs['A']
	if !ok || g.Width != 7 || g.XAdvance != 8 || g.Y != 2 {
		t.Fatalf("unexpected glyph %+v", g)
	}
	if data.Kerning('A', 'V') != -2 || data.Kerning('V', 'A') != 0 {
		t.Fatal("kerning not converted")
	}
	if len(data.Pages) != 1 || data.Pages[0].File != "mono_0.png" {
		t.Fatalf("unexpected pages %+v", data.Pages)
	}
}

func TestFromImageFlip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{R: 10, A: 255})
	img.Set(0, 1, color.RGBA{R: 20, A: 255})

	tex := (&ImageLoader{FlipY: true}).FromImage("strip", img)
	if tex.Pixels[0] != 20 || tex.Pixels[4] != 10 {
		t.Fatalf("rows not flipped: %v", tex.Pixels)
	}
	if tex.HasTransparency() {
		t.Fatal("opaque image flagged transparent")
	}
}
