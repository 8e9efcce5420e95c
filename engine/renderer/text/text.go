// Package text lays out bitmap-font strings as sprite instances. Every glyph
// is a quad whose vertices carry the atlas uvs, so equal glyphs of a label
// end up in the same batch.
package text

import (
	"fmt"

	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

const fallbackRune = '?'

type Font struct {
	Data  *metadata.FontData
	Pages map[int]*metadata.Texture

	shapes map[rune]*metadata.Shape
}

func NewFont(data *metadata.FontData, pages map[int]*metadata.Texture) *Font {
	return &Font{
		Data:   data,
		Pages:  pages,
		shapes: make(map[rune]*metadata.Shape),
	}
}

/**
 * @brief A positioned glyph ready to be spawned as an entity.
 */
type Glyph struct {
	Rune      rune
	Instance  instancing.Instance
	Transform components.Transform
}

/**
 * @brief Options for a single label.
 */
type Style struct {
	Scale    float32
	Color    math.Vec4
	Layer    int32
	Pipeline *instancing.PipelineCache
}

// glyphShape returns the quad of r, built once per font. The quad's origin
// is the glyph's top-left corner.
func (f *Font) glyphShape(r rune, g metadata.FontGlyph) *metadata.Shape {
	if s, ok := f.shapes[r]; ok {
		return s
	}
	w, h := float32(g.Width), float32(g.Height)
	aw, ah := float32(f.Data.AtlasSizeX), float32(f.Data.AtlasSizeY)
	u0, v0 := float32(g.X)/aw, float32(g.Y)/ah
	u1, v1 := float32(g.X+g.Width)/aw, float32(g.Y+g.Height)/ah
	s := metadata.NewShape(fmt.Sprintf("%s:%q", f.Data.Face, r), []math.Vertex2D{
		{Position: math.NewVec2(0, -h), Texcoord: math.NewVec2(u0, v1)},
		{Position: math.NewVec2(w, -h), Texcoord: math.NewVec2(u1, v1)},
		{Position: math.NewVec2(w, 0), Texcoord: math.NewVec2(u1, v0)},
		{Position: math.NewVec2(0, 0), Texcoord: math.NewVec2(u0, v0)},
	}, nil)
	f.shapes[r] = s
	return s
}

func (f *Font) lookup(r rune) (rune, metadata.FontGlyph, bool) {
	if g, ok := f.Data.Glyphs[r]; ok {
		return r, g, true
	}
	g, ok := f.Data.Glyphs[fallbackRune]
	return fallbackRune, g, ok
}

/**
 * @brief Lays out s starting at origin, the top-left corner of the first
 * line. Newlines move down by the font's line height. Glyphs without
 * pixels (spaces) only advance the pen.
 */
func (f *Font) Layout(s string, origin math.Vec2, style Style) []Glyph {
	if style.Scale == 0 {
		style.Scale = 1
	}
	out := make([]Glyph, 0, len(s))
	pen := origin
	var prev rune = -1
	for _, r := range s {
		if r == '\n' {
			pen.X = origin.X
			pen.Y -= float32(f.Data.LineHeight) * style.Scale
			prev = -1
			continue
		}
		key, g, ok := f.lookup(r)
		if !ok {
			prev = -1
			continue
		}
		if prev >= 0 {
			pen.X += float32(f.Data.Kerning(prev, key)) * style.Scale
		}
		prev = key

		page, ok := f.Pages[int(g.PageID)]
		if ok && g.Width > 0 && g.Height > 0 {
			out = append(out, Glyph{
				Rune: key,
				Instance: instancing.Instance{
					Shape:    f.glyphShape(key, g),
					Texture:  page,
					Pipeline: style.Pipeline,
					Color:    style.Color,
					Layer:    style.Layer,
					Active:   true,
				},
				Transform: components.Transform{
					Position: math.NewVec2(
						pen.X+float32(g.XOffset)*style.Scale,
						pen.Y-float32(g.YOffset)*style.Scale,
					),
					Scale:  math.NewVec2(style.Scale, style.Scale),
					Active: true,
				},
			})
		}
		pen.X += float32(g.XAdvance) * style.Scale
	}
	return out
}

// Measure returns the width of the widest line and the total height of s.
func (f *Font) Measure(s string, scale float32) (float32, float32) {
	if scale == 0 {
		scale = 1
	}
	var width, line float32
	lines := 1
	prev := rune(-1)
	for _, r := range s {
		if r == '\n' {
			width = max(width, line)
			line = 0
			lines++
			prev = -1
			continue
		}
		key, g, ok := f.lookup(r)
		if !ok {
			continue
		}
		if prev >= 0 {
			line += float32(f.Data.Kerning(prev, key)) * scale
		}
		prev = key
		line += float32(g.XAdvance) * scale
	}
	width = max(width, line)
	return width, float32(lines) * float32(f.Data.LineHeight) * scale
}
