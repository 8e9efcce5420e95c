package loaders

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

/**
 * @brief A loaded bitmap font: metrics plus one texture per atlas page.
 */
type BitmapFont struct {
	Data  *metadata.FontData
	Pages map[int]*metadata.Texture
}

type BitmapFontLoader struct {
	Images ImageLoader
}

// Load reads a text, XML or binary .fnt file and its page images.
func (fl *BitmapFontLoader) Load(path string) (*BitmapFont, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("unable to find bitmap font %s: %w", path, err)
	}
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, err
	}

	out := &BitmapFont{
		Data:  FontDataFromDescriptor(font.Descriptor),
		Pages: make(map[int]*metadata.Texture, len(font.PageSheets)),
	}
	base := filepath.Base(path)
	for id, sheet := range font.PageSheets {
		out.Pages[id] = fl.Images.FromImage(fmt.Sprintf("%s-page%d", base, id), sheet)
	}
	return out, nil
}

// FromImages builds a font from an already parsed descriptor and its page images.
func (fl *BitmapFontLoader) FromImages(desc *bmfont.Descriptor, pages map[int]image.Image) *BitmapFont {
	out := &BitmapFont{
		Data:  FontDataFromDescriptor(desc),
		Pages: make(map[int]*metadata.Texture, len(pages)),
	}
	for id, img := range pages {
		out.Pages[id] = fl.Images.FromImage(fmt.Sprintf("%s-page%d", desc.Info.Face, id), img)
	}
	return out
}

/**
 * @brief Converts a bmfont descriptor into engine font metrics.
 */
func FontDataFromDescriptor(desc *bmfont.Descriptor) *metadata.FontData {
	out := &metadata.FontData{
		Face:       desc.Info.Face,
		Size:       uint32(desc.Info.Size),
		LineHeight: int32(desc.Common.LineHeight),
		Baseline:   int32(desc.Common.Base),
		AtlasSizeX: int32(desc.Common.ScaleW),
		AtlasSizeY: int32(desc.Common.ScaleH),
		Glyphs:     make(map[rune]metadata.FontGlyph, len(desc.Chars)),
		Kernings:   make(map[[2]rune]int16, len(desc.Kerning)),
		Pages:      make([]metadata.BitmapFontPage, 0, len(desc.Pages)),
	}

	for _, p := range desc.Pages {
		out.Pages = append(out.Pages, metadata.BitmapFontPage{
			ID:   int8(p.ID),
			File: p.File,
		})
	}

	for r, g := range desc.Chars {
		out.Glyphs[r] = metadata.FontGlyph{
			Codepoint: r,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		}
	}

	for p, k := range desc.Kerning {
		out.Kernings[[2]rune{p.First, p.Second}] = int16(k.Amount)
	}
	return out
}
