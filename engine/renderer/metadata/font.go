package metadata

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

type BitmapFontPage struct {
	ID   int8
	File string
}

/**
 * @brief A bitmap font: glyph metrics inside one or more atlas pages.
 */
type FontData struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     map[rune]FontGlyph
	Kernings   map[[2]rune]int16
	Pages      []BitmapFontPage
}

// Kerning returns the horizontal adjustment between two codepoints.
func (f *FontData) Kerning(first, second rune) int16 {
	return f.Kernings[[2]rune{first, second}]
}
