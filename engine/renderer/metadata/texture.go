package metadata

import (
	"github.com/google/uuid"
)

/** @brief The default texture name. */
const DEFAULT_TEXTURE_NAME string = "default"

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/** @brief Sampler filtering applied when the texture is scaled. */
type TextureFilter int

const (
	TextureFilterLinear TextureFilter = iota
	TextureFilterNearest
)

/**
 * @brief Represents a texture together with the sampler it is read with.
 * Instances reference a texture by pointer and batches compare that
 * pointer, never the pixels.
 */
type Texture struct {
	/** @brief The texture Name. */
	Name string
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of channels in the texture. Always 4 (RGBA8) once loaded. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief Filter used by the sampler. */
	Filter TextureFilter
	/** @brief The raw texture data (pixels), tightly packed RGBA8. */
	Pixels []uint8
	/** @brief Backend specific image, view and sampler. Set by the backend on upload. */
	InternalData interface{}
}

// NewTexture wraps RGBA8 pixels. An empty name gets a generated one.
func NewTexture(name string, width, height uint32, pixels []uint8) *Texture {
	if name == "" {
		name = "texture-" + uuid.New().String()
	}
	t := &Texture{
		Name:         name,
		Width:        width,
		Height:       height,
		ChannelCount: 4,
		Pixels:       pixels,
	}
	for i := 3; i < len(pixels); i += 4 {
		if pixels[i] < 255 {
			t.Flags |= TextureFlagBits(TextureFlagHasTransparency)
			break
		}
	}
	return t
}

// NewSolidTexture creates a 1x1 texture of a single colour.
func NewSolidTexture(name string, r, g, b, a uint8) *Texture {
	return NewTexture(name, 1, 1, []uint8{r, g, b, a})
}

func (t *Texture) HasTransparency() bool {
	return t.Flags&TextureFlagBits(TextureFlagHasTransparency) != 0
}
