package assets

import (
	"github.com/spaghettifunk/instancer/engine/assets/loaders"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

// Loader turns a file into an engine resource.
type Loader[T any] interface {
	Load(path string) (T, error)
}

var (
	_ Loader[*metadata.Texture]   = (*loaders.ImageLoader)(nil)
	_ Loader[*loaders.BitmapFont] = (*loaders.BitmapFontLoader)(nil)
	_ Loader[metadata.ShaderPair] = (*loaders.ShaderLoader)(nil)
)
