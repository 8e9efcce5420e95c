package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

type ImageLoader struct {
	// FlipY flips the image vertically on load.
	FlipY bool
	// Filter is the sampler filter assigned to loaded textures.
	Filter metadata.TextureFilter
}

func (il *ImageLoader) Load(path string) (*metadata.Texture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return il.FromImage(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), img), nil
}

/**
 * @brief Converts any decoded image into a tightly packed RGBA8 texture.
 */
func (il *ImageLoader) FromImage(name string, img image.Image) *metadata.Texture {
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	if il.FlipY {
		flipRows(rgba)
	}
	t := metadata.NewTexture(name, uint32(b.Dx()), uint32(b.Dy()), rgba.Pix)
	t.Filter = il.Filter
	return t
}

func flipRows(img *image.NRGBA) {
	h := img.Bounds().Dy()
	row := make([]uint8, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
