package components

import (
	gomath "math"

	"github.com/spaghettifunk/instancer/engine/math"
)

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

/**
 * @brief The inclusive range of draw layers a camera maps to depth.
 * Layers outside the range are clamped to it, so every layer below Min
 * shares the depth of Min and every layer above Max the depth of Max.
 * Batches that end up on the same depth keep their discovery order.
 */
type LayerRange struct {
	Min int32
	Max int32
}

// Contains reports whether layer maps to its own depth.
func (r LayerRange) Contains(layer int32) bool {
	return layer >= r.Min && layer <= r.Max
}

// largest float32 below 1
var depthCeil = gomath.Nextafter32(1, 0)

/**
 * @brief Represents an orthographic 2D camera. The camera placement comes
 * from the Transform of the same entity; the camera itself only knows
 * the visible extent and how draw layers map to depth.
 */
type Camera struct {
	/** @brief The visible Width in world units. */
	Width float32
	/** @brief The visible Height in world units. */
	Height float32
	/**
	 * @brief Optional layer to depth mapping. When nil every layer is
	 * squashed into (0, 1) and batches sort by the raw layer.
	 */
	Layers *LayerRange
	/** @brief Inactive cameras are ignored. */
	Active bool
}

func NewCamera(width, height float32) *Camera {
	return &Camera{
		Width:  width,
		Height: height,
		Active: true,
	}
}

// WithLayers enables layer to depth mapping over [min, max].
func (c *Camera) WithLayers(min, max int32) *Camera {
	if max < min {
		min, max = max, min
	}
	c.Layers = &LayerRange{Min: min, Max: max}
	return c
}

// Projection returns the column-major orthographic projection centred on
// the camera. Depth values near 1 end up in front of values near 0.
func (c *Camera) Projection() math.Mat4 {
	hw := c.Width * 0.5
	hh := c.Height * 0.5
	return math.NewMat4Orthographic(-hw, hw, -hh, hh, 1, 0)
}

// MapsLayers reports whether the camera has an explicit layer range.
func (c *Camera) MapsLayers() bool {
	return c.Layers != nil
}

/**
 * @brief Maps a draw layer into (0, 1). The mapping increases monotonically
 * with the layer, so higher layers are drawn in front. Without a layer
 * range the layer goes through 0.5 + atan(layer)/pi; far away layers may
 * then collapse onto the same float32 depth.
 */
func (c *Camera) ComputeDepth(layer int32) float32 {
	if c.Layers == nil {
		d := float32(0.5 + gomath.Atan(float64(layer))/gomath.Pi)
		return math.Clamp(d, gomath.SmallestNonzeroFloat32, depthCeil)
	}
	if c.Layers.Max == c.Layers.Min {
		return 0.5
	}
	l := math.Clamp(layer, c.Layers.Min, c.Layers.Max)
	// keep both ends strictly inside the clip volume
	span := float32(c.Layers.Max-c.Layers.Min) + 2
	return float32(l-c.Layers.Min+1) / span
}
