package instancing

import (
	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

/**
 * @brief A renderable sprite. The shape, texture and pipeline are shared
 * with other instances and compared by pointer; the record never owns them.
 */
type Instance struct {
	Shape    *metadata.Shape
	Texture  *metadata.Texture
	Pipeline *PipelineCache
	/** @brief Unpremultiplied RGBA tint, multiplied with the texture sample. */
	Color math.Vec4
	/** @brief Draw layer. Lower layers draw first. */
	Layer int32
	/** @brief Inactive instances are never drawn. */
	Active bool
}

// NewInstance returns an active, untinted instance.
func NewInstance(shape *metadata.Shape, texture *metadata.Texture, pipeline *PipelineCache, layer int32) *Instance {
	return &Instance{
		Shape:    shape,
		Texture:  texture,
		Pipeline: pipeline,
		Color:    math.NewVec4One(),
		Layer:    layer,
		Active:   true,
	}
}

// Key returns the batch this instance belongs to.
func (i *Instance) Key() BatchKey {
	return BatchKey{
		Shape:    i.Shape,
		Texture:  i.Texture,
		Pipeline: i.Pipeline,
		Layer:    i.Layer,
	}
}

func (i *Instance) drawable() bool {
	return i.Shape != nil && i.Texture != nil && i.Pipeline != nil
}
