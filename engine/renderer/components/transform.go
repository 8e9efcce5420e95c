package components

import (
	"github.com/spaghettifunk/instancer/engine/math"
)

/**
 * @brief Represents the placement of an entity in the 2D world.
 * The renderer only reads it through Matrix().
 */
type Transform struct {
	/** @brief The position in the world. */
	Position math.Vec2
	/** @brief The rotation in radians, counter-clockwise. */
	Rotation float32
	/** @brief The scale in the world. */
	Scale math.Vec2
	/** @brief Inactive transforms exclude their entity from rendering. */
	Active bool
}

// NewTransform returns an active transform at position with unit scale.
func NewTransform(position math.Vec2) *Transform {
	return &Transform{
		Position: position,
		Scale:    math.NewVec2One(),
		Active:   true,
	}
}

// Matrix returns the composed affine transform, translation * rotation * scale.
func (t *Transform) Matrix() math.Mat3 {
	return math.NewMat3TRS(t.Position, t.Rotation, t.Scale)
}
