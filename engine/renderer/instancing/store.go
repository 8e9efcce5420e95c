package instancing

import (
	"iter"

	"github.com/spaghettifunk/instancer/engine/renderer/components"
)

// EntityStore is the read-only view of the world the renderer consumes.
// Both sequences yield entities in a stable order for an unchanged world
// and may include inactive components; filtering happens in the collector.
type EntityStore interface {
	Cameras() iter.Seq2[*components.Camera, *components.Transform]
	Instances() iter.Seq2[*Instance, *components.Transform]
}
