package systems

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/spaghettifunk/instancer/engine/world"
)

/**
 * @brief Moves a sprite through a list of draw layers at a fixed interval.
 */
type LayerCycleData struct {
	Layers []int32
	// Interval in seconds between two layer changes.
	Interval float32

	elapsed float32
	index   int
}

var LayerCycle = donburi.NewComponentType[LayerCycleData]()

type LayerCycleSystem struct {
	query *donburi.Query
}

func (s *LayerCycleSystem) Update(w donburi.World, deltaTime float32) {
	if s.query == nil {
		s.query = donburi.NewQuery(filter.Contains(LayerCycle, world.Sprite))
	}
	s.query.Each(w, func(entry *donburi.Entry) {
		lc := LayerCycle.Get(entry)
		if len(lc.Layers) == 0 || lc.Interval <= 0 {
			return
		}
		lc.elapsed += deltaTime
		for lc.elapsed >= lc.Interval {
			lc.elapsed -= lc.Interval
			lc.index = (lc.index + 1) % len(lc.Layers)
		}
		world.Sprite.Get(entry).Layer = lc.Layers[lc.index]
	})
}
