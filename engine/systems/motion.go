package systems

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/world"
)

// MotionData moves and spins an entity at a constant rate.
type MotionData struct {
	Velocity math.Vec2
	// Spin in radians per second.
	Spin float32
}

var Motion = donburi.NewComponentType[MotionData]()

type MotionSystem struct {
	query *donburi.Query
}

func (s *MotionSystem) Update(w donburi.World, deltaTime float32) {
	if s.query == nil {
		s.query = donburi.NewQuery(filter.Contains(Motion, world.Transform))
	}
	s.query.Each(w, func(entry *donburi.Entry) {
		m := Motion.Get(entry)
		t := world.Transform.Get(entry)
		t.Position = t.Position.Add(m.Velocity.MulScalar(deltaTime))
		t.Rotation += m.Spin * deltaTime
	})
}
