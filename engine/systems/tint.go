package systems

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/world"
)

/**
 * @brief Animates the tint of a sprite between two colours.
 */
type TintData struct {
	From math.Vec4
	To   math.Vec4
	// PingPong swaps From and To every time the tween finishes.
	PingPong bool

	tween *gween.Tween
	done  bool
}

var Tint = donburi.NewComponentType[TintData]()

// NewTint returns a tint animation over duration seconds.
func NewTint(from, to math.Vec4, duration float32, fn ease.TweenFunc, pingPong bool) TintData {
	if fn == nil {
		fn = ease.Linear
	}
	return TintData{
		From:     from,
		To:       to,
		PingPong: pingPong,
		tween:    gween.New(0, 1, duration, fn),
	}
}

// Done reports whether a one-shot tint has finished.
func (t *TintData) Done() bool {
	return t.done
}

type TintSystem struct {
	query *donburi.Query
}

func (s *TintSystem) Update(w donburi.World, deltaTime float32) {
	if s.query == nil {
		s.query = donburi.NewQuery(filter.Contains(Tint, world.Sprite))
	}
	s.query.Each(w, func(entry *donburi.Entry) {
		tint := Tint.Get(entry)
		if tint.done || tint.tween == nil {
			return
		}
		t, finished := tint.tween.Update(deltaTime)
		world.Sprite.Get(entry).Color = tint.From.Lerp(tint.To, t)
		if !finished {
			return
		}
		if tint.PingPong {
			tint.From, tint.To = tint.To, tint.From
			tint.tween.Reset()
			return
		}
		tint.done = true
	})
}
