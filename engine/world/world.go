// Package world stores renderable entities in a donburi world and exposes
// them to the renderer.
package world

import (
	"iter"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"

	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
)

var (
	Transform = donburi.NewComponentType[components.Transform]()
	Camera    = donburi.NewComponentType[components.Camera]()
	Sprite    = donburi.NewComponentType[instancing.Instance]()
)

// ResizeEvent is published when the render surface changes size.
type ResizeEvent struct {
	Width  uint32
	Height uint32
}

// ResizeEvents carries ResizeEvent; process them with ResizeEvents.ProcessEvents.
var ResizeEvents = events.NewEventType[ResizeEvent]()

/**
 * @brief The entity store of the renderer. Entities are donburi arena ids:
 * dense, generation checked and only valid for the world they came from.
 */
type Store struct {
	world   donburi.World
	cameras *donburi.Query
	sprites *donburi.Query
}

func New() *Store {
	return NewStore(donburi.NewWorld())
}

func NewStore(w donburi.World) *Store {
	return &Store{
		world:   w,
		cameras: donburi.NewQuery(filter.Contains(Camera, Transform)),
		sprites: donburi.NewQuery(filter.Contains(Sprite, Transform)),
	}
}

func (s *Store) World() donburi.World {
	return s.world
}

// SpawnCamera creates a camera entity. Extra component types are added
// empty so callers can fill them through the returned entity.
func (s *Store) SpawnCamera(cam components.Camera, t components.Transform, extra ...donburi.IComponentType) donburi.Entity {
	e := s.world.Create(append([]donburi.IComponentType{Camera, Transform}, extra...)...)
	entry := s.world.Entry(e)
	Camera.SetValue(entry, cam)
	Transform.SetValue(entry, t)
	return e
}

// SpawnSprite creates a sprite entity.
func (s *Store) SpawnSprite(inst instancing.Instance, t components.Transform, extra ...donburi.IComponentType) donburi.Entity {
	e := s.world.Create(append([]donburi.IComponentType{Sprite, Transform}, extra...)...)
	entry := s.world.Entry(e)
	Sprite.SetValue(entry, inst)
	Transform.SetValue(entry, t)
	return e
}

// Despawn removes an entity. Removing an entity that is no longer valid is a no-op.
func (s *Store) Despawn(e donburi.Entity) {
	if s.world.Valid(e) {
		s.world.Remove(e)
	}
}

// Entry returns the entry of a live entity.
func (s *Store) Entry(e donburi.Entity) (*donburi.Entry, bool) {
	if !s.world.Valid(e) {
		return nil, false
	}
	return s.world.Entry(e), true
}

func (s *Store) Cameras() iter.Seq2[*components.Camera, *components.Transform] {
	return func(yield func(*components.Camera, *components.Transform) bool) {
		stopped := false
		s.cameras.Each(s.world, func(entry *donburi.Entry) {
			if stopped {
				return
			}
			stopped = !yield(Camera.Get(entry), Transform.Get(entry))
		})
	}
}

func (s *Store) Instances() iter.Seq2[*instancing.Instance, *components.Transform] {
	return func(yield func(*instancing.Instance, *components.Transform) bool) {
		stopped := false
		s.sprites.Each(s.world, func(entry *donburi.Entry) {
			if stopped {
				return
			}
			stopped = !yield(Sprite.Get(entry), Transform.Get(entry))
		})
	}
}

// Counts returns the number of camera and sprite entities.
func (s *Store) Counts() (cameras int, sprites int) {
	return s.cameras.Count(s.world), s.sprites.Count(s.world)
}

var _ instancing.EntityStore = (*Store)(nil)
