package world

import (
	"testing"

	"github.com/yohamta/donburi"

	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

func TestStoreFeedsCollector(t *testing.T) {
	s := New()
	quad := metadata.NewQuad("quad", 1, 1)
	tex := metadata.NewSolidTexture("white", 255, 255, 255, 255)
	// a nil pipeline would be skipped, any non-nil cache pointer groups fine
	pc := &instancing.PipelineCache{}

	s.SpawnCamera(*components.NewCamera(800, 600), *components.NewTransform(math.Vec2{}))
	for i := 0; i < 4; i++ {
		s.SpawnSprite(*instancing.NewInstance(quad, tex, pc, int32(i%2)), *components.NewTransform(math.NewVec2(float32(i), 0)))
	}
	hidden := s.SpawnSprite(*instancing.NewInstance(quad, tex, pc, 0), *components.NewTransform(math.Vec2{}))
	entry, ok := s.Entry(hidden)
	if !ok {
		t.Fatal("fresh entity must be valid")
	}
	Sprite.Get(entry).Active = false

	if cams, sprites := s.Counts(); cams != 1 || sprites != 5 {
		t.Fatalf("got %d cameras and %d sprites", cams, sprites)
	}

	frame, ok := instancing.NewBatchCollector().Collect(s)
	if !ok {
		t.Fatal("expected a camera")
	}
	if len(frame.Batches) != 2 || frame.Instances() != 4 {
		t.Fatalf("got %d batches with %d instances", len(frame.Batches), frame.Instances())
	}
	if frame.Batches[0].Key.Layer != 0 || frame.Batches[1].Key.Layer != 1 {
		t.Fatal("batches not sorted by layer")
	}
}

func TestDespawnInvalidatesEntity(t *testing.T) {
	s := New()
	e := s.SpawnSprite(instancing.Instance{Active: true}, components.Transform{Active: true})
	s.Despawn(e)
	if _, ok := s.Entry(e); ok {
		t.Fatal("despawned entity must not resolve")
	}
	s.Despawn(e)
}

func TestIteratorStopsEarly(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		s.SpawnCamera(*components.NewCamera(1, 1), components.Transform{Active: true})
	}
	n := 0
	for range s.Cameras() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("iterated %d times after break", n)
	}
}

func TestResizeEvents(t *testing.T) {
	s := New()
	var got []ResizeEvent
	ResizeEvents.Subscribe(s.World(), func(w donburi.World, e ResizeEvent) {
		got = append(got, e)
	})
	ResizeEvents.Publish(s.World(), ResizeEvent{Width: 640, Height: 480})
	ResizeEvents.ProcessEvents(s.World())
	if len(got) != 1 || got[0].Width != 640 {
		t.Fatalf("got %+v", got)
	}
}
