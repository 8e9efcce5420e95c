package systems_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/tanema/gween/ease"

	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/systems"
	"github.com/spaghettifunk/instancer/engine/world"
)

func TestTintSystem(t *testing.T) {
	store := world.New()
	e := store.SpawnSprite(instancing.Instance{Active: true, Color: math.NewVec4One()},
		*components.NewTransform(math.NewVec2(0, 0)), systems.Tint)
	entry, _ := store.Entry(e)
	from := math.NewVec4(0, 0, 0, 1)
	to := math.NewVec4(1, 1, 1, 1)
	systems.Tint.SetValue(entry, systems.NewTint(from, to, 1, ease.Linear, false))

	sm := systems.NewSystemManager(&systems.TintSystem{})
	sm.Update(store.World(), 0.5)
	if got := world.Sprite.Get(entry).Color.X; got < 0.49 || got > 0.51 {
		t.Fatalf("color after half the tween = %v, want 0.5", got)
	}
	sm.Update(store.World(), 0.6)
	if got := world.Sprite.Get(entry).Color; got != to {
		t.Fatalf("color after the tween = %v, want %v", got, to)
	}
	if !systems.Tint.Get(entry).Done() {
		t.Fatal("one-shot tint not done")
	}
}

func TestTintPingPong(t *testing.T) {
	store := world.New()
	e := store.SpawnSprite(instancing.Instance{Active: true},
		*components.NewTransform(math.NewVec2(0, 0)), systems.Tint)
	entry, _ := store.Entry(e)
	from := math.NewVec4(0, 0, 0, 1)
	to := math.NewVec4(1, 0, 0, 1)
	systems.Tint.SetValue(entry, systems.NewTint(from, to, 1, nil, true))

	s := &systems.TintSystem{}
	s.Update(store.World(), 1)
	tint := systems.Tint.Get(entry)
	if tint.Done() {
		t.Fatal("ping-pong tint finished")
	}
	if tint.From != to || tint.To != from {
		t.Fatalf("endpoints not swapped: from %v to %v", tint.From, tint.To)
	}
}

func TestLayerCycleSystem(t *testing.T) {
	store := world.New()
	e := store.SpawnSprite(instancing.Instance{Active: true, Layer: 2},
		*components.NewTransform(math.NewVec2(0, 0)), systems.LayerCycle)
	entry, _ := store.Entry(e)
	systems.LayerCycle.SetValue(entry, systems.LayerCycleData{Layers: []int32{2, 0, 1}, Interval: 1})

	s := &systems.LayerCycleSystem{}
	tests := []struct {
		dt   float32
		want int32
	}{
		{0.5, 2},
		{0.5, 0},
		{1, 1},
		{2, 0},
	}
	for i, tt := range tests {
		s.Update(store.World(), tt.dt)
		if got := world.Sprite.Get(entry).Layer; got != tt.want {
			t.Fatalf("step %d: layer = %d, want %d", i, got, tt.want)
		}
	}
}

func TestMotionSystem(t *testing.T) {
	store := world.New()
	e := store.SpawnSprite(instancing.Instance{Active: true},
		*components.NewTransform(math.NewVec2(1, 1)), systems.Motion)
	entry, _ := store.Entry(e)
	systems.Motion.SetValue(entry, systems.MotionData{Velocity: math.NewVec2(2, -2), Spin: 1})

	systems.Default().Update(store.World(), 0.5)
	tr := world.Transform.Get(entry)
	if tr.Position != math.NewVec2(2, 0) {
		t.Fatalf("position = %v, want (2, 0)", tr.Position)
	}
	if tr.Rotation != 0.5 {
		t.Fatalf("rotation = %v, want 0.5", tr.Rotation)
	}
}

func TestJobSystem(t *testing.T) {
	if _, err := systems.NewJobSystem(0, 1); !errors.Is(err, systems.ErrNoWorkers) {
		t.Fatalf("err = %v, want ErrNoWorkers", err)
	}
	if _, err := systems.NewJobSystem(1, -1); !errors.Is(err, systems.ErrNegativeChannelSize) {
		t.Fatalf("err = %v, want ErrNegativeChannelSize", err)
	}

	js, err := systems.NewJobSystem(4, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	boom := errors.New("boom")
	var completed, failed atomic.Int32
	for i := 0; i < 20; i++ {
		run := func() error { return nil }
		if i%5 == 0 {
			run = func() error { return boom }
		}
		js.Submit(systems.Job{
			Name:       "decode",
			Run:        run,
			OnComplete: func() { completed.Add(1) },
			OnFailure:  func(error) { failed.Add(1) },
		})
	}
	err = js.Wait()
	if !errors.Is(err, boom) {
		t.Fatalf("Wait() = %v, want boom", err)
	}
	if completed.Load() != 16 || failed.Load() != 4 {
		t.Fatalf("completed %d failed %d, want 16 and 4", completed.Load(), failed.Load())
	}
	if err := js.Wait(); err != nil {
		t.Fatalf("second Wait() = %v, want nil", err)
	}
}
