package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/instancer/engine/config"
	"github.com/spaghettifunk/instancer/engine/core"
)

const sceneTOML = `
[[textures]]
name = "white"

[[shapes]]
name = "quad"
width = 8.0
height = 8.0

[[cameras]]

[[sprites]]
shape = "quad"
texture = "white"
count = 5
area = [100.0, 100.0]
velocity = [1.0, 0.0]
`

func newHeadless(t *testing.T, g *Game) *Engine {
	t.Helper()
	e, err := New(g)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := e.Shutdown(); err != nil {
			t.Error(err)
		}
	})
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	return e
}

func TestRunScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	if err := os.WriteFile(path, []byte(sceneTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	var stats []core.RenderStats
	g := &Game{
		ApplicationConfig: &ApplicationConfig{Config: config.Default(), ScenePath: path},
		FnOnFrame: func(frame uint64, s core.RenderStats) {
			stats = append(stats, s)
		},
	}
	e := newHeadless(t, g)
	if e.Stage() != EngineStageInitialized {
		t.Fatalf("stage = %d", e.Stage())
	}
	if e.Scene() == nil || len(e.Scene().Sprites) != 5 {
		t.Fatal("scene not loaded")
	}

	if err := e.Run(context.Background(), 2); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("frames = %d, want 2", len(stats))
	}
	if stats[1].Batches != 1 || stats[1].Instances != 5 || stats[1].DrawCalls != 1 {
		t.Fatalf("stats = %+v", stats[1])
	}

	var buf bytes.Buffer
	if err := e.DumpTrace(&buf); err != nil {
		t.Fatalf("DumpTrace() = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty trace")
	}
}

func TestMinimizedSurfaceSkipsFrames(t *testing.T) {
	resized := 0
	g := &Game{
		ApplicationConfig: &ApplicationConfig{Config: config.Default()},
		FnOnResize: func(width, height uint32) error {
			resized++
			return nil
		},
	}
	e := newHeadless(t, g)
	ctx := context.Background()

	e.Surface().Resize(0, 0)
	if err := e.Frame(ctx); err != nil {
		t.Fatal(err)
	}
	if e.FrameNumber() != 0 {
		t.Fatalf("frame submitted for a minimized surface")
	}

	e.Surface().Resize(800, 600)
	if err := e.Frame(ctx); err != nil {
		t.Fatal(err)
	}
	if e.FrameNumber() != 1 || resized != 1 {
		t.Fatalf("frames %d resizes %d, want 1 and 1", e.FrameNumber(), resized)
	}
}

func TestRunCancelled(t *testing.T) {
	e := newHeadless(t, &Game{ApplicationConfig: &ApplicationConfig{Config: config.Default()}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if e.FrameNumber() != 0 {
		t.Fatalf("frames = %d after cancel", e.FrameNumber())
	}
}
