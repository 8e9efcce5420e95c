package engine

import (
	"github.com/spaghettifunk/instancer/engine/core"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnOnFrame         OnFrame
}

// Initialize runs once the renderer and the scene are ready.
type Initialize func(e *Engine) error
type Update func(e *Engine, deltaTime float64) error
type OnResize func(width uint32, height uint32) error

// OnFrame is called after every submitted frame.
type OnFrame func(frame uint64, stats core.RenderStats)
