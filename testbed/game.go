package testbed

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/spaghettifunk/instancer/engine"
	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
	"github.com/spaghettifunk/instancer/engine/renderer/shaders"
	"github.com/spaghettifunk/instancer/engine/systems"
	"github.com/spaghettifunk/instancer/engine/world"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
	world  donburi.World

	// seconds since the last stats line
	sinceReport float64
}

const reportInterval = 2.0

func NewTestGame(app *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State: &gameState{
				width:  app.Config.Application.Width,
				height: app.Config.Application.Height,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize

	return tg
}

/**
 * @brief Spawns the built-in demo when no scene file was loaded: a grid of
 * drifting quads over two layers, and a hexagon on top.
 */
func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.State.(*gameState)
	state.world = e.Store().World()
	if e.Scene() != nil {
		return nil
	}

	pair, err := shaders.Sprite()
	if err != nil {
		return err
	}
	pipeline, err := e.Renderer().NewPipeline("sprite", pair, e.Surface().Target())
	if err != nil {
		return err
	}

	store := e.Store()
	store.SpawnCamera(*components.NewCamera(float32(state.width), float32(state.height)).WithLayers(0, 4),
		*components.NewTransform(math.NewVec2(0, 0)))

	quad := metadata.NewQuad("quad", 24, 24)
	hex := metadata.NewRegularPolygon("hex", 6, 64)
	textures := []*metadata.Texture{
		metadata.NewSolidTexture("red", 230, 70, 60, 255),
		metadata.NewSolidTexture("blue", 60, 120, 230, 255),
	}

	const columns, rows = 16, 9
	for y := 0; y < rows; y++ {
		for x := 0; x < columns; x++ {
			layer := int32((x + y) % 2)
			inst := instancing.NewInstance(quad, textures[layer], pipeline, layer)
			pos := math.NewVec2(float32(x-columns/2)*40, float32(y-rows/2)*40)
			ent := store.SpawnSprite(*inst, *components.NewTransform(pos), systems.Motion)
			entry, _ := store.Entry(ent)
			systems.Motion.SetValue(entry, systems.MotionData{
				Velocity: math.NewVec2(float32(y%3)*4, 0),
				Spin:     float32(x%4) * 0.25,
			})
		}
	}

	top := instancing.NewInstance(hex, metadata.NewSolidTexture("white", 255, 255, 255, 255), pipeline, 4)
	top.Color = math.NewVec4(1, 1, 1, 0.8)
	store.SpawnSprite(*top, *components.NewTransform(math.NewVec2(0, 0)))

	cams, sprites := store.Counts()
	core.LogInfo("demo scene spawned: %d cameras, %d sprites", cams, sprites)
	return nil
}

func (g *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	state := g.State.(*gameState)
	state.sinceReport += deltaTime
	if state.sinceReport < reportInterval {
		return nil
	}
	state.sinceReport = 0

	fps, frameTime := core.MetricsFrame()
	last, _ := core.MetricsRender()
	core.LogInfo("FPS: %5.1f(%4.1fms) batches=%d instances=%d draws=%d",
		fps, frameTime, last.Batches, last.Instances, last.DrawCalls)
	return nil
}

// OnResize keeps every camera showing the surface at one world unit per pixel.
func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	if state.world != nil {
		FitCameras(state.world, width, height)
	}
	return nil
}

// FitCameras resizes every camera of w to width x height.
func FitCameras(w donburi.World, width, height uint32) {
	donburi.NewQuery(filter.Contains(world.Camera)).Each(w, func(entry *donburi.Entry) {
		cam := world.Camera.Get(entry)
		cam.Width = float32(width)
		cam.Height = float32(height)
	})
}
