package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/yohamta/donburi"

	"github.com/spaghettifunk/instancer/engine/assets"
	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/platform"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/trace"
	"github.com/spaghettifunk/instancer/engine/renderer/vulkan"
	"github.com/spaghettifunk/instancer/engine/scene"
	"github.com/spaghettifunk/instancer/engine/systems"
	"github.com/spaghettifunk/instancer/engine/world"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

var ErrNoTrace = errors.New("frame traces are only recorded without a window")

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	window        *platform.Window
	surface       *platform.Surface
	backend       instancing.Backend
	renderer      *instancing.Renderer
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	jobs          *systems.JobSystem
	store         *world.Store
	scene         *scene.Scene
	clock         *core.Clock
	lastTime      float64
	frameNumber   uint64
	suspended     bool
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		return nil, errors.New("game without an application config")
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	js, err := systems.NewJobSystem(runtime.NumCPU(), 64)
	if err != nil {
		am.Shutdown()
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageBootComplete,
		gameInstance:  g,
		assetManager:  am,
		systemManager: systems.Default(),
		jobs:          js,
		store:         world.New(),
		clock:         core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.gameInstance.ApplicationConfig
	cfg := app.Config

	core.SetLogLevel(cfg.LogLevel())
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	// shader_dir turns on watching; without an asset dir it is the root itself
	root := app.AssetDir
	if root == "" {
		root = cfg.Renderer.ShaderDir
	}
	if root != "" {
		if err := e.assetManager.Initialize(root, cfg.Renderer.ShaderDir != ""); err != nil {
			return err
		}
	}

	if app.Window {
		w, err := platform.NewWindow(platform.WindowConfig{
			Title:  cfg.Application.Name,
			Width:  cfg.Application.Width,
			Height: cfg.Application.Height,
		})
		if err != nil {
			return err
		}
		e.window = w
		e.surface = w.Surface()

		vb, err := vulkan.New(vulkan.Config{
			AppName:        cfg.Application.Name,
			Window:         w.Handle(),
			Target:         e.surface.Target(),
			FramesInFlight: cfg.Renderer.FramesInFlight,
			FrameRingSize:  cfg.Renderer.FrameRingSize,
			Debug:          cfg.LogLevel() == core.LogLevelDebug,
		})
		if err != nil {
			return fmt.Errorf("vulkan backend: %w", err)
		}
		e.backend = vb
	} else {
		e.surface = platform.NewSurface(cfg.Application.Width, cfg.Application.Height)
		e.backend = trace.New(trace.WithRingSize(int(cfg.Renderer.FrameRingSize)))
	}
	e.renderer = instancing.NewRenderer(e.backend, cfg.RendererConfig())

	if app.ScenePath != "" {
		if err := e.LoadScene(app.ScenePath); err != nil {
			return err
		}
	}

	world.ResizeEvents.Subscribe(e.store.World(), e.onResized)

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// LoadScene reads a scene file and spawns it into the engine's world.
func (e *Engine) LoadScene(path string) error {
	f, err := scene.ReadFile(path)
	if err != nil {
		return err
	}
	b := &scene.Builder{
		Assets:    e.assetManager,
		Pipelines: e.renderer,
		Target:    e.surface.Target(),
		Jobs:      e.jobs,
	}
	sc, err := b.Build(f, e.store)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	e.scene = sc
	return nil
}

/**
 * @brief Runs the frame loop until ctx is done, the window closes or
 * frames frames have been submitted. Zero frames runs without limit.
 */
func (e *Engine) Run(ctx context.Context, frames int) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for frames == 0 || e.frameNumber < uint64(frames) {
		if err := ctx.Err(); err != nil {
			core.LogInfo("run cancelled after %d frames", e.frameNumber)
			return nil
		}
		if e.window != nil && !e.window.PollEvents() {
			core.LogInfo("window closed after %d frames", e.frameNumber)
			return nil
		}
		if err := e.Frame(ctx); err != nil {
			return err
		}
	}
	return nil
}

/**
 * @brief Advances the world and renders one frame. A failed draw abandons
 * the frame and is logged; only backend failures are returned.
 */
func (e *Engine) Frame(ctx context.Context) error {
	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime
	e.lastTime = currentTime
	frameStart := time.Now()

	e.reloadShaders()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e, delta); err != nil {
			return err
		}
	}
	e.systemManager.Update(e.store.World(), float32(delta))

	target, ok := e.surface.Acquire()
	if !ok {
		if !e.suspended {
			core.LogInfo("surface minimized, suspending rendering")
			e.suspended = true
		}
		return nil
	}
	if e.suspended {
		core.LogInfo("surface restored, resuming rendering")
		e.suspended = false
	}
	if target.Changed && target.Generation > 1 {
		world.ResizeEvents.Publish(e.store.World(), world.ResizeEvent{
			Width:  target.Extent.Width,
			Height: target.Extent.Height,
		})
	}
	world.ResizeEvents.ProcessEvents(e.store.World())

	frame, err := e.backend.BeginFrame(target)
	if err != nil {
		return fmt.Errorf("begin frame %d: %w", e.frameNumber, err)
	}
	stats, drawErr := e.renderer.Draw(ctx, frame, e.store)
	if drawErr != nil {
		core.LogError("frame %d abandoned: %s", e.frameNumber, drawErr)
	}
	if err := e.backend.EndFrame(frame); err != nil {
		return fmt.Errorf("end frame %d: %w", e.frameNumber, err)
	}
	e.frameNumber++

	core.MetricsUpdate(time.Since(frameStart).Seconds())
	core.MetricsRecordRender(stats)
	if e.gameInstance.FnOnFrame != nil {
		e.gameInstance.FnOnFrame(e.frameNumber, stats)
	}
	return nil
}

// reloadShaders drains pending asset changes and queues new shader code.
func (e *Engine) reloadShaders() {
	for {
		select {
		case c, ok := <-e.assetManager.Changes():
			if !ok {
				return
			}
			if c.Type != assets.AssetTypeShader || c.Removed {
				continue
			}
			pair, err := e.assetManager.LoadShader(c.Path)
			if err != nil {
				core.LogWarn("shader %s not reloaded: %s", c.Path, err)
				continue
			}
			e.renderer.RequestShaderReload(pair)
		default:
			return
		}
	}
}

func (e *Engine) onResized(w donburi.World, ev world.ResizeEvent) {
	core.LogDebug("render target resized: %d, %d", ev.Width, ev.Height)
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(ev.Width, ev.Height); err != nil {
			core.LogError(err.Error())
		}
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	if e.backend != nil {
		e.backend.Shutdown()
	}
	if e.window != nil {
		e.window.Shutdown()
	}
	e.assetManager.Shutdown()
	if err := e.jobs.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

// DumpTrace writes the last recorded frame as YAML.
func (e *Engine) DumpTrace(w io.Writer) error {
	tb, ok := e.backend.(*trace.Backend)
	if !ok {
		return ErrNoTrace
	}
	return tb.Dump(w)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Store() *world.Store {
	return e.store
}

func (e *Engine) Renderer() *instancing.Renderer {
	return e.renderer
}

// Scene is the scene loaded last, or nil.
func (e *Engine) Scene() *scene.Scene {
	return e.scene
}

func (e *Engine) Surface() *platform.Surface {
	return e.surface
}

func (e *Engine) FrameNumber() uint64 {
	return e.frameNumber
}
