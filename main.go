/*
Renders a scene file with the instanced sprite renderer, either into a
window or headless into the trace backend.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/spaghettifunk/instancer/engine"
	"github.com/spaghettifunk/instancer/engine/config"
	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/testbed"
)

func main() {
	if err := run(); err != nil {
		core.LogFatal(err.Error())
	}
}

func run() error {
	configPath := flag.String("config", "", "TOML configuration file")
	scenePath := flag.String("scene", "", "scene file (.toml or .yaml); the built-in demo when empty")
	assetDir := flag.String("assets", "assets", "asset directory")
	frames := flag.Int("frames", -1, "frames to render; 0 runs until stopped, -1 uses the configuration")
	window := flag.Bool("window", false, "render into a window through Vulkan")
	dump := flag.String("dump", "", "write the last headless frame trace as YAML to this file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *frames >= 0 {
		cfg.Application.Frames = *frames
	}
	if *window && *dump != "" {
		return engine.ErrNoTrace
	}

	app := &engine.ApplicationConfig{
		Config:    cfg,
		ScenePath: *scenePath,
		AssetDir:  *assetDir,
		Window:    *window,
	}
	if _, err := os.Stat(*assetDir); errors.Is(err, os.ErrNotExist) {
		app.AssetDir = ""
	}
	tb := testbed.NewTestGame(app)

	if !*window && cfg.Application.Frames > 0 {
		bar := progressbar.Default(int64(cfg.Application.Frames), "rendering")
		tb.FnOnFrame = func(frame uint64, stats core.RenderStats) {
			_ = bar.Add(1)
		}
	}

	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
	}()

	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Run(ctx, cfg.Application.Frames); err != nil {
		return err
	}

	_, total := core.MetricsRender()
	core.LogInfo("rendered %d frames: %d batches, %d instances, %d draw calls",
		e.FrameNumber(), total.Batches, total.Instances, total.DrawCalls)

	if *dump != "" {
		f, err := os.Create(*dump)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := e.DumpTrace(f); err != nil {
			return err
		}
		core.LogInfo("frame trace written to %s", *dump)
	}
	return nil
}
