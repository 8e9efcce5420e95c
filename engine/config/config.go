// Package config loads the application and renderer settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Application struct {
	Name     string `toml:"name"`
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	LogLevel string `toml:"log_level"`
	// Frames is the number of frames a headless run renders. Zero runs until stopped.
	Frames int `toml:"frames"`
}

type Renderer struct {
	DepthCompare   string `toml:"depth_compare"`
	ParallelEncode bool   `toml:"parallel_encode"`
	// FrameRingSize is the size in bytes of one per-frame upload slot.
	FrameRingSize  uint64 `toml:"frame_ring_size"`
	FramesInFlight int    `toml:"frames_in_flight"`
	// ShaderDir is watched for shader changes when non-empty.
	ShaderDir string `toml:"shader_dir"`
}

type Config struct {
	Application Application `toml:"application"`
	Renderer    Renderer    `toml:"renderer"`
}

func Default() Config {
	return Config{
		Application: Application{
			Name:     "instancer",
			Width:    1280,
			Height:   720,
			LogLevel: "info",
			Frames:   600,
		},
		Renderer: Renderer{
			DepthCompare:   "less",
			FrameRingSize:  4 << 20,
			FramesInFlight: 2,
		},
	}
}

/**
 * @brief Reads a TOML file on top of the defaults. Keys missing from the file
 * keep their default value.
 */
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals data into cfg and validates the result.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("%w: line %d column %d: %s", ErrInvalidConfig, row, col, derr.Error())
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Application.Width == 0 || c.Application.Height == 0 {
		errs = append(errs, fmt.Errorf("application size %dx%d must be non-zero", c.Application.Width, c.Application.Height))
	}
	if c.Application.Frames < 0 {
		errs = append(errs, fmt.Errorf("application frames %d is negative", c.Application.Frames))
	}
	if _, err := instancing.ParseDepthCompare(c.Renderer.DepthCompare); err != nil {
		errs = append(errs, err)
	}
	if c.Renderer.FramesInFlight < 1 {
		errs = append(errs, fmt.Errorf("renderer frames_in_flight %d must be at least 1", c.Renderer.FramesInFlight))
	}
	if c.Renderer.FrameRingSize == 0 {
		errs = append(errs, errors.New("renderer frame_ring_size must be non-zero"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c Config) LogLevel() core.LogLevel {
	return core.ParseLogLevel(c.Application.LogLevel)
}

// RendererConfig returns the settings the instancing renderer consumes.
// The depth compare op is assumed validated.
func (c Config) RendererConfig() instancing.RendererConfig {
	dc, _ := instancing.ParseDepthCompare(c.Renderer.DepthCompare)
	return instancing.RendererConfig{
		DepthCompare:   dc,
		ParallelEncode: c.Renderer.ParallelEncode,
	}
}

func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
