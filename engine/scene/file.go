// Package scene reads scene description files and spawns their contents
// into a world.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScene = errors.New("invalid scene")

type TextureDef struct {
	Name string `toml:"name" yaml:"name"`
	// File is an image path resolved by the asset manager.
	File string `toml:"file" yaml:"file"`
	// Color makes a 1x1 solid texture when File is empty.
	Color  []uint8 `toml:"color" yaml:"color"`
	Filter string  `toml:"filter" yaml:"filter"`
}

type FontDef struct {
	Name string `toml:"name" yaml:"name"`
	File string `toml:"file" yaml:"file"`
}

type PipelineDef struct {
	Name string `toml:"name" yaml:"name"`
	// Shader is a .wgsl or .spv path. Empty selects the built-in sprite shader.
	Shader string `toml:"shader" yaml:"shader"`
}

type ShapeDef struct {
	Name string `toml:"name" yaml:"name"`
	// Kind is one of quad, ngon or custom.
	Kind   string  `toml:"kind" yaml:"kind"`
	Width  float32 `toml:"width" yaml:"width"`
	Height float32 `toml:"height" yaml:"height"`
	Sides  int     `toml:"sides" yaml:"sides"`
	Radius float32 `toml:"radius" yaml:"radius"`
	// Vertices of a custom shape as [x, y, u, v].
	Vertices [][]float32 `toml:"vertices" yaml:"vertices"`
	Indices  []uint32    `toml:"indices" yaml:"indices"`
}

type CameraDef struct {
	Width    float32   `toml:"width" yaml:"width"`
	Height   float32   `toml:"height" yaml:"height"`
	Position []float32 `toml:"position" yaml:"position"`
	Rotation float32   `toml:"rotation" yaml:"rotation"`
	// Layers is the optional [min, max] range mapped to depth.
	Layers   []int32 `toml:"layers" yaml:"layers"`
	Inactive bool    `toml:"inactive" yaml:"inactive"`
}

type TintDef struct {
	To       []float32 `toml:"to" yaml:"to"`
	Duration float32   `toml:"duration" yaml:"duration"`
	Ease     string    `toml:"ease" yaml:"ease"`
	PingPong bool      `toml:"ping_pong" yaml:"ping_pong"`
}

type LayerCycleDef struct {
	Layers   []int32 `toml:"layers" yaml:"layers"`
	Interval float32 `toml:"interval" yaml:"interval"`
}

type SpriteDef struct {
	Shape    string    `toml:"shape" yaml:"shape"`
	Texture  string    `toml:"texture" yaml:"texture"`
	Pipeline string    `toml:"pipeline" yaml:"pipeline"`
	Layer    int32     `toml:"layer" yaml:"layer"`
	Position []float32 `toml:"position" yaml:"position"`
	Rotation float32   `toml:"rotation" yaml:"rotation"`
	Scale    []float32 `toml:"scale" yaml:"scale"`
	Color    []float32 `toml:"color" yaml:"color"`
	Inactive bool      `toml:"inactive" yaml:"inactive"`

	// Count > 1 scatters copies uniformly over Area around Position.
	Count int       `toml:"count" yaml:"count"`
	Area  []float32 `toml:"area" yaml:"area"`
	Seed  uint64    `toml:"seed" yaml:"seed"`

	Velocity   []float32      `toml:"velocity" yaml:"velocity"`
	Spin       float32        `toml:"spin" yaml:"spin"`
	Tint       *TintDef       `toml:"tint" yaml:"tint"`
	LayerCycle *LayerCycleDef `toml:"layer_cycle" yaml:"layer_cycle"`
}

type LabelDef struct {
	Font     string    `toml:"font" yaml:"font"`
	Text     string    `toml:"text" yaml:"text"`
	Pipeline string    `toml:"pipeline" yaml:"pipeline"`
	Position []float32 `toml:"position" yaml:"position"`
	Scale    float32   `toml:"scale" yaml:"scale"`
	Color    []float32 `toml:"color" yaml:"color"`
	Layer    int32     `toml:"layer" yaml:"layer"`
}

/**
 * @brief A decoded scene file. Sprites and labels refer to textures, fonts,
 * shapes and pipelines by name.
 */
type File struct {
	Textures  []TextureDef  `toml:"textures" yaml:"textures"`
	Fonts     []FontDef     `toml:"fonts" yaml:"fonts"`
	Pipelines []PipelineDef `toml:"pipelines" yaml:"pipelines"`
	Shapes    []ShapeDef    `toml:"shapes" yaml:"shapes"`
	Cameras   []CameraDef   `toml:"cameras" yaml:"cameras"`
	Sprites   []SpriteDef   `toml:"sprites" yaml:"sprites"`
	Labels    []LabelDef    `toml:"labels" yaml:"labels"`
}

type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatOf picks the decoder from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return FormatTOML, fmt.Errorf("%w: unsupported scene file %s", ErrInvalidScene, path)
}

func ReadFile(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func Decode(data []byte, format Format) (*File, error) {
	f := &File{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidScene, err)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidScene, err)
		}
	}
	return f, nil
}
