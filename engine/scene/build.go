package scene

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"golang.org/x/exp/rand"

	"github.com/spaghettifunk/instancer/engine/assets/loaders"
	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
	"github.com/spaghettifunk/instancer/engine/renderer/shaders"
	"github.com/spaghettifunk/instancer/engine/renderer/text"
	"github.com/spaghettifunk/instancer/engine/systems"
	"github.com/spaghettifunk/instancer/engine/world"
)

// DefaultPipeline is created when a scene declares no pipeline.
const DefaultPipeline = "sprite"

// Assets resolves the files a scene refers to.
type Assets interface {
	LoadTexture(path string) (*metadata.Texture, error)
	LoadFont(path string) (*loaders.BitmapFont, error)
	LoadShader(path string) (metadata.ShaderPair, error)
}

// PipelineFactory creates pipeline caches. *instancing.Renderer is one.
type PipelineFactory interface {
	NewPipeline(name string, shaders metadata.ShaderPair, target metadata.RenderTarget) (*instancing.PipelineCache, error)
}

/**
 * @brief Turns a decoded File into entities.
 */
type Builder struct {
	Assets    Assets
	Pipelines PipelineFactory
	// Target the pipelines are first built for.
	Target metadata.RenderTarget
	// Jobs decodes image files concurrently when set.
	Jobs *systems.JobSystem
	// BuiltinShaders provides the shaders of pipelines without a shader file.
	BuiltinShaders func() (metadata.ShaderPair, error)
}

/**
 * @brief The resources and entities created from a scene file.
 */
type Scene struct {
	Textures  map[string]*metadata.Texture
	Fonts     map[string]*text.Font
	Shapes    map[string]*metadata.Shape
	Pipelines map[string]*instancing.PipelineCache
	// ShaderFiles maps a shader file to the pipelines built from it.
	ShaderFiles map[string][]string
	Cameras     []donburi.Entity
	Sprites     []donburi.Entity
}

func newScene() *Scene {
	return &Scene{
		Textures:    make(map[string]*metadata.Texture),
		Fonts:       make(map[string]*text.Font),
		Shapes:      make(map[string]*metadata.Shape),
		Pipelines:   make(map[string]*instancing.PipelineCache),
		ShaderFiles: make(map[string][]string),
	}
}

func (b *Builder) Build(f *File, store *world.Store) (*Scene, error) {
	sc := newScene()
	if err := b.loadTextures(f.Textures, sc); err != nil {
		return nil, err
	}
	for _, def := range f.Fonts {
		bf, err := b.Assets.LoadFont(def.File)
		if err != nil {
			return nil, fmt.Errorf("font %s: %w", def.Name, err)
		}
		sc.Fonts[def.Name] = text.NewFont(bf.Data, bf.Pages)
	}
	for _, def := range f.Shapes {
		shape, err := buildShape(def)
		if err != nil {
			return nil, err
		}
		sc.Shapes[def.Name] = shape
	}
	pipelines := f.Pipelines
	if len(pipelines) == 0 {
		pipelines = []PipelineDef{{Name: DefaultPipeline}}
	}
	for _, def := range pipelines {
		if err := b.buildPipeline(def, sc); err != nil {
			return nil, err
		}
	}
	defaultPipeline := sc.Pipelines[pipelines[0].Name]

	for i, def := range f.Cameras {
		cam, tr, err := buildCamera(def, b.Target.Extent)
		if err != nil {
			return nil, fmt.Errorf("camera %d: %w", i, err)
		}
		sc.Cameras = append(sc.Cameras, store.SpawnCamera(cam, tr))
	}
	for i, def := range f.Sprites {
		if err := spawnSprites(def, sc, store, defaultPipeline); err != nil {
			return nil, fmt.Errorf("sprite %d: %w", i, err)
		}
	}
	for i, def := range f.Labels {
		if err := spawnLabel(def, sc, store, defaultPipeline); err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
	}
	core.LogInfo("scene built: %d textures, %d shapes, %d pipelines, %d cameras, %d sprites",
		len(sc.Textures), len(sc.Shapes), len(sc.Pipelines), len(sc.Cameras), len(sc.Sprites))
	return sc, nil
}

func (b *Builder) loadTextures(defs []TextureDef, sc *Scene) error {
	filters := make([]metadata.TextureFilter, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("%w: texture without a name", ErrInvalidScene)
		}
		filter, err := parseFilter(def.Filter)
		if err != nil {
			return fmt.Errorf("texture %s: %w", def.Name, err)
		}
		filters[i] = filter
	}

	var mu sync.Mutex
	for i, def := range defs {
		if def.File == "" {
			c, err := solidColor(def.Color)
			if err != nil {
				return fmt.Errorf("texture %s: %w", def.Name, err)
			}
			t := metadata.NewSolidTexture(def.Name, c[0], c[1], c[2], c[3])
			t.Filter = filters[i]
			sc.Textures[def.Name] = t
			continue
		}
		load := func() error {
			t, err := b.Assets.LoadTexture(def.File)
			if err != nil {
				return fmt.Errorf("texture %s: %w", def.Name, err)
			}
			t.Name = def.Name
			t.Filter = filters[i]
			mu.Lock()
			sc.Textures[def.Name] = t
			mu.Unlock()
			return nil
		}
		if b.Jobs == nil {
			if err := load(); err != nil {
				return err
			}
			continue
		}
		b.Jobs.Submit(systems.Job{Name: "texture " + def.Name, Run: load})
	}
	if b.Jobs != nil {
		return b.Jobs.Wait()
	}
	return nil
}

func (b *Builder) buildPipeline(def PipelineDef, sc *Scene) error {
	if def.Name == "" {
		return fmt.Errorf("%w: pipeline without a name", ErrInvalidScene)
	}
	var pair metadata.ShaderPair
	var err error
	if def.Shader == "" {
		builtin := b.BuiltinShaders
		if builtin == nil {
			builtin = shaders.Sprite
		}
		pair, err = builtin()
	} else {
		pair, err = b.Assets.LoadShader(def.Shader)
		sc.ShaderFiles[def.Shader] = append(sc.ShaderFiles[def.Shader], def.Name)
	}
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", def.Name, err)
	}
	pc, err := b.Pipelines.NewPipeline(def.Name, pair, b.Target)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", def.Name, err)
	}
	sc.Pipelines[def.Name] = pc
	return nil
}

func buildShape(def ShapeDef) (*metadata.Shape, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: shape without a name", ErrInvalidScene)
	}
	switch strings.ToLower(def.Kind) {
	case "", "quad":
		if def.Width <= 0 || def.Height <= 0 {
			return nil, fmt.Errorf("%w: quad %s needs a positive size", ErrInvalidScene, def.Name)
		}
		return metadata.NewQuad(def.Name, def.Width, def.Height), nil
	case "ngon":
		if def.Sides < 3 || def.Radius <= 0 {
			return nil, fmt.Errorf("%w: ngon %s needs at least 3 sides and a positive radius", ErrInvalidScene, def.Name)
		}
		return metadata.NewRegularPolygon(def.Name, def.Sides, def.Radius), nil
	case "custom":
		if len(def.Vertices) < 3 {
			return nil, fmt.Errorf("%w: custom shape %s needs at least 3 vertices", ErrInvalidScene, def.Name)
		}
		vertices := make([]math.Vertex2D, len(def.Vertices))
		for i, v := range def.Vertices {
			if len(v) != 4 {
				return nil, fmt.Errorf("%w: vertex %d of %s is not [x, y, u, v]", ErrInvalidScene, i, def.Name)
			}
			vertices[i] = math.Vertex2D{Position: math.NewVec2(v[0], v[1]), Texcoord: math.NewVec2(v[2], v[3])}
		}
		for _, idx := range def.Indices {
			if int(idx) >= len(vertices) {
				return nil, fmt.Errorf("%w: index %d of %s out of range", ErrInvalidScene, idx, def.Name)
			}
		}
		return metadata.NewShape(def.Name, vertices, def.Indices), nil
	}
	return nil, fmt.Errorf("%w: unknown shape kind %q", ErrInvalidScene, def.Kind)
}

// buildCamera falls back to extent for a camera without a size.
func buildCamera(def CameraDef, extent metadata.Extent2D) (components.Camera, components.Transform, error) {
	w, h := def.Width, def.Height
	if w == 0 && h == 0 {
		w, h = float32(extent.Width), float32(extent.Height)
	}
	if w <= 0 || h <= 0 {
		return components.Camera{}, components.Transform{}, fmt.Errorf("%w: camera needs a positive size", ErrInvalidScene)
	}
	cam := components.NewCamera(w, h)
	switch len(def.Layers) {
	case 0:
	case 2:
		if def.Layers[0] > def.Layers[1] {
			return components.Camera{}, components.Transform{}, fmt.Errorf("%w: camera layer range %v is reversed", ErrInvalidScene, def.Layers)
		}
		cam.WithLayers(def.Layers[0], def.Layers[1])
	default:
		return components.Camera{}, components.Transform{}, fmt.Errorf("%w: camera layers must be [min, max]", ErrInvalidScene)
	}
	cam.Active = !def.Inactive
	pos, err := vec2(def.Position, math.Vec2{})
	if err != nil {
		return components.Camera{}, components.Transform{}, err
	}
	tr := components.NewTransform(pos)
	tr.Rotation = math.DegToRad(def.Rotation)
	return *cam, *tr, nil
}

func spawnSprites(def SpriteDef, sc *Scene, store *world.Store, fallback *instancing.PipelineCache) error {
	shape, ok := sc.Shapes[def.Shape]
	if !ok {
		return fmt.Errorf("%w: unknown shape %q", ErrInvalidScene, def.Shape)
	}
	tex, ok := sc.Textures[def.Texture]
	if !ok {
		return fmt.Errorf("%w: unknown texture %q", ErrInvalidScene, def.Texture)
	}
	pc := fallback
	if def.Pipeline != "" {
		if pc, ok = sc.Pipelines[def.Pipeline]; !ok {
			return fmt.Errorf("%w: unknown pipeline %q", ErrInvalidScene, def.Pipeline)
		}
	}
	pos, err := vec2(def.Position, math.Vec2{})
	if err != nil {
		return err
	}
	scale, err := vec2(def.Scale, math.NewVec2One())
	if err != nil {
		return err
	}
	color, err := vec4(def.Color, math.NewVec4One())
	if err != nil {
		return err
	}
	area, err := vec2(def.Area, math.Vec2{})
	if err != nil {
		return err
	}
	velocity, err := vec2(def.Velocity, math.Vec2{})
	if err != nil {
		return err
	}

	var extra []donburi.IComponentType
	var tintTo math.Vec4
	var tintFn ease.TweenFunc
	if def.Tint != nil {
		if tintTo, err = vec4(def.Tint.To, color); err != nil {
			return err
		}
		if tintFn, err = parseEase(def.Tint.Ease); err != nil {
			return err
		}
		if def.Tint.Duration <= 0 {
			return fmt.Errorf("%w: tint duration must be positive", ErrInvalidScene)
		}
		extra = append(extra, systems.Tint)
	}
	if def.LayerCycle != nil {
		if len(def.LayerCycle.Layers) == 0 || def.LayerCycle.Interval <= 0 {
			return fmt.Errorf("%w: layer_cycle needs layers and a positive interval", ErrInvalidScene)
		}
		extra = append(extra, systems.LayerCycle)
	}
	moving := velocity != (math.Vec2{}) || def.Spin != 0
	if moving {
		extra = append(extra, systems.Motion)
	}

	count := def.Count
	if count < 1 {
		count = 1
	}
	r := rand.New(rand.NewSource(def.Seed))
	for i := 0; i < count; i++ {
		p := pos
		if count > 1 {
			p = pos.Add(math.NewVec2((r.Float32()-0.5)*area.X, (r.Float32()-0.5)*area.Y))
		}
		inst := instancing.NewInstance(shape, tex, pc, def.Layer)
		inst.Color = color
		inst.Active = !def.Inactive
		tr := components.NewTransform(p)
		tr.Rotation = math.DegToRad(def.Rotation)
		tr.Scale = scale

		e := store.SpawnSprite(*inst, *tr, extra...)
		entry, _ := store.Entry(e)
		if def.Tint != nil {
			// every copy runs its own tween
			systems.Tint.SetValue(entry, systems.NewTint(color, tintTo, def.Tint.Duration, tintFn, def.Tint.PingPong))
		}
		if def.LayerCycle != nil {
			systems.LayerCycle.SetValue(entry, systems.LayerCycleData{
				Layers:   append([]int32(nil), def.LayerCycle.Layers...),
				Interval: def.LayerCycle.Interval,
			})
		}
		if moving {
			systems.Motion.SetValue(entry, systems.MotionData{Velocity: velocity, Spin: def.Spin})
		}
		sc.Sprites = append(sc.Sprites, e)
	}
	return nil
}

func spawnLabel(def LabelDef, sc *Scene, store *world.Store, fallback *instancing.PipelineCache) error {
	font, ok := sc.Fonts[def.Font]
	if !ok {
		return fmt.Errorf("%w: unknown font %q", ErrInvalidScene, def.Font)
	}
	pc := fallback
	if def.Pipeline != "" {
		if pc, ok = sc.Pipelines[def.Pipeline]; !ok {
			return fmt.Errorf("%w: unknown pipeline %q", ErrInvalidScene, def.Pipeline)
		}
	}
	pos, err := vec2(def.Position, math.Vec2{})
	if err != nil {
		return err
	}
	color, err := vec4(def.Color, math.NewVec4One())
	if err != nil {
		return err
	}
	glyphs := font.Layout(def.Text, pos, text.Style{
		Scale:    def.Scale,
		Color:    color,
		Layer:    def.Layer,
		Pipeline: pc,
	})
	for _, g := range glyphs {
		sc.Sprites = append(sc.Sprites, store.SpawnSprite(g.Instance, g.Transform))
	}
	return nil
}

var eases = map[string]ease.TweenFunc{
	"":            ease.Linear,
	"linear":      ease.Linear,
	"in_out_quad": ease.InOutQuad,
	"in_out_sine": ease.InOutSine,
	"in_out_cubic": ease.InOutCubic,
	"out_cubic":   ease.OutCubic,
	"out_bounce":  ease.OutBounce,
	"out_elastic": ease.OutElastic,
}

func parseEase(name string) (ease.TweenFunc, error) {
	fn, ok := eases[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ease %q", ErrInvalidScene, name)
	}
	return fn, nil
}

func parseFilter(s string) (metadata.TextureFilter, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return metadata.TextureFilterLinear, nil
	case "nearest":
		return metadata.TextureFilterNearest, nil
	}
	return metadata.TextureFilterLinear, fmt.Errorf("%w: unknown filter %q", ErrInvalidScene, s)
}

func solidColor(c []uint8) ([4]uint8, error) {
	switch len(c) {
	case 0:
		return [4]uint8{255, 255, 255, 255}, nil
	case 3:
		return [4]uint8{c[0], c[1], c[2], 255}, nil
	case 4:
		return [4]uint8{c[0], c[1], c[2], c[3]}, nil
	}
	return [4]uint8{}, fmt.Errorf("%w: color needs 3 or 4 channels", ErrInvalidScene)
}

func vec2(v []float32, def math.Vec2) (math.Vec2, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 2:
		return math.NewVec2(v[0], v[1]), nil
	}
	return def, fmt.Errorf("%w: expected 2 components, got %d", ErrInvalidScene, len(v))
}

func vec4(v []float32, def math.Vec4) (math.Vec4, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return math.NewVec4(v[0], v[1], v[2], 1), nil
	case 4:
		return math.NewVec4(v[0], v[1], v[2], v[3]), nil
	}
	return def, fmt.Errorf("%w: expected 3 or 4 components, got %d", ErrInvalidScene, len(v))
}
