package instancing

import (
	"fmt"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

/**
 * @brief Fixed-function settings of a sprite pipeline.
 */
type PipelineConfig struct {
	Name         string
	DepthCompare DepthCompare
}

/**
 * @brief Owns one graphics pipeline and rebuilds it whenever the render
 * target it was built for goes away. Also owns the device geometry of the
 * shapes drawn with it.
 *
 * Not safe for concurrent use; it is only touched from the render thread.
 */
type PipelineCache struct {
	device  Device
	shaders metadata.ShaderPair
	config  PipelineConfig

	pipeline   Pipeline
	generation uint64
	valid      bool
	rebuilds   int

	geometry map[*metadata.Shape]*GeometryBuffers
}

// NewPipelineCache builds the first pipeline for target right away.
func NewPipelineCache(device Device, shaders metadata.ShaderPair, config PipelineConfig, target metadata.RenderTarget) (*PipelineCache, error) {
	if config.Name == "" {
		config.Name = shaders.Name
	}
	pc := &PipelineCache{
		device:   device,
		shaders:  shaders,
		config:   config,
		geometry: make(map[*metadata.Shape]*GeometryBuffers),
	}
	if err := pc.rebuild(target); err != nil {
		return nil, err
	}
	return pc, nil
}

func (pc *PipelineCache) Name() string {
	return pc.config.Name
}

func (pc *PipelineCache) Shaders() metadata.ShaderPair {
	return pc.shaders
}

// Generation returns the render target generation the current pipeline was built for.
func (pc *PipelineCache) Generation() uint64 {
	return pc.generation
}

// Rebuilds returns how many times the pipeline has been built, the first build included.
func (pc *PipelineCache) Rebuilds() int {
	return pc.rebuilds
}

/**
 * @brief Returns a pipeline valid for target. The pipeline is rebuilt only
 * when the cache was invalidated or target is a newer generation; otherwise
 * the very same handle is returned. target.Changed is ignored: callers that
 * build their own targets must bump Generation to force a rebuild.
 */
func (pc *PipelineCache) GetOrCreate(target metadata.RenderTarget) (Pipeline, error) {
	if pc.valid && pc.generation == target.Generation {
		return pc.pipeline, nil
	}
	if err := pc.rebuild(target); err != nil {
		return nil, err
	}
	return pc.pipeline, nil
}

// Invalidate forces a rebuild on the next GetOrCreate.
func (pc *PipelineCache) Invalidate() {
	pc.valid = false
}

// ReplaceShaders swaps the shader code. The pipeline is rebuilt on next use.
func (pc *PipelineCache) ReplaceShaders(shaders metadata.ShaderPair) {
	pc.shaders = shaders
	pc.valid = false
}

/**
 * @brief Returns the device geometry for shape, uploading it on first use.
 */
func (pc *PipelineCache) Geometry(shape *metadata.Shape) (*GeometryBuffers, error) {
	if g, ok := pc.geometry[shape]; ok {
		return g, nil
	}
	g, err := pc.device.CreateGeometry(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: shape %s: %w", core.ErrGeometryUpload, shape.Name, err)
	}
	pc.geometry[shape] = g
	return g, nil
}

// Destroy releases the pipeline and every geometry buffer owned by the cache.
func (pc *PipelineCache) Destroy() {
	for shape, g := range pc.geometry {
		pc.device.DestroyGeometry(g)
		delete(pc.geometry, shape)
	}
	if pc.pipeline != nil {
		pc.device.DestroyPipeline(pc.pipeline)
		pc.pipeline = nil
	}
	pc.valid = false
}

func (pc *PipelineCache) descriptor(target metadata.RenderTarget) *PipelineDescriptor {
	return &PipelineDescriptor{
		Name:         pc.config.Name,
		Shaders:      pc.shaders,
		Layout:       SpriteLayout(),
		Topology:     TopologyTriangleFan,
		Blend:        BlendAlpha,
		DepthWrite:   true,
		DepthCompare: pc.config.DepthCompare,
		Extent:       target.Extent,
	}
}

func (pc *PipelineCache) rebuild(target metadata.RenderTarget) error {
	p, err := pc.device.CreatePipeline(pc.descriptor(target))
	if err != nil {
		pc.valid = false
		return fmt.Errorf("%w: %s (generation %d): %w", core.ErrPipelineCreate, pc.config.Name, target.Generation, err)
	}
	old := pc.pipeline
	pc.pipeline = p
	pc.generation = target.Generation
	pc.valid = true
	pc.rebuilds++
	if old != nil {
		pc.device.DestroyPipeline(old)
	}
	core.LogDebug("pipeline %s built for render target generation %d", pc.config.Name, target.Generation)
	return nil
}
