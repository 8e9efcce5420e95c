package instancing

import (
	"context"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

/**
 * @brief Options of the instanced renderer.
 */
type RendererConfig struct {
	DepthCompare   DepthCompare
	ParallelEncode bool
}

/**
 * @brief Drives one frame: collect, prepare every batch, then record.
 * All fallible work finishes before the first command is recorded, so a
 * failed frame records nothing.
 */
type Renderer struct {
	device    Device
	config    RendererConfig
	collector *BatchCollector
	encoder   *Encoder
	binder    *FrameResourceBinder
	executor  *DrawExecutor

	pipelines []*PipelineCache
	reloads   chan metadata.ShaderPair
}

func NewRenderer(device Device, config RendererConfig) *Renderer {
	return &Renderer{
		device:    device,
		config:    config,
		collector: NewBatchCollector(),
		encoder:   NewEncoder(config.ParallelEncode),
		binder:    NewFrameResourceBinder(),
		executor:  NewDrawExecutor(),
		reloads:   make(chan metadata.ShaderPair, 8),
	}
}

// NewPipeline creates a pipeline cache owned by the renderer, built for target.
func (r *Renderer) NewPipeline(name string, shaders metadata.ShaderPair, target metadata.RenderTarget) (*PipelineCache, error) {
	pc, err := NewPipelineCache(r.device, shaders, PipelineConfig{
		Name:         name,
		DepthCompare: r.config.DepthCompare,
	}, target)
	if err != nil {
		return nil, err
	}
	r.pipelines = append(r.pipelines, pc)
	return pc, nil
}

func (r *Renderer) Pipelines() []*PipelineCache {
	return r.pipelines
}

/**
 * @brief Queues new shader code for every pipeline built from a shader
 * pair with the same name. Safe to call from any goroutine; the swap
 * happens at the start of the next frame.
 */
func (r *Renderer) RequestShaderReload(shaders metadata.ShaderPair) {
	select {
	case r.reloads <- shaders:
	default:
		core.LogWarn("shader reload queue full, dropping reload of %s", shaders.Name)
	}
}

func (r *Renderer) applyReloads() {
	for {
		select {
		case pair := <-r.reloads:
			for _, pc := range r.pipelines {
				if pc.Shaders().Name == pair.Name {
					pc.ReplaceShaders(pair)
					core.LogInfo("shaders of pipeline %s replaced", pc.Name())
				}
			}
		default:
			return
		}
	}
}

/**
 * @brief Renders the store into frame.
 *
 * @return The frame stats. A returned error means nothing was recorded;
 * the next frame starts clean.
 */
func (r *Renderer) Draw(ctx context.Context, frame *Frame, store EntityStore) (core.RenderStats, error) {
	stats := core.RenderStats{}
	r.applyReloads()

	batches, ok := r.collector.Collect(store)
	if !ok {
		return stats, nil
	}
	view, ok := NewView(batches)
	if !ok {
		core.LogWarn("camera transform is not invertible, skipping frame %d", frame.Number)
		return stats, nil
	}

	before := r.totalRebuilds()
	pipelines := make([]Pipeline, len(batches.Batches))
	geometry := make([]*GeometryBuffers, len(batches.Batches))
	for i, b := range batches.Batches {
		p, err := b.Key.Pipeline.GetOrCreate(frame.Target)
		if err != nil {
			return stats, err
		}
		g, err := b.Key.Pipeline.Geometry(b.Key.Shape)
		if err != nil {
			return stats, err
		}
		pipelines[i] = p
		geometry[i] = g
	}
	stats.PipelineRebuilds = r.totalRebuilds() - before

	encoded, err := r.encoder.EncodeAll(ctx, batches.Batches)
	if err != nil {
		return stats, err
	}

	bound := make([]*BoundBatch, 0, len(batches.Batches))
	for i, b := range batches.Batches {
		bb, err := r.binder.Bind(frame, view, b, pipelines[i], geometry[i], encoded[i])
		if err != nil {
			return stats, err
		}
		bound = append(bound, bb)
	}

	stats.Batches = len(bound)
	stats.Instances = batches.Instances()
	stats.DrawCalls, stats.SkippedBatches = r.executor.Execute(frame.Recorder, bound)
	return stats, nil
}

func (r *Renderer) totalRebuilds() int {
	n := 0
	for _, pc := range r.pipelines {
		n += pc.Rebuilds()
	}
	return n
}

// Shutdown destroys every pipeline cache created through NewPipeline.
func (r *Renderer) Shutdown() {
	for _, pc := range r.pipelines {
		pc.Destroy()
	}
	r.pipelines = nil
}
