package instancing

import (
	"github.com/spaghettifunk/instancer/engine/core"
)

/** @brief How a batch is drawn. */
type DrawKind int

const (
	// DrawArrays draws the shape's vertices in order.
	DrawArrays DrawKind = iota
	// DrawIndexed draws through the shape's index buffer.
	DrawIndexed
)

func (k DrawKind) String() string {
	if k == DrawIndexed {
		return "indexed"
	}
	return "arrays"
}

// DrawKindOf picks the draw variant for uploaded geometry.
func DrawKindOf(g *GeometryBuffers) DrawKind {
	if g.Indices != nil && g.IndexCount > 0 {
		return DrawIndexed
	}
	return DrawArrays
}

// DrawExecutor records bound batches into a command recorder.
type DrawExecutor struct{}

func NewDrawExecutor() *DrawExecutor {
	return &DrawExecutor{}
}

/**
 * @brief Records one draw per batch, in the order given. Each batch binds
 * pipeline, set 0, set 1 and both vertex buffers before drawing.
 *
 * @return The number of draws recorded and the number of batches skipped.
 */
func (e *DrawExecutor) Execute(rec CommandRecorder, batches []*BoundBatch) (draws int, skipped int) {
	for _, b := range batches {
		if b.InstanceCount == 0 {
			// the collector never produces empty batches
			core.LogError("empty batch reached the draw executor (layer %d), skipping", b.Batch.Key.Layer)
			skipped++
			continue
		}
		rec.BindPipeline(b.Pipeline)
		rec.BindDescriptorSet(b.Pipeline, ViewSetIndex, b.ViewSet)
		rec.BindDescriptorSet(b.Pipeline, TextureSetIndex, b.TextureSet)
		rec.BindVertexBuffers(GeometryBinding, b.Geometry.Vertices, b.Instances)

		switch DrawKindOf(b.Geometry) {
		case DrawIndexed:
			rec.BindIndexBuffer(b.Geometry.Indices)
			rec.DrawIndexed(b.Geometry.IndexCount, b.InstanceCount, 0, 0, 0)
		case DrawArrays:
			rec.Draw(b.Geometry.VertexCount, b.InstanceCount, 0, 0)
		}
		draws++
	}
	return draws, skipped
}
