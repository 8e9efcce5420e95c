package instancing

import (
	"cmp"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/components"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

/**
 * @brief Identifies instances that can share a single draw call.
 * All pointer fields compare by identity.
 */
type BatchKey struct {
	Shape    *metadata.Shape
	Texture  *metadata.Texture
	Pipeline *PipelineCache
	Layer    int32
}

/**
 * @brief A group of instances drawn with one instanced draw call.
 */
type Batch struct {
	Key BatchKey
	/** @brief The first instance discovered for this key. */
	Representative *Instance
	/** @brief Sort value: mapped depth when the camera maps layers, the raw layer otherwise. */
	Order float64
	/** @brief Depth written to the view uniform for this batch. */
	Depth      float32
	Records    []*Instance
	Transforms []*components.Transform
}

func (b *Batch) Len() int {
	return len(b.Records)
}

func (b *Batch) add(rec *Instance, t *components.Transform) {
	b.Records = append(b.Records, rec)
	b.Transforms = append(b.Transforms, t)
}

/**
 * @brief The result of collecting one frame.
 */
type FrameBatches struct {
	Camera          *components.Camera
	CameraTransform *components.Transform
	/** @brief Batches sorted by Order, ties kept in discovery order. */
	Batches []*Batch
}

// Instances returns the total number of instances over all batches.
func (f *FrameBatches) Instances() int {
	n := 0
	for _, b := range f.Batches {
		n += b.Len()
	}
	return n
}

// BatchCollector groups the active instances of a store into sorted batches.
// It keeps its lookup table between frames to avoid reallocating it.
type BatchCollector struct {
	index map[BatchKey]int
	// layers already reported as clamped
	clamped map[int32]struct{}
}

func NewBatchCollector() *BatchCollector {
	return &BatchCollector{
		index:   make(map[BatchKey]int),
		clamped: make(map[int32]struct{}),
	}
}

/**
 * @brief Collects the frame's batches.
 *
 * @param store The entity store to read.
 * @return The batches and true, or nil and false when the store has no
 * active camera. A frame without a camera draws nothing.
 */
func (c *BatchCollector) Collect(store EntityStore) (*FrameBatches, bool) {
	camera, camTransform := activeCamera(store)
	if camera == nil {
		return nil, false
	}

	clear(c.index)
	batches := make([]*Batch, 0, 16)
	for rec, t := range store.Instances() {
		if rec == nil || t == nil || !rec.Active || !t.Active || !rec.drawable() {
			continue
		}
		key := rec.Key()
		idx, ok := c.index[key]
		if !ok {
			idx = len(batches)
			c.index[key] = idx
			batches = append(batches, &Batch{
				Key:            key,
				Representative: rec,
			})
		}
		batches[idx].add(rec, t)
	}

	for _, b := range batches {
		layer := b.Representative.Layer
		b.Depth = camera.ComputeDepth(layer)
		b.Order = float64(b.Depth)
		if !camera.MapsLayers() {
			b.Order = float64(layer)
		} else if !camera.Layers.Contains(layer) {
			c.warnClamped(camera.Layers, layer)
		}
	}
	slices.SortStableFunc(batches, func(a, b *Batch) int {
		return cmp.Compare(a.Order, b.Order)
	})

	return &FrameBatches{
		Camera:          camera,
		CameraTransform: camTransform,
		Batches:         batches,
	}, true
}

func activeCamera(store EntityStore) (*components.Camera, *components.Transform) {
	for cam, t := range store.Cameras() {
		if cam != nil && t != nil && cam.Active && t.Active {
			return cam, t
		}
	}
	return nil, nil
}

func (c *BatchCollector) warnClamped(r *components.LayerRange, layer int32) {
	if _, ok := c.clamped[layer]; ok {
		return
	}
	c.clamped[layer] = struct{}{}
	core.LogWarn("layer %d is outside the camera range [%d, %d] and shares the depth of its nearest end", layer, r.Min, r.Max)
}
