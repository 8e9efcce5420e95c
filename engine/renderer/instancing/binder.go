package instancing

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/math"
)

// ViewUniformSize is the size of the view uniform block.
const ViewUniformSize = 128

/**
 * @brief The view uniform block at set 0 binding 0.
 * CameraTransform holds the rows of the inverse camera matrix, each
 * padded to 16 bytes. CameraProj is column-major.
 */
type ViewUniform struct {
	CameraTransform [3][4]float32
	CameraProj      [16]float32
	Z               float32
	_               [3]float32
}

// NewViewUniform builds the uniform for one batch.
func NewViewUniform(inverseCamera math.Mat3, projection math.Mat4, z float32) ViewUniform {
	v := ViewUniform{
		CameraProj: projection.Data,
		Z:          z,
	}
	for row := 0; row < 3; row++ {
		r := inverseCamera.Row(row)
		v.CameraTransform[row] = [4]float32{r.X, r.Y, r.Z, 0}
	}
	return v
}

func (v *ViewUniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), ViewUniformSize)
}

/**
 * @brief The camera state shared by every batch of a frame.
 */
type View struct {
	InverseCamera math.Mat3
	Projection    math.Mat4
}

// NewView inverts the camera transform. It returns false when the camera
// matrix is singular, in which case nothing can be drawn.
func NewView(frame *FrameBatches) (View, bool) {
	inv, ok := frame.CameraTransform.Matrix().Inverse()
	if !ok {
		return View{}, false
	}
	return View{
		InverseCamera: inv,
		Projection:    frame.Camera.Projection(),
	}, true
}

/**
 * @brief A batch with every resource it needs to be drawn.
 */
type BoundBatch struct {
	Batch         *Batch
	Pipeline      Pipeline
	Geometry      *GeometryBuffers
	ViewSet       DescriptorSet
	TextureSet    DescriptorSet
	Instances     Buffer
	InstanceCount uint32
}

// FrameResourceBinder allocates the transient buffers and descriptor sets
// of a frame. Nothing is cached across frames.
type FrameResourceBinder struct{}

func NewFrameResourceBinder() *FrameResourceBinder {
	return &FrameResourceBinder{}
}

/**
 * @brief Uploads the view uniform and instance data of one batch and
 * builds its descriptor sets. Empty batches are passed through unbound
 * so the executor can report them.
 */
func (fb *FrameResourceBinder) Bind(frame *Frame, view View, batch *Batch, pipeline Pipeline, geometry *GeometryBuffers, instances []InstanceData) (*BoundBatch, error) {
	bound := &BoundBatch{
		Batch:         batch,
		Pipeline:      pipeline,
		Geometry:      geometry,
		InstanceCount: uint32(len(instances)),
	}
	if len(instances) == 0 {
		return bound, nil
	}

	uniform := NewViewUniform(view.InverseCamera, view.Projection, batch.Depth)
	ubo, err := frame.Allocator.AllocateUniform(uniform.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: view uniform: %w", core.ErrBufferAllocation, err)
	}
	bound.Instances, err = frame.Allocator.AllocateVertex(InstanceBytes(instances))
	if err != nil {
		return nil, fmt.Errorf("%w: %d instances: %w", core.ErrBufferAllocation, len(instances), err)
	}
	bound.ViewSet, err = frame.Descriptors.ViewSet(pipeline, ubo)
	if err != nil {
		return nil, fmt.Errorf("%w: view set: %w", core.ErrDescriptorAllocation, err)
	}
	bound.TextureSet, err = frame.Descriptors.TextureSet(pipeline, batch.Key.Texture)
	if err != nil {
		return nil, fmt.Errorf("%w: texture set %s: %w", core.ErrDescriptorAllocation, batch.Key.Texture.Name, err)
	}
	return bound, nil
}
