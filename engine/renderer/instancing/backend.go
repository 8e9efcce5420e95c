package instancing

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

// Opaque backend handles. The core never looks inside them, it only hands
// them back to the backend that created them.
type (
	Pipeline      interface{}
	Buffer        interface{}
	DescriptorSet interface{}
)

/** @brief Primitive topology. Sprites are always drawn as triangle fans. */
type Topology int

const (
	TopologyTriangleFan Topology = iota
)

/** @brief Colour blending applied by the pipeline. */
type BlendMode int

const (
	// BlendAlpha is source-over: src*srcAlpha + dst*(1-srcAlpha).
	BlendAlpha BlendMode = iota
)

/** @brief Depth test comparison. */
type DepthCompare int

const (
	DepthCompareLess DepthCompare = iota
	DepthCompareLessOrEqual
)

func (d DepthCompare) String() string {
	switch d {
	case DepthCompareLessOrEqual:
		return "less_or_equal"
	default:
		return "less"
	}
}

// ParseDepthCompare accepts the values used in configuration files.
func ParseDepthCompare(s string) (DepthCompare, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "less":
		return DepthCompareLess, nil
	case "less_or_equal", "lequal":
		return DepthCompareLessOrEqual, nil
	}
	return DepthCompareLess, fmt.Errorf("unknown depth compare op %q", s)
}

/**
 * @brief Everything a backend needs to build a sprite pipeline.
 */
type PipelineDescriptor struct {
	Name     string
	Shaders  metadata.ShaderPair
	Layout   metadata.VertexLayout
	Topology Topology
	Blend    BlendMode
	/** @brief Depth test is always on, DepthWrite controls writes. */
	DepthWrite   bool
	DepthCompare DepthCompare
	/** @brief The render target extent at build time, used for the default viewport. */
	Extent metadata.Extent2D
}

/**
 * @brief Device resident base geometry of a shape.
 */
type GeometryBuffers struct {
	Vertices    Buffer
	Indices     Buffer
	VertexCount uint32
	IndexCount  uint32
}

// Device creates and destroys long lived GPU objects.
type Device interface {
	CreatePipeline(desc *PipelineDescriptor) (Pipeline, error)
	// DestroyPipeline releases a pipeline that has been replaced. The
	// backend may defer the release until frames using it have retired.
	DestroyPipeline(p Pipeline)
	CreateGeometry(shape *metadata.Shape) (*GeometryBuffers, error)
	DestroyGeometry(g *GeometryBuffers)
}

// FrameAllocator hands out write-once buffers that live until the frame
// slot they were allocated from is reused.
type FrameAllocator interface {
	AllocateUniform(data []byte) (Buffer, error)
	AllocateVertex(data []byte) (Buffer, error)
}

// DescriptorAllocator builds per-frame descriptor sets. Set 0 holds the
// view uniform, set 1 the texture sampler and image.
type DescriptorAllocator interface {
	ViewSet(p Pipeline, uniform Buffer) (DescriptorSet, error)
	TextureSet(p Pipeline, texture *metadata.Texture) (DescriptorSet, error)
}

// CommandRecorder records draw commands. Recording cannot fail; every
// fallible step happens before the first command of a frame.
type CommandRecorder interface {
	BindPipeline(p Pipeline)
	BindDescriptorSet(p Pipeline, set uint32, ds DescriptorSet)
	BindVertexBuffers(firstBinding uint32, buffers ...Buffer)
	BindIndexBuffer(b Buffer)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}

/**
 * @brief The per-frame view of a backend.
 */
type Frame struct {
	/** @brief Monotonic frame counter. */
	Number      uint64
	Target      metadata.RenderTarget
	Allocator   FrameAllocator
	Descriptors DescriptorAllocator
	Recorder    CommandRecorder
}

// Backend is a complete render backend: a device plus frame pacing.
type Backend interface {
	Device
	// BeginFrame resets the frame slot for target and returns the frame to
	// record into.
	BeginFrame(target metadata.RenderTarget) (*Frame, error)
	// EndFrame submits what was recorded.
	EndFrame(frame *Frame) error
	Shutdown()
}
