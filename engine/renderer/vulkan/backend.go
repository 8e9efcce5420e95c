// Package vulkan is the GPU render backend. It implements instancing.Backend
// on top of goki/vulkan with a glfw window surface.
package vulkan

import (
	"errors"
	"fmt"
	stdmath "math"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/containers"
	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

var (
	ErrNoWindow    = errors.New("vulkan backend needs a window")
	ErrEmptyTarget = errors.New("render target has a zero extent")
)

const (
	defaultFramesInFlight = 2
	defaultRingSize       = 4 << 20
	defaultMaxBatches     = 1024
	retiredCapacity       = 64
)

type Config struct {
	AppName string
	Window  Window
	// Target is the render target the first swapchain is built for.
	Target         metadata.RenderTarget
	FramesInFlight int
	// FrameRingSize is the total size of the per-frame uniform and instance ring.
	FrameRingSize uint64
	// MaxBatches bounds the batches of a single frame.
	MaxBatches uint32
	ClearColor math.Vec4
	Debug      bool
}

func (c *Config) defaults() {
	if c.FramesInFlight <= 0 {
		c.FramesInFlight = defaultFramesInFlight
	}
	if c.FrameRingSize == 0 {
		c.FrameRingSize = defaultRingSize
	}
	if c.MaxBatches == 0 {
		c.MaxBatches = defaultMaxBatches
	}
}

// frameSlot holds the objects owned by one frame in flight.
type frameSlot struct {
	commandBuffer  *VulkanCommandBuffer
	descriptors    *DescriptorPool
	imageAvailable vk.Semaphore
	renderComplete vk.Semaphore
	fence          *VulkanFence
}

type retiredPipeline struct {
	pipeline *VulkanPipeline
	frame    uint64
}

/**
 * @brief The Vulkan render backend. One frame records at a time; up to
 * FramesInFlight frames execute on the GPU.
 */
type Backend struct {
	cfg     Config
	context *VulkanContext
	layouts *descriptorLayouts
	ring    *FrameRing
	slots   []*frameSlot

	mu          sync.Mutex
	frameNumber uint64
	recording   bool
	// forceRecreate is set when present reports a stale swapchain.
	forceRecreate bool
	retired       *containers.RingQueue[retiredPipeline]
	textures      []*VulkanTexture
	geometry      map[*instancing.GeometryBuffers]*VulkanBuffer
	indices       map[*instancing.GeometryBuffers]*VulkanBuffer
}

func New(cfg Config) (*Backend, error) {
	if cfg.Window == nil {
		return nil, ErrNoWindow
	}
	if cfg.Target.Extent.Width == 0 || cfg.Target.Extent.Height == 0 {
		return nil, ErrEmptyTarget
	}
	cfg.defaults()

	b := &Backend{
		cfg:      cfg,
		context:  &VulkanContext{},
		retired:  containers.NewRingQueue[retiredPipeline](retiredCapacity),
		geometry: make(map[*instancing.GeometryBuffers]*VulkanBuffer),
		indices:  make(map[*instancing.GeometryBuffers]*VulkanBuffer),
	}
	if err := b.initialize(); err != nil {
		b.Shutdown()
		return nil, err
	}
	core.LogInfo("Vulkan backend initialized: %d frames in flight, %d byte frame ring.", cfg.FramesInFlight, cfg.FrameRingSize)
	return b, nil
}

func (b *Backend) initialize() error {
	ctx := b.context
	if err := loadVulkan(); err != nil {
		return err
	}
	if err := createInstance(ctx, b.cfg.AppName, b.cfg.Window, b.cfg.Debug); err != nil {
		return err
	}
	if err := DeviceCreate(ctx); err != nil {
		return err
	}

	extent := b.cfg.Target.Extent
	sc, err := SwapchainCreate(ctx, extent.Width, extent.Height)
	if err != nil {
		return err
	}
	ctx.Swapchain = sc
	ctx.FramebufferWidth, ctx.FramebufferHeight = sc.Extent.Width, sc.Extent.Height
	ctx.Generation = b.cfg.Target.Generation

	rp, err := RenderpassCreate(ctx, b.cfg.ClearColor, 1.0, 0)
	if err != nil {
		return err
	}
	ctx.MainRenderpass = rp
	if err := sc.createFramebuffers(ctx, rp); err != nil {
		return err
	}

	if b.layouts, err = createDescriptorLayouts(ctx); err != nil {
		return err
	}
	if b.ring, err = NewFrameRing(ctx, b.cfg.FrameRingSize, b.cfg.FramesInFlight); err != nil {
		return fmt.Errorf("%w: %w", core.ErrBufferAllocation, err)
	}

	semaphoreInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := 0; i < b.cfg.FramesInFlight; i++ {
		slot := &frameSlot{}
		b.slots = append(b.slots, slot)
		if slot.commandBuffer, err = NewVulkanCommandBuffer(ctx, ctx.Device.GraphicsCommandPool, true); err != nil {
			return err
		}
		if slot.descriptors, err = NewDescriptorPool(ctx, b.layouts, b.cfg.MaxBatches, b.texture); err != nil {
			return err
		}
		if err := check("vkCreateSemaphore", vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreInfo, ctx.Allocator, &slot.imageAvailable)); err != nil {
			return err
		}
		if err := check("vkCreateSemaphore", vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreInfo, ctx.Allocator, &slot.renderComplete)); err != nil {
			return err
		}
		// Signaled so the first wait on the slot returns at once.
		if slot.fence, err = NewFence(ctx, true); err != nil {
			return err
		}
	}
	return nil
}

// needsRecreate reports whether the swapchain built for generation is stale for target.
func needsRecreate(generation uint64, target metadata.RenderTarget, force bool) bool {
	return force || target.Generation != generation
}

func (b *Backend) recreateSwapchain(target metadata.RenderTarget) error {
	ctx := b.context
	if err := check("vkDeviceWaitIdle", vk.DeviceWaitIdle(ctx.Device.LogicalDevice)); err != nil {
		return err
	}
	ctx.RecreatingSwapchain = true
	defer func() { ctx.RecreatingSwapchain = false }()

	sc, err := ctx.Swapchain.SwapchainRecreate(ctx, target.Extent.Width, target.Extent.Height)
	if err != nil {
		return err
	}
	ctx.Swapchain = sc
	if err := sc.createFramebuffers(ctx, ctx.MainRenderpass); err != nil {
		return err
	}
	ctx.FramebufferWidth, ctx.FramebufferHeight = sc.Extent.Width, sc.Extent.Height
	ctx.Generation = target.Generation
	b.forceRecreate = false
	core.LogInfo("Swapchain recreated for generation %d (%dx%d).", target.Generation, sc.Extent.Width, sc.Extent.Height)
	return nil
}

// flippedViewport puts the origin at the bottom left so +y points up.
func flippedViewport(extent vk.Extent2D) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func (b *Backend) acquire(target metadata.RenderTarget, slot *frameSlot) (uint32, error) {
	ctx := b.context
	index, err := ctx.Swapchain.SwapchainAcquireNextImageIndex(ctx, stdmath.MaxUint64, slot.imageAvailable, vk.NullFence)
	if !errors.Is(err, errOutOfDate) {
		return index, err
	}
	if err := b.recreateSwapchain(target); err != nil {
		return 0, err
	}
	return ctx.Swapchain.SwapchainAcquireNextImageIndex(ctx, stdmath.MaxUint64, slot.imageAvailable, vk.NullFence)
}

func (b *Backend) BeginFrame(target metadata.RenderTarget) (*instancing.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recording {
		return nil, fmt.Errorf("frame %d is still recording", b.frameNumber)
	}
	if target.Extent.Width == 0 || target.Extent.Height == 0 {
		return nil, ErrEmptyTarget
	}
	ctx := b.context
	if needsRecreate(ctx.Generation, target, b.forceRecreate) {
		if err := b.recreateSwapchain(target); err != nil {
			return nil, err
		}
	}

	ctx.CurrentFrame = uint32(b.frameNumber % uint64(len(b.slots)))
	slot := b.slots[ctx.CurrentFrame]
	if err := slot.fence.FenceWait(ctx, stdmath.MaxUint64); err != nil {
		return nil, err
	}
	b.retirePipelines()

	index, err := b.acquire(target, slot)
	if err != nil {
		return nil, err
	}
	ctx.ImageIndex = index

	b.ring.Begin(int(ctx.CurrentFrame))
	if err := slot.descriptors.Reset(); err != nil {
		return nil, err
	}

	cb := slot.commandBuffer
	if err := cb.Reset(); err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		return nil, err
	}
	extent := ctx.Swapchain.Extent
	ctx.MainRenderpass.RenderpassBegin(cb, ctx.Swapchain.Framebuffers[index].Handle, extent)
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{flippedViewport(extent)})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{{Extent: extent}})

	b.recording = true
	return &instancing.Frame{
		Number:      b.frameNumber,
		Target:      target,
		Allocator:   b.ring,
		Descriptors: slot.descriptors,
		Recorder:    &recorder{cb: cb},
	}, nil
}

func (b *Backend) EndFrame(frame *instancing.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording || frame.Number != b.frameNumber {
		return fmt.Errorf("end of frame %d which is not recording", frame.Number)
	}
	b.recording = false
	ctx := b.context
	slot := b.slots[ctx.CurrentFrame]
	cb := slot.commandBuffer

	ctx.MainRenderpass.RenderpassEnd(cb)
	if err := cb.End(); err != nil {
		return err
	}
	if err := slot.fence.FenceReset(ctx); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.renderComplete},
	}
	err := lockPool.SafeQueueCall(uint32(ctx.Device.GraphicsQueueIndex), func() error {
		return check("vkQueueSubmit", vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, slot.fence.Handle))
	})
	if err != nil {
		return err
	}
	cb.UpdateSubmitted()
	b.frameNumber++

	err = ctx.Swapchain.SwapchainPresent(ctx, ctx.Device.PresentQueue, slot.renderComplete, ctx.ImageIndex)
	if errors.Is(err, errOutOfDate) {
		b.forceRecreate = true
		return nil
	}
	return err
}

// retirePipelines destroys replaced pipelines no frame in flight can still use.
func (b *Backend) retirePipelines() {
	n := uint64(len(b.slots))
	for !b.retired.IsEmpty() {
		r, _ := b.retired.Peek()
		if r.frame+n > b.frameNumber {
			return
		}
		_, _ = b.retired.Dequeue()
		r.pipeline.Destroy(b.context)
	}
}

func (b *Backend) CreatePipeline(desc *instancing.PipelineDescriptor) (instancing.Pipeline, error) {
	return NewGraphicsPipeline(b.context, b.context.MainRenderpass, b.layouts, desc)
}

func (b *Backend) DestroyPipeline(p instancing.Pipeline) {
	vp, ok := p.(*VulkanPipeline)
	if !ok {
		core.LogError("vulkan: destroying foreign pipeline %T", p)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.retired.Enqueue(retiredPipeline{pipeline: vp, frame: b.frameNumber}); err != nil {
		// Too many pending; drain the device and release everything.
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
		for !b.retired.IsEmpty() {
			r, _ := b.retired.Dequeue()
			r.pipeline.Destroy(b.context)
		}
		vp.Destroy(b.context)
	}
}

func vertexBytes(vertices []math.Vertex2D) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(vertices[0])))
}

func indexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

func (b *Backend) upload(data []byte, usage vk.BufferUsageFlagBits) (*VulkanBuffer, error) {
	buf, err := BufferCreate(b.context, uint64(len(data)), vk.BufferUsageFlags(usage), hostVisible)
	if err != nil {
		return nil, err
	}
	if err := buf.Write(b.context, 0, data); err != nil {
		buf.Destroy(b.context)
		return nil, err
	}
	return buf, nil
}

func (b *Backend) CreateGeometry(shape *metadata.Shape) (*instancing.GeometryBuffers, error) {
	if len(shape.Vertices) == 0 {
		return nil, fmt.Errorf("shape %s has no vertices", shape.Name)
	}
	vb, err := b.upload(vertexBytes(shape.Vertices), vk.BufferUsageVertexBufferBit)
	if err != nil {
		return nil, err
	}
	g := &instancing.GeometryBuffers{
		Vertices:    &bufferRange{Buffer: vb, Size: vb.Size},
		VertexCount: uint32(len(shape.Vertices)),
	}
	var ib *VulkanBuffer
	if len(shape.Indices) > 0 {
		if ib, err = b.upload(indexBytes(shape.Indices), vk.BufferUsageIndexBufferBit); err != nil {
			vb.Destroy(b.context)
			return nil, err
		}
		g.Indices = &bufferRange{Buffer: ib, Size: ib.Size}
		g.IndexCount = uint32(len(shape.Indices))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.geometry[g] = vb
	if ib != nil {
		b.indices[g] = ib
	}
	return g, nil
}

func (b *Backend) DestroyGeometry(g *instancing.GeometryBuffers) {
	b.mu.Lock()
	defer b.mu.Unlock()
	vb, ok := b.geometry[g]
	if !ok {
		return
	}
	// Geometry may still be referenced by frames in flight.
	vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
	vb.Destroy(b.context)
	delete(b.geometry, g)
	if ib, ok := b.indices[g]; ok {
		ib.Destroy(b.context)
		delete(b.indices, g)
	}
}

// texture returns the device image of tex, uploading it on first use.
func (b *Backend) texture(tex *metadata.Texture) (*VulkanTexture, error) {
	if vt, ok := tex.InternalData.(*VulkanTexture); ok {
		return vt, nil
	}
	vt, err := TextureUpload(b.context, tex)
	if err != nil {
		return nil, err
	}
	tex.InternalData = vt
	b.textures = append(b.textures, vt)
	return vt, nil
}

func (b *Backend) Shutdown() {
	ctx := b.context
	if ctx.Device != nil && ctx.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(ctx.Device.LogicalDevice)

		for !b.retired.IsEmpty() {
			r, _ := b.retired.Dequeue()
			r.pipeline.Destroy(ctx)
		}
		for _, t := range b.textures {
			t.Destroy(ctx)
		}
		b.textures = nil
		for g, vb := range b.geometry {
			vb.Destroy(ctx)
			delete(b.geometry, g)
		}
		for g, ib := range b.indices {
			ib.Destroy(ctx)
			delete(b.indices, g)
		}
		for _, slot := range b.slots {
			slot.destroy(ctx)
		}
		b.slots = nil
		if b.ring != nil {
			b.ring.Destroy()
		}
		if b.layouts != nil {
			b.layouts.destroy(ctx)
		}
		if ctx.Swapchain != nil {
			ctx.Swapchain.SwapchainDestroy(ctx)
			ctx.Swapchain = nil
		}
		if ctx.MainRenderpass != nil {
			ctx.MainRenderpass.RenderpassDestroy(ctx)
			ctx.MainRenderpass = nil
		}
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(ctx)
	}
	destroyInstance(ctx)
}

func (s *frameSlot) destroy(ctx *VulkanContext) {
	device := ctx.Device.LogicalDevice
	if s.descriptors != nil {
		s.descriptors.Destroy()
	}
	if s.commandBuffer != nil && s.commandBuffer.Handle != nil {
		s.commandBuffer.Free(ctx, ctx.Device.GraphicsCommandPool)
	}
	if s.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.imageAvailable, ctx.Allocator)
	}
	if s.renderComplete != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.renderComplete, ctx.Allocator)
	}
	if s.fence != nil {
		s.fence.FenceDestroy(ctx)
	}
}

var _ instancing.Backend = (*Backend)(nil)
