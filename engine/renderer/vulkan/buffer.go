package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
)

var errRingFull = errors.New("frame ring slot is full")

const hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// vertexAlign keeps instance ranges on a 16 byte boundary.
const vertexAlign = 16

/**
 * @brief A buffer with its own memory. Host visible buffers stay mapped
 * for their whole life.
 */
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags

	mapped unsafe.Pointer
}

/**
 * @brief A range of a VulkanBuffer. This is the opaque instancing.Buffer
 * the vulkan backend hands out.
 */
type bufferRange struct {
	Buffer *VulkanBuffer
	Offset uint64
	Size   uint64
}

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buf := &VulkanBuffer{Size: size, Usage: usage}
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	err := lockPool.SafeCall(BufferManagement, func() error {
		device := context.Device.LogicalDevice
		if err := check("vkCreateBuffer", vk.CreateBuffer(device, &info, context.Allocator, &buf.Handle)); err != nil {
			return err
		}
		var reqs vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, buf.Handle, &reqs)
		reqs.Deref()

		index := context.FindMemoryIndex(reqs.MemoryTypeBits, uint32(memoryFlags))
		if index < 0 {
			return fmt.Errorf("no memory type with flags %#x", uint32(memoryFlags))
		}
		alloc := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  reqs.Size,
			MemoryTypeIndex: uint32(index),
		}
		if err := check("vkAllocateMemory", vk.AllocateMemory(device, &alloc, context.Allocator, &buf.Memory)); err != nil {
			return err
		}
		if err := check("vkBindBufferMemory", vk.BindBufferMemory(device, buf.Handle, buf.Memory, 0)); err != nil {
			return err
		}
		if memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
			return check("vkMapMemory", vk.MapMemory(device, buf.Memory, 0, vk.DeviceSize(size), 0, &buf.mapped))
		}
		return nil
	})
	if err != nil {
		buf.Destroy(context)
		return nil, err
	}
	return buf, nil
}

// Write copies data into a mapped buffer at offset.
func (b *VulkanBuffer) Write(context *VulkanContext, offset uint64, data []byte) error {
	if b.mapped == nil {
		return fmt.Errorf("buffer is not host visible")
	}
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("write of %d bytes at %d overflows buffer of %d", len(data), offset, b.Size)
	}
	vk.Memcopy(unsafe.Add(b.mapped, offset), data)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(device, b.Memory)
		b.mapped = nil
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
}

// ringSlot is the part of the frame ring owned by one frame in flight.
type ringSlot struct {
	base uint64
	size uint64
	used uint64
}

// alloc reserves n bytes aligned to align and returns their absolute offset.
func (s *ringSlot) alloc(n, align uint64) (uint64, error) {
	start := alignUp(s.base+s.used, align)
	if start+n > s.base+s.size {
		return 0, fmt.Errorf("%w: %d bytes requested, %d of %d used", errRingFull, n, s.used, s.size)
	}
	s.used = start + n - s.base
	return start, nil
}

func (s *ringSlot) reset() {
	s.used = 0
}

// splitRing divides size bytes into count slots whose bases keep align.
func splitRing(size uint64, count int, align uint64) []ringSlot {
	per := size / uint64(count)
	per -= per % align
	slots := make([]ringSlot, count)
	for i := range slots {
		slots[i] = ringSlot{base: uint64(i) * per, size: per}
	}
	return slots
}

/**
 * @brief A host visible buffer carved into one slot per frame in flight.
 * Uniforms and instance data of a frame live in its slot until the slot
 * comes round again.
 */
type FrameRing struct {
	context      *VulkanContext
	buffer       *VulkanBuffer
	slots        []ringSlot
	current      int
	uniformAlign uint64
}

func NewFrameRing(context *VulkanContext, size uint64, frames int) (*FrameRing, error) {
	uniformAlign := context.Device.MinUniformAlignment()
	if uniformAlign < vertexAlign {
		uniformAlign = vertexAlign
	}
	usage := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageUniformBufferBit)
	buf, err := BufferCreate(context, size, usage, hostVisible)
	if err != nil {
		return nil, err
	}
	return &FrameRing{
		context:      context,
		buffer:       buf,
		slots:        splitRing(size, frames, uniformAlign),
		uniformAlign: uniformAlign,
	}, nil
}

// Begin makes slot the current one and forgets what it held.
func (r *FrameRing) Begin(slot int) {
	r.current = slot
	r.slots[slot].reset()
}

func (r *FrameRing) allocate(data []byte, align uint64) (instancing.Buffer, error) {
	offset, err := r.slots[r.current].alloc(uint64(len(data)), align)
	if err != nil {
		return nil, err
	}
	if err := r.buffer.Write(r.context, offset, data); err != nil {
		return nil, err
	}
	return &bufferRange{Buffer: r.buffer, Offset: offset, Size: uint64(len(data))}, nil
}

func (r *FrameRing) AllocateUniform(data []byte) (instancing.Buffer, error) {
	return r.allocate(data, r.uniformAlign)
}

func (r *FrameRing) AllocateVertex(data []byte) (instancing.Buffer, error) {
	return r.allocate(data, vertexAlign)
}

func (r *FrameRing) Destroy() {
	if r.buffer != nil {
		r.buffer.Destroy(r.context)
		r.buffer = nil
	}
}
