package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

/**
 * @brief The device side of a metadata.Texture, stored in its InternalData
 * on first use.
 */
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler
}

// ImageCreate creates an optimal tiled, device local 2D image with a view.
func ImageCreate(context *VulkanContext, width, height uint32, format vk.Format, usage vk.ImageUsageFlags, aspect vk.ImageAspectFlags) (*VulkanImage, error) {
	img := &VulkanImage{Width: width, Height: height}
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	err := lockPool.SafeCall(ImageManagement, func() error {
		if err := check("vkCreateImage", vk.CreateImage(context.Device.LogicalDevice, &info, context.Allocator, &img.Handle)); err != nil {
			return err
		}
		var reqs vk.MemoryRequirements
		vk.GetImageMemoryRequirements(context.Device.LogicalDevice, img.Handle, &reqs)
		reqs.Deref()

		index := context.FindMemoryIndex(reqs.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
		if index < 0 {
			return fmt.Errorf("%w: no device local memory for image", core.ErrBufferAllocation)
		}
		alloc := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  reqs.Size,
			MemoryTypeIndex: uint32(index),
		}
		if err := check("vkAllocateMemory", vk.AllocateMemory(context.Device.LogicalDevice, &alloc, context.Allocator, &img.Memory)); err != nil {
			return err
		}
		return check("vkBindImageMemory", vk.BindImageMemory(context.Device.LogicalDevice, img.Handle, img.Memory, 0))
	})
	if err != nil {
		img.ImageDestroy(context)
		return nil, err
	}
	view, err := createImageView(context, img.Handle, format, aspect)
	if err != nil {
		img.ImageDestroy(context)
		return nil, err
	}
	img.View = view
	return img, nil
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := check("vkCreateImageView", vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view)); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (img *VulkanImage) ImageDestroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if img.View != vk.NullImageView {
		vk.DestroyImageView(device, img.View, context.Allocator)
		img.View = vk.NullImageView
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, img.Memory, context.Allocator)
		img.Memory = vk.NullDeviceMemory
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		img.Handle = vk.NullImage
	}
}

// layoutBarrier returns the access masks and stages of a supported layout transition.
func layoutBarrier(from, to vk.ImageLayout) (src, dst vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, err error) {
	switch {
	case from == vk.ImageLayoutUndefined && to == vk.ImageLayoutTransferDstOptimal:
		return 0, vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit), nil
	case from == vk.ImageLayoutTransferDstOptimal && to == vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), nil
	}
	return 0, 0, 0, 0, fmt.Errorf("unsupported layout transition %d -> %d", from, to)
}

func (img *VulkanImage) transitionLayout(cb *VulkanCommandBuffer, from, to vk.ImageLayout) error {
	src, dst, srcStage, dstStage, err := layoutBarrier(from, to)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
		SrcAccessMask: src,
		DstAccessMask: dst,
	}
	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

/**
 * @brief Uploads the RGBA8 pixels of tex into a sampled image through a
 * staging buffer and creates the sampler for its filter.
 */
func TextureUpload(context *VulkanContext, tex *metadata.Texture) (*VulkanTexture, error) {
	size := uint64(tex.Width) * uint64(tex.Height) * 4
	if tex.Width == 0 || tex.Height == 0 || uint64(len(tex.Pixels)) < size {
		return nil, fmt.Errorf("texture %s: %d bytes of pixels for %dx%d", tex.Name, len(tex.Pixels), tex.Width, tex.Height)
	}

	staging, err := BufferCreate(context, size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)
	if err := staging.Write(context, 0, tex.Pixels[:size]); err != nil {
		return nil, err
	}

	img, err := ImageCreate(context, tex.Width, tex.Height, vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	pool := context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		img.ImageDestroy(context)
		return nil, err
	}
	if err := img.transitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		img.ImageDestroy(context)
		return nil, err
	}
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: tex.Width, Height: tex.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb.Handle, staging.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	if err := img.transitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		img.ImageDestroy(context)
		return nil, err
	}
	if err := cb.EndSingleUse(context, pool, context.Device.GraphicsQueue, uint32(context.Device.GraphicsQueueIndex)); err != nil {
		img.ImageDestroy(context)
		return nil, err
	}

	sampler, err := createSampler(context, tex.Filter)
	if err != nil {
		img.ImageDestroy(context)
		return nil, err
	}
	core.LogDebug("Uploaded texture %s (%dx%d).", tex.Name, tex.Width, tex.Height)
	return &VulkanTexture{Image: img, Sampler: sampler}, nil
}

func samplerFilter(f metadata.TextureFilter) vk.Filter {
	if f == metadata.TextureFilterNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func createSampler(context *VulkanContext, filter metadata.TextureFilter) (vk.Sampler, error) {
	f := samplerFilter(filter)
	info := vk.SamplerCreateInfo{
		SType:         vk.StructureTypeSamplerCreateInfo,
		MagFilter:     f,
		MinFilter:     f,
		AddressModeU:  vk.SamplerAddressModeClampToEdge,
		AddressModeV:  vk.SamplerAddressModeClampToEdge,
		AddressModeW:  vk.SamplerAddressModeClampToEdge,
		MaxAnisotropy: 1,
		BorderColor:   vk.BorderColorIntOpaqueBlack,
		CompareOp:     vk.CompareOpAlways,
		MipmapMode:    vk.SamplerMipmapModeLinear,
	}
	var sampler vk.Sampler
	if err := check("vkCreateSampler", vk.CreateSampler(context.Device.LogicalDevice, &info, context.Allocator, &sampler)); err != nil {
		return nil, err
	}
	return sampler, nil
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Sampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, t.Sampler, context.Allocator)
		t.Sampler = nil
	}
	if t.Image != nil {
		t.Image.ImageDestroy(context)
		t.Image = nil
	}
}
