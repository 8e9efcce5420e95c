package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

// descriptorSet is the opaque instancing.DescriptorSet of this backend.
type descriptorSet struct {
	Handle vk.DescriptorSet
	Set    uint32
}

// The set layouts every sprite pipeline shares.
type descriptorLayouts struct {
	view    vk.DescriptorSetLayout
	texture vk.DescriptorSetLayout
}

func viewLayoutBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}
}

func textureLayoutBindings() []vk.DescriptorSetLayoutBinding {
	stage := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	return []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeSampler, DescriptorCount: 1, StageFlags: stage},
		{Binding: 1, DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: 1, StageFlags: stage},
	}
}

func createSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	err := check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &info, context.Allocator, &layout))
	return layout, err
}

func createDescriptorLayouts(context *VulkanContext) (*descriptorLayouts, error) {
	l := &descriptorLayouts{}
	var err error
	if l.view, err = createSetLayout(context, viewLayoutBindings()); err != nil {
		return nil, err
	}
	if l.texture, err = createSetLayout(context, textureLayoutBindings()); err != nil {
		l.destroy(context)
		return nil, err
	}
	return l, nil
}

func (l *descriptorLayouts) destroy(context *VulkanContext) {
	if l.view != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, l.view, context.Allocator)
		l.view = nil
	}
	if l.texture != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, l.texture, context.Allocator)
		l.texture = nil
	}
}

// poolSizes sizes a pool for maxSets batches: one view and one texture set each.
func poolSizes(maxSets uint32) []vk.DescriptorPoolSize {
	return []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: maxSets},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: maxSets},
	}
}

/**
 * @brief The descriptor pool of one frame in flight. It is reset when the
 * frame slot is reused, which frees every set allocated from it.
 */
type DescriptorPool struct {
	context *VulkanContext
	handle  vk.DescriptorPool
	layouts *descriptorLayouts
	// textures resolves a texture to its uploaded image, uploading on first use.
	textures func(*metadata.Texture) (*VulkanTexture, error)
}

func NewDescriptorPool(context *VulkanContext, layouts *descriptorLayouts, maxBatches uint32, textures func(*metadata.Texture) (*VulkanTexture, error)) (*DescriptorPool, error) {
	sizes := poolSizes(maxBatches)
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxBatches * 2,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	p := &DescriptorPool{context: context, layouts: layouts, textures: textures}
	if err := check("vkCreateDescriptorPool", vk.CreateDescriptorPool(context.Device.LogicalDevice, &info, context.Allocator, &p.handle)); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *DescriptorPool) Reset() error {
	return lockPool.SafeCall(DescriptorManagement, func() error {
		return check("vkResetDescriptorPool", vk.ResetDescriptorPool(p.context.Device.LogicalDevice, p.handle, 0))
	})
}

func (p *DescriptorPool) Destroy() {
	if p.handle != nil {
		vk.DestroyDescriptorPool(p.context.Device.LogicalDevice, p.handle, p.context.Allocator)
		p.handle = nil
	}
}

func (p *DescriptorPool) allocate(layout vk.DescriptorSetLayout, set uint32, writes func(vk.DescriptorSet) []vk.WriteDescriptorSet) (*descriptorSet, error) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	ds := &descriptorSet{Set: set}
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if err := check("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(p.context.Device.LogicalDevice, &info, &ds.Handle)); err != nil {
			return err
		}
		w := writes(ds.Handle)
		vk.UpdateDescriptorSets(p.context.Device.LogicalDevice, uint32(len(w)), w, 0, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (p *DescriptorPool) ViewSet(pipeline instancing.Pipeline, uniform instancing.Buffer) (instancing.DescriptorSet, error) {
	if _, ok := pipeline.(*VulkanPipeline); !ok {
		return nil, fmt.Errorf("foreign pipeline %T", pipeline)
	}
	ubo, ok := uniform.(*bufferRange)
	if !ok {
		return nil, fmt.Errorf("foreign uniform buffer %T", uniform)
	}
	return p.allocate(p.layouts.view, instancing.ViewSetIndex, func(set vk.DescriptorSet) []vk.WriteDescriptorSet {
		return []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: ubo.Buffer.Handle,
				Offset: vk.DeviceSize(ubo.Offset),
				Range:  vk.DeviceSize(ubo.Size),
			}},
		}}
	})
}

func (p *DescriptorPool) TextureSet(pipeline instancing.Pipeline, texture *metadata.Texture) (instancing.DescriptorSet, error) {
	if _, ok := pipeline.(*VulkanPipeline); !ok {
		return nil, fmt.Errorf("foreign pipeline %T", pipeline)
	}
	vt, err := p.textures(texture)
	if err != nil {
		return nil, err
	}
	return p.allocate(p.layouts.texture, instancing.TextureSetIndex, func(set vk.DescriptorSet) []vk.WriteDescriptorSet {
		return []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      0,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeSampler,
				PImageInfo:      []vk.DescriptorImageInfo{{Sampler: vt.Sampler}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      1,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeSampledImage,
				PImageInfo: []vk.DescriptorImageInfo{{
					ImageView:   vt.Image.View,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				}},
			},
		}
	})
}
