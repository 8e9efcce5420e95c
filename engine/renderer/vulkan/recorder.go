package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
)

// recorder writes instancing commands into the frame's command buffer.
type recorder struct {
	cb *VulkanCommandBuffer
}

func (r *recorder) BindPipeline(p instancing.Pipeline) {
	vp, ok := p.(*VulkanPipeline)
	if !ok {
		core.LogError("vulkan: bind of foreign pipeline %T", p)
		return
	}
	vk.CmdBindPipeline(r.cb.Handle, vk.PipelineBindPointGraphics, vp.Handle)
}

func (r *recorder) BindDescriptorSet(p instancing.Pipeline, set uint32, ds instancing.DescriptorSet) {
	vp, ok := p.(*VulkanPipeline)
	vds, dsOK := ds.(*descriptorSet)
	if !ok || !dsOK {
		core.LogError("vulkan: bind of foreign descriptor set %T for %T", ds, p)
		return
	}
	vk.CmdBindDescriptorSets(r.cb.Handle, vk.PipelineBindPointGraphics, vp.PipelineLayout, set, 1,
		[]vk.DescriptorSet{vds.Handle}, 0, nil)
}

func (r *recorder) BindVertexBuffers(firstBinding uint32, buffers ...instancing.Buffer) {
	handles := make([]vk.Buffer, 0, len(buffers))
	offsets := make([]vk.DeviceSize, 0, len(buffers))
	for _, b := range buffers {
		br, ok := b.(*bufferRange)
		if !ok {
			core.LogError("vulkan: bind of foreign vertex buffer %T", b)
			return
		}
		handles = append(handles, br.Buffer.Handle)
		offsets = append(offsets, vk.DeviceSize(br.Offset))
	}
	vk.CmdBindVertexBuffers(r.cb.Handle, firstBinding, uint32(len(handles)), handles, offsets)
}

func (r *recorder) BindIndexBuffer(b instancing.Buffer) {
	br, ok := b.(*bufferRange)
	if !ok {
		core.LogError("vulkan: bind of foreign index buffer %T", b)
		return
	}
	vk.CmdBindIndexBuffer(r.cb.Handle, br.Buffer.Handle, vk.DeviceSize(br.Offset), vk.IndexTypeUint32)
}

func (r *recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(r.cb.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (r *recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(r.cb.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
