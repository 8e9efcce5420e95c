package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

func shaderStageBit(stage metadata.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case metadata.ShaderStageVertex:
		return vk.ShaderStageVertexBit, nil
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, nil
	}
	return 0, fmt.Errorf("unsupported shader stage %v", stage)
}

func createShaderModule(context *VulkanContext, module metadata.ShaderModule) (vk.ShaderModule, error) {
	if len(module.Code) == 0 {
		return vk.NullShaderModule, fmt.Errorf("%s shader has no code", module.Stage)
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(module.Code) * 4),
		PCode:    module.Code,
	}
	var handle vk.ShaderModule
	err := lockPool.SafeCall(ShaderManagement, func() error {
		return check("vkCreateShaderModule", vk.CreateShaderModule(context.Device.LogicalDevice, &info, context.Allocator, &handle))
	})
	return handle, err
}

/**
 * @brief Creates the modules of both stages. The modules are only needed
 * while the pipeline is built; call the returned release afterwards.
 */
func createShaderStages(context *VulkanContext, pair metadata.ShaderPair) ([]vk.PipelineShaderStageCreateInfo, func(), error) {
	var modules []vk.ShaderModule
	release := func() {
		for _, m := range modules {
			vk.DestroyShaderModule(context.Device.LogicalDevice, m, context.Allocator)
		}
	}
	var stages []vk.PipelineShaderStageCreateInfo
	for _, sm := range []metadata.ShaderModule{pair.Vertex, pair.Fragment} {
		bit, err := shaderStageBit(sm.Stage)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("shader %s: %w", pair.Name, err)
		}
		handle, err := createShaderModule(context, sm)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("shader %s: %w", pair.Name, err)
		}
		modules = append(modules, handle)
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  bit,
			Module: handle,
			PName:  VulkanSafeString(sm.EntryPoint),
		})
	}
	return stages, release, nil
}
