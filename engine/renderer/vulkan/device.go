package vulkan

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   *VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

// MinUniformAlignment is the required offset alignment of uniform buffer ranges.
func (d *VulkanDevice) MinUniformAlignment() uint64 {
	return uint64(d.Properties.Limits.MinUniformBufferOffsetAlignment)
}

// queueFamily is what device selection needs to know about a queue family.
type queueFamily struct {
	graphics bool
	compute  bool
	transfer bool
	present  bool
}

type queueFamilyInfo struct {
	Graphics int32
	Present  int32
	Transfer int32
}

/**
 * @brief Picks the graphics, present and transfer families. A graphics
 * family that can also present is preferred; the transfer family is the
 * one with the fewest other capabilities, which tends to be a dedicated
 * transfer queue.
 */
func pickQueueFamilies(families []queueFamily) (queueFamilyInfo, bool) {
	info := queueFamilyInfo{Graphics: -1, Present: -1, Transfer: -1}
	for i, f := range families {
		if f.graphics && f.present {
			info.Graphics, info.Present = int32(i), int32(i)
			break
		}
	}
	if info.Graphics < 0 {
		for i, f := range families {
			if f.graphics && info.Graphics < 0 {
				info.Graphics = int32(i)
			}
			if f.present && info.Present < 0 {
				info.Present = int32(i)
			}
		}
	}
	minScore := 255
	for i, f := range families {
		// graphics and compute queues always support transfers
		if !f.transfer && !f.graphics && !f.compute {
			continue
		}
		score := 0
		if f.graphics {
			score++
		}
		if f.compute {
			score++
		}
		if score < minScore {
			minScore = score
			info.Transfer = int32(i)
		}
	}
	return info, info.Graphics >= 0 && info.Present >= 0 && info.Transfer >= 0
}

// deviceRank orders candidate devices, lower first.
func deviceRank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 0
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 1
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 2
	case vk.PhysicalDeviceTypeCpu:
		return 3
	default:
		return 4
	}
}

type deviceCandidate struct {
	handle     vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	features   vk.PhysicalDeviceFeatures
	memory     vk.PhysicalDeviceMemoryProperties
	queues     queueFamilyInfo
	support    *VulkanSwapchainSupportInfo
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var count uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &count, devices)); err != nil {
		return err
	}

	var candidates []deviceCandidate
	for _, pd := range devices {
		c, ok := evaluateDevice(pd, context.Surface)
		if ok {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no physical devices were found which meet the requirements")
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return deviceRank(candidates[i].properties.DeviceType) < deviceRank(candidates[j].properties.DeviceType)
	})
	c := candidates[0]

	core.LogInfo("Selected device: '%s'.", FromCString(c.properties.DeviceName[:]))
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(c.properties.ApiVersion).Major(),
		vk.Version(c.properties.ApiVersion).Minor(),
		vk.Version(c.properties.ApiVersion).Patch(),
	)

	context.Device = &VulkanDevice{
		PhysicalDevice:     c.handle,
		SwapchainSupport:   c.support,
		GraphicsQueueIndex: c.queues.Graphics,
		PresentQueueIndex:  c.queues.Present,
		TransferQueueIndex: c.queues.Transfer,
		Properties:         c.properties,
		Features:           c.features,
		Memory:             c.memory,
	}
	return nil
}

func evaluateDevice(pd vk.PhysicalDevice, surface vk.Surface) (deviceCandidate, bool) {
	c := deviceCandidate{handle: pd}
	vk.GetPhysicalDeviceProperties(pd, &c.properties)
	c.properties.Deref()
	c.properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(pd, &c.features)
	c.features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(pd, &c.memory)
	c.memory.Deref()
	name := FromCString(c.properties.DeviceName[:])

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	props := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, props)
	families := make([]queueFamily, familyCount)
	for i := range props {
		props[i].Deref()
		flags := vk.QueueFlagBits(props[i].QueueFlags)
		var present vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surface, &present)
		families[i] = queueFamily{
			graphics: flags&vk.QueueGraphicsBit != 0,
			compute:  flags&vk.QueueComputeBit != 0,
			transfer: flags&vk.QueueTransferBit != 0,
			present:  present == vk.True,
		}
	}
	queues, ok := pickQueueFamilies(families)
	if !ok {
		core.LogInfo("Device %s lacks the required queues, skipping.", name)
		return c, false
	}
	c.queues = queues

	support, err := DeviceQuerySwapchainSupport(pd, surface)
	if err != nil || support.FormatCount < 1 || support.PresentModeCount < 1 {
		core.LogInfo("Device %s lacks swapchain support, skipping.", name)
		return c, false
	}
	c.support = support

	if !hasExtension(pd, vk.KhrSwapchainExtensionName) {
		core.LogInfo("Device %s lacks %s, skipping.", name, vk.KhrSwapchainExtensionName)
		return c, false
	}
	return c, true
}

func deviceExtensions(pd vk.PhysicalDevice) []string {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil) != vk.Success || count == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, props) != vk.Success {
		return nil
	}
	out := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		out = append(out, FromCString(props[i].ExtensionName[:]))
	}
	return out
}

func hasExtension(pd vk.PhysicalDevice, name string) bool {
	for _, e := range deviceExtensions(pd) {
		if e == name {
			return true
		}
	}
	return false
}

// uniqueQueueFamilies lists every distinct family index once, graphics first.
func uniqueQueueFamilies(d *VulkanDevice) []uint32 {
	out := []uint32{uint32(d.GraphicsQueueIndex)}
	for _, idx := range []int32{d.PresentQueueIndex, d.TransferQueueIndex} {
		dup := false
		for _, o := range out {
			if o == uint32(idx) {
				dup = true
			}
		}
		if !dup {
			out = append(out, uint32(idx))
		}
	}
	return out
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")
	families := uniqueQueueFamilies(device)
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, idx := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: idx,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
		lockPool.queueLock(idx)
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	for _, e := range deviceExtensions(device.PhysicalDevice) {
		if e == "VK_KHR_portability_subset" {
			core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
			extensionNames = append(extensionNames, e)
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if device.Features.SamplerAnisotropy == vk.True {
		deviceFeatures.SamplerAnisotropy = vk.True
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if err := check("vkCreateDevice", vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical)); err != nil {
		return err
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(logical, uint32(device.GraphicsQueueIndex), 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(logical, uint32(device.PresentQueueIndex), 0, &device.PresentQueue)
	vk.GetDeviceQueue(logical, uint32(device.TransferQueueIndex), 0, &device.TransferQueue)

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(logical, &poolCreateInfo, context.Allocator, &device.GraphicsCommandPool)); err != nil {
		return err
	}
	core.LogInfo("Graphics command pool created.")

	if !DeviceDetectDepthFormat(device) {
		return fmt.Errorf("no supported depth format")
	}
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	device.GraphicsQueue = nil
	device.PresentQueue = nil
	device.TransferQueue = nil

	if device.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = nil
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	info := &VulkanSwapchainSupportInfo{}
	if err := check("vkGetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities)); err != nil {
		return nil, err
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	if err := check("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &info.FormatCount, nil)); err != nil {
		return nil, err
	}
	if info.FormatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, info.FormatCount)
		if err := check("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &info.FormatCount, info.Formats)); err != nil {
			return nil, err
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	if err := check("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &info.PresentModeCount, nil)); err != nil {
		return nil, err
	}
	if info.PresentModeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, info.PresentModeCount)
		if err := check("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &info.PresentModeCount, info.PresentModes)); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.LinearTilingFeatures&flags == flags || properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}
