package vulkan

import (
	"errors"
	stdmath "math"
	"strings"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/instancer/engine/math"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

func TestAlignUp(t *testing.T) {
	tests := []struct {
		offset, align, want uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{17, 16, 32},
		{5, 0, 5},
		{5, 1, 5},
	}
	for _, tt := range tests {
		if got := alignUp(tt.offset, tt.align); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.offset, tt.align, got, tt.want)
		}
	}
}

func TestStrings(t *testing.T) {
	if got := FromCString([]byte{'a', 'b', 0, 'c'}); got != "ab" {
		t.Errorf("FromCString = %q", got)
	}
	if got := FromCString([]byte("abc")); got != "abc" {
		t.Errorf("FromCString without terminator = %q", got)
	}
	if got := VulkanSafeString("main"); got != "main\x00" {
		t.Errorf("VulkanSafeString = %q", got)
	}
	if got := VulkanSafeString("main\x00"); got != "main\x00" {
		t.Errorf("VulkanSafeString terminated twice: %q", got)
	}
	in := []string{"a", "b"}
	out := VulkanSafeStrings(in)
	if in[0] != "a" || out[0] != "a\x00" || out[1] != "b\x00" {
		t.Errorf("VulkanSafeStrings(%v) = %q", in, out)
	}
}

func TestCheck(t *testing.T) {
	if err := check("op", vk.Success); err != nil {
		t.Fatalf("success: %v", err)
	}
	if err := check("op", vk.Suboptimal); err != nil {
		t.Fatalf("suboptimal is not an error: %v", err)
	}
	err := check("vkCreateBuffer", vk.ErrorOutOfDeviceMemory)
	if err == nil || !strings.Contains(err.Error(), "VK_ERROR_OUT_OF_DEVICE_MEMORY") {
		t.Fatalf("check = %v", err)
	}
	if got := VulkanResultString(vk.Result(-12345)); got != "VkResult(-12345)" {
		t.Errorf("unknown result = %q", got)
	}
}

func TestInstanceExtensions(t *testing.T) {
	got := instanceExtensions([]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, "linux", false)
	want := []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("linux = %v, want %v", got, want)
	}

	got = instanceExtensions([]string{"VK_EXT_metal_surface"}, "darwin", true)
	joined := strings.Join(got, ",")
	for _, e := range []string{"VK_KHR_portability_enumeration", vk.ExtDebugReportExtensionName, "VK_EXT_metal_surface"} {
		if !strings.Contains(joined, e) {
			t.Errorf("darwin debug extensions %v miss %s", got, e)
		}
	}
}

func TestPickQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []queueFamily
		want     queueFamilyInfo
		ok       bool
	}{
		{
			name:     "single family does everything",
			families: []queueFamily{{graphics: true, compute: true, transfer: true, present: true}},
			want:     queueFamilyInfo{Graphics: 0, Present: 0, Transfer: 0},
			ok:       true,
		},
		{
			name: "dedicated transfer",
			families: []queueFamily{
				{graphics: true, compute: true, transfer: true, present: true},
				{compute: true, transfer: true},
				{transfer: true},
			},
			want: queueFamilyInfo{Graphics: 0, Present: 0, Transfer: 2},
			ok:   true,
		},
		{
			name: "split present",
			families: []queueFamily{
				{graphics: true, transfer: true},
				{present: true},
			},
			want: queueFamilyInfo{Graphics: 0, Present: 1, Transfer: 0},
			ok:   true,
		},
		{
			name: "prefers a graphics family that presents",
			families: []queueFamily{
				{graphics: true},
				{graphics: true, present: true},
			},
			want: queueFamilyInfo{Graphics: 1, Present: 1, Transfer: 0},
			ok:   true,
		},
		{
			name:     "no present",
			families: []queueFamily{{graphics: true, transfer: true}},
			ok:       false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickQueueFamilies(tt.families)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeviceRank(t *testing.T) {
	if !(deviceRank(vk.PhysicalDeviceTypeDiscreteGpu) < deviceRank(vk.PhysicalDeviceTypeIntegratedGpu) &&
		deviceRank(vk.PhysicalDeviceTypeIntegratedGpu) < deviceRank(vk.PhysicalDeviceTypeCpu)) {
		t.Fatal("discrete gpus must rank before integrated ones, and those before cpus")
	}
}

func TestSwapchainChoices(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	if got := chooseSurfaceFormat(formats); got.Format != vk.FormatB8g8r8a8Unorm {
		t.Errorf("format = %v", got.Format)
	}
	if got := chooseSurfaceFormat(formats[:1]); got.Format != vk.FormatR8g8b8a8Unorm {
		t.Errorf("fallback format = %v", got.Format)
	}

	if got := choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}); got != vk.PresentModeMailbox {
		t.Errorf("present mode = %v", got)
	}
	if got := choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}); got != vk.PresentModeFifo {
		t.Errorf("fallback present mode = %v", got)
	}

	var caps vk.SurfaceCapabilities
	caps.CurrentExtent = vk.Extent2D{Width: stdmath.MaxUint32, Height: stdmath.MaxUint32}
	caps.MinImageExtent = vk.Extent2D{Width: 1, Height: 1}
	caps.MaxImageExtent = vk.Extent2D{Width: 1024, Height: 1024}
	if got := chooseExtent(caps, 2048, 600); got.Width != 1024 || got.Height != 600 {
		t.Errorf("clamped extent = %+v", got)
	}
	caps.CurrentExtent = vk.Extent2D{Width: 800, Height: 500}
	if got := chooseExtent(caps, 2048, 600); got.Width != 800 || got.Height != 500 {
		t.Errorf("surface extent = %+v", got)
	}

	if got := chooseImageCount(2, 0); got != 3 {
		t.Errorf("unbounded image count = %d", got)
	}
	if got := chooseImageCount(2, 2); got != 2 {
		t.Errorf("bounded image count = %d", got)
	}
}

func TestRingSlot(t *testing.T) {
	slots := splitRing(1000, 2, 256)
	if slots[0].size != 256 || slots[1].base != 256 {
		t.Fatalf("slots = %+v", slots)
	}

	s := slots[1]
	off, err := s.alloc(128, 256)
	if err != nil || off != 256 {
		t.Fatalf("first alloc = %d, %v", off, err)
	}
	if _, err := s.alloc(128, 256); !errors.Is(err, errRingFull) {
		t.Fatalf("aligned alloc past the end = %v, want errRingFull", err)
	}
	off, err = s.alloc(64, 16)
	if err != nil || off != 384 {
		t.Fatalf("packed alloc = %d, %v", off, err)
	}
	s.reset()
	if off, _ := s.alloc(256, 256); off != 256 {
		t.Fatalf("alloc after reset = %d", off)
	}
}

func TestVertexInput(t *testing.T) {
	bindings, attributes := vertexInput(instancing.SpriteLayout())
	if len(bindings) != 2 || len(attributes) != 6 {
		t.Fatalf("%d bindings and %d attributes", len(bindings), len(attributes))
	}
	if bindings[1].InputRate != vk.VertexInputRateInstance || bindings[1].Stride != instancing.InstanceDataSize {
		t.Errorf("instance binding = %+v", bindings[1])
	}
	wantFormats := []vk.Format{
		vk.FormatR32g32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32a32Sfloat,
		vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32Sfloat,
	}
	for i, a := range attributes {
		if a.Location != uint32(i) || a.Format != wantFormats[i] {
			t.Errorf("attribute %d = %+v", i, a)
		}
	}
}

func TestPipelineStateMapping(t *testing.T) {
	if compareOp(instancing.DepthCompareLess) != vk.CompareOpLess ||
		compareOp(instancing.DepthCompareLessOrEqual) != vk.CompareOpLessOrEqual {
		t.Error("depth compare mapping")
	}
	if topology(instancing.TopologyTriangleFan) != vk.PrimitiveTopologyTriangleFan {
		t.Error("sprites are drawn as fans")
	}
	blend := blendAttachment(instancing.BlendAlpha)
	if blend.BlendEnable != vk.True || blend.SrcColorBlendFactor != vk.BlendFactorSrcAlpha ||
		blend.DstColorBlendFactor != vk.BlendFactorOneMinusSrcAlpha {
		t.Errorf("alpha blend = %+v", blend)
	}
	if samplerFilter(metadata.TextureFilterNearest) != vk.FilterNearest || samplerFilter(metadata.TextureFilterLinear) != vk.FilterLinear {
		t.Error("sampler filter mapping")
	}
	if _, err := shaderStageBit(metadata.ShaderStage(2)); err == nil {
		t.Error("unknown shader stage accepted")
	}
}

func TestFrameHelpers(t *testing.T) {
	target := metadata.RenderTarget{Generation: 3, Extent: metadata.Extent2D{Width: 10, Height: 10}}
	if needsRecreate(3, target, false) {
		t.Error("same generation recreated")
	}
	if !needsRecreate(2, target, false) || !needsRecreate(3, target, true) {
		t.Error("stale generation kept")
	}

	vp := flippedViewport(vk.Extent2D{Width: 640, Height: 480})
	if vp.Y != 480 || vp.Height != -480 || vp.Width != 640 {
		t.Errorf("viewport = %+v", vp)
	}

	if _, _, _, _, err := layoutBarrier(vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal); err == nil {
		t.Error("unsupported transition accepted")
	}

	quad := metadata.NewQuad("q", 1, 1)
	if got := len(vertexBytes(quad.Vertices)); got != 4*16 {
		t.Errorf("vertex bytes = %d", got)
	}
	if vertexBytes([]math.Vertex2D{}) != nil || indexBytes(nil) != nil {
		t.Error("empty geometry must have no bytes")
	}
	if got := len(indexBytes([]uint32{0, 1, 2})); got != 12 {
		t.Errorf("index bytes = %d", got)
	}
}

func TestLockPool(t *testing.T) {
	pool := NewVulkanLockPool()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(BufferManagement, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d", counter)
	}

	want := errors.New("boom")
	if err := pool.SafeQueueCall(0, func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("SafeQueueCall = %v", err)
	}
}
