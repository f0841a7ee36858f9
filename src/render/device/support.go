package device

import (
	"math"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
)

// swapchainSupport describes what a surface offers a physical device.
type swapchainSupport struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

func (s swapchainSupport) adequate() bool {
	return len(s.formats) > 0 && len(s.presentModes) > 0
}

func chooseSurfaceFormat(available []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range available {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return available[0]
}

// choosePresentMode prefers mailbox unless vsync is forced; FIFO is always
// available.
func choosePresentMode(available []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent, or the window framebuffer
// size clamped to the supported range when the surface leaves it to us.
func chooseExtent(caps vk.SurfaceCapabilities, framebuffer render.Size) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(framebuffer.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(framebuffer.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// deviceScore ranks physical devices; zero means unusable.
func deviceScore(deviceType vk.PhysicalDeviceType, suitable bool) uint32 {
	if !suitable {
		return 0
	}
	switch deviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 100
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 10
	}
	return 1
}

// timeoutNanos converts a wait timeout; zero waits forever.
func timeoutNanos(d time.Duration) uint64 {
	if d <= 0 {
		return math.MaxUint64
	}
	return uint64(d.Nanoseconds())
}

func vertexFormat(f render.VertexFormat) vk.Format {
	switch f {
	case render.VertexFormatFloat32x3:
		return vk.FormatR32g32b32Sfloat
	case render.VertexFormatFloat32x4:
		return vk.FormatR32g32b32a32Sfloat
	}
	return vk.FormatR32g32Sfloat
}

func topology(t render.Topology) vk.PrimitiveTopology {
	switch t {
	case render.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case render.TopologyLineList:
		return vk.PrimitiveTopologyLineList
	}
	return vk.PrimitiveTopologyTriangleList
}

func shaderStage(s render.ShaderStage) vk.ShaderStageFlagBits {
	if s == render.ShaderStageFragment {
		return vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageVertexBit
}

func usageFlags(u render.CommandBufferUsage) vk.CommandBufferUsageFlags {
	if u == render.UsageOneTimeSubmit {
		return vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// cString terminates s for the vulkan-go string fields.
func cString(s string) string {
	if len(s) > 0 && s[len(s)-1] == 0 {
		return s
	}
	return s + "\x00"
}
