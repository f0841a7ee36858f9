package device

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, srgb, chooseSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}))
	assert.Equal(t, unorm, chooseSurfaceFormat([]vk.SurfaceFormat{unorm}))
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo, vk.PresentModeMailbox}

	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(all, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(all, true))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}, false))
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(caps, render.Size{Width: 10, Height: 10}))

	caps.CurrentExtent = vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, chooseExtent(caps, render.Size{Width: 1024, Height: 768}))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 1}, chooseExtent(caps, render.Size{Width: 9000, Height: 0}))
}

func TestChooseImageCount(t *testing.T) {
	for _, tc := range []struct {
		min, max, want uint32
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
	} {
		caps := vk.SurfaceCapabilities{MinImageCount: tc.min, MaxImageCount: tc.max}
		assert.Equal(t, tc.want, chooseImageCount(caps), "min %d max %d", tc.min, tc.max)
	}
}

func TestDeviceScore(t *testing.T) {
	discrete := deviceScore(vk.PhysicalDeviceTypeDiscreteGpu, true)
	integrated := deviceScore(vk.PhysicalDeviceTypeIntegratedGpu, true)
	cpu := deviceScore(vk.PhysicalDeviceTypeCpu, true)

	assert.Greater(t, discrete, integrated)
	assert.Greater(t, integrated, cpu)
	assert.NotZero(t, cpu)
	assert.Zero(t, deviceScore(vk.PhysicalDeviceTypeDiscreteGpu, false))
}

func TestTimeoutNanos(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), timeoutNanos(0))
	assert.Equal(t, uint64(math.MaxUint64), timeoutNanos(-time.Second))
	assert.Equal(t, uint64(16_000_000), timeoutNanos(16*time.Millisecond))
}

func TestDescriptorMapping(t *testing.T) {
	assert.Equal(t, vk.FormatR32g32Sfloat, vertexFormat(render.VertexFormatFloat32x2))
	assert.Equal(t, vk.FormatR32g32b32Sfloat, vertexFormat(render.VertexFormatFloat32x3))
	assert.Equal(t, vk.FormatR32g32b32a32Sfloat, vertexFormat(render.VertexFormatFloat32x4))

	assert.Equal(t, vk.PrimitiveTopologyTriangleList, topology(render.TopologyTriangleList))
	assert.Equal(t, vk.PrimitiveTopologyTriangleStrip, topology(render.TopologyTriangleStrip))
	assert.Equal(t, vk.PrimitiveTopologyLineList, topology(render.TopologyLineList))

	assert.Equal(t, vk.ShaderStageVertexBit, shaderStage(render.ShaderStageVertex))
	assert.Equal(t, vk.ShaderStageFragmentBit, shaderStage(render.ShaderStageFragment))

	assert.Equal(t, vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit), usageFlags(render.UsageMultipleSubmit))
	assert.Equal(t, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit), usageFlags(render.UsageOneTimeSubmit))
}

func TestCString(t *testing.T) {
	assert.Equal(t, "main\x00", cString("main"))
	assert.Equal(t, "main\x00", cString("main\x00"))
	assert.Equal(t, "\x00", cString(""))
}

func TestNewError(t *testing.T) {
	require.NoError(t, NewError(vk.Success))
	assert.False(t, IsError(vk.Suboptimal))
	assert.False(t, IsError(vk.Timeout))
	assert.True(t, IsError(vk.ErrorOutOfDate))

	err := NewError(vk.ErrorDeviceLost)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "vulkan error: "))
	assert.Contains(t, err.Error(), "TestNewError")
	assert.Contains(t, err.Error(), "support_test.go")
}
