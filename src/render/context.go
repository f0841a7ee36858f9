package render

import "time"

// Context is the device layer the frame loop drives. It owns the device,
// queues, swapchain and surface; everything it hands out must be released
// before Kill.
type Context interface {
	PipelineCreator
	CommandAllocator

	QueueFamilyIndex() uint32
	SurfaceSize() Size

	CreateRenderPass() (RenderPass, error)
	CreateShaderModule(code []uint32) (ShaderModule, error)
	CreateVertexBuffer(vertices []Vertex) (VertexBuffer, error)

	// CreateFramebuffers builds framebuffers for the current swapchain images.
	CreateFramebuffers(pass RenderPass) (FramebufferSet, error)

	// RecreateSwapchain rebuilds the swapchain and its framebuffers. It
	// reports false when the surface cannot currently produce an image set.
	RecreateSwapchain(pass RenderPass) (FramebufferSet, bool)

	// AcquireNextImage blocks until a presentable image is free. ErrOutOfDate
	// means the swapchain must be rebuilt; suboptimal images are still usable.
	AcquireNextImage(timeout time.Duration) (imageIndex int, suboptimal bool, err error)

	// Submit waits for the acquired image, executes buffer on the graphics
	// queue, presents the image and signals the returned fence. A non-nil
	// fence may accompany ErrOutOfDate when presentation failed after the
	// work was queued, or ErrSuboptimal when the image was shown on a
	// swapchain that no longer matches the surface.
	Submit(imageIndex int, buffer CommandBuffer) (Fence, error)

	WaitIdle() error

	// Kill releases the swapchain, synchronization objects and device.
	Kill()
}

// PipelineCreator builds backend pipeline objects from a description.
type PipelineCreator interface {
	CreateGraphicsPipeline(desc PipelineDesc) (PipelineHandle, error)
}

// CommandAllocator hands out encoders for the given queue family.
type CommandAllocator interface {
	BeginCommandBuffer(queueFamily uint32, usage CommandBufferUsage) (Encoder, error)
}
