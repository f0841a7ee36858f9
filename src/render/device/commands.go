package device

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
)

func (e *Engine) createCommandPool() error {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: e.graphicsFamily,
	}
	var pool vk.CommandPool
	if err := NewError(vk.CreateCommandPool(e.device, &createInfo, nil, &pool)); err != nil {
		return err
	}
	e.pool = pool
	e.alive |= resPool
	return nil
}

type commandBuffer struct {
	e      *Engine
	handle vk.CommandBuffer
}

func (c *commandBuffer) Release() {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	vk.FreeCommandBuffers(c.e.device, c.e.pool, 1, []vk.CommandBuffer{c.handle})
}

// encoder records into a primary command buffer. Recording calls cannot fail
// individually; the first problem is reported by Finish.
type encoder struct {
	e        *Engine
	handle   vk.CommandBuffer
	err      error
	finished bool
}

// BeginCommandBuffer allocates a primary command buffer from the graphics
// pool and begins recording.
func (e *Engine) BeginCommandBuffer(queueFamily uint32, usage render.CommandBufferUsage) (render.Encoder, error) {
	if queueFamily != e.graphicsFamily {
		return nil, fmt.Errorf("queue family %d has no command pool", queueFamily)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        e.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := NewError(vk.AllocateCommandBuffers(e.device, &allocInfo, buffers)); err != nil {
		return nil, fmt.Errorf("allocating command buffer: %w", err)
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: usageFlags(usage),
	}
	if err := NewError(vk.BeginCommandBuffer(buffers[0], &beginInfo)); err != nil {
		vk.FreeCommandBuffers(e.device, e.pool, 1, buffers)
		return nil, fmt.Errorf("beginning command buffer: %w", err)
	}
	return &encoder{e: e, handle: buffers[0]}, nil
}

func (c *encoder) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *encoder) BeginRenderPass(pass render.RenderPass, fb render.Framebuffer, area render.Size, clear [4]float32) {
	rp, ok := pass.(*renderPass)
	if !ok {
		c.fail(fmt.Errorf("render pass %T was not created by this engine", pass))
		return
	}
	target, ok := fb.(*framebuffer)
	if !ok {
		c.fail(fmt.Errorf("framebuffer %T was not created by this engine", fb))
		return
	}
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.handle,
		Framebuffer: target.handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: area.Width, Height: area.Height},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(clear[:])},
	}
	vk.CmdBeginRenderPass(c.handle, &beginInfo, vk.SubpassContentsInline)
}

func (c *encoder) BindPipeline(p render.PipelineHandle) {
	handle, ok := p.(*pipeline)
	if !ok {
		c.fail(fmt.Errorf("pipeline %T was not created by this engine", p))
		return
	}
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointGraphics, handle.handle)
}

func (c *encoder) BindVertexBuffers(firstBinding uint32, buffers ...render.VertexBuffer) {
	handles := make([]vk.Buffer, 0, len(buffers))
	offsets := make([]vk.DeviceSize, 0, len(buffers))
	for _, b := range buffers {
		vb, ok := b.(*vertexBuffer)
		if !ok {
			c.fail(fmt.Errorf("vertex buffer %T was not created by this engine", b))
			return
		}
		handles = append(handles, vb.buffer)
		offsets = append(offsets, 0)
	}
	vk.CmdBindVertexBuffers(c.handle, firstBinding, uint32(len(handles)), handles, offsets)
}

func (c *encoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(c.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *encoder) EndRenderPass() {
	vk.CmdEndRenderPass(c.handle)
}

// Finish ends recording. On error the command buffer is freed.
func (c *encoder) Finish() (render.CommandBuffer, error) {
	if c.finished {
		return nil, errors.New("command buffer already finished")
	}
	c.finished = true

	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if c.err == nil {
		c.err = NewError(vk.EndCommandBuffer(c.handle))
	}
	if c.err != nil {
		vk.FreeCommandBuffers(c.e.device, c.e.pool, 1, []vk.CommandBuffer{c.handle})
		return nil, fmt.Errorf("recording command buffer: %w", c.err)
	}
	return &commandBuffer{e: c.e, handle: c.handle}, nil
}
