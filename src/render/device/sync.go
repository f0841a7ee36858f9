package device

import (
	"fmt"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
)

func (e *Engine) createSyncObjects() error {
	semaphoreInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	if err := NewError(vk.CreateSemaphore(e.device, &semaphoreInfo, nil, &e.imageAvailable)); err != nil {
		return err
	}
	if err := NewError(vk.CreateSemaphore(e.device, &semaphoreInfo, nil, &e.renderFinished)); err != nil {
		vk.DestroySemaphore(e.device, e.imageAvailable, nil)
		return err
	}
	if err := NewError(vk.CreateFence(e.device, &fenceInfo, nil, &e.inFlight)); err != nil {
		vk.DestroySemaphore(e.device, e.imageAvailable, nil)
		vk.DestroySemaphore(e.device, e.renderFinished, nil)
		return err
	}
	e.alive |= resSync
	return nil
}

// resetImageAvailable replaces the image semaphore after an acquisition
// whose signal was never waited on.
func (e *Engine) resetImageAvailable() {
	vk.DestroySemaphore(e.device, e.imageAvailable, nil)
	semaphoreInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if err := NewError(vk.CreateSemaphore(e.device, &semaphoreInfo, nil, &e.imageAvailable)); err != nil {
		render.OrPanic(fmt.Errorf("recreating image semaphore: %w", err))
	}
}

// AcquireNextImage waits up to timeout for a presentable image. A zero
// timeout waits forever.
func (e *Engine) AcquireNextImage(timeout time.Duration) (int, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alive&resSwapchain == 0 {
		return 0, false, render.ErrOutOfDate
	}

	var index uint32
	res := vk.AcquireNextImage(e.device, e.swapchain, timeoutNanos(timeout),
		e.imageAvailable, vk.Fence(vk.NullHandle), &index)
	switch res {
	case vk.Success:
		return int(index), false, nil
	case vk.Suboptimal:
		return int(index), true, nil
	case vk.ErrorOutOfDate:
		return 0, false, render.ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return 0, false, render.ErrTimeout
	}
	return 0, false, fmt.Errorf("acquiring image: %w", NewError(res))
}

// Submit executes buffer once the acquired image is available, presents the
// image when rendering finishes and signals the returned fence. Presentation
// reporting an out of date or suboptimal swapchain yields the fence together
// with render.ErrOutOfDate or render.ErrSuboptimal.
func (e *Engine) Submit(imageIndex int, buffer render.CommandBuffer) (render.Fence, error) {
	cb, ok := buffer.(*commandBuffer)
	if !ok {
		return nil, fmt.Errorf("command buffer %T was not created by this engine", buffer)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fences := []vk.Fence{e.inFlight}
	if err := NewError(vk.ResetFences(e.device, 1, fences)); err != nil {
		return nil, fmt.Errorf("resetting fence: %w", err)
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{e.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{e.renderFinished},
	}
	if err := NewError(vk.QueueSubmit(e.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, e.inFlight)); err != nil {
		// Nothing waited on the acquisition.
		e.resetImageAvailable()
		return nil, fmt.Errorf("submitting commands: %w", err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{e.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{e.swapchain},
		PImageIndices:      []uint32{uint32(imageIndex)},
	}
	f := &fence{e: e, handle: e.inFlight}
	switch res := vk.QueuePresent(e.presentQueue, &presentInfo); res {
	case vk.Success:
		return f, nil
	case vk.Suboptimal:
		return f, fmt.Errorf("presenting image %d: %w", imageIndex, render.ErrSuboptimal)
	case vk.ErrorOutOfDate:
		return f, fmt.Errorf("presenting image %d: %w", imageIndex, render.ErrOutOfDate)
	default:
		return f, fmt.Errorf("presenting image %d: %w", imageIndex, NewError(res))
	}
}

type fence struct {
	e      *Engine
	handle vk.Fence
}

// Wait blocks until the submitted frame completes. A zero timeout waits forever.
func (f *fence) Wait(timeout time.Duration) error {
	res := vk.WaitForFences(f.e.device, 1, []vk.Fence{f.handle}, vk.True, timeoutNanos(timeout))
	switch res {
	case vk.Success:
		return nil
	case vk.Timeout:
		return render.ErrTimeout
	}
	return fmt.Errorf("waiting for fence: %w", NewError(res))
}
