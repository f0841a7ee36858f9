package device

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
)

// retiredSwapchain is kept alive until framebuffers built on its views have
// been released.
type retiredSwapchain struct {
	swapchain vk.Swapchain
	views     []vk.ImageView
}

func (e *Engine) createSwapchain(old vk.Swapchain) error {
	support, err := e.querySwapchainSupport(e.physical)
	if err != nil {
		return err
	}
	if !support.adequate() {
		return errors.New("surface reports no formats or present modes")
	}
	extent := chooseExtent(support.capabilities, e.provider.FramebufferSize())
	if extent.Width == 0 || extent.Height == 0 {
		return render.ErrSurfaceUnavailable
	}
	format := chooseSurfaceFormat(support.formats)
	mode := choosePresentMode(support.presentModes, e.cfg.vsync)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          e.surface,
		MinImageCount:    chooseImageCount(support.capabilities),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	if e.graphicsFamily != e.presentFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{e.graphicsFamily, e.presentFamily}
	}

	var swapchain vk.Swapchain
	if err := NewError(vk.CreateSwapchain(e.device, &createInfo, nil, &swapchain)); err != nil {
		return err
	}

	var count uint32
	vk.GetSwapchainImages(e.device, swapchain, &count, nil)
	images := make([]vk.Image, count)
	vk.GetSwapchainImages(e.device, swapchain, &count, images)

	views, err := e.createViews(images, format.Format)
	if err != nil {
		vk.DestroySwapchain(e.device, swapchain, nil)
		return err
	}

	e.swapchain, e.images, e.views = swapchain, images, views
	e.format, e.extent = format, extent
	e.alive |= resSwapchain
	render.Logger().Debug("swapchain created",
		"extent", render.Size{Width: extent.Width, Height: extent.Height},
		"images", len(images),
		"present_mode", mode,
	)
	return nil
}

func (e *Engine) createViews(images []vk.Image, format vk.Format) ([]vk.ImageView, error) {
	views := make([]vk.ImageView, 0, len(images))
	for i, image := range images {
		createInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := NewError(vk.CreateImageView(e.device, &createInfo, nil, &view)); err != nil {
			e.destroyViews(views)
			return nil, fmt.Errorf("image view %d: %w", i, err)
		}
		views = append(views, view)
	}
	return views, nil
}

func (e *Engine) destroyViews(views []vk.ImageView) {
	for _, view := range views {
		vk.DestroyImageView(e.device, view, nil)
	}
}

func (e *Engine) destroyRetired() {
	for _, r := range e.retired {
		e.destroyViews(r.views)
		vk.DestroySwapchain(e.device, r.swapchain, nil)
	}
	e.retired = nil
}

func (e *Engine) CreateFramebuffers(pass render.RenderPass) (render.FramebufferSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alive&resSwapchain == 0 {
		return render.FramebufferSet{}, render.ErrSurfaceUnavailable
	}
	return e.createFramebuffers(pass)
}

func (e *Engine) createFramebuffers(pass render.RenderPass) (render.FramebufferSet, error) {
	rp, ok := pass.(*renderPass)
	if !ok {
		return render.FramebufferSet{}, fmt.Errorf("render pass %T was not created by this engine", pass)
	}

	set := render.FramebufferSet{Extent: render.Size{Width: e.extent.Width, Height: e.extent.Height}}
	handles := make([]vk.Framebuffer, 0, len(e.views))
	for i, view := range e.views {
		createInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      rp.handle,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           e.extent.Width,
			Height:          e.extent.Height,
			Layers:          1,
		}
		var fb vk.Framebuffer
		if err := NewError(vk.CreateFramebuffer(e.device, &createInfo, nil, &fb)); err != nil {
			for _, h := range handles {
				vk.DestroyFramebuffer(e.device, h, nil)
			}
			return render.FramebufferSet{}, fmt.Errorf("framebuffer %d: %w", i, err)
		}
		handles = append(handles, fb)
		set.Framebuffers = append(set.Framebuffers, &framebuffer{e: e, handle: fb})
	}
	return set, nil
}

// RecreateSwapchain rebuilds the swapchain at the current window size. The
// previous swapchain and its views are retired and destroyed on the next
// rebuild or on Kill, once the framebuffers built on them are gone.
func (e *Engine) RecreateSwapchain(pass render.RenderPass) (render.FramebufferSet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	log := render.Logger()

	if e.provider.FramebufferSize().IsZero() {
		log.Debug("surface minimized, not recreating swapchain")
		return render.FramebufferSet{}, false
	}
	if err := e.waitIdle(); err != nil {
		log.Error("waiting for device idle", "err", err)
		return render.FramebufferSet{}, false
	}
	e.destroyRetired()

	// A failed creation retires the old swapchain anyway; it can no longer be
	// passed as the old swapchain of another creation.
	prev := retiredSwapchain{swapchain: e.swapchain, views: e.views}
	if err := e.createSwapchain(e.swapchain); err != nil {
		log.Warn("recreating swapchain", "err", err)
		if prev.swapchain != vk.NullSwapchain {
			e.retired = append(e.retired, prev)
		}
		e.alive &^= resSwapchain
		e.swapchain, e.views, e.images = vk.NullSwapchain, nil, nil
		return render.FramebufferSet{}, false
	}
	if prev.swapchain != vk.NullSwapchain {
		e.retired = append(e.retired, prev)
	}

	set, err := e.createFramebuffers(pass)
	if err != nil {
		log.Warn("recreating framebuffers", "err", err)
		return render.FramebufferSet{}, false
	}
	return set, true
}
