// Package surface owns the presentable framebuffer set of a swapchain.
package surface

import (
	"fmt"

	"epsilon/src/render"
)

// Swapchain is the part of the device layer that builds framebuffer sets.
type Swapchain interface {
	CreateFramebuffers(pass render.RenderPass) (render.FramebufferSet, error)
	RecreateSwapchain(pass render.RenderPass) (render.FramebufferSet, bool)
}

// Resources produces framebuffer sets tagged with increasing generations.
type Resources struct {
	swapchain  Swapchain
	generation uint64
}

func New(swapchain Swapchain) *Resources {
	return &Resources{swapchain: swapchain}
}

// Initial builds the first framebuffer set at startup.
func (r *Resources) Initial(pass render.RenderPass) (render.FramebufferSet, error) {
	set, err := r.swapchain.CreateFramebuffers(pass)
	if err != nil {
		return render.FramebufferSet{}, fmt.Errorf("creating framebuffers: %w", err)
	}
	return r.tag(set), nil
}

// Rebuild recreates the swapchain and returns a fresh framebuffer set. It
// reports false instead of failing when the surface cannot produce images
// right now, so the caller can retry later. The caller owns the returned set
// and is responsible for releasing the previous one.
func (r *Resources) Rebuild(pass render.RenderPass) (set render.FramebufferSet, ok bool) {
	defer func() {
		if v := recover(); v != nil {
			render.Logger().Error("swapchain rebuild panicked", "panic", v)
			set, ok = render.FramebufferSet{}, false
		}
	}()

	set, ok = r.swapchain.RecreateSwapchain(pass)
	if !ok || set.Len() == 0 {
		return render.FramebufferSet{}, false
	}
	return r.tag(set), true
}

// Generation is the generation of the most recently produced set.
func (r *Resources) Generation() uint64 {
	return r.generation
}

func (r *Resources) tag(set render.FramebufferSet) render.FramebufferSet {
	r.generation++
	set.Generation = r.generation
	return set
}
