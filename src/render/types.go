package render

import (
	"fmt"
	"time"
	"unsafe"
)

// Size is the drawable area of a surface in pixels.
type Size struct {
	Width, Height uint32
}

func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Vertex is a single 2D position, the only attribute the triangle program feeds the pipeline.
type Vertex struct {
	Position [2]float32
}

// VertexStride is the byte stride of Vertex in a vertex buffer.
const VertexStride = uint32(unsafe.Sizeof(Vertex{}))

// Releaser is implemented by every device-owned object.
type Releaser interface {
	Release()
}

type RenderPass interface {
	Releaser
}

type Framebuffer interface {
	Releaser
}

// ShaderModule is a compiled shader handed out by the device layer.
type ShaderModule interface {
	Releaser
	// EntryPoint reports whether the module exports an entry point with the given name.
	EntryPoint(name string) bool
}

// VertexBuffer is an immutable, device-resident array of vertices.
type VertexBuffer interface {
	Releaser
	Len() int
}

type PipelineHandle interface {
	Releaser
}

type CommandBuffer interface {
	Releaser
}

// Fence signals completion of submitted work.
type Fence interface {
	// Wait blocks until the work completes. A zero timeout waits forever;
	// otherwise ErrTimeout is returned when the deadline passes first.
	Wait(timeout time.Duration) error
}

// FramebufferSet is one framebuffer per swapchain image, indexed by image index.
// A set is replaced wholesale on rebuild and never mutated.
type FramebufferSet struct {
	Generation   uint64
	Extent       Size
	Framebuffers []Framebuffer
}

func (s FramebufferSet) Len() int {
	return len(s.Framebuffers)
}

// Release frees every framebuffer in the set.
func (s FramebufferSet) Release() {
	for _, fb := range s.Framebuffers {
		if fb != nil {
			fb.Release()
		}
	}
}

// Pipeline is an immutable pipeline state object bound to one render pass,
// one surface size and one shader pair.
type Pipeline struct {
	Generation uint64
	Size       Size
	Desc       PipelineDesc
	Handle     PipelineHandle
}

func (p *Pipeline) Release() {
	if p != nil && p.Handle != nil {
		p.Handle.Release()
	}
}

// RenderPass returns the render pass the pipeline was built for.
func (p *Pipeline) RenderPass() RenderPass {
	return p.Desc.RenderPass
}
