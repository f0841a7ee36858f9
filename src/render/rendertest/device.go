// Package rendertest provides an in-memory device layer that records every
// call, for driving the render packages without a GPU.
package rendertest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"epsilon/src/render"
)

// AcquireResult scripts one AcquireNextImage call.
type AcquireResult struct {
	Suboptimal bool
	Err        error
}

// SubmitResult scripts one Submit call. NoFence drops the fence from the result.
type SubmitResult struct {
	Err       error
	NoFence   bool
	FenceErrs []error
}

type Submission struct {
	ImageIndex int
	Buffer     *CommandBuffer
}

// Device is a scripted render.Context. Zero values of the scripting fields
// mean "succeed".
type Device struct {
	Size        render.Size
	ImageCount  int
	QueueFamily uint32

	// RecreateFailures makes the next n RecreateSwapchain calls report false.
	RecreateFailures int
	AcquireResults   []AcquireResult
	SubmitResults    []SubmitResult
	PipelineErr      error
	EncoderErr       error

	Ops         []string
	Submissions []Submission
	Pipelines   []*Pipeline
	Killed      bool

	batch     uint64
	nextImage int
}

var _ render.Context = &Device{}

func NewDevice(size render.Size, imageCount int) *Device {
	return &Device{Size: size, ImageCount: imageCount}
}

func (d *Device) record(format string, args ...any) {
	d.Ops = append(d.Ops, fmt.Sprintf(format, args...))
}

// OpsWithPrefix returns the recorded operations starting with prefix, in order.
func (d *Device) OpsWithPrefix(prefix string) []string {
	var out []string
	for _, op := range d.Ops {
		if strings.HasPrefix(op, prefix) {
			out = append(out, op)
		}
	}
	return out
}

// Batch is the number of framebuffer sets created so far; the latest set carries it.
func (d *Device) Batch() uint64 {
	return d.batch
}

// LatestPipeline returns the most recently created pipeline handle.
func (d *Device) LatestPipeline() *Pipeline {
	if len(d.Pipelines) == 0 {
		return nil
	}
	return d.Pipelines[len(d.Pipelines)-1]
}

func (d *Device) QueueFamilyIndex() uint32 {
	return d.QueueFamily
}

func (d *Device) SurfaceSize() render.Size {
	return d.Size
}

func (d *Device) CreateRenderPass() (render.RenderPass, error) {
	d.record("create render pass")
	return &RenderPass{dev: d}, nil
}

func (d *Device) CreateShaderModule(code []uint32) (render.ShaderModule, error) {
	d.record("create shader module")
	return &ShaderModule{dev: d, EntryPoints: []string{"main"}}, nil
}

func (d *Device) CreateVertexBuffer(vertices []render.Vertex) (render.VertexBuffer, error) {
	d.record("create vertex buffer %d", len(vertices))
	return &VertexBuffer{dev: d, Vertices: append([]render.Vertex(nil), vertices...)}, nil
}

func (d *Device) framebuffers() render.FramebufferSet {
	d.batch++
	set := render.FramebufferSet{Extent: d.Size}
	for i := 0; i < d.ImageCount; i++ {
		set.Framebuffers = append(set.Framebuffers, &Framebuffer{
			dev:    d,
			Batch:  d.batch,
			Index:  i,
			Extent: d.Size,
		})
	}
	return set
}

func (d *Device) CreateFramebuffers(pass render.RenderPass) (render.FramebufferSet, error) {
	d.record("create framebuffers")
	if d.Size.IsZero() {
		return render.FramebufferSet{}, render.ErrSurfaceUnavailable
	}
	return d.framebuffers(), nil
}

func (d *Device) RecreateSwapchain(pass render.RenderPass) (render.FramebufferSet, bool) {
	d.record("recreate swapchain")
	if d.RecreateFailures > 0 {
		d.RecreateFailures--
		return render.FramebufferSet{}, false
	}
	if d.Size.IsZero() {
		return render.FramebufferSet{}, false
	}
	d.nextImage = 0
	return d.framebuffers(), true
}

func (d *Device) CreateGraphicsPipeline(desc render.PipelineDesc) (render.PipelineHandle, error) {
	d.record("create pipeline %s", desc.Scissor)
	if d.PipelineErr != nil {
		return nil, d.PipelineErr
	}
	p := &Pipeline{dev: d, ID: len(d.Pipelines) + 1, Desc: desc}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) BeginCommandBuffer(queueFamily uint32, usage render.CommandBufferUsage) (render.Encoder, error) {
	if d.EncoderErr != nil {
		return nil, d.EncoderErr
	}
	return &Encoder{buffer: &CommandBuffer{dev: d, QueueFamily: queueFamily, Usage: usage}}, nil
}

func (d *Device) AcquireNextImage(timeout time.Duration) (int, bool, error) {
	d.record("acquire")
	var res AcquireResult
	if len(d.AcquireResults) > 0 {
		res = d.AcquireResults[0]
		d.AcquireResults = d.AcquireResults[1:]
	}
	if res.Err != nil {
		return 0, false, res.Err
	}
	idx := d.nextImage
	if d.ImageCount > 0 {
		d.nextImage = (d.nextImage + 1) % d.ImageCount
	}
	return idx, res.Suboptimal, nil
}

func (d *Device) Submit(imageIndex int, buffer render.CommandBuffer) (render.Fence, error) {
	d.record("submit %d", imageIndex)
	cb, ok := buffer.(*CommandBuffer)
	if !ok {
		return nil, errors.New("rendertest: foreign command buffer")
	}
	if cb.released {
		panic("rendertest: submitted a released command buffer")
	}
	var res SubmitResult
	if len(d.SubmitResults) > 0 {
		res = d.SubmitResults[0]
		d.SubmitResults = d.SubmitResults[1:]
	}
	if res.Err == nil || errors.Is(res.Err, render.ErrOutOfDate) || errors.Is(res.Err, render.ErrSuboptimal) {
		d.Submissions = append(d.Submissions, Submission{ImageIndex: imageIndex, Buffer: cb})
	}
	if res.NoFence {
		return nil, res.Err
	}
	return &Fence{dev: d, errs: res.FenceErrs}, res.Err
}

func (d *Device) WaitIdle() error {
	d.record("wait idle")
	return nil
}

func (d *Device) Kill() {
	d.record("kill")
	d.Killed = true
}
