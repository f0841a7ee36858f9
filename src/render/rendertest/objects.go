package rendertest

import (
	"time"

	"epsilon/src/render"
)

type RenderPass struct {
	dev      *Device
	Released bool
}

func (r *RenderPass) Release() {
	r.dev.record("release render pass")
	r.Released = true
}

type Framebuffer struct {
	dev      *Device
	Batch    uint64
	Index    int
	Extent   render.Size
	Released bool
}

func (f *Framebuffer) Release() {
	f.dev.record("release framebuffer %d/%d", f.Batch, f.Index)
	f.Released = true
}

type ShaderModule struct {
	dev         *Device
	EntryPoints []string
	Released    bool
}

func (s *ShaderModule) EntryPoint(name string) bool {
	for _, ep := range s.EntryPoints {
		if ep == name {
			return true
		}
	}
	return false
}

func (s *ShaderModule) Release() {
	s.dev.record("release shader module")
	s.Released = true
}

type VertexBuffer struct {
	dev      *Device
	Vertices []render.Vertex
	Released bool
}

func (v *VertexBuffer) Len() int {
	return len(v.Vertices)
}

func (v *VertexBuffer) Release() {
	v.dev.record("release vertex buffer")
	v.Released = true
}

type Pipeline struct {
	dev      *Device
	ID       int
	Desc     render.PipelineDesc
	Released bool
}

func (p *Pipeline) Release() {
	p.dev.record("release pipeline %d", p.ID)
	p.Released = true
}

// Draw is a recorded draw call.
type Draw struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

type CommandBuffer struct {
	dev         *Device
	QueueFamily uint32
	Usage       render.CommandBufferUsage

	// Commands is the recorded command stream, by name.
	Commands    []string
	RenderPass  render.RenderPass
	Framebuffer *Framebuffer
	Pipeline    *Pipeline
	Vertex      *VertexBuffer
	Clear       [4]float32
	Area        render.Size
	Draws       []Draw

	released bool
}

func (c *CommandBuffer) Released() bool {
	return c.released
}

func (c *CommandBuffer) Release() {
	c.dev.record("release command buffer")
	c.released = true
}

// Encoder records into a CommandBuffer.
type Encoder struct {
	buffer   *CommandBuffer
	finished bool
}

func (e *Encoder) BeginRenderPass(pass render.RenderPass, framebuffer render.Framebuffer, area render.Size, clear [4]float32) {
	e.buffer.Commands = append(e.buffer.Commands, "begin render pass")
	e.buffer.RenderPass = pass
	e.buffer.Framebuffer, _ = framebuffer.(*Framebuffer)
	e.buffer.Area = area
	e.buffer.Clear = clear
}

func (e *Encoder) BindPipeline(pipeline render.PipelineHandle) {
	e.buffer.Commands = append(e.buffer.Commands, "bind pipeline")
	e.buffer.Pipeline, _ = pipeline.(*Pipeline)
}

func (e *Encoder) BindVertexBuffers(firstBinding uint32, buffers ...render.VertexBuffer) {
	e.buffer.Commands = append(e.buffer.Commands, "bind vertex buffers")
	if firstBinding == 0 && len(buffers) > 0 {
		e.buffer.Vertex, _ = buffers[0].(*VertexBuffer)
	}
}

func (e *Encoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.buffer.Commands = append(e.buffer.Commands, "draw")
	e.buffer.Draws = append(e.buffer.Draws, Draw{vertexCount, instanceCount, firstVertex, firstInstance})
}

func (e *Encoder) EndRenderPass() {
	e.buffer.Commands = append(e.buffer.Commands, "end render pass")
}

func (e *Encoder) Finish() (render.CommandBuffer, error) {
	if e.finished {
		panic("rendertest: encoder finished twice")
	}
	e.finished = true
	return e.buffer, nil
}

// Fence fails its first waits with the scripted errors, then succeeds.
type Fence struct {
	dev   *Device
	errs  []error
	Waits int
}

func (f *Fence) Wait(timeout time.Duration) error {
	f.dev.record("fence wait")
	f.Waits++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}
