// Package commands records the per-image command buffers the frame loop replays.
package commands

import (
	"errors"
	"fmt"

	"epsilon/src/render"
)

// DefaultClearColor is the color each render pass is cleared to.
var DefaultClearColor = [4]float32{0.1, 0.1, 0.1, 1.0}

// Table holds one command buffer per swapchain image, together with the
// framebuffer and pipeline generations it was recorded against.
type Table struct {
	FramebufferGeneration uint64
	PipelineGeneration    uint64
	Buffers               []render.CommandBuffer
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Buffers)
}

// Current reports whether the table was recorded against the given generations.
func (t *Table) Current(framebuffers render.FramebufferSet, pipeline *render.Pipeline) bool {
	if t == nil || pipeline == nil {
		return false
	}
	return t.FramebufferGeneration == framebuffers.Generation &&
		t.PipelineGeneration == pipeline.Generation &&
		len(t.Buffers) == framebuffers.Len()
}

func (t *Table) Release() {
	if t == nil {
		return
	}
	for _, b := range t.Buffers {
		b.Release()
	}
	t.Buffers = nil
}

// Recorder records command tables through a device allocator.
type Recorder struct {
	allocator  render.CommandAllocator
	clearColor [4]float32
}

type RecorderOption func(r *Recorder)

func WithClearColor(c [4]float32) RecorderOption {
	return func(r *Recorder) {
		r.clearColor = c
	}
}

func NewRecorder(allocator render.CommandAllocator, options ...RecorderOption) *Recorder {
	r := &Recorder{allocator: allocator, clearColor: DefaultClearColor}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Record builds one reusable command buffer per framebuffer, in the same
// order. Nothing executes on the device at record time.
func (r *Recorder) Record(framebuffers render.FramebufferSet, pipeline *render.Pipeline, vertices render.VertexBuffer, queueFamily uint32) (*Table, error) {
	if pipeline == nil {
		return nil, errors.New("recording commands: nil pipeline")
	}
	if vertices == nil {
		return nil, errors.New("recording commands: nil vertex buffer")
	}

	table := &Table{
		FramebufferGeneration: framebuffers.Generation,
		PipelineGeneration:    pipeline.Generation,
		Buffers:               make([]render.CommandBuffer, 0, framebuffers.Len()),
	}
	for i, fb := range framebuffers.Framebuffers {
		buf, err := r.recordOne(fb, framebuffers.Extent, pipeline, vertices, queueFamily)
		if err != nil {
			table.Release()
			return nil, fmt.Errorf("recording command buffer %d: %w", i, err)
		}
		table.Buffers = append(table.Buffers, buf)
	}
	return table, nil
}

func (r *Recorder) recordOne(fb render.Framebuffer, extent render.Size, pipeline *render.Pipeline, vertices render.VertexBuffer, queueFamily uint32) (render.CommandBuffer, error) {
	enc, err := r.allocator.BeginCommandBuffer(queueFamily, render.UsageMultipleSubmit)
	if err != nil {
		return nil, err
	}
	enc.BeginRenderPass(pipeline.RenderPass(), fb, extent, r.clearColor)
	enc.BindPipeline(pipeline.Handle)
	enc.BindVertexBuffers(0, vertices)
	enc.Draw(uint32(vertices.Len()), 1, 0, 0)
	enc.EndRenderPass()
	return enc.Finish()
}
