// Package pipeline builds the graphics pipeline state object for a given output size.
package pipeline

import (
	"fmt"

	"epsilon/src/render"
)

// EntryPoint is the shader entry point both stages are expected to export.
const EntryPoint = "main"

// Describe returns the pipeline description for the shader pair, output size
// and render pass. It has no side effects.
func Describe(vs, fs render.ShaderModule, size render.Size, pass render.RenderPass) (render.PipelineDesc, error) {
	if size.IsZero() {
		return render.PipelineDesc{}, fmt.Errorf("pipeline size %s: must be non-zero", size)
	}
	stages := []render.StageDesc{
		{Stage: render.ShaderStageVertex, Module: vs, EntryPoint: EntryPoint},
		{Stage: render.ShaderStageFragment, Module: fs, EntryPoint: EntryPoint},
	}
	for _, s := range stages {
		if s.Module == nil || !s.Module.EntryPoint(s.EntryPoint) {
			return render.PipelineDesc{}, fmt.Errorf("%s shader %q: %w", s.Stage, s.EntryPoint, render.ErrMissingEntryPoint)
		}
	}

	return render.PipelineDesc{
		Viewport: render.Viewport{
			Width:    float32(size.Width),
			Height:   float32(size.Height),
			MinDepth: 0,
			MaxDepth: 1,
		},
		Scissor: size,
		VertexLayout: render.VertexLayout{
			Binding: 0,
			Stride:  render.VertexStride,
			Attributes: []render.VertexAttribute{
				{Location: 0, Offset: 0, Format: render.VertexFormatFloat32x2},
			},
		},
		Topology:   render.TopologyTriangleList,
		Stages:     stages,
		RenderPass: pass,
		Subpass:    0,
	}, nil
}

// Build describes the pipeline and creates it on the device. The returned
// pipeline has no generation; the caller tags it when publishing it.
func Build(vs, fs render.ShaderModule, size render.Size, pass render.RenderPass, creator render.PipelineCreator) (*render.Pipeline, error) {
	desc, err := Describe(vs, fs, size, pass)
	if err != nil {
		return nil, err
	}
	handle, err := creator.CreateGraphicsPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("creating graphics pipeline %s: %w", size, err)
	}
	return &render.Pipeline{Size: size, Desc: desc, Handle: handle}, nil
}
