package device

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
	"epsilon/src/render/shader"
)

type renderPass struct {
	e      *Engine
	handle vk.RenderPass
}

func (r *renderPass) Release() {
	r.e.mu.Lock()
	defer r.e.mu.Unlock()
	vk.DestroyRenderPass(r.e.device, r.handle, nil)
}

type framebuffer struct {
	e      *Engine
	handle vk.Framebuffer
}

func (f *framebuffer) Release() {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	vk.DestroyFramebuffer(f.e.device, f.handle, nil)
}

type shaderModule struct {
	e           *Engine
	handle      vk.ShaderModule
	entryPoints []shader.EntryPoint
}

func (s *shaderModule) EntryPoint(name string) bool {
	for _, ep := range s.entryPoints {
		if ep.Name == name {
			return true
		}
	}
	return false
}

func (s *shaderModule) Release() {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	vk.DestroyShaderModule(s.e.device, s.handle, nil)
}

type vertexBuffer struct {
	e      *Engine
	buffer vk.Buffer
	memory vk.DeviceMemory
	count  int
}

func (v *vertexBuffer) Len() int {
	return v.count
}

func (v *vertexBuffer) Release() {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	vk.DestroyBuffer(v.e.device, v.buffer, nil)
	vk.FreeMemory(v.e.device, v.memory, nil)
}

type pipeline struct {
	e      *Engine
	handle vk.Pipeline
	layout vk.PipelineLayout
}

func (p *pipeline) Release() {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	vk.DestroyPipeline(p.e.device, p.handle, nil)
	vk.DestroyPipelineLayout(p.e.device, p.layout, nil)
}

// CreateRenderPass creates the single-subpass pass that clears the swapchain
// image and leaves it ready for presentation.
func (e *Engine) CreateRenderPass() (render.RenderPass, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	colorAttachment := vk.AttachmentDescription{
		Format:         e.format.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if err := NewError(vk.CreateRenderPass(e.device, &createInfo, nil, &handle)); err != nil {
		return nil, fmt.Errorf("creating render pass: %w", err)
	}
	return &renderPass{e: e, handle: handle}, nil
}

// CreateShaderModule creates a module from host-order SPIR-V words. The entry
// points are reflected from the code so pipelines can be validated against it.
func (e *Engine) CreateShaderModule(code []uint32) (render.ShaderModule, error) {
	entryPoints, err := shader.Reflect(code)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}
	var handle vk.ShaderModule
	if err := NewError(vk.CreateShaderModule(e.device, &createInfo, nil, &handle)); err != nil {
		return nil, err
	}
	return &shaderModule{e: e, handle: handle, entryPoints: entryPoints}, nil
}

func (e *Engine) findMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < e.memory.MemoryTypeCount; i++ {
		e.memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && e.memory.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, errors.New("no suitable memory type")
}

// CreateVertexBuffer uploads vertices once into host-visible coherent memory.
func (e *Engine) CreateVertexBuffer(vertices []render.Vertex) (render.VertexBuffer, error) {
	if len(vertices) == 0 {
		return nil, errors.New("creating vertex buffer: no vertices")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	size := vk.DeviceSize(len(vertices) * int(render.VertexStride))
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := NewError(vk.CreateBuffer(e.device, &bufferInfo, nil, &buffer)); err != nil {
		return nil, fmt.Errorf("creating vertex buffer: %w", err)
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(e.device, buffer, &reqs)
	reqs.Deref()
	memType, err := e.findMemoryType(reqs.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		vk.DestroyBuffer(e.device, buffer, nil)
		return nil, fmt.Errorf("creating vertex buffer: %w", err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: memType,
	}
	var memory vk.DeviceMemory
	if err := NewError(vk.AllocateMemory(e.device, &allocInfo, nil, &memory)); err != nil {
		vk.DestroyBuffer(e.device, buffer, nil)
		return nil, fmt.Errorf("allocating vertex memory: %w", err)
	}
	vk.BindBufferMemory(e.device, buffer, memory, 0)

	var data unsafe.Pointer
	if err := NewError(vk.MapMemory(e.device, memory, 0, size, 0, &data)); err != nil {
		vk.DestroyBuffer(e.device, buffer, nil)
		vk.FreeMemory(e.device, memory, nil)
		return nil, fmt.Errorf("mapping vertex memory: %w", err)
	}
	vk.Memcopy(data, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), int(size)))
	vk.UnmapMemory(e.device, memory)

	return &vertexBuffer{e: e, buffer: buffer, memory: memory, count: len(vertices)}, nil
}

// CreateGraphicsPipeline translates desc into a pipeline with a fixed
// viewport and scissor; a new size means a new pipeline.
func (e *Engine) CreateGraphicsPipeline(desc render.PipelineDesc) (render.PipelineHandle, error) {
	rp, ok := desc.RenderPass.(*renderPass)
	if !ok {
		return nil, fmt.Errorf("render pass %T was not created by this engine", desc.RenderPass)
	}
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(desc.Stages))
	for _, s := range desc.Stages {
		module, ok := s.Module.(*shaderModule)
		if !ok {
			return nil, fmt.Errorf("%s shader %T was not created by this engine", s.Stage, s.Module)
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStage(s.Stage),
			Module: module.handle,
			PName:  cString(s.EntryPoint),
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	attributes := make([]vk.VertexInputAttributeDescription, 0, len(desc.VertexLayout.Attributes))
	for _, a := range desc.VertexLayout.Attributes {
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  desc.VertexLayout.Binding,
			Format:   vertexFormat(a.Format),
			Offset:   a.Offset,
		})
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   desc.VertexLayout.Binding,
			Stride:    desc.VertexLayout.Stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               topology(desc.Topology),
		PrimitiveRestartEnable: vk.False,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        desc.Viewport.X,
			Y:        desc.Viewport.Y,
			Width:    desc.Viewport.Width,
			Height:   desc.Viewport.Height,
			MinDepth: desc.Viewport.MinDepth,
			MaxDepth: desc.Viewport.MaxDepth,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Extent: vk.Extent2D{Width: desc.Scissor.Width, Height: desc.Scissor.Height},
		}},
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceClockwise,
	}
	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}
	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(
				vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit,
			),
			BlendEnable:         vk.False,
			SrcColorBlendFactor: vk.BlendFactorOne,
			DstColorBlendFactor: vk.BlendFactorZero,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
		}},
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	var layout vk.PipelineLayout
	if err := NewError(vk.CreatePipelineLayout(e.device, &layoutInfo, nil, &layout)); err != nil {
		return nil, fmt.Errorf("creating pipeline layout: %w", err)
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		Layout:              layout,
		RenderPass:          rp.handle,
		Subpass:             desc.Subpass,
		BasePipelineIndex:   -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(e.device, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines)
	if err := NewError(res); err != nil {
		vk.DestroyPipelineLayout(e.device, layout, nil)
		return nil, err
	}
	return &pipeline{e: e, handle: pipelines[0], layout: layout}, nil
}
