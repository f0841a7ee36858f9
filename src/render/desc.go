package render

type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	}
	return "unknown"
}

type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
)

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   VertexFormat
}

// VertexLayout describes a single per-vertex binding.
type VertexLayout struct {
	Binding    uint32
	Stride     uint32
	Attributes []VertexAttribute
}

type StageDesc struct {
	Stage      ShaderStage
	Module     ShaderModule
	EntryPoint string
}

// PipelineDesc is the full fixed-function and programmable configuration of a
// graphics pipeline. The device layer turns it into a backend pipeline object.
type PipelineDesc struct {
	Viewport     Viewport
	Scissor      Size
	VertexLayout VertexLayout
	Topology     Topology
	Stages       []StageDesc
	RenderPass   RenderPass
	Subpass      uint32
}

// CommandBufferUsage tells the device layer how often a recorded buffer is submitted.
type CommandBufferUsage int

const (
	UsageOneTimeSubmit CommandBufferUsage = iota
	UsageMultipleSubmit
)

// Encoder records commands into a single command buffer.
// Finish ends recording; the encoder must not be used afterwards.
type Encoder interface {
	BeginRenderPass(pass RenderPass, framebuffer Framebuffer, area Size, clear [4]float32)
	BindPipeline(pipeline PipelineHandle)
	BindVertexBuffers(firstBinding uint32, buffers ...VertexBuffer)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	EndRenderPass()
	Finish() (CommandBuffer, error)
}
