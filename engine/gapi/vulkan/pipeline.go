package vulkan

import (
	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

// VPipeline is a logical graphics pipeline. Native pipelines are built on
// demand, one per render target size and pass layout.
type VPipeline struct {
	name string

	layout    vk.PipelineLayout
	setLayout vk.DescriptorSetLayout

	state  gapi.RenderState
	decl   gapi.Decl
	stride uint32
	tp     gapi.Topology
	ulay   *gapi.UniformsLayout
	vs, fs *VShader

	cache gapi.InstanceCache[vk.Pipeline]
}

func (p *VPipeline) Topology() gapi.Topology        { return p.tp }
func (p *VPipeline) Uniforms() *gapi.UniformsLayout { return p.ulay }

// Instances reports how many native pipelines were built so far.
func (p *VPipeline) Instances() int {
	return p.cache.Len()
}

func (d *VDevice) createPipelineLayout(ulay *gapi.UniformsLayout) (vk.PipelineLayout, vk.DescriptorSetLayout, error) {
	setLayout, err := d.setLayout(ulay)
	if err != nil {
		return nil, nil, err
	}
	var layout vk.PipelineLayout
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
	}
	if err := resultError("vkCreatePipelineLayout", vk.CreatePipelineLayout(d.logical, &info, nil, &layout)); err != nil {
		return nil, nil, err
	}
	return layout, setLayout, nil
}

// CreatePipeline validates the fixed function state and creates the
// pipeline layout. No native pipeline exists until the first draw.
func (a *VulkanApi) CreatePipeline(gd gapi.Device, st gapi.RenderState, decl gapi.Decl, stride uint32, tp gapi.Topology,
	ulay *gapi.UniformsLayout, vs, fs gapi.Shader) (gapi.Pipeline, error) {
	d := dev(gd)
	if _, err := vertexInput(decl, stride); err != nil {
		return nil, err
	}
	if _, err := cullMode(st.Cull); err != nil {
		return nil, err
	}
	if _, err := blendFactor(st.BlendSource); err != nil {
		return nil, err
	}
	if _, err := blendFactor(st.BlendDest); err != nil {
		return nil, err
	}

	layout, setLayout, err := d.createPipelineLayout(ulay)
	if err != nil {
		return nil, err
	}
	p := &VPipeline{
		name:      uuid.NewString()[:8],
		layout:    layout,
		setLayout: setLayout,
		state:     st,
		decl:      append(gapi.Decl(nil), decl...),
		stride:    stride,
		tp:        tp,
		ulay:      ulay,
		vs:        vs.(*VShader),
		fs:        fs.(*VShader),
	}
	core.LogDebug("pipeline %s: %s, %d attributes, stride %d", p.name, tp, len(decl), stride)
	return p, nil
}

func (a *VulkanApi) DestroyPipeline(gd gapi.Device, gp gapi.Pipeline) {
	d := dev(gd)
	p := gp.(*VPipeline)
	p.cache.Drain(func(native vk.Pipeline) {
		vk.DestroyPipeline(d.logical, native, nil)
	})
	vk.DestroyPipelineLayout(d.logical, p.layout, nil)
}

// instance returns the native pipeline for drawing into a w by h target
// of pass.
func (p *VPipeline) instance(d *VDevice, pass *VPass, w, h uint32) (vk.Pipeline, error) {
	return p.cache.Instance(pass.layout, w, h, func() (vk.Pipeline, error) {
		native, err := p.build(d, pass.handle, w, h)
		if err != nil {
			return nil, err
		}
		core.LogDebug("pipeline %s: built instance for %dx%d", p.name, w, h)
		return native, nil
	})
}

func (p *VPipeline) build(d *VDevice, pass vk.RenderPass, w, h uint32) (vk.Pipeline, error) {
	st := p.state
	vertexState, err := vertexInput(p.decl, p.stride)
	if err != nil {
		return nil, err
	}
	cull, err := cullMode(st.Cull)
	if err != nil {
		return nil, err
	}
	src, err := blendFactor(st.BlendSource)
	if err != nil {
		return nil, err
	}
	dst, err := blendFactor(st.BlendDest)
	if err != nil {
		return nil, err
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology(p.tp),
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		RasterizerDiscardEnable: vkBool(st.RasterDiscard),
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                cull,
		FrontFace:               vk.FrontFaceClockwise,
		LineWidth:               1.0,
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			BlendEnable:         vkBool(st.HasBlend()),
			SrcColorBlendFactor: src,
			DstColorBlendFactor: dst,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: src,
			DstAlphaBlendFactor: dst,
			AlphaBlendOp:        vk.BlendOpAdd,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		}},
	}
	depth := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vkBool(st.ZTest != gapi.ZAlways),
		DepthWriteEnable: vkBool(st.ZWrite),
		DepthCompareOp:   zCompare(st.ZTest),
	}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: 1,
		PDynamicStates:    []vk.DynamicState{vk.DynamicStateViewport},
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
		PScissors: []vk.Rect2D{{
			Extent: vk.Extent2D{Width: w, Height: h},
		}},
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          2,
		PStages:             []vk.PipelineShaderStageCreateInfo{p.vs.stageInfo(), p.fs.stageInfo()},
		PVertexInputState:   vertexState,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewport,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depth,
		PColorBlendState:    &blend,
		PDynamicState:       &dynamic,
		Layout:              p.layout,
		RenderPass:          pass,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.logical, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := resultError("vkCreateGraphicsPipelines", res); err != nil {
		if pipelines[0] != vk.NullPipeline {
			vk.DestroyPipeline(d.logical, pipelines[0], nil)
		}
		return nil, err
	}
	return pipelines[0], nil
}

type VCompPipeline struct {
	handle    vk.Pipeline
	layout    vk.PipelineLayout
	setLayout vk.DescriptorSetLayout
	ulay      *gapi.UniformsLayout
}

func (p *VCompPipeline) Uniforms() *gapi.UniformsLayout {
	return p.ulay
}

func (a *VulkanApi) CreateComputePipeline(gd gapi.Device, ulay *gapi.UniformsLayout, cs gapi.Shader) (gapi.CompPipeline, error) {
	d := dev(gd)
	layout, setLayout, err := d.createPipelineLayout(ulay)
	if err != nil {
		return nil, err
	}
	info := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  cs.(*VShader).stageInfo(),
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateComputePipelines(d.logical, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{info}, nil, pipelines)
	if err := resultError("vkCreateComputePipelines", res); err != nil {
		vk.DestroyPipelineLayout(d.logical, layout, nil)
		return nil, err
	}
	return &VCompPipeline{handle: pipelines[0], layout: layout, setLayout: setLayout, ulay: ulay}, nil
}

func (a *VulkanApi) DestroyComputePipeline(gd gapi.Device, gp gapi.CompPipeline) {
	d := dev(gd)
	p := gp.(*VCompPipeline)
	vk.DestroyPipeline(d.logical, p.handle, nil)
	vk.DestroyPipelineLayout(d.logical, p.layout, nil)
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
