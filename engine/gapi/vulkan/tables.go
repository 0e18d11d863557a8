package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

// Indexed by gapi.ComponentType.
var vertexFormats = [...]vk.Format{
	vk.FormatUndefined,
	vk.FormatR32Sfloat,
	vk.FormatR32g32Sfloat,
	vk.FormatR32g32b32Sfloat,
	vk.FormatR32g32b32a32Sfloat,
	vk.FormatA8b8g8r8UnormPack32,
	vk.FormatR16g16Snorm,
	vk.FormatR16g16b16a16Snorm,
	vk.FormatR16g16Snorm,
	vk.FormatR16g16b16a16Snorm,
}

var vertexSizes = [...]uint32{0, 4, 8, 12, 16, 4, 4, 8, 4, 8}

// Indexed by gapi.CullFace.
var cullModes = [4]vk.CullModeFlagBits{
	vk.CullModeBackBit,
	vk.CullModeFrontBit,
	vk.CullModeNone,
	vk.CullModeNone,
}

// Indexed by gapi.ZTestMode.
var zModes = [9]vk.CompareOp{
	vk.CompareOpAlways,
	vk.CompareOpNever,
	vk.CompareOpGreater,
	vk.CompareOpLess,
	vk.CompareOpGreaterOrEqual,
	vk.CompareOpLessOrEqual,
	vk.CompareOpNotEqual,
	vk.CompareOpEqual,
	vk.CompareOpAlways,
}

// Indexed by gapi.BlendMode.
var blendFactors = [12]vk.BlendFactor{
	vk.BlendFactorZero,
	vk.BlendFactorOne,
	vk.BlendFactorSrcColor,
	vk.BlendFactorOneMinusSrcColor,
	vk.BlendFactorSrcAlpha,
	vk.BlendFactorOneMinusSrcAlpha,
	vk.BlendFactorDstAlpha,
	vk.BlendFactorOneMinusDstAlpha,
	vk.BlendFactorDstColor,
	vk.BlendFactorOneMinusDstColor,
	vk.BlendFactorSrcAlphaSaturate,
	vk.BlendFactorZero,
}

type layoutInfo struct {
	layout vk.ImageLayout
	access vk.AccessFlags
	stage  vk.PipelineStageFlags
}

// Indexed by gapi.TextureLayout.
var textureLayouts = [...]layoutInfo{
	{vk.ImageLayoutUndefined, 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)},
	{vk.ImageLayoutColorAttachmentOptimal, vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	{vk.ImageLayoutDepthStencilAttachmentOptimal, vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit), vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)},
	{vk.ImageLayoutPresentSrc, 0, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)},
	{vk.ImageLayoutTransferSrcOptimal, vk.AccessFlags(vk.AccessTransferReadBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
	{vk.ImageLayoutTransferDstOptimal, vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
}

// Indexed by gapi.BufferLayout; layout is unused.
var bufferLayouts = [...]layoutInfo{
	{access: vk.AccessFlags(vk.AccessShaderReadBit), stage: vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)},
	{access: vk.AccessFlags(vk.AccessShaderWriteBit), stage: vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)},
	{access: vk.AccessFlags(vk.AccessTransferReadBit), stage: vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
	{access: vk.AccessFlags(vk.AccessTransferWriteBit), stage: vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
}

func unsupported(format string, args ...any) error {
	return core.Wrap(core.ErrUnsupported, errors.Newf(format, args...), "translate")
}

func vertexFormat(c gapi.ComponentType) (vk.Format, error) {
	if !c.Valid() || int(c) >= len(vertexFormats) {
		return vk.FormatUndefined, unsupported("vertex component %d", c)
	}
	return vertexFormats[c], nil
}

func vertexSize(c gapi.ComponentType) (uint32, error) {
	if !c.Valid() || int(c) >= len(vertexSizes) {
		return 0, unsupported("vertex component %d", c)
	}
	return vertexSizes[c], nil
}

func topology(tp gapi.Topology) vk.PrimitiveTopology {
	if tp == gapi.Triangles {
		return vk.PrimitiveTopologyTriangleList
	}
	return vk.PrimitiveTopologyLineList
}

func cullMode(c gapi.CullFace) (vk.CullModeFlags, error) {
	if int(c) >= len(cullModes) {
		return 0, unsupported("cull mode %d", c)
	}
	return vk.CullModeFlags(cullModes[c]), nil
}

// zCompare treats unknown modes as always passing.
func zCompare(z gapi.ZTestMode) vk.CompareOp {
	if int(z) >= len(zModes) {
		return vk.CompareOpAlways
	}
	return zModes[z]
}

func blendFactor(b gapi.BlendMode) (vk.BlendFactor, error) {
	if int(b) >= len(blendFactors) {
		return vk.BlendFactorZero, unsupported("blend mode %d", b)
	}
	return blendFactors[b], nil
}

func textureLayout(l gapi.TextureLayout) (layoutInfo, error) {
	if int(l) >= len(textureLayouts) {
		return layoutInfo{}, unsupported("texture layout %d", l)
	}
	return textureLayouts[l], nil
}

// imageTransition returns both sides of a barrier moving an image from prev
// to next. An image leaving Undefined or Present for ColorAttach is a
// swapchain image whose acquire semaphore is waited at color attachment
// output, so the first scope starts there to order the transition after it.
func imageTransition(prev, next gapi.TextureLayout) (from, to layoutInfo, err error) {
	if from, err = textureLayout(prev); err != nil {
		return layoutInfo{}, layoutInfo{}, err
	}
	if to, err = textureLayout(next); err != nil {
		return layoutInfo{}, layoutInfo{}, err
	}
	if next == gapi.ColorAttach && (prev == gapi.Undefined || prev == gapi.Present) {
		from.access = 0
		from.stage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	return from, to, nil
}

func bufferLayout(l gapi.BufferLayout) (layoutInfo, error) {
	if int(l) >= len(bufferLayouts) {
		return layoutInfo{}, unsupported("buffer layout %d", l)
	}
	return bufferLayouts[l], nil
}

func stageFlags(st gapi.ShaderStage) vk.ShaderStageFlags {
	var f vk.ShaderStageFlags
	if st&gapi.StageVertex != 0 {
		f |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if st&gapi.StageFragment != 0 {
		f |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	if st&gapi.StageCompute != 0 {
		f |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	return f
}

func descriptorType(k gapi.UniformKind) (vk.DescriptorType, error) {
	switch k {
	case gapi.UniformBuffer:
		return vk.DescriptorTypeUniformBuffer, nil
	case gapi.UniformTexture:
		return vk.DescriptorTypeCombinedImageSampler, nil
	case gapi.UniformStorage:
		return vk.DescriptorTypeStorageBuffer, nil
	}
	return vk.DescriptorTypeUniformBuffer, unsupported("uniform kind %d", k)
}

func bufferUsage(u gapi.MemUsage) vk.BufferUsageFlags {
	var f vk.BufferUsageFlags
	if u.Has(gapi.MemTransferSrc) {
		f |= vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}
	if u.Has(gapi.MemTransferDst) {
		f |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	if u.Has(gapi.MemUniform) {
		f |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if u.Has(gapi.MemVertex) {
		f |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if u.Has(gapi.MemStorage) {
		f |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	return f
}

// vertexInput lays the attributes of decl out back to back in binding 0.
func vertexInput(decl gapi.Decl, stride uint32) (*vk.PipelineVertexInputStateCreateInfo, error) {
	attrs := make([]vk.VertexInputAttributeDescription, 0, len(decl))
	var offset uint32
	for i, c := range decl {
		format, err := vertexFormat(c)
		if err != nil {
			return nil, err
		}
		size, _ := vertexSize(c)
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  0,
			Format:   format,
			Offset:   offset,
		})
		offset += size
	}
	if offset > stride {
		return nil, unsupported("vertex declaration of %d bytes exceeds stride %d", offset, stride)
	}
	return &vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}, nil
}
