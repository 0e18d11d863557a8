package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/gapi"
)

// fbLayout is what makes two render passes compatible: the color format of
// their single attachment.
type fbLayout struct {
	format vk.Format
}

func (l fbLayout) IsCompatible(other gapi.FramebufferLayout) bool {
	o, ok := other.(fbLayout)
	return ok && o.format == l.format
}

type VPass struct {
	handle vk.RenderPass
	layout fbLayout
	clear  bool
}

func (p *VPass) Layout() gapi.FramebufferLayout {
	return p.layout
}

// CreatePass builds a single subpass pass with one color attachment. The
// attachment enters and leaves the pass as a color attachment; moving it to
// and from other layouts is left to the command buffer barriers.
func (a *VulkanApi) CreatePass(gd gapi.Device, s gapi.Swapchain, clear bool) (gapi.Pass, error) {
	d := dev(gd)
	format := s.(*VSwapchain).format.Format

	loadOp := vk.AttachmentLoadOpLoad
	if clear {
		loadOp = vk.AttachmentLoadOpClear
	}
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         loadOp,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}}
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
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	p := &VPass{layout: fbLayout{format: format}, clear: clear}
	if err := resultError("vkCreateRenderPass", vk.CreateRenderPass(d.logical, &info, nil, &p.handle)); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *VulkanApi) DestroyPass(gd gapi.Device, p gapi.Pass) {
	vk.DestroyRenderPass(dev(gd).logical, p.(*VPass).handle, nil)
}
