package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/gapi"
)

type VFbo struct {
	handle        vk.Framebuffer
	width, height uint32
	attachments   []gapi.Attach
}

func (f *VFbo) Attachments() []gapi.Attach {
	return f.attachments
}

// CreateFbo wraps swapchain image imageID for drawing with pass p.
func (a *VulkanApi) CreateFbo(gd gapi.Device, s gapi.Swapchain, p gapi.Pass, imageID uint32) (gapi.Fbo, error) {
	d := dev(gd)
	sc := s.(*VSwapchain)
	img := sc.images[imageID]

	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.(*VPass).handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{img.view},
		Width:           sc.extent.Width,
		Height:          sc.extent.Height,
		Layers:          1,
	}
	f := &VFbo{
		width:       sc.extent.Width,
		height:      sc.extent.Height,
		attachments: []gapi.Attach{img},
	}
	if err := resultError("vkCreateFramebuffer", vk.CreateFramebuffer(d.logical, &info, nil, &f.handle)); err != nil {
		return nil, err
	}
	return f, nil
}

func (a *VulkanApi) DestroyFbo(gd gapi.Device, f gapi.Fbo) {
	vk.DestroyFramebuffer(dev(gd).logical, f.(*VFbo).handle, nil)
}
