package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

var ErrNoPass = errors.New("pipeline bound outside of a render pass")

type VCmdPool struct {
	dev    *VDevice
	handle vk.CommandPool
}

func (p *VCmdPool) Reset() error {
	return resultError("vkResetCommandPool", vk.ResetCommandPool(p.dev.logical, p.handle, 0))
}

func (a *VulkanApi) CreateCommandPool(gd gapi.Device) (gapi.CmdPool, error) {
	d := dev(gd)
	p := &VCmdPool{dev: d}
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := resultError("vkCreateCommandPool", vk.CreateCommandPool(d.logical, &info, nil, &p.handle)); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *VulkanApi) DestroyCommandPool(gd gapi.Device, p gapi.CmdPool) {
	vk.DestroyCommandPool(dev(gd).logical, p.(*VCmdPool).handle, nil)
}

// VCmd is a primary command buffer. It remembers the active pass so that
// SetPipeline can pick the matching pipeline instance.
type VCmd struct {
	dev    *VDevice
	handle vk.CommandBuffer

	clear [4]float32
	pass  *VPass
}

var _ gapi.CommandBuffer = (*VCmd)(nil)

func (a *VulkanApi) CreateCommandBuffer(gd gapi.Device, p gapi.CmdPool) (gapi.CommandBuffer, error) {
	d := dev(gd)
	cmds := make([]vk.CommandBuffer, 1)
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.(*VCmdPool).handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	if err := resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(d.logical, &info, cmds)); err != nil {
		return nil, err
	}
	return &VCmd{dev: d, handle: cmds[0]}, nil
}

func (a *VulkanApi) DestroyCommandBuffer(gd gapi.Device, p gapi.CmdPool, c gapi.CommandBuffer) {
	vk.FreeCommandBuffers(dev(gd).logical, p.(*VCmdPool).handle, 1, []vk.CommandBuffer{c.(*VCmd).handle})
}

func (c *VCmd) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(c.handle, &info))
}

func (c *VCmd) End() error {
	return resultError("vkEndCommandBuffer", vk.EndCommandBuffer(c.handle))
}

func (c *VCmd) Reset() error {
	c.pass = nil
	return resultError("vkResetCommandBuffer", vk.ResetCommandBuffer(c.handle, 0))
}

func (c *VCmd) Clear(r, g, b, a float32) {
	c.clear = [4]float32{r, g, b, a}
}

func (c *VCmd) BeginRenderPass(fbo gapi.Fbo, pass gapi.Pass, width, height uint32) {
	p := pass.(*VPass)
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  p.handle,
		Framebuffer: fbo.(*VFbo).handle,
		RenderArea:  vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}},
	}
	if p.clear {
		values := make([]vk.ClearValue, 1)
		values[0].SetColor(c.clear[:])
		info.ClearValueCount = 1
		info.PClearValues = values
	}
	vk.CmdBeginRenderPass(c.handle, &info, vk.SubpassContentsInline)
	vk.CmdSetViewport(c.handle, 0, 1, []vk.Viewport{{
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1.0,
	}})
	c.pass = p
}

func (c *VCmd) EndRenderPass() {
	vk.CmdEndRenderPass(c.handle)
	c.pass = nil
}

func (c *VCmd) SetPipeline(p gapi.Pipeline, width, height uint32) error {
	if c.pass == nil {
		return ErrNoPass
	}
	native, err := p.(*VPipeline).instance(c.dev, c.pass, width, height)
	if err != nil {
		return err
	}
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointGraphics, native)
	return nil
}

func (c *VCmd) SetComputePipeline(p gapi.CompPipeline) {
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointCompute, p.(*VCompPipeline).handle)
}

func (c *VCmd) SetUniforms(p gapi.Pipeline, u gapi.Desc) {
	c.bindSet(vk.PipelineBindPointGraphics, p.(*VPipeline).layout, u)
}

func (c *VCmd) SetComputeUniforms(p gapi.CompPipeline, u gapi.Desc) {
	c.bindSet(vk.PipelineBindPointCompute, p.(*VCompPipeline).layout, u)
}

func (c *VCmd) bindSet(point vk.PipelineBindPoint, layout vk.PipelineLayout, u gapi.Desc) {
	desc, ok := u.(*VDesc)
	if !ok || desc.set == nil {
		return
	}
	vk.CmdBindDescriptorSets(c.handle, point, layout, 0, 1, []vk.DescriptorSet{desc.set}, 0, nil)
}

func (c *VCmd) SetVbo(buf gapi.Buffer) {
	vk.CmdBindVertexBuffers(c.handle, 0, 1, []vk.Buffer{buf.(*VBuffer).buf.Native}, []vk.DeviceSize{0})
}

func (c *VCmd) Draw(offset, count uint32) {
	vk.CmdDraw(c.handle, count, 1, offset, 0)
}

func (c *VCmd) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(c.handle, x, y, z)
}

func (c *VCmd) ChangeImageLayout(img gapi.Attach, prev, next gapi.TextureLayout, noop bool) {
	if noop {
		return
	}
	from, to, err := imageTransition(prev, next)
	if err != nil {
		core.LogError("image barrier: %s", err)
		return
	}
	switch i := img.(type) {
	case *swapImage:
		imageBarrier(c.handle, i.img, 0, 1, from, to)
	case *VTexture:
		imageBarrier(c.handle, i.img.Native, 0, i.img.Mips, from, to)
	default:
		core.LogError("image barrier on foreign attachment %T", img)
	}
}

func (c *VCmd) ChangeBufferLayout(buf gapi.Buffer, prev, next gapi.BufferLayout, noop bool) {
	if noop {
		return
	}
	from, err := bufferLayout(prev)
	if err != nil {
		core.LogError("buffer barrier: %s", err)
		return
	}
	to, err := bufferLayout(next)
	if err != nil {
		core.LogError("buffer barrier: %s", err)
		return
	}
	vk.CmdPipelineBarrier(c.handle, from.stage, to.stage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       from.access,
		DstAccessMask:       to.access,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buf.(*VBuffer).buf.Native,
		Size:                vk.DeviceSize(buf.Size()),
	}}, 0, nil)
}

// imageBarrier moves levels mips of img starting at base between layouts.
func imageBarrier(cmd vk.CommandBuffer, img vk.Image, base, levels uint32, from, to layoutInfo) {
	vk.CmdPipelineBarrier(cmd, from.stage, to.stage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       from.access,
		DstAccessMask:       to.access,
		OldLayout:           from.layout,
		NewLayout:           to.layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:   vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel: base,
			LevelCount:   levels,
			LayerCount:   1,
		},
	}})
}
