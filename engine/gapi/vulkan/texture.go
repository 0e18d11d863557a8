package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/gapi/resource"
)

const textureFormat = vk.FormatR8g8b8a8Unorm

// VTexture is a sampled RGBA8 image with its whole mip chain uploaded.
type VTexture struct {
	img     *resource.Image[vk.Image]
	view    vk.ImageView
	sampler vk.Sampler
}

func (t *VTexture) NativeHandle() uint64              { return imageHandle(t.img.Native) }
func (t *VTexture) DefaultLayout() gapi.TextureLayout { return gapi.Sampler }
func (t *VTexture) Width() uint32                     { return t.img.Width }
func (t *VTexture) Height() uint32                    { return t.img.Height }

func (a *VulkanApi) CreateTexture(gd gapi.Device, p *gapi.Pixmap, mips bool) (gapi.Texture, error) {
	d := dev(gd)
	if p.Width > d.props.MaxTextureW || p.Height > d.props.MaxTextureH {
		return nil, core.Wrap(core.ErrUnsupported, errors.Newf("%dx%d", p.Width, p.Height), "texture exceeds device limits")
	}
	if uint64(len(p.Data)) != uint64(p.Width)*uint64(p.Height)*4 {
		return nil, errors.Newf("pixmap of %dx%d holds %d bytes", p.Width, p.Height, len(p.Data))
	}
	levels := uint32(1)
	if mips {
		levels = p.MipCount()
	}

	var cleanup core.Cleanup
	defer cleanup.Run()

	staging, err := d.factory.AllocBuffer(p.Data, uint64(len(p.Data)), gapi.MemTransferSrc, gapi.BufferStaging)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := d.factory.FreeBuffer(staging); err != nil {
			core.LogError("failed to free staging buffer: %s", err)
		}
	}()

	img, err := d.factory.AllocImage(p.Width, p.Height, levels)
	if err != nil {
		return nil, err
	}
	cleanup.Add(func() { _ = d.factory.FreeImage(img) })

	err = d.submitOnce(func(cmd vk.CommandBuffer) {
		undefined, _ := textureLayout(gapi.Undefined)
		dst, _ := textureLayout(gapi.TransferDst)
		imageBarrier(cmd, img.Native, 0, levels, undefined, dst)

		vk.CmdCopyBufferToImage(cmd, staging.Native, img.Native, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: p.Width, Height: p.Height, Depth: 1},
		}})
		generateMips(cmd, img.Native, p.Width, p.Height, levels)
	})
	if err != nil {
		return nil, err
	}

	t := &VTexture{img: img}
	if t.view, err = d.createView(img.Native, textureFormat, levels); err != nil {
		return nil, err
	}
	cleanup.Add(func() { vk.DestroyImageView(d.logical, t.view, nil) })

	if t.sampler, err = d.createSampler(levels); err != nil {
		return nil, err
	}

	cleanup.Release()
	return t, nil
}

func (a *VulkanApi) DestroyTexture(gd gapi.Device, gt gapi.Texture) {
	d := dev(gd)
	t := gt.(*VTexture)
	if err := d.waitIdle(); err != nil {
		core.LogError("wait idle before texture release: %s", err)
	}
	vk.DestroySampler(d.logical, t.sampler, nil)
	vk.DestroyImageView(d.logical, t.view, nil)
	if err := d.factory.FreeImage(t.img); err != nil {
		core.LogError("failed to free image: %s", err)
	}
}

// generateMips fills levels 1..levels-1 by blitting each level into the
// next one, then leaves every level in the sampler layout. Level 0 must be
// in the transfer destination layout.
func generateMips(cmd vk.CommandBuffer, img vk.Image, w, h, levels uint32) {
	src, _ := textureLayout(gapi.TransferSrc)
	dst, _ := textureLayout(gapi.TransferDst)
	sampled, _ := textureLayout(gapi.Sampler)

	for i := uint32(1); i < levels; i++ {
		imageBarrier(cmd, img, i-1, 1, dst, src)
		vk.CmdBlitImage(cmd, img, vk.ImageLayoutTransferSrcOptimal, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   i - 1,
				LayerCount: 1,
			},
			SrcOffsets: [2]vk.Offset3D{{}, {X: mipSize(w, i-1), Y: mipSize(h, i-1), Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   i,
				LayerCount: 1,
			},
			DstOffsets: [2]vk.Offset3D{{}, {X: mipSize(w, i), Y: mipSize(h, i), Z: 1}},
		}}, vk.FilterLinear)
		imageBarrier(cmd, img, i-1, 1, src, sampled)
	}
	imageBarrier(cmd, img, levels-1, 1, dst, sampled)
}

// mipSize is the extent of level of a side, never below one texel.
func mipSize(side, level uint32) int32 {
	return int32(max(side>>level, 1))
}

func (d *VDevice) createSampler(levels uint32) (vk.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MaxLod:       float32(levels),
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
	if d.anisotropy {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = d.maxAnisotropy
	}
	var s vk.Sampler
	if err := resultError("vkCreateSampler", vk.CreateSampler(d.logical, &info, nil, &s)); err != nil {
		return nil, err
	}
	return s, nil
}
