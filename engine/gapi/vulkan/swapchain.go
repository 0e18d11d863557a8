package vulkan

import (
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

// swapImage is one presentable image of a swapchain.
type swapImage struct {
	img  vk.Image
	view vk.ImageView
}

func (s *swapImage) NativeHandle() uint64 {
	return imageHandle(s.img)
}

func (s *swapImage) DefaultLayout() gapi.TextureLayout {
	return gapi.Present
}

type VSwapchain struct {
	handle vk.Swapchain
	format vk.SurfaceFormat
	extent vk.Extent2D
	images []*swapImage
}

func (s *VSwapchain) Width() uint32      { return s.extent.Width }
func (s *VSwapchain) Height() uint32     { return s.extent.Height }
func (s *VSwapchain) ImageCount() uint32 { return uint32(len(s.images)) }

func imageHandle(img vk.Image) uint64 {
	return uint64(uintptr(unsafe.Pointer(img)))
}

func (a *VulkanApi) CreateSwapchain(w gapi.Window, gd gapi.Device) (gapi.Swapchain, error) {
	d := dev(gd)

	var caps vk.SurfaceCapabilities
	if err := resultError("vkGetPhysicalDeviceSurfaceCapabilities",
		vk.GetPhysicalDeviceSurfaceCapabilities(d.physical, d.surface, &caps)); err != nil {
		return nil, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, nil)
	formats := make([]vk.SurfaceFormat, count)
	vk.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}
	vk.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, nil)
	modes := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, modes)
	if len(formats) == 0 {
		return nil, core.Wrap(core.ErrUnsupported, nil, "surface reports no formats")
	}

	width, height := w.GetFramebufferSize()
	sc := &VSwapchain{
		format: chooseSurfaceFormat(formats),
		extent: chooseExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent, uint32(width), uint32(height)),
	}
	if sc.extent.Width == 0 || sc.extent.Height == 0 {
		return nil, core.Wrap(core.ErrSwapchainOutdated, nil, "window is minimized")
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    chooseImageCount(caps.MinImageCount, caps.MaxImageCount),
		ImageFormat:      sc.format.Format,
		ImageColorSpace:  sc.format.ColorSpace,
		ImageExtent:      sc.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      choosePresentMode(modes),
		Clipped:          vk.True,
	}
	if d.graphicsFamily != d.presentFamily {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{d.graphicsFamily, d.presentFamily}
	}

	var cleanup core.Cleanup
	defer cleanup.Run()

	if err := resultError("vkCreateSwapchain", vk.CreateSwapchain(d.logical, &info, nil, &sc.handle)); err != nil {
		return nil, err
	}
	cleanup.Add(func() { vk.DestroySwapchain(d.logical, sc.handle, nil) })

	if err := resultError("vkGetSwapchainImages", vk.GetSwapchainImages(d.logical, sc.handle, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := resultError("vkGetSwapchainImages", vk.GetSwapchainImages(d.logical, sc.handle, &count, images)); err != nil {
		return nil, err
	}
	for _, img := range images {
		view, err := d.createView(img, sc.format.Format, 1)
		if err != nil {
			return nil, err
		}
		cleanup.Add(func() { vk.DestroyImageView(d.logical, view, nil) })
		sc.images = append(sc.images, &swapImage{img: img, view: view})
	}

	cleanup.Release()
	core.LogInfo("Swapchain created: %dx%d, %d images.", sc.extent.Width, sc.extent.Height, len(sc.images))
	return sc, nil
}

func (a *VulkanApi) DestroySwapchain(gd gapi.Device, s gapi.Swapchain) {
	d := dev(gd)
	sc := s.(*VSwapchain)
	for _, img := range sc.images {
		vk.DestroyImageView(d.logical, img.view, nil)
	}
	sc.images = nil
	vk.DestroySwapchain(d.logical, sc.handle, nil)
}

func (a *VulkanApi) SwapchainImage(s gapi.Swapchain, id uint32) gapi.Attach {
	return s.(*VSwapchain).images[id]
}

func (d *VDevice) createView(img vk.Image, format vk.Format, mips uint32) (vk.ImageView, error) {
	var view vk.ImageView
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: mips,
			LayerCount: 1,
		},
	}
	if err := resultError("vkCreateImageView", vk.CreateImageView(d.logical, &info, nil, &view)); err != nil {
		return nil, err
	}
	return view, nil
}

// chooseSurfaceFormat prefers BGRA8 in the sRGB color space.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface extent when the surface dictates one,
// otherwise the window size clamped to the surface limits.
func chooseExtent(current, lo, hi vk.Extent2D, width, height uint32) vk.Extent2D {
	if current.Width != math.MaxUint32 {
		return current
	}
	return vk.Extent2D{
		Width:  min(max(width, lo.Width), hi.Width),
		Height: min(max(height, lo.Height), hi.Height),
	}
}

// chooseImageCount asks for one image more than the minimum. A zero
// maximum means there is no limit.
func chooseImageCount(lo, hi uint32) uint32 {
	n := lo + 1
	if hi > 0 && n > hi {
		n = hi
	}
	return n
}
