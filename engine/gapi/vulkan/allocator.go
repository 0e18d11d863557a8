package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/gapi/memory"
	"github.com/spaghettifunk/gale/engine/gapi/resource"
)

// driver is the Vulkan half of the resource factory and the page
// provider of the allocator.
type driver struct {
	dev *VDevice
}

var (
	_ resource.Driver[vk.Buffer, vk.Image, vk.DeviceMemory] = (*driver)(nil)
	_ memory.Provider[vk.DeviceMemory]                      = (*driver)(nil)
)

func (d *driver) Alloc(size uint64, typeIndex uint32) (vk.DeviceMemory, error) {
	var mem vk.DeviceMemory
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}
	err := d.dev.api.locks.SafeCall(MemoryManagement, func() error {
		return resultError("vkAllocateMemory", vk.AllocateMemory(d.dev.logical, &info, nil, &mem))
	})
	if err != nil {
		return nil, err
	}
	core.LogDebug("allocated page of %d bytes in memory type %d", size, typeIndex)
	return mem, nil
}

func (d *driver) Free(mem vk.DeviceMemory) {
	_ = d.dev.api.locks.SafeCall(MemoryManagement, func() error {
		vk.FreeMemory(d.dev.logical, mem, nil)
		return nil
	})
}

func (d *driver) CreateBuffer(size uint64, usage gapi.MemUsage) (vk.Buffer, error) {
	var buf vk.Buffer
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := resultError("vkCreateBuffer", vk.CreateBuffer(d.dev.logical, &info, nil, &buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *driver) BufferRequirements(b vk.Buffer) resource.Requirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev.logical, b, &req)
	req.Deref()
	return resource.Requirements{Size: uint64(req.Size), Alignment: uint64(req.Alignment), TypeBits: req.MemoryTypeBits}
}

func (d *driver) DestroyBuffer(b vk.Buffer) {
	vk.DestroyBuffer(d.dev.logical, b, nil)
}

func (d *driver) CreateImage(w, h, mips uint32) (vk.Image, error) {
	var img vk.Image
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent:    vk.Extent3D{Width: w, Height: h, Depth: 1},
		MipLevels: mips,
		// One layer per texture; arrays are not supported.
		ArrayLayers:   1,
		Format:        vk.FormatR8g8b8a8Unorm,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit |
			vk.ImageUsageSampledBit),
		Samples:     vk.SampleCount1Bit,
		SharingMode: vk.SharingModeExclusive,
	}
	if err := resultError("vkCreateImage", vk.CreateImage(d.dev.logical, &info, nil, &img)); err != nil {
		return nil, err
	}
	return img, nil
}

func (d *driver) ImageRequirements(i vk.Image) resource.Requirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev.logical, i, &req)
	req.Deref()
	return resource.Requirements{Size: uint64(req.Size), Alignment: uint64(req.Alignment), TypeBits: req.MemoryTypeBits}
}

func (d *driver) DestroyImage(i vk.Image) {
	vk.DestroyImage(d.dev.logical, i, nil)
}

func (d *driver) MemoryTypeIndex(typeBits uint32, props resource.MemoryProps) (uint32, bool) {
	return findMemoryType(d.dev.memTypes, typeBits, memoryFlags(props))
}

func (d *driver) Map(mem vk.DeviceMemory, offset, size uint64) ([]byte, error) {
	var ptr unsafe.Pointer
	err := d.dev.api.locks.SafeCall(MemoryManagement, func() error {
		return resultError("vkMapMemory", vk.MapMemory(d.dev.logical, mem, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &ptr))
	})
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *driver) Unmap(mem vk.DeviceMemory) {
	_ = d.dev.api.locks.SafeCall(MemoryManagement, func() error {
		vk.UnmapMemory(d.dev.logical, mem)
		return nil
	})
}

func (d *driver) BindBuffer(b vk.Buffer, mem vk.DeviceMemory, offset uint64) error {
	return resultError("vkBindBufferMemory", vk.BindBufferMemory(d.dev.logical, b, mem, vk.DeviceSize(offset)))
}

func (d *driver) BindImage(i vk.Image, mem vk.DeviceMemory, offset uint64) error {
	return resultError("vkBindImageMemory", vk.BindImageMemory(d.dev.logical, i, mem, vk.DeviceSize(offset)))
}

func (d *driver) WaitIdle() error {
	return d.dev.waitIdle()
}

func memoryFlags(props resource.MemoryProps) vk.MemoryPropertyFlags {
	var f vk.MemoryPropertyFlags
	if props&resource.DeviceLocal != 0 {
		f |= vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
	if props&resource.HostVisible != 0 {
		f |= vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	}
	if props&resource.HostCoherent != 0 {
		f |= vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	return f
}

// findMemoryType returns the first type allowed by bits that has every
// flag of want.
func findMemoryType(types []vk.MemoryPropertyFlags, bits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i, flags := range types {
		if bits&(1<<uint(i)) != 0 && flags&want == want {
			return uint32(i), true
		}
	}
	return 0, false
}
