package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/gapi/resource"
)

type VBuffer struct {
	buf *resource.Buffer[vk.Buffer]
}

func (b *VBuffer) Size() uint64 {
	return b.buf.Size
}

func (a *VulkanApi) CreateBuffer(gd gapi.Device, data []byte, size uint64, usage gapi.MemUsage, flags gapi.BufferFlags) (gapi.Buffer, error) {
	buf, err := dev(gd).factory.AllocBuffer(data, size, usage, flags)
	if err != nil {
		return nil, err
	}
	return &VBuffer{buf: buf}, nil
}

func (a *VulkanApi) UpdateBuffer(gd gapi.Device, b gapi.Buffer, data []byte, offset uint64) error {
	return dev(gd).factory.Update(b.(*VBuffer).buf, data, offset)
}

func (a *VulkanApi) DestroyBuffer(gd gapi.Device, b gapi.Buffer) {
	if err := dev(gd).factory.FreeBuffer(b.(*VBuffer).buf); err != nil {
		core.LogError("failed to free buffer: %s", err)
	}
}
