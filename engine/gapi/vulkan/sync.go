package vulkan

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/gapi"
)

// Fence waits without a deadline are split in slices of this length so a
// cancelled context is noticed.
const fenceSlice = 100 * time.Millisecond

type VFence struct {
	dev    *VDevice
	handle vk.Fence
}

// Wait blocks until the fence is signaled. The context deadline becomes the
// native timeout.
func (f *VFence) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		timeout := fenceSlice
		if deadline, ok := ctx.Deadline(); ok {
			timeout = max(time.Until(deadline), 0)
		}
		res := vk.WaitForFences(f.dev.logical, 1, []vk.Fence{f.handle}, vk.True, uint64(timeout.Nanoseconds()))
		switch res {
		case vk.Success:
			return nil
		case vk.Timeout:
			if _, ok := ctx.Deadline(); ok {
				return errors.Wrap(context.DeadlineExceeded, "wait for fence")
			}
		default:
			return resultError("vkWaitForFences", res)
		}
	}
}

func (f *VFence) Reset() error {
	return resultError("vkResetFences", vk.ResetFences(f.dev.logical, 1, []vk.Fence{f.handle}))
}

func (a *VulkanApi) CreateFence(gd gapi.Device) (gapi.Fence, error) {
	d := dev(gd)
	f := &VFence{dev: d}
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	if err := resultError("vkCreateFence", vk.CreateFence(d.logical, &info, nil, &f.handle)); err != nil {
		return nil, err
	}
	return f, nil
}

func (a *VulkanApi) DestroyFence(gd gapi.Device, f gapi.Fence) {
	vk.DestroyFence(dev(gd).logical, f.(*VFence).handle, nil)
}

type VSemaphore struct {
	handle vk.Semaphore
}

func (a *VulkanApi) CreateSemaphore(gd gapi.Device) (gapi.Semaphore, error) {
	s := &VSemaphore{}
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if err := resultError("vkCreateSemaphore", vk.CreateSemaphore(dev(gd).logical, &info, nil, &s.handle)); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *VulkanApi) DestroySemaphore(gd gapi.Device, s gapi.Semaphore) {
	vk.DestroySemaphore(dev(gd).logical, s.(*VSemaphore).handle, nil)
}

func semaphores(list ...gapi.Semaphore) []vk.Semaphore {
	var out []vk.Semaphore
	for _, s := range list {
		if vs, ok := s.(*VSemaphore); ok && vs != nil {
			out = append(out, vs.handle)
		}
	}
	return out
}
