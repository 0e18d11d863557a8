package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

// NextImage acquires the next swapchain image. A suboptimal swapchain still
// hands out an image; Present reports it.
func (a *VulkanApi) NextImage(gd gapi.Device, s gapi.Swapchain, onReady gapi.Semaphore) (uint32, error) {
	d := dev(gd)
	var sem vk.Semaphore
	if list := semaphores(onReady); len(list) > 0 {
		sem = list[0]
	}
	var idx uint32
	res := vk.AcquireNextImage(d.logical, s.(*VSwapchain).handle, vk.MaxUint64, sem, vk.NullFence, &idx)
	switch res {
	case vk.Success, vk.Suboptimal:
		return idx, nil
	case vk.ErrorOutOfDate:
		return 0, core.Wrap(core.ErrSwapchainOutdated, nil, "acquire image")
	}
	return 0, resultError("vkAcquireNextImage", res)
}

func (a *VulkanApi) Present(gd gapi.Device, s gapi.Swapchain, imageID uint32, wait gapi.Semaphore) error {
	d := dev(gd)
	waits := semaphores(wait)
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.(*VSwapchain).handle},
		PImageIndices:      []uint32{imageID},
	}
	return a.locks.SafeCall(QueueManagement, func() error {
		res := vk.QueuePresent(d.presentQueue, &info)
		if res == vk.ErrorOutOfDate || res == vk.Suboptimal {
			return core.Wrap(core.ErrSwapchainOutdated, nil, "present")
		}
		return resultError("vkQueuePresent", res)
	})
}

// Submit runs cmd on the graphics queue once wait is signaled. Color output
// is the stage that waits.
func (a *VulkanApi) Submit(gd gapi.Device, cmd gapi.CommandBuffer, wait gapi.Semaphore, onReady gapi.Semaphore, onReadyCpu gapi.Fence) error {
	d := dev(gd)
	waits := semaphores(wait)
	signals := semaphores(onReady)
	stages := make([]vk.PipelineStageFlags, len(waits))
	for i := range stages {
		stages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	fence := vk.NullFence
	if f, ok := onReadyCpu.(*VFence); ok && f != nil {
		fence = f.handle
	}
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd.(*VCmd).handle},
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}
	return a.locks.SafeCall(QueueManagement, func() error {
		return resultError("vkQueueSubmit", vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{info}, fence))
	})
}
