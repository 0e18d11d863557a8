package vulkan

import (
	"strings"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/gapi/memory"
	"github.com/spaghettifunk/gale/engine/gapi/resource"
)

const defaultPageSize = 32 << 20

// surfaceCreator is implemented by *glfw.Window.
type surfaceCreator interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

type VDevice struct {
	api *VulkanApi

	physical vk.PhysicalDevice
	logical  vk.Device
	surface  vk.Surface

	graphicsFamily uint32
	presentFamily  uint32
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue

	props         gapi.DeviceProps
	memTypes      []vk.MemoryPropertyFlags
	anisotropy    bool
	maxAnisotropy float32

	uploadPool vk.CommandPool

	layoutsMu  sync.Mutex
	setLayouts map[*gapi.UniformsLayout]vk.DescriptorSetLayout

	alloc   *memory.Allocator[vk.DeviceMemory]
	factory *resource.Factory[vk.Buffer, vk.Image, vk.DeviceMemory]
}

func (d *VDevice) Props() gapi.DeviceProps {
	return d.props
}

func (d *VDevice) MemoryStats() memory.Stats {
	return d.alloc.Stats()
}

func (a *VulkanApi) CreateDevice(w gapi.Window) (gapi.Device, error) {
	sc, ok := w.(surfaceCreator)
	if !ok {
		return nil, core.Wrap(core.ErrUnsupported, nil, "window cannot create a vulkan surface")
	}

	var cleanup core.Cleanup
	defer cleanup.Run()

	ptr, err := sc.CreateWindowSurface(a.instance, nil)
	if err != nil {
		return nil, core.Wrap(core.ErrNativeFailure, err, "creating window surface")
	}
	d := &VDevice{
		api:        a,
		surface:    vk.SurfaceFromPointer(ptr),
		setLayouts: make(map[*gapi.UniformsLayout]vk.DescriptorSetLayout),
	}
	cleanup.Add(func() { vk.DestroySurface(a.instance, d.surface, nil) })

	if err := d.selectPhysical(); err != nil {
		return nil, err
	}
	if err := d.createLogical(); err != nil {
		return nil, err
	}
	cleanup.Add(func() { vk.DestroyDevice(d.logical, nil) })

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
	}
	if err := resultError("vkCreateCommandPool", vk.CreateCommandPool(d.logical, &poolInfo, nil, &d.uploadPool)); err != nil {
		return nil, err
	}

	pageSize := a.opts.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	drv := &driver{dev: d}
	d.alloc = memory.New[vk.DeviceMemory](drv, pageSize)
	d.factory = resource.NewFactory[vk.Buffer, vk.Image, vk.DeviceMemory](drv, d.alloc)

	cleanup.Release()
	core.LogInfo("Vulkan device ready on %s.", d.props.Name)
	return d, nil
}

func (a *VulkanApi) DestroyDevice(gd gapi.Device) {
	d := dev(gd)
	_ = d.waitIdle()

	d.layoutsMu.Lock()
	for ulay, l := range d.setLayouts {
		vk.DestroyDescriptorSetLayout(d.logical, l, nil)
		delete(d.setLayouts, ulay)
	}
	d.layoutsMu.Unlock()

	_ = a.locks.SafeCall(MemoryManagement, func() error {
		d.alloc.Close()
		return nil
	})
	vk.DestroyCommandPool(d.logical, d.uploadPool, nil)
	vk.DestroyDevice(d.logical, nil)
	vk.DestroySurface(a.instance, d.surface, nil)
	d.logical = nil
	core.LogInfo("Vulkan device destroyed.")
}

func (d *VDevice) waitIdle() error {
	return d.api.locks.SafeCall(QueueManagement, func() error {
		return resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.logical))
	})
}

func deviceScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 1
	}
	return 0
}

func (d *VDevice) selectPhysical() error {
	instance := d.api.instance
	var count uint32
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return core.Wrap(core.ErrUnsupported, nil, "no device supports vulkan")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return err
	}

	best := -1
	for _, pd := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		props.Limits.Deref()
		name := cString(props.DeviceName[:])

		graphics, present, ok := d.queueFamilies(pd)
		if !ok {
			core.LogInfo("%s: no graphics and present queues, skipping.", name)
			continue
		}
		if !hasDeviceExtension(pd, vk.KhrSwapchainExtensionName) {
			core.LogInfo("%s: no swapchain support, skipping.", name)
			continue
		}
		if !d.surfaceUsable(pd) {
			core.LogInfo("%s: surface has no formats or present modes, skipping.", name)
			continue
		}
		if score := deviceScore(props.DeviceType); score > best {
			best = score
			d.physical = pd
			d.graphicsFamily, d.presentFamily = graphics, present
			d.props = gapi.DeviceProps{
				Name:        name,
				Discrete:    props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
				MaxTextureW: props.Limits.MaxImageDimension2D,
				MaxTextureH: props.Limits.MaxImageDimension2D,
			}
			d.maxAnisotropy = props.Limits.MaxSamplerAnisotropy
			core.LogDebug("candidate %s, score %d", name, score)
		}
	}
	if d.physical == nil {
		return core.Wrap(core.ErrUnsupported, nil, "no physical device meets the requirements")
	}
	core.LogInfo("Selected device: '%s'.", d.props.Name)

	var mem vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.physical, &mem)
	mem.Deref()
	d.memTypes = make([]vk.MemoryPropertyFlags, mem.MemoryTypeCount)
	for i := range d.memTypes {
		mem.MemoryTypes[i].Deref()
		d.memTypes[i] = mem.MemoryTypes[i].PropertyFlags
	}
	for i := uint32(0); i < mem.MemoryHeapCount; i++ {
		mem.MemoryHeaps[i].Deref()
		heap := mem.MemoryHeaps[i]
		kind := "shared system"
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			kind = "local GPU"
		}
		core.LogInfo("%s memory: %d MiB", kind, uint64(heap.Size)>>20)
	}
	return nil
}

// queueFamilies prefers one family able to both draw and present.
func (d *VDevice) queueFamilies(pd vk.PhysicalDevice) (graphics, present uint32, ok bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)

	g, p := -1, -1
	for i := range families {
		families[i].Deref()
		isGraphics := families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0

		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), d.surface, &supported)
		canPresent := supported == vk.True

		if isGraphics && canPresent {
			return uint32(i), uint32(i), true
		}
		if isGraphics && g < 0 {
			g = i
		}
		if canPresent && p < 0 {
			p = i
		}
	}
	if g < 0 || p < 0 {
		return 0, 0, false
	}
	return uint32(g), uint32(p), true
}

func deviceExtensions(pd vk.PhysicalDevice) []string {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil) != vk.Success || count == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, props) != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].ExtensionName[:]))
	}
	return names
}

func hasDeviceExtension(pd vk.PhysicalDevice, name string) bool {
	name = strings.TrimRight(name, "\x00")
	for _, e := range deviceExtensions(pd) {
		if e == name {
			return true
		}
	}
	return false
}

func (d *VDevice) surfaceUsable(pd vk.PhysicalDevice) bool {
	var formats, modes uint32
	vk.GetPhysicalDeviceSurfaceFormats(pd, d.surface, &formats, nil)
	vk.GetPhysicalDeviceSurfacePresentModes(pd, d.surface, &modes, nil)
	return formats > 0 && modes > 0
}

func (d *VDevice) createLogical() error {
	families := []uint32{d.graphicsFamily}
	if d.presentFamily != d.graphicsFamily {
		families = append(families, d.presentFamily)
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(d.physical, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensions = append(extensions, "VK_KHR_portability_subset")
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(d.physical, &features)
	features.Deref()
	d.anisotropy = features.SamplerAnisotropy == vk.True
	enabled := vk.PhysicalDeviceFeatures{}
	if d.anisotropy {
		enabled.SamplerAnisotropy = vk.True
	}

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{enabled},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}
	if err := resultError("vkCreateDevice", vk.CreateDevice(d.physical, &createInfo, nil, &d.logical)); err != nil {
		return err
	}

	vk.GetDeviceQueue(d.logical, d.graphicsFamily, 0, &d.graphicsQueue)
	vk.GetDeviceQueue(d.logical, d.presentFamily, 0, &d.presentQueue)
	core.LogDebug("graphics family %d, present family %d", d.graphicsFamily, d.presentFamily)
	return nil
}

// setLayout returns the descriptor set layout of ulay, creating it once.
func (d *VDevice) setLayout(ulay *gapi.UniformsLayout) (vk.DescriptorSetLayout, error) {
	d.layoutsMu.Lock()
	defer d.layoutsMu.Unlock()
	if l, ok := d.setLayouts[ulay]; ok {
		return l, nil
	}

	bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(ulay.Bindings))
	for _, b := range ulay.Bindings {
		typ, err := descriptorType(b.Kind)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         b.Layout,
			DescriptorType:  typ,
			DescriptorCount: 1,
			StageFlags:      stageFlags(b.Stage),
		})
	}
	var l vk.DescriptorSetLayout
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if err := resultError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(d.logical, &info, nil, &l)); err != nil {
		return nil, err
	}
	d.setLayouts[ulay] = l
	return l, nil
}

// submitOnce records a command buffer with record, runs it on the
// graphics queue and waits for it to complete.
func (d *VDevice) submitOnce(record func(cmd vk.CommandBuffer)) error {
	return d.api.locks.SafeCall(UploadManagement, func() error {
		cmds := make([]vk.CommandBuffer, 1)
		allocInfo := vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        d.uploadPool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}
		if err := resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(d.logical, &allocInfo, cmds)); err != nil {
			return err
		}
		defer vk.FreeCommandBuffers(d.logical, d.uploadPool, 1, cmds)

		begin := vk.CommandBufferBeginInfo{
			SType: vk.StructureTypeCommandBufferBeginInfo,
			Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
		}
		if err := resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(cmds[0], &begin)); err != nil {
			return err
		}
		record(cmds[0])
		if err := resultError("vkEndCommandBuffer", vk.EndCommandBuffer(cmds[0])); err != nil {
			return err
		}

		var fence vk.Fence
		fenceInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
		if err := resultError("vkCreateFence", vk.CreateFence(d.logical, &fenceInfo, nil, &fence)); err != nil {
			return err
		}
		defer vk.DestroyFence(d.logical, fence, nil)

		err := d.api.locks.SafeCall(QueueManagement, func() error {
			return resultError("vkQueueSubmit", vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{{
				SType:              vk.StructureTypeSubmitInfo,
				CommandBufferCount: 1,
				PCommandBuffers:    cmds,
			}}, fence))
		})
		if err != nil {
			return err
		}
		return resultError("vkWaitForFences", vk.WaitForFences(d.logical, 1, []vk.Fence{fence}, vk.True, vk.MaxUint64))
	})
}
