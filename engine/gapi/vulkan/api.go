// Package vulkan implements gapi.Api on top of Vulkan. It is the only
// package of the engine calling into the native API.
package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

type Options struct {
	AppName string
	// Validation enables the Khronos layer and routes its reports to the
	// engine log.
	Validation bool
	// Extensions the window system needs, as reported by glfw.
	Extensions []string
	// PageSize is the size of one device memory page.
	PageSize uint64
}

type VulkanApi struct {
	opts     Options
	instance vk.Instance
	debug    vk.DebugReportCallback
	locks    *VulkanLockPool
}

var _ gapi.Api = (*VulkanApi)(nil)

// New loads the Vulkan loader through glfw and creates the instance.
func New(opts Options) (*VulkanApi, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, core.Wrap(core.ErrUnsupported, nil, "glfw: vkGetInstanceProcAddr is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, core.Wrap(core.ErrUnsupported, err, "loading vulkan")
	}

	a := &VulkanApi{opts: opts, locks: NewVulkanLockPool()}
	if err := a.createInstance(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *VulkanApi) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(a.opts.AppName),
		PEngineName:        safeString("gale"),
	}

	extensions := append([]string{"VK_KHR_surface"}, a.opts.Extensions...)
	var flags vk.InstanceCreateFlags
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		flags |= 1
	}

	var layers []string
	if a.opts.Validation {
		if hasInstanceLayer(validationLayer) {
			layers = append(layers, validationLayer)
			extensions = append(extensions, vk.ExtDebugReportExtensionName)
		} else {
			core.LogWarn("validation requested but %s is not installed", validationLayer)
		}
	}
	for _, e := range extensions {
		core.LogDebug("instance extension: %s", e)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		Flags:                   flags,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}
	if err := resultError("vkCreateInstance", vk.CreateInstance(&createInfo, nil, &a.instance)); err != nil {
		return err
	}
	if err := vk.InitInstance(a.instance); err != nil {
		vk.DestroyInstance(a.instance, nil)
		return core.Wrap(core.ErrNativeFailure, err, "loading instance functions")
	}
	core.LogInfo("Vulkan instance created.")

	if len(layers) > 0 {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: debugCallback,
		}
		var dbg vk.DebugReportCallback
		if err := resultError("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(a.instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogWarn("continuing without validation output")
		} else {
			a.debug = dbg
		}
	}
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success || count == 0 {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, layers) != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if cString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func debugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

// Close destroys the instance. Every device must be destroyed first.
func (a *VulkanApi) Close() {
	if a.debug != nil {
		vk.DestroyDebugReportCallback(a.instance, a.debug, nil)
		a.debug = nil
	}
	if a.instance != nil {
		vk.DestroyInstance(a.instance, nil)
		a.instance = nil
	}
}

func (a *VulkanApi) WaitIdle(d gapi.Device) error {
	return dev(d).waitIdle()
}

// dev recovers the backend device. Every gapi object handed to this
// package was created by it.
func dev(d gapi.Device) *VDevice {
	return d.(*VDevice)
}
