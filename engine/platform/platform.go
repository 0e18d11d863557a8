package platform

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/gale/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window    *glfw.Window
	startTime float64
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup(cfg core.AppConfig) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return core.Wrap(core.ErrUnsupported, nil, "glfw found no vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Name, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetCloseCallback(closeCallback)
	p.Window.SetCursorPosCallback(cursorPosCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.Show()

	p.startTime = glfw.GetTime()
	core.LogInfo("Window '%s' opened at %dx%d.", cfg.Name, cfg.Width, cfg.Height)
	return nil
}

// RequiredExtensions lists the instance extensions a surface for the
// window needs.
func (p *Platform) RequiredExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// Uptime is the time since Startup.
func (p *Platform) Uptime() time.Duration {
	return time.Duration((glfw.GetTime() - p.startTime) * float64(time.Second))
}

// PumpMessages dispatches pending window events. While the window is
// minimized it blocks until it is restored or closed.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
	for {
		w, h := p.Window.GetFramebufferSize()
		if (w > 0 && h > 0) || p.Window.ShouldClose() {
			return
		}
		glfw.WaitEvents()
	}
}

func (p *Platform) Shutdown() {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
}

func closeCallback(w *glfw.Window) {
	core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, w, core.EventContext{})
}

func cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	ctx := core.EventContext{}
	ctx.Data.F32[0] = float32(xpos)
	ctx.Data.F32[1] = float32(ypos)
	core.EventFire(core.EVENT_CODE_MOUSE_MOVED, w, ctx)
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	ctx := core.EventContext{}
	ctx.Data.U32[0] = uint32(width)
	ctx.Data.U32[1] = uint32(height)
	core.EventFire(core.EVENT_CODE_RESIZED, w, ctx)
}
