// Package gapi is the boundary between the engine and a concrete graphics
// backend. The engine holds backend objects only through the interfaces
// declared here and never calls a native API directly.
package gapi

import "context"

// Window is the surface a swapchain presents to.
type Window interface {
	GetFramebufferSize() (width, height int)
}

type DeviceProps struct {
	Name        string
	Discrete    bool
	MaxTextureW uint32
	MaxTextureH uint32
}

type Device interface {
	Props() DeviceProps
}

type Swapchain interface {
	Width() uint32
	Height() uint32
	ImageCount() uint32
}

// FramebufferLayout identifies a class of render targets that can share
// pipeline instances.
type FramebufferLayout interface {
	IsCompatible(other FramebufferLayout) bool
}

type Pass interface {
	Layout() FramebufferLayout
}

type Fbo interface {
	Attachments() []Attach
}

// Attach is any image the state tracker can move between layouts.
type Attach interface {
	// NativeHandle identifies the image; two attachments sharing a handle
	// are the same resource.
	NativeHandle() uint64
	// DefaultLayout is the layout the image rests in between command buffers.
	DefaultLayout() TextureLayout
}

type Texture interface {
	Attach
	Width() uint32
	Height() uint32
}

type Buffer interface {
	Size() uint64
}

type Shader interface {
	Stage() ShaderStage
}

type Pipeline interface {
	Topology() Topology
	Uniforms() *UniformsLayout
}

type CompPipeline interface {
	Uniforms() *UniformsLayout
}

// Desc is a set of uniforms bound together for one draw.
type Desc interface {
	SetTexture(layout uint32, tex Texture) error
	SetBuffer(layout uint32, buf Buffer, offset, size uint64) error
}

type Fence interface {
	// Wait blocks until the GPU signals the fence or ctx is done.
	Wait(ctx context.Context) error
	Reset() error
}

// Semaphore orders GPU work; it has no CPU-side operations.
type Semaphore interface{}

type CmdPool interface {
	Reset() error
}

// LayoutRecorder receives the transitions flushed by a ResourceState.
// When noop is set the layouts are equal and no barrier is needed.
type LayoutRecorder interface {
	ChangeImageLayout(img Attach, prev, next TextureLayout, noop bool)
	ChangeBufferLayout(buf Buffer, prev, next BufferLayout, noop bool)
}

type CommandBuffer interface {
	LayoutRecorder

	Begin() error
	End() error
	Reset() error

	BeginRenderPass(fbo Fbo, pass Pass, width, height uint32)
	EndRenderPass()
	// Clear sets the color the next render pass clears its attachments to.
	Clear(r, g, b, a float32)

	// SetPipeline resolves the instance of p for the current render pass.
	SetPipeline(p Pipeline, width, height uint32) error
	SetComputePipeline(p CompPipeline)
	SetUniforms(p Pipeline, u Desc)
	SetComputeUniforms(p CompPipeline, u Desc)
	SetVbo(buf Buffer)
	Draw(offset, count uint32)
	Dispatch(x, y, z uint32)
}

// Api is implemented by every backend. Every Create has its Destroy.
type Api interface {
	CreateDevice(w Window) (Device, error)
	DestroyDevice(d Device)

	CreateSwapchain(w Window, d Device) (Swapchain, error)
	DestroySwapchain(d Device, s Swapchain)

	// CreatePass builds a pass drawing into images of s. With clear set the
	// attachments are cleared on load, otherwise their contents are kept.
	CreatePass(d Device, s Swapchain, clear bool) (Pass, error)
	DestroyPass(d Device, p Pass)

	CreateFbo(d Device, s Swapchain, p Pass, imageID uint32) (Fbo, error)
	DestroyFbo(d Device, f Fbo)

	CreatePipeline(d Device, st RenderState, decl Decl, stride uint32, tp Topology, ulay *UniformsLayout, vs, fs Shader) (Pipeline, error)
	DestroyPipeline(d Device, p Pipeline)

	CreateComputePipeline(d Device, ulay *UniformsLayout, cs Shader) (CompPipeline, error)
	DestroyComputePipeline(d Device, p CompPipeline)

	// CreateShader takes SPIR-V code.
	CreateShader(d Device, code []byte, stage ShaderStage) (Shader, error)
	DestroyShader(d Device, s Shader)

	// CreateFence returns a signaled fence.
	CreateFence(d Device) (Fence, error)
	DestroyFence(d Device, f Fence)

	CreateSemaphore(d Device) (Semaphore, error)
	DestroySemaphore(d Device, s Semaphore)

	CreateCommandPool(d Device) (CmdPool, error)
	DestroyCommandPool(d Device, p CmdPool)

	CreateCommandBuffer(d Device, p CmdPool) (CommandBuffer, error)
	DestroyCommandBuffer(d Device, p CmdPool, c CommandBuffer)

	// CreateBuffer copies data into the new buffer when data is not nil.
	CreateBuffer(d Device, data []byte, size uint64, usage MemUsage, flags BufferFlags) (Buffer, error)
	// UpdateBuffer rewrites part of a staging buffer.
	UpdateBuffer(d Device, b Buffer, data []byte, offset uint64) error
	DestroyBuffer(d Device, b Buffer)

	CreateDescriptors(d Device, ulay *UniformsLayout) (Desc, error)
	DestroyDescriptors(d Device, u Desc)

	CreateTexture(d Device, p *Pixmap, mips bool) (Texture, error)
	DestroyTexture(d Device, t Texture)

	// NextImage acquires a swapchain image and signals onReady once it can
	// be drawn to. core.ErrSwapchainOutdated asks for swapchain recreation.
	NextImage(d Device, s Swapchain, onReady Semaphore) (uint32, error)
	SwapchainImage(s Swapchain, id uint32) Attach
	Present(d Device, s Swapchain, imageID uint32, wait Semaphore) error
	// Submit queues cmd for execution after wait, then signals onReady and
	// onReadyCpu.
	Submit(d Device, cmd CommandBuffer, wait Semaphore, onReady Semaphore, onReadyCpu Fence) error
	WaitIdle(d Device) error
}
