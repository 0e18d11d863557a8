// Package renderer drives frame submission on top of a gapi backend: frames
// in flight, swapchain images and the builtin 2D pipelines.
package renderer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/gapi/memory"
)

type frameLocal struct {
	imageAvailable gapi.Semaphore
	gpuLock        gapi.Fence
	enc            *Encoder
	cmd            gapi.CommandBuffer
}

// Device owns the backend device and the per-frame synchronization
// objects. It is driven from a single goroutine.
type Device struct {
	api     gapi.Api
	dev     gapi.Device
	window  gapi.Window
	shaders ShaderSource

	swapchain gapi.Swapchain
	pass      gapi.Pass
	fbos      []gapi.Fbo
	// signaled when rendering into the swapchain image of the same index is done
	imageDone []gapi.Semaphore

	pool    gapi.CmdPool
	frames  []frameLocal
	frameID uint64

	builtin *Builtin
	clear   [4]float32
}

// NewDevice creates the device, a swapchain for w and framesInFlight sets of
// frame resources.
func NewDevice(api gapi.Api, w gapi.Window, shaders ShaderSource, framesInFlight uint32) (d *Device, err error) {
	if framesInFlight == 0 {
		return nil, errors.New("at least one frame in flight is required")
	}
	d = &Device{
		api:     api,
		window:  w,
		shaders: shaders,
		clear:   [4]float32{0, 0, 0, 1},
	}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	if d.dev, err = api.CreateDevice(w); err != nil {
		return nil, err
	}
	if d.pool, err = api.CreateCommandPool(d.dev); err != nil {
		return nil, err
	}
	for i := uint32(0); i < framesInFlight; i++ {
		var f frameLocal
		if f.imageAvailable, err = api.CreateSemaphore(d.dev); err != nil {
			return nil, err
		}
		d.frames = append(d.frames, f)
		fl := &d.frames[len(d.frames)-1]
		if fl.gpuLock, err = api.CreateFence(d.dev); err != nil {
			return nil, err
		}
		if fl.cmd, err = api.CreateCommandBuffer(d.dev, d.pool); err != nil {
			return nil, err
		}
		fl.enc = NewEncoder(fl.cmd)
	}
	if err = d.initSwapchain(); err != nil {
		return nil, err
	}
	core.LogInfo("renderer ready on %s with %d frames in flight", d.dev.Props().Name, framesInFlight)
	return d, nil
}

func (d *Device) MaxFramesInFlight() uint32 {
	return uint32(len(d.frames))
}

// FrameID counts submitted frames.
func (d *Device) FrameID() uint64 {
	return d.frameID
}

// FrameIndex is the slot of the frame being recorded, in [0, MaxFramesInFlight).
func (d *Device) FrameIndex() uint32 {
	return uint32(d.frameID % uint64(len(d.frames)))
}

func (d *Device) Width() uint32 {
	if d.swapchain == nil {
		return 0
	}
	return d.swapchain.Width()
}

func (d *Device) Height() uint32 {
	if d.swapchain == nil {
		return 0
	}
	return d.swapchain.Height()
}

func (d *Device) Props() gapi.DeviceProps {
	return d.dev.Props()
}

func (d *Device) SetClearColor(r, g, b, a float32) {
	d.clear = [4]float32{r, g, b, a}
}

// Frame is one frame being recorded into a swapchain image.
type Frame struct {
	*Encoder

	ImageID uint32
	Image   gapi.Attach
	Fbo     gapi.Fbo
	Pass    gapi.Pass
	Width   uint32
	Height  uint32

	local *frameLocal
}

// BeginMainPass clears the swapchain image and starts drawing into it.
func (f *Frame) BeginMainPass(clear [4]float32) error {
	f.Clear(clear[0], clear[1], clear[2], clear[3])
	return f.BeginPass(f.Fbo, f.Pass, f.Width, f.Height, false)
}

// BeginFrame waits until the resources of the next frame slot are no longer
// used by the GPU, acquires a swapchain image and starts recording.
// core.ErrSwapchainOutdated means the frame must be skipped.
func (d *Device) BeginFrame(ctx context.Context) (*Frame, error) {
	if d.swapchain == nil {
		if err := d.Resize(); err != nil {
			return nil, err
		}
		if d.swapchain == nil {
			return nil, core.ErrSwapchainOutdated
		}
	}

	f := &d.frames[d.FrameIndex()]
	if err := f.gpuLock.Wait(ctx); err != nil {
		return nil, err
	}

	imageID, err := d.api.NextImage(d.dev, d.swapchain, f.imageAvailable)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainOutdated) {
			if rerr := d.Resize(); rerr != nil {
				return nil, rerr
			}
		}
		return nil, err
	}
	if err := f.gpuLock.Reset(); err != nil {
		return nil, err
	}
	if err := f.enc.Reset(); err != nil {
		return nil, err
	}
	if err := f.enc.Begin(); err != nil {
		return nil, err
	}

	fr := &Frame{
		Encoder: f.enc,
		ImageID: imageID,
		Image:   d.api.SwapchainImage(d.swapchain, imageID),
		Fbo:     d.fbos[imageID],
		Pass:    d.pass,
		Width:   d.swapchain.Width(),
		Height:  d.swapchain.Height(),
		local:   f,
	}
	return fr, nil
}

// MainPass begins the frame's pass with the device clear color.
func (d *Device) MainPass(fr *Frame) error {
	return fr.BeginMainPass(d.clear)
}

// Submit ends the recording, queues it and presents the frame's image.
func (d *Device) Submit(fr *Frame) error {
	f := fr.local
	if err := f.enc.End(fr.Image); err != nil {
		return err
	}
	done := d.imageDone[fr.ImageID]
	if err := d.api.Submit(d.dev, f.cmd, f.imageAvailable, done, f.gpuLock); err != nil {
		return err
	}
	d.frameID++

	if err := d.api.Present(d.dev, d.swapchain, fr.ImageID, done); err != nil {
		if errors.Is(err, core.ErrSwapchainOutdated) {
			return d.Resize()
		}
		return err
	}
	return nil
}

// Resize rebuilds the swapchain and everything sized after it. A window of
// zero size leaves the device without a swapchain until the next call.
func (d *Device) Resize() error {
	if err := d.api.WaitIdle(d.dev); err != nil {
		return err
	}
	d.destroySwapchain()
	w, h := d.window.GetFramebufferSize()
	if w == 0 || h == 0 {
		core.LogDebug("window is minimized, swapchain postponed")
		return nil
	}
	return d.initSwapchain()
}

func (d *Device) initSwapchain() (err error) {
	defer func() {
		if err != nil {
			d.destroySwapchain()
		}
	}()

	if d.swapchain, err = d.api.CreateSwapchain(d.window, d.dev); err != nil {
		return err
	}
	if d.pass, err = d.api.CreatePass(d.dev, d.swapchain, true); err != nil {
		return err
	}
	for i := uint32(0); i < d.swapchain.ImageCount(); i++ {
		fbo, err := d.api.CreateFbo(d.dev, d.swapchain, d.pass, i)
		if err != nil {
			return err
		}
		d.fbos = append(d.fbos, fbo)

		sem, err := d.api.CreateSemaphore(d.dev)
		if err != nil {
			return err
		}
		d.imageDone = append(d.imageDone, sem)
	}
	core.LogDebug("swapchain %dx%d with %d images", d.swapchain.Width(), d.swapchain.Height(), d.swapchain.ImageCount())
	return nil
}

func (d *Device) destroySwapchain() {
	for _, s := range d.imageDone {
		d.api.DestroySemaphore(d.dev, s)
	}
	for _, f := range d.fbos {
		d.api.DestroyFbo(d.dev, f)
	}
	d.imageDone, d.fbos = nil, nil
	if d.pass != nil {
		d.api.DestroyPass(d.dev, d.pass)
		d.pass = nil
	}
	if d.swapchain != nil {
		d.api.DestroySwapchain(d.dev, d.swapchain)
		d.swapchain = nil
	}
}

// Builtin returns the 2D pipelines, creating them on first use.
func (d *Device) Builtin() (*Builtin, error) {
	if d.builtin == nil {
		b, err := newBuiltin(d.api, d.dev, d.shaders)
		if err != nil {
			return nil, err
		}
		d.builtin = b
	}
	return d.builtin, nil
}

// BuiltinPipeline picks one of the four 2D pipelines.
func (d *Device) BuiltinPipeline(textured bool, tp gapi.Topology) (gapi.Pipeline, error) {
	b, err := d.Builtin()
	if err != nil {
		return nil, err
	}
	if textured {
		return b.Texture2d.Pick(tp), nil
	}
	return b.Empty.Pick(tp), nil
}

// BrushUniforms creates the uniforms of a builtin pipeline, binding tex when
// it is not nil.
func (d *Device) BrushUniforms(tex gapi.Texture) (gapi.Desc, error) {
	b, err := d.Builtin()
	if err != nil {
		return nil, err
	}
	if tex == nil {
		return d.Uniforms(b.Empty.Layout)
	}
	u, err := d.Uniforms(b.Texture2d.Layout)
	if err != nil {
		return nil, err
	}
	if err := u.SetTexture(0, tex); err != nil {
		d.api.DestroyDescriptors(d.dev, u)
		return nil, err
	}
	return u, nil
}

func (d *Device) Uniforms(ulay *gapi.UniformsLayout) (gapi.Desc, error) {
	return d.api.CreateDescriptors(d.dev, ulay)
}

// LoadVbo uploads vertex data into a static buffer.
func (d *Device) LoadVbo(data []byte) (gapi.Buffer, error) {
	return d.api.CreateBuffer(d.dev, data, uint64(len(data)), gapi.MemVertex, gapi.BufferStatic)
}

// LoadUbo creates a host visible uniform buffer holding data.
func (d *Device) LoadUbo(data []byte) (gapi.Buffer, error) {
	return d.api.CreateBuffer(d.dev, data, uint64(len(data)), gapi.MemUniform, gapi.BufferStaging)
}

func (d *Device) UpdateBuffer(buf gapi.Buffer, data []byte, offset uint64) error {
	return d.api.UpdateBuffer(d.dev, buf, data, offset)
}

func (d *Device) LoadTexture(pix *gapi.Pixmap, mips bool) (gapi.Texture, error) {
	return d.api.CreateTexture(d.dev, pix, mips)
}

func (d *Device) LoadShader(code []byte, stage gapi.ShaderStage) (gapi.Shader, error) {
	return d.api.CreateShader(d.dev, code, stage)
}

func (d *Device) ComputePipeline(ulay *gapi.UniformsLayout, cs gapi.Shader) (gapi.CompPipeline, error) {
	return d.api.CreateComputePipeline(d.dev, ulay, cs)
}

// Release destroys a resource created through the device.
func (d *Device) Release(obj any) {
	switch o := obj.(type) {
	case nil:
	case gapi.Texture:
		d.api.DestroyTexture(d.dev, o)
	case gapi.Buffer:
		d.api.DestroyBuffer(d.dev, o)
	case gapi.Desc:
		d.api.DestroyDescriptors(d.dev, o)
	case gapi.CompPipeline:
		d.api.DestroyComputePipeline(d.dev, o)
	case gapi.Shader:
		d.api.DestroyShader(d.dev, o)
	default:
		core.LogWarn("release of unknown object %T", obj)
	}
}

// ReloadBuiltin drops the 2D pipelines and their shaders. They are built
// again from the shader source on next use, so every image drawn with the
// old ones has to be repainted.
func (d *Device) ReloadBuiltin() error {
	if d.builtin == nil {
		return nil
	}
	if err := d.api.WaitIdle(d.dev); err != nil {
		return err
	}
	d.builtin.destroy(d.api, d.dev)
	d.builtin = nil
	return nil
}

// MemoryStats reports the device memory pages when the backend exposes them.
func (d *Device) MemoryStats() (memory.Stats, bool) {
	if s, ok := d.dev.(interface{ MemoryStats() memory.Stats }); ok {
		return s.MemoryStats(), true
	}
	return memory.Stats{}, false
}

func (d *Device) WaitIdle() error {
	return d.api.WaitIdle(d.dev)
}

// Close waits for the GPU and destroys everything the device created.
func (d *Device) Close() {
	if d.dev == nil {
		return
	}
	if err := d.api.WaitIdle(d.dev); err != nil {
		core.LogError("wait idle on close: %s", err)
	}
	if d.builtin != nil {
		d.builtin.destroy(d.api, d.dev)
		d.builtin = nil
	}
	d.destroySwapchain()
	for _, f := range d.frames {
		if f.cmd != nil {
			d.api.DestroyCommandBuffer(d.dev, d.pool, f.cmd)
		}
		if f.gpuLock != nil {
			d.api.DestroyFence(d.dev, f.gpuLock)
		}
		if f.imageAvailable != nil {
			d.api.DestroySemaphore(d.dev, f.imageAvailable)
		}
	}
	d.frames = nil
	if d.pool != nil {
		d.api.DestroyCommandPool(d.dev, d.pool)
		d.pool = nil
	}
	d.api.DestroyDevice(d.dev)
	d.dev = nil
}
