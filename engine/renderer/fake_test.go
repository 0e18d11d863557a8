package renderer

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

type fakeWindow struct{ w, h int }

func (f *fakeWindow) GetFramebufferSize() (int, int) { return f.w, f.h }

type fakeDevice struct{ id int }

func (fakeDevice) Props() gapi.DeviceProps { return gapi.DeviceProps{Name: "fake"} }

type fakeSwapchain struct {
	w, h   uint32
	images []*fakeImage
}

func (s *fakeSwapchain) Width() uint32      { return s.w }
func (s *fakeSwapchain) Height() uint32     { return s.h }
func (s *fakeSwapchain) ImageCount() uint32 { return uint32(len(s.images)) }

type fakeImage struct{ id uint64 }

func (i *fakeImage) NativeHandle() uint64              { return i.id }
func (i *fakeImage) DefaultLayout() gapi.TextureLayout { return gapi.Present }

type fakeLayout struct{}

func (fakeLayout) IsCompatible(other gapi.FramebufferLayout) bool { return true }

type fakePass struct{ clear bool }

func (p *fakePass) Layout() gapi.FramebufferLayout { return fakeLayout{} }

type fakeFbo struct{ att []gapi.Attach }

func (f *fakeFbo) Attachments() []gapi.Attach { return f.att }

type fakeFence struct {
	log      *[]string
	name     string
	signaled bool
}

func (f *fakeFence) Wait(ctx context.Context) error {
	*f.log = append(*f.log, "wait "+f.name)
	if !f.signaled {
		return errors.New("fence would block forever")
	}
	return nil
}

func (f *fakeFence) Reset() error {
	*f.log = append(*f.log, "reset "+f.name)
	f.signaled = false
	return nil
}

type fakeSemaphore struct{ name string }

type fakePool struct{ id int }

func (fakePool) Reset() error { return nil }

type fakeShader struct {
	name  string
	stage gapi.ShaderStage
}

func (s *fakeShader) Stage() gapi.ShaderStage { return s.stage }

type fakePipeline struct {
	tp   gapi.Topology
	ulay *gapi.UniformsLayout
}

func (p *fakePipeline) Topology() gapi.Topology         { return p.tp }
func (p *fakePipeline) Uniforms() *gapi.UniformsLayout { return p.ulay }

type fakeBuffer struct {
	data []byte
}

func (b *fakeBuffer) Size() uint64 { return uint64(len(b.data)) }

type fakeDesc struct {
	ulay *gapi.UniformsLayout
	tex  map[uint32]gapi.Texture
}

func (d *fakeDesc) SetTexture(layout uint32, tex gapi.Texture) error {
	if _, ok := d.ulay.Binding(layout); !ok {
		return errors.Newf("no binding %d", layout)
	}
	d.tex[layout] = tex
	return nil
}

func (d *fakeDesc) SetBuffer(layout uint32, buf gapi.Buffer, offset, size uint64) error {
	return nil
}

// fakeCmd logs every recorded command.
type fakeCmd struct {
	log *[]string
}

func (c *fakeCmd) add(format string, args ...any) {
	*c.log = append(*c.log, fmt.Sprintf(format, args...))
}

func (c *fakeCmd) ChangeImageLayout(img gapi.Attach, prev, next gapi.TextureLayout, noop bool) {
	c.add("image %d %s->%s noop=%v", img.NativeHandle(), prev, next, noop)
}

func (c *fakeCmd) ChangeBufferLayout(buf gapi.Buffer, prev, next gapi.BufferLayout, noop bool) {
	c.add("buffer %s->%s noop=%v", prev, next, noop)
}

func (c *fakeCmd) Begin() error { c.add("begin"); return nil }
func (c *fakeCmd) End() error   { c.add("end"); return nil }
func (c *fakeCmd) Reset() error { c.add("reset"); return nil }

func (c *fakeCmd) BeginRenderPass(fbo gapi.Fbo, pass gapi.Pass, w, h uint32) {
	c.add("begin pass %dx%d", w, h)
}

func (c *fakeCmd) EndRenderPass()           { c.add("end pass") }
func (c *fakeCmd) Clear(r, g, b, a float32) { c.add("clear %.1f %.1f %.1f %.1f", r, g, b, a) }

func (c *fakeCmd) SetPipeline(p gapi.Pipeline, w, h uint32) error {
	c.add("pipeline %s %dx%d", p.Topology(), w, h)
	return nil
}

func (c *fakeCmd) SetComputePipeline(p gapi.CompPipeline)             { c.add("compute pipeline") }
func (c *fakeCmd) SetUniforms(p gapi.Pipeline, u gapi.Desc)           { c.add("uniforms") }
func (c *fakeCmd) SetComputeUniforms(p gapi.CompPipeline, u gapi.Desc) { c.add("compute uniforms") }
func (c *fakeCmd) SetVbo(buf gapi.Buffer)                             { c.add("vbo %d", buf.Size()) }
func (c *fakeCmd) Draw(offset, count uint32)                          { c.add("draw %d %d", offset, count) }
func (c *fakeCmd) Dispatch(x, y, z uint32)                            { c.add("dispatch %d %d %d", x, y, z) }

type fakeApi struct {
	log       []string
	window    *fakeWindow
	nextImage uint32
	outdated  bool
	missing   string
	nextID    uint64
	live      map[any]string
	fences    []*fakeFence
	cmds      []*fakeCmd
}

func newFakeApi(w *fakeWindow) *fakeApi {
	return &fakeApi{window: w, live: map[any]string{}}
}

func (a *fakeApi) track(obj any, kind string) { a.live[obj] = kind }
func (a *fakeApi) drop(obj any)                { delete(a.live, obj) }

func (a *fakeApi) CreateDevice(w gapi.Window) (gapi.Device, error) {
	d := &fakeDevice{}
	a.track(d, "device")
	return d, nil
}
func (a *fakeApi) DestroyDevice(d gapi.Device) { a.drop(d) }

func (a *fakeApi) CreateSwapchain(w gapi.Window, d gapi.Device) (gapi.Swapchain, error) {
	width, height := w.GetFramebufferSize()
	s := &fakeSwapchain{w: uint32(width), h: uint32(height)}
	for i := 0; i < 3; i++ {
		a.nextID++
		s.images = append(s.images, &fakeImage{id: a.nextID})
	}
	a.track(s, "swapchain")
	return s, nil
}
func (a *fakeApi) DestroySwapchain(d gapi.Device, s gapi.Swapchain) { a.drop(s) }

func (a *fakeApi) CreatePass(d gapi.Device, s gapi.Swapchain, clear bool) (gapi.Pass, error) {
	p := &fakePass{clear: clear}
	a.track(p, "pass")
	return p, nil
}
func (a *fakeApi) DestroyPass(d gapi.Device, p gapi.Pass) { a.drop(p) }

func (a *fakeApi) CreateFbo(d gapi.Device, s gapi.Swapchain, p gapi.Pass, imageID uint32) (gapi.Fbo, error) {
	f := &fakeFbo{att: []gapi.Attach{s.(*fakeSwapchain).images[imageID]}}
	a.track(f, "fbo")
	return f, nil
}
func (a *fakeApi) DestroyFbo(d gapi.Device, f gapi.Fbo) { a.drop(f) }

func (a *fakeApi) CreatePipeline(d gapi.Device, st gapi.RenderState, decl gapi.Decl, stride uint32, tp gapi.Topology, ulay *gapi.UniformsLayout, vs, fs gapi.Shader) (gapi.Pipeline, error) {
	p := &fakePipeline{tp: tp, ulay: ulay}
	a.track(p, "pipeline")
	return p, nil
}
func (a *fakeApi) DestroyPipeline(d gapi.Device, p gapi.Pipeline) { a.drop(p) }

func (a *fakeApi) CreateComputePipeline(d gapi.Device, ulay *gapi.UniformsLayout, cs gapi.Shader) (gapi.CompPipeline, error) {
	p := &fakePipeline{ulay: ulay}
	a.track(p, "compute")
	return p, nil
}
func (a *fakeApi) DestroyComputePipeline(d gapi.Device, p gapi.CompPipeline) { a.drop(p) }

func (a *fakeApi) CreateShader(d gapi.Device, code []byte, stage gapi.ShaderStage) (gapi.Shader, error) {
	s := &fakeShader{name: string(code), stage: stage}
	a.track(s, "shader")
	return s, nil
}
func (a *fakeApi) DestroyShader(d gapi.Device, s gapi.Shader) { a.drop(s) }

func (a *fakeApi) CreateFence(d gapi.Device) (gapi.Fence, error) {
	f := &fakeFence{log: &a.log, name: fmt.Sprintf("fence%d", len(a.fences)), signaled: true}
	a.fences = append(a.fences, f)
	a.track(f, "fence")
	return f, nil
}
func (a *fakeApi) DestroyFence(d gapi.Device, f gapi.Fence) { a.drop(f) }

func (a *fakeApi) CreateSemaphore(d gapi.Device) (gapi.Semaphore, error) {
	a.nextID++
	s := &fakeSemaphore{name: fmt.Sprintf("sem%d", a.nextID)}
	a.track(s, "semaphore")
	return s, nil
}
func (a *fakeApi) DestroySemaphore(d gapi.Device, s gapi.Semaphore) { a.drop(s) }

func (a *fakeApi) CreateCommandPool(d gapi.Device) (gapi.CmdPool, error) {
	p := &fakePool{}
	a.track(p, "pool")
	return p, nil
}
func (a *fakeApi) DestroyCommandPool(d gapi.Device, p gapi.CmdPool) { a.drop(p) }

func (a *fakeApi) CreateCommandBuffer(d gapi.Device, p gapi.CmdPool) (gapi.CommandBuffer, error) {
	c := &fakeCmd{log: &a.log}
	a.cmds = append(a.cmds, c)
	a.track(c, "cmd")
	return c, nil
}
func (a *fakeApi) DestroyCommandBuffer(d gapi.Device, p gapi.CmdPool, c gapi.CommandBuffer) {
	a.drop(c)
}

func (a *fakeApi) CreateBuffer(d gapi.Device, data []byte, size uint64, usage gapi.MemUsage, flags gapi.BufferFlags) (gapi.Buffer, error) {
	b := &fakeBuffer{data: make([]byte, size)}
	copy(b.data, data)
	a.track(b, "buffer")
	return b, nil
}
func (a *fakeApi) UpdateBuffer(d gapi.Device, b gapi.Buffer, data []byte, offset uint64) error {
	copy(b.(*fakeBuffer).data[offset:], data)
	return nil
}
func (a *fakeApi) DestroyBuffer(d gapi.Device, b gapi.Buffer) { a.drop(b) }

func (a *fakeApi) CreateDescriptors(d gapi.Device, ulay *gapi.UniformsLayout) (gapi.Desc, error) {
	u := &fakeDesc{ulay: ulay, tex: map[uint32]gapi.Texture{}}
	a.track(u, "desc")
	return u, nil
}
func (a *fakeApi) DestroyDescriptors(d gapi.Device, u gapi.Desc) { a.drop(u) }

func (a *fakeApi) CreateTexture(d gapi.Device, p *gapi.Pixmap, mips bool) (gapi.Texture, error) {
	return nil, core.ErrUnsupported
}
func (a *fakeApi) DestroyTexture(d gapi.Device, t gapi.Texture) { a.drop(t) }

func (a *fakeApi) NextImage(d gapi.Device, s gapi.Swapchain, onReady gapi.Semaphore) (uint32, error) {
	if a.outdated {
		a.outdated = false
		return 0, core.Wrap(core.ErrSwapchainOutdated, nil, "acquire")
	}
	id := a.nextImage
	a.nextImage = (a.nextImage + 1) % s.ImageCount()
	a.log = append(a.log, fmt.Sprintf("acquire %d signal %s", id, onReady.(*fakeSemaphore).name))
	return id, nil
}

func (a *fakeApi) SwapchainImage(s gapi.Swapchain, id uint32) gapi.Attach {
	return s.(*fakeSwapchain).images[id]
}

func (a *fakeApi) Present(d gapi.Device, s gapi.Swapchain, imageID uint32, wait gapi.Semaphore) error {
	a.log = append(a.log, fmt.Sprintf("present %d wait %s", imageID, wait.(*fakeSemaphore).name))
	return nil
}

func (a *fakeApi) Submit(d gapi.Device, cmd gapi.CommandBuffer, wait, onReady gapi.Semaphore, onReadyCpu gapi.Fence) error {
	f := onReadyCpu.(*fakeFence)
	a.log = append(a.log, fmt.Sprintf("submit wait %s signal %s %s",
		wait.(*fakeSemaphore).name, onReady.(*fakeSemaphore).name, f.name))
	// the GPU finishes instantly
	f.signaled = true
	return nil
}

func (a *fakeApi) WaitIdle(d gapi.Device) error {
	a.log = append(a.log, "idle")
	return nil
}

type fakeShaders struct{ missing string }

func (f fakeShaders) Shader(name string) ([]byte, error) {
	if name == f.missing {
		return nil, errors.Newf("%s not found", name)
	}
	return []byte(name), nil
}
