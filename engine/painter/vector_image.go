package painter

import (
	"github.com/spaghettifunk/gale/engine/gapi"
)

// Device is what a VectorImage needs from the renderer.
type Device interface {
	MaxFramesInFlight() uint32
	FrameIndex() uint32
	LoadVbo(data []byte) (gapi.Buffer, error)
	BrushUniforms(tex gapi.Texture) (gapi.Desc, error)
	BuiltinPipeline(textured bool, tp gapi.Topology) (gapi.Pipeline, error)
	Release(obj any)
}

// Recorder is the part of a command encoder a VectorImage draws with.
type Recorder interface {
	SetPipeline(p gapi.Pipeline) error
	SetUniforms(p gapi.Pipeline, u gapi.Desc)
	SetVbo(buf gapi.Buffer)
	Draw(offset, count uint32)
}

// Block is a run of points sharing brush and topology.
type Block struct {
	Begin uint32
	Size  uint32
	Brush gapi.Texture
	Tp    gapi.Topology
}

type frameBlock struct {
	Block
	pipeline gapi.Pipeline
	desc     gapi.Desc
}

type perFrame struct {
	outdated bool
	vbo      gapi.Buffer
	blocks   []frameBlock
}

// VectorImage records painted points and draws them. Every frame in flight
// keeps its own copy of the uploaded content, so a frame still on the GPU
// is never overwritten.
type VectorImage struct {
	buf    []Point
	blocks []Block
	w, h   uint32

	frames        []perFrame
	outdatedCount int
}

func NewVectorImage() *VectorImage {
	v := &VectorImage{}
	v.clear()
	return v
}

func (v *VectorImage) Width() uint32  { return v.w }
func (v *VectorImage) Height() uint32 { return v.h }

// Blocks returns the current runs, for inspection.
func (v *VectorImage) Blocks() []Block {
	return v.blocks
}

func (v *VectorImage) Points() []Point {
	return v.buf
}

func (v *VectorImage) BeginPaint(clear bool, w, h uint32) {
	if clear || len(v.blocks) == 0 {
		v.clear()
	}
	v.w, v.h = w, h
}

func (v *VectorImage) EndPaint() {
	for i := range v.frames {
		v.frames[i].outdated = true
	}
	v.outdatedCount = len(v.frames)
}

func (v *VectorImage) AddPoint(p Point) {
	last := v.last()
	v.buf = append(v.buf, p)
	last.Size++
}

// CommitPoints drops trailing empty runs, keeping at least one.
func (v *VectorImage) CommitPoints() {
	for len(v.blocks) > 1 && v.blocks[len(v.blocks)-1].Size == 0 {
		v.blocks = v.blocks[:len(v.blocks)-1]
	}
}

func (v *VectorImage) SetBrush(tex gapi.Texture, r, g, b, a float32) {
	last := v.last()
	if last.Brush == tex {
		return
	}
	if last.Size == 0 {
		last.Brush = tex
		return
	}
	v.blocks = append(v.blocks, Block{Begin: uint32(len(v.buf)), Brush: tex, Tp: last.Tp})
}

func (v *VectorImage) SetTopology(tp gapi.Topology) {
	last := v.last()
	if last.Tp == tp {
		return
	}
	if last.Size == 0 {
		last.Tp = tp
		return
	}
	v.blocks = append(v.blocks, Block{Begin: uint32(len(v.buf)), Brush: last.Brush, Tp: tp})
}

// last returns the open block. The zero VectorImage starts with one here.
func (v *VectorImage) last() *Block {
	if len(v.blocks) == 0 {
		v.clear()
	}
	return &v.blocks[len(v.blocks)-1]
}

func (v *VectorImage) clear() {
	v.buf = v.buf[:0]
	v.blocks = append(v.blocks[:0], Block{Tp: gapi.Triangles})
}

// Draw uploads the content for the current frame when needed and records
// one draw per non-empty run.
func (v *VectorImage) Draw(dev Device, rec Recorder) error {
	if err := v.makeActual(dev); err != nil {
		return err
	}
	f := &v.frames[dev.FrameIndex()]
	for i := range f.blocks {
		b := &f.blocks[i]
		if b.Size == 0 {
			continue
		}
		if b.pipeline == nil {
			p, err := dev.BuiltinPipeline(b.Brush != nil, b.Tp)
			if err != nil {
				return err
			}
			b.pipeline = p
		}
		if err := rec.SetPipeline(b.pipeline); err != nil {
			return err
		}
		rec.SetUniforms(b.pipeline, b.desc)
		rec.SetVbo(f.vbo)
		rec.Draw(b.Begin, b.Size)
	}
	return nil
}

// Release frees the GPU copies of every frame.
func (v *VectorImage) Release(dev Device) {
	for i := range v.frames {
		v.releaseFrame(dev, &v.frames[i])
	}
	v.frames = nil
	v.outdatedCount = 0
}

func (v *VectorImage) makeActual(dev Device) error {
	if n := int(dev.MaxFramesInFlight()); len(v.frames) != n {
		v.Release(dev)
		v.frames = make([]perFrame, n)
		for i := range v.frames {
			v.frames[i].outdated = true
		}
		v.outdatedCount = n
	}

	f := &v.frames[dev.FrameIndex()]
	if !f.outdated {
		return nil
	}
	v.releaseFrame(dev, f)

	if len(v.buf) > 0 {
		vbo, err := dev.LoadVbo(pointBytes(v.buf))
		if err != nil {
			return err
		}
		f.vbo = vbo
	}
	f.blocks = make([]frameBlock, 0, len(v.blocks))
	for _, b := range v.blocks {
		desc, err := dev.BrushUniforms(b.Brush)
		if err != nil {
			v.releaseFrame(dev, f)
			return err
		}
		f.blocks = append(f.blocks, frameBlock{Block: b, desc: desc})
	}

	f.outdated = false
	v.outdatedCount--
	if v.outdatedCount == 0 {
		v.clear()
	}
	return nil
}

func (v *VectorImage) releaseFrame(dev Device, f *perFrame) {
	if f.vbo != nil {
		dev.Release(f.vbo)
		f.vbo = nil
	}
	for _, b := range f.blocks {
		dev.Release(b.desc)
	}
	f.blocks = nil
}
