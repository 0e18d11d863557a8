package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/gapi"
)

var (
	ErrNotInPass = errors.New("no render pass is active")
	ErrInPass    = errors.New("a render pass is active")
)

// Encoder records into one command buffer and keeps the layouts of the
// resources it touches. Transitions are flushed before each render pass and
// dispatch, and at End.
type Encoder struct {
	cmd   gapi.CommandBuffer
	state gapi.ResourceState

	inPass bool
	fbo    gapi.Fbo
	width  uint32
	height uint32
}

func NewEncoder(cmd gapi.CommandBuffer) *Encoder {
	return &Encoder{cmd: cmd}
}

func (e *Encoder) Begin() error {
	return e.cmd.Begin()
}

// Clear sets the clear color of the next render pass.
func (e *Encoder) Clear(r, g, b, a float32) {
	e.cmd.Clear(r, g, b, a)
}

// BeginPass moves every attachment of fbo to ColorAttach and starts pass.
// Without preserve the previous contents of the attachments are discarded.
func (e *Encoder) BeginPass(fbo gapi.Fbo, pass gapi.Pass, width, height uint32, preserve bool) error {
	if e.inPass {
		return ErrInPass
	}
	for _, att := range fbo.Attachments() {
		e.state.SetLayout(att, gapi.ColorAttach, preserve)
	}
	e.state.FlushLayout(e.cmd)
	e.cmd.BeginRenderPass(fbo, pass, width, height)

	e.inPass = true
	e.fbo = fbo
	e.width, e.height = width, height
	return nil
}

func (e *Encoder) EndPass() error {
	if !e.inPass {
		return ErrNotInPass
	}
	e.cmd.EndRenderPass()
	e.inPass = false
	return nil
}

// SetPipeline binds the instance of p matching the current pass.
func (e *Encoder) SetPipeline(p gapi.Pipeline) error {
	if !e.inPass {
		return ErrNotInPass
	}
	return e.cmd.SetPipeline(p, e.width, e.height)
}

func (e *Encoder) SetUniforms(p gapi.Pipeline, u gapi.Desc) {
	e.cmd.SetUniforms(p, u)
}

func (e *Encoder) SetVbo(buf gapi.Buffer) {
	e.cmd.SetVbo(buf)
}

func (e *Encoder) Draw(offset, count uint32) {
	e.cmd.Draw(offset, count)
}

// SetBufferLayout requests buf to be in lay before the next dispatch.
func (e *Encoder) SetBufferLayout(buf gapi.Buffer, lay gapi.BufferLayout) {
	e.state.SetBufferLayout(buf, lay)
}

// SetLayout requests img to be in lay at the next flush.
func (e *Encoder) SetLayout(img gapi.Attach, lay gapi.TextureLayout) {
	e.state.SetLayout(img, lay, true)
}

// Dispatch flushes pending transitions and runs p over a group grid.
func (e *Encoder) Dispatch(p gapi.CompPipeline, u gapi.Desc, x, y, z uint32) error {
	if e.inPass {
		return ErrInPass
	}
	e.state.FlushLayout(e.cmd)
	e.cmd.SetComputePipeline(p)
	if u != nil {
		e.cmd.SetComputeUniforms(p, u)
	}
	e.cmd.Dispatch(x, y, z)
	return nil
}

// End moves present to the Present layout, finalizes the tracked state and
// closes the command buffer. present may be nil for offscreen work.
func (e *Encoder) End(present gapi.Attach) error {
	if e.inPass {
		if err := e.EndPass(); err != nil {
			return err
		}
	}
	if present != nil {
		e.state.SetLayout(present, gapi.Present, true)
	}
	e.state.Finalize(e.cmd)
	return e.cmd.End()
}

// Reset prepares the encoder and its command buffer for a new recording.
func (e *Encoder) Reset() error {
	e.inPass = false
	e.fbo = nil
	return e.cmd.Reset()
}
