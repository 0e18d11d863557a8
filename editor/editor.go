// Package editor is the demo application of the engine: a textured
// background with a grid and a crosshair following the cursor.
package editor

import (
	"time"

	"github.com/spaghettifunk/gale/engine"
	"github.com/spaghettifunk/gale/engine/assets"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/painter"
	"github.com/spaghettifunk/gale/engine/renderer"
)

const backgroundTexture = "textures/back.png"

// device is the part of renderer.Device the editor uses.
type device interface {
	painter.Device
	LoadTexture(pix *gapi.Pixmap, mips bool) (gapi.Texture, error)
	ReloadBuiltin() error
}

type imageSource interface {
	Image(name string) (*gapi.Pixmap, error)
}

type Editor struct {
	*engine.Game
}

type editorState struct {
	dev    device
	images imageSource

	width  uint32
	height uint32
	cursor cursor

	background *painter.VectorImage
	overlay    *painter.VectorImage
	backTex    gapi.Texture

	backgroundDirty bool
	overlayDirty    bool
}

func New() *Editor {
	ed := &Editor{
		Game: &engine.Game{
			State: &editorState{
				background: painter.NewVectorImage(),
				overlay:    painter.NewVectorImage(),
				cursor:     cursor{x: -1, y: -1},
			},
		},
	}
	ed.FnInitialize = ed.Initialize
	ed.FnUpdate = ed.Update
	ed.FnRender = ed.Render
	ed.FnOnResize = ed.OnResize
	ed.FnAssetsChanged = ed.AssetsChanged
	ed.FnShutdown = ed.Shutdown
	return ed
}

func (ed *Editor) state() *editorState {
	return ed.State.(*editorState)
}

func (ed *Editor) Initialize(e *engine.Engine) error {
	core.LogDebug("editor initialize")
	return ed.attach(e.Device(), e.Assets())
}

func (ed *Editor) attach(dev device, images imageSource) error {
	s := ed.state()
	s.dev = dev
	s.images = images
	core.EventRegister(core.EVENT_CODE_MOUSE_MOVED, ed, ed.onMouseMoved)
	s.loadBackground()
	return nil
}

// loadBackground replaces the background texture. On failure the
// background falls back to a solid fill.
func (s *editorState) loadBackground() {
	var tex gapi.Texture
	pix, err := s.images.Image(backgroundTexture)
	if err == nil {
		tex, err = s.dev.LoadTexture(pix, true)
	}
	if err != nil {
		core.LogWarn("background %s not available: %v", backgroundTexture, err)
	}
	if s.backTex != nil {
		s.dev.Release(s.backTex)
	}
	s.backTex = tex
	s.backgroundDirty = true
}

func (ed *Editor) OnResize(width, height uint32) error {
	s := ed.state()
	s.width, s.height = width, height
	s.backgroundDirty = true
	s.overlayDirty = true
	return nil
}

func (ed *Editor) Update(delta time.Duration) error {
	s := ed.state()
	if s.backgroundDirty {
		paintBackground(s.background, s.backTex, s.width, s.height)
		s.backgroundDirty = false
	}
	if s.overlayDirty {
		paintOverlay(s.overlay, s.width, s.height, s.cursor)
		s.overlayDirty = false
	}
	return nil
}

func (ed *Editor) Render(fr *renderer.Frame) error {
	s := ed.state()
	if err := s.background.Draw(s.dev, fr); err != nil {
		return err
	}
	return s.overlay.Draw(s.dev, fr)
}

// AssetsChanged rebuilds the 2D pipelines when a shader changed and reloads
// the background when its image did.
func (ed *Editor) AssetsChanged(changed []assets.AssetInfo) error {
	s := ed.state()
	shaders := false
	for _, info := range changed {
		switch {
		case info.Kind == assets.KindShader:
			shaders = true
		case info.Path == backgroundTexture:
			core.LogInfo("reloading %s", info.Path)
			s.loadBackground()
		}
	}
	if shaders {
		core.LogInfo("shaders changed, rebuilding 2D pipelines")
		if err := s.dev.ReloadBuiltin(); err != nil {
			return err
		}
		s.backgroundDirty = true
		s.overlayDirty = true
	}
	return nil
}

func (ed *Editor) Shutdown() error {
	s := ed.state()
	core.EventUnregister(core.EVENT_CODE_MOUSE_MOVED, ed)
	s.background.Release(s.dev)
	s.overlay.Release(s.dev)
	if s.backTex != nil {
		s.dev.Release(s.backTex)
		s.backTex = nil
	}
	return nil
}

func (ed *Editor) onMouseMoved(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	s := ed.state()
	s.cursor = cursor{x: data.Data.F32[0], y: data.Data.F32[1]}
	s.overlayDirty = true
	return false
}
