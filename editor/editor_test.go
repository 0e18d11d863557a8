package editor

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/assets"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexture struct{ id uint64 }

func (t *fakeTexture) NativeHandle() uint64              { return t.id }
func (t *fakeTexture) DefaultLayout() gapi.TextureLayout { return gapi.Sampler }
func (t *fakeTexture) Width() uint32                     { return 1 }
func (t *fakeTexture) Height() uint32                    { return 1 }

type fakeDevice struct {
	loaded   int
	reloads  int
	released []any
}

func (d *fakeDevice) MaxFramesInFlight() uint32 { return 2 }
func (d *fakeDevice) FrameIndex() uint32        { return 0 }

func (d *fakeDevice) LoadVbo(data []byte) (gapi.Buffer, error) {
	return nil, errors.New("no vbo in tests")
}

func (d *fakeDevice) BrushUniforms(tex gapi.Texture) (gapi.Desc, error) {
	return nil, errors.New("no uniforms in tests")
}

func (d *fakeDevice) BuiltinPipeline(textured bool, tp gapi.Topology) (gapi.Pipeline, error) {
	return nil, errors.New("no pipelines in tests")
}

func (d *fakeDevice) Release(obj any) {
	d.released = append(d.released, obj)
}

func (d *fakeDevice) LoadTexture(pix *gapi.Pixmap, mips bool) (gapi.Texture, error) {
	d.loaded++
	return &fakeTexture{id: uint64(d.loaded)}, nil
}

func (d *fakeDevice) ReloadBuiltin() error {
	d.reloads++
	return nil
}

type fakeImages struct{ missing bool }

func (f *fakeImages) Image(name string) (*gapi.Pixmap, error) {
	if f.missing {
		return nil, errors.Newf("%s not found", name)
	}
	return &gapi.Pixmap{}, nil
}

func newTestEditor(t *testing.T, images *fakeImages) (*Editor, *fakeDevice) {
	ed := New()
	dev := &fakeDevice{}
	require.NoError(t, ed.attach(dev, images))
	t.Cleanup(func() { core.EventUnregister(core.EVENT_CODE_MOUSE_MOVED, ed) })
	require.NoError(t, ed.OnResize(64, 64))
	require.NoError(t, ed.Update(0))
	return ed, dev
}

func TestEditorPaintsOnResize(t *testing.T) {
	ed, dev := newTestEditor(t, &fakeImages{})
	s := ed.state()

	assert.Equal(t, 1, dev.loaded)
	assert.NotNil(t, s.backTex)
	assert.Equal(t, uint32(64), s.background.Width())
	assert.Equal(t, uint32(6), s.background.Blocks()[0].Size)
	assert.Equal(t, uint32(4), s.overlay.Blocks()[0].Size)
	assert.False(t, s.backgroundDirty)
	assert.False(t, s.overlayDirty)
}

func TestEditorMissingBackground(t *testing.T) {
	ed, dev := newTestEditor(t, &fakeImages{missing: true})
	assert.Zero(t, dev.loaded)
	assert.Nil(t, ed.state().backTex)
	assert.Nil(t, ed.state().background.Blocks()[0].Brush)
}

func TestMouseMoveRepaintsOverlay(t *testing.T) {
	ed, _ := newTestEditor(t, &fakeImages{})

	var ctx core.EventContext
	ctx.Data.F32[0], ctx.Data.F32[1] = 20, 20
	core.EventFire(core.EVENT_CODE_MOUSE_MOVED, nil, ctx)
	require.True(t, ed.state().overlayDirty)

	require.NoError(t, ed.Update(0))
	assert.Equal(t, uint32(8), ed.state().overlay.Blocks()[0].Size)
}

func TestShaderChangeReloadsBuiltin(t *testing.T) {
	ed, dev := newTestEditor(t, &fakeImages{})

	err := ed.AssetsChanged([]assets.AssetInfo{{Path: "shaders/painter2d.frag.spv", Kind: assets.KindShader}})
	require.NoError(t, err)
	assert.Equal(t, 1, dev.reloads)
	assert.True(t, ed.state().backgroundDirty)
	assert.True(t, ed.state().overlayDirty)
}

func TestBackgroundChangeReloadsTexture(t *testing.T) {
	ed, dev := newTestEditor(t, &fakeImages{})
	old := ed.state().backTex

	err := ed.AssetsChanged([]assets.AssetInfo{{Path: backgroundTexture, Kind: assets.KindImage}})
	require.NoError(t, err)
	assert.Equal(t, 2, dev.loaded)
	assert.Equal(t, []any{old}, dev.released)
	assert.NotEqual(t, old, ed.state().backTex)
	assert.Zero(t, dev.reloads)
}

func TestShutdownReleasesTexture(t *testing.T) {
	ed, dev := newTestEditor(t, &fakeImages{})
	tex := ed.state().backTex

	require.NoError(t, ed.Shutdown())
	assert.Contains(t, dev.released, any(tex))
	assert.Nil(t, ed.state().backTex)
}
