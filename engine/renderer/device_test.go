package renderer

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, frames uint32) (*Device, *fakeApi) {
	t.Helper()
	api := newFakeApi(&fakeWindow{w: 800, h: 600})
	d, err := NewDevice(api, api.window, fakeShaders{}, frames)
	require.NoError(t, err)
	api.log = nil
	return d, api
}

func renderFrame(t *testing.T, d *Device) {
	t.Helper()
	fr, err := d.BeginFrame(context.Background())
	require.NoError(t, err)
	require.NoError(t, d.MainPass(fr))
	require.NoError(t, d.Submit(fr))
}

func TestFrameRecordsAndPresents(t *testing.T) {
	d, api := newTestDevice(t, 2)

	renderFrame(t, d)

	assert.Equal(t, []string{
		"wait fence0",
		"acquire 0 signal sem1",
		"reset fence0",
		"reset",
		"begin",
		"clear 0.0 0.0 0.0 1.0",
		"image 3 undefined->color-attach noop=false",
		"begin pass 800x600",
		"end pass",
		"image 3 color-attach->present noop=false",
		"end",
		"submit wait sem1 signal sem6 fence0",
		"present 0 wait sem6",
	}, api.log)
	assert.Equal(t, uint64(1), d.FrameID())
}

func TestFrameRingReusesFences(t *testing.T) {
	d, api := newTestDevice(t, 2)

	var waits []string
	for i := 0; i < 4; i++ {
		api.log = nil
		renderFrame(t, d)
		waits = append(waits, api.log[0])
		assert.Contains(t, api.log, "reset "+api.log[0][len("wait "):])
	}
	assert.Equal(t, []string{"wait fence0", "wait fence1", "wait fence0", "wait fence1"}, waits)
	assert.Equal(t, uint32(0), d.FrameIndex())
}

func TestFenceWaitFailureStopsFrame(t *testing.T) {
	d, api := newTestDevice(t, 1)
	api.fences[0].signaled = false

	_, err := d.BeginFrame(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"wait fence0"}, api.log)
}

func TestOutdatedSwapchainIsRecreated(t *testing.T) {
	d, api := newTestDevice(t, 2)
	old := d.swapchain
	api.outdated = true
	api.window.w, api.window.h = 1024, 768

	_, err := d.BeginFrame(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSwapchainOutdated))
	assert.NotContains(t, api.log, "reset fence0")
	assert.Contains(t, api.log, "idle")
	assert.NotSame(t, old, d.swapchain)
	assert.Equal(t, uint32(1024), d.Width())
	assert.Equal(t, uint32(768), d.Height())

	fr, err := d.BeginFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), fr.Width)
}

func TestMinimizedWindowSkipsFrames(t *testing.T) {
	d, api := newTestDevice(t, 2)
	api.window.w, api.window.h = 0, 0
	require.NoError(t, d.Resize())

	_, err := d.BeginFrame(context.Background())
	assert.True(t, errors.Is(err, core.ErrSwapchainOutdated))

	api.window.w, api.window.h = 640, 480
	fr, err := d.BeginFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(640), fr.Width)
}

func TestBuiltinPipelines(t *testing.T) {
	d, _ := newTestDevice(t, 2)

	p, err := d.BuiltinPipeline(true, gapi.Triangles)
	require.NoError(t, err)
	assert.Equal(t, gapi.Triangles, p.Topology())
	_, ok := p.Uniforms().Binding(0)
	assert.True(t, ok)

	p, err = d.BuiltinPipeline(false, gapi.Lines)
	require.NoError(t, err)
	assert.Equal(t, gapi.Lines, p.Topology())
	assert.Empty(t, p.Uniforms().Bindings)

	b, err := d.Builtin()
	require.NoError(t, err)
	again, err := d.Builtin()
	require.NoError(t, err)
	assert.Same(t, b, again)
	assert.Len(t, b.pipelines, 4)
}

func TestBuiltinFailureLeaksNothing(t *testing.T) {
	api := newFakeApi(&fakeWindow{w: 800, h: 600})
	d, err := NewDevice(api, api.window, fakeShaders{missing: shaderFrag2dTex}, 2)
	require.NoError(t, err)
	before := len(api.live)

	_, err = d.Builtin()
	require.Error(t, err)
	assert.Len(t, api.live, before)
}

func TestBrushUniforms(t *testing.T) {
	d, _ := newTestDevice(t, 2)

	u, err := d.BrushUniforms(nil)
	require.NoError(t, err)
	assert.Empty(t, u.(*fakeDesc).tex)

	tex := &fakeTexture{}
	u, err = d.BrushUniforms(tex)
	require.NoError(t, err)
	assert.Same(t, tex, u.(*fakeDesc).tex[0])
}

func TestCloseDestroysEverything(t *testing.T) {
	d, api := newTestDevice(t, 3)
	_, err := d.Builtin()
	require.NoError(t, err)
	vbo, err := d.LoadVbo([]byte{1, 2, 3})
	require.NoError(t, err)
	d.Release(vbo)

	d.Close()
	assert.Empty(t, api.live)
	d.Close()
}

type fakeTexture struct{ fakeImage }

func (t *fakeTexture) Width() uint32  { return 1 }
func (t *fakeTexture) Height() uint32 { return 1 }

func TestReloadBuiltinRebuilds(t *testing.T) {
	d, api := newTestDevice(t, 2)
	first, err := d.Builtin()
	require.NoError(t, err)
	before := len(api.live)

	require.NoError(t, d.ReloadBuiltin())
	assert.Len(t, api.live, before-4-3)

	second, err := d.Builtin()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Len(t, api.live, before)

	require.NoError(t, d.ReloadBuiltin())
	require.NoError(t, d.ReloadBuiltin())
}

func TestMemoryStatsNeedsBackendSupport(t *testing.T) {
	d, _ := newTestDevice(t, 1)
	_, ok := d.MemoryStats()
	assert.False(t, ok)
}
