package editor

import (
	"testing"

	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/painter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundCoversSurface(t *testing.T) {
	tex := &fakeTexture{id: 7}
	img := painter.NewVectorImage()
	paintBackground(img, tex, 64, 32)

	blocks := img.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, gapi.Texture(tex), blocks[0].Brush)
	assert.Equal(t, gapi.Triangles, blocks[0].Tp)
	assert.Equal(t, uint32(6), blocks[0].Size)

	pts := img.Points()
	assert.Equal(t, float32(-1), pts[0].X)
	assert.Equal(t, float32(-1), pts[0].Y)
	assert.Equal(t, float32(1), pts[2].X)
	assert.Equal(t, float32(1), pts[2].Y)
}

func TestBackgroundWithoutTextureIsSolid(t *testing.T) {
	img := painter.NewVectorImage()
	paintBackground(img, nil, 64, 32)

	blocks := img.Blocks()
	require.Len(t, blocks, 1)
	assert.Nil(t, blocks[0].Brush)
	assert.Equal(t, backgroundFill.R, img.Points()[0].R)
}

func TestOverlayGrid(t *testing.T) {
	img := painter.NewVectorImage()
	paintOverlay(img, 64, 64, cursor{x: -1, y: -1})

	blocks := img.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, gapi.Lines, blocks[0].Tp)
	// one vertical and one horizontal line at 32px
	assert.Equal(t, uint32(4), blocks[0].Size)

	pts := img.Points()
	assert.Equal(t, float32(0), pts[0].X)
	assert.Equal(t, float32(-1), pts[0].Y)
	assert.Equal(t, float32(0), pts[1].X)
	assert.Equal(t, float32(1), pts[1].Y)
	assert.Equal(t, gridPen.R, pts[0].R)
}

func TestOverlayCrosshairFollowsCursor(t *testing.T) {
	img := painter.NewVectorImage()
	paintOverlay(img, 64, 64, cursor{x: 16, y: 48})

	blocks := img.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, uint32(8), blocks[0].Size)

	pts := img.Points()
	// horizontal arm from x-12 to x+12 at y
	assert.Equal(t, float32(4)*2/64-1, pts[4].X)
	assert.Equal(t, float32(28)*2/64-1, pts[5].X)
	assert.Equal(t, float32(48)*2/64-1, pts[4].Y)
	assert.Equal(t, crosshairPen.R, pts[4].R)
	assert.Equal(t, crosshairPen.G, pts[4].G)
}

func TestCursorInside(t *testing.T) {
	assert.True(t, cursor{x: 0, y: 0}.inside(10, 10))
	assert.False(t, cursor{x: 10, y: 5}.inside(10, 10))
	assert.False(t, cursor{x: -1, y: -1}.inside(10, 10))
}
