package editor

import (
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/painter"
)

const (
	gridStep     = 32
	crosshairLen = 12
)

var (
	gridPen      = painter.Pen{R: 0.35, G: 0.35, B: 0.4, A: 1}
	crosshairPen = painter.Pen{R: 1, G: 0.2, B: 0.2, A: 1}
	// Used when the background texture could not be loaded.
	backgroundFill = painter.SolidBrush(0.12, 0.12, 0.15, 1)
)

// paintBackground covers a w by h surface with tex, stretched.
func paintBackground(dev painter.PaintDevice, tex gapi.Texture, w, h uint32) {
	p := painter.New(dev, w, h, true)
	if tex != nil {
		p.SetBrush(painter.TextureBrush(tex))
	} else {
		p.SetBrush(backgroundFill)
	}
	p.DrawRect(0, 0, int(w), int(h))
	p.End()
}

// paintOverlay draws the grid and, when the cursor is inside the surface, a
// crosshair on it.
func paintOverlay(dev painter.PaintDevice, w, h uint32, cur cursor) {
	p := painter.New(dev, w, h, true)

	p.SetPen(gridPen)
	for x := gridStep; x < int(w); x += gridStep {
		p.DrawLine(x, 0, x, int(h))
	}
	for y := gridStep; y < int(h); y += gridStep {
		p.DrawLine(0, y, int(w), y)
	}

	if cur.inside(w, h) {
		x, y := int(cur.x), int(cur.y)
		p.SetPen(crosshairPen)
		p.DrawLine(x-crosshairLen, y, x+crosshairLen, y)
		p.DrawLine(x, y-crosshairLen, x, y+crosshairLen)
	}
	p.End()
}

type cursor struct {
	x, y float32
}

func (c cursor) inside(w, h uint32) bool {
	return c.x >= 0 && c.y >= 0 && c.x < float32(w) && c.y < float32(h)
}
