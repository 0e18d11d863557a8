package painter

import "github.com/spaghettifunk/gale/engine/gapi"

// Brush fills areas, optionally sampling a texture.
type Brush struct {
	Texture    gapi.Texture
	R, G, B, A float32
}

// Pen draws lines in a solid color.
type Pen struct {
	R, G, B, A float32
}

func SolidBrush(r, g, b, a float32) Brush {
	return Brush{R: r, G: g, B: b, A: a}
}

func TextureBrush(tex gapi.Texture) Brush {
	return Brush{Texture: tex, R: 1, G: 1, B: 1, A: 1}
}

// Painter turns rectangles and lines given in pixels into points of a
// PaintDevice.
type Painter struct {
	dev        PaintDevice
	invW, invH float32
	brush      Brush
	pen        Pen
	color      [4]float32
}

// New starts painting into dev, a w by h pixel surface. With clear set the
// previous content of dev is dropped.
func New(dev PaintDevice, w, h uint32, clear bool) *Painter {
	dev.BeginPaint(clear, w, h)
	p := &Painter{
		dev:   dev,
		invW:  2 / float32(max(w, 1)),
		invH:  2 / float32(max(h, 1)),
		brush: SolidBrush(1, 1, 1, 1),
		pen:   Pen{R: 1, G: 1, B: 1, A: 1},
	}
	return p
}

// End commits the painted points.
func (p *Painter) End() {
	p.dev.CommitPoints()
	p.dev.EndPaint()
}

func (p *Painter) SetBrush(b Brush) {
	p.brush = b
}

func (p *Painter) SetPen(pen Pen) {
	p.pen = pen
}

func (p *Painter) DrawRect(x, y, w, h int) {
	p.DrawRectUV(x, y, w, h, 0, 0, 1, 1)
}

func (p *Painter) DrawRectUV(x, y, w, h int, u1, v1, u2, v2 float32) {
	if w <= 0 || h <= 0 {
		return
	}
	b := p.brush
	p.dev.SetBrush(b.Texture, b.R, b.G, b.B, b.A)
	p.dev.SetTopology(gapi.Triangles)
	p.color = [4]float32{b.R, b.G, b.B, b.A}

	x2, y2 := x+w, y+h
	p.addPoint(x, y, u1, v1)
	p.addPoint(x2, y, u2, v1)
	p.addPoint(x2, y2, u2, v2)

	p.addPoint(x, y, u1, v1)
	p.addPoint(x2, y2, u2, v2)
	p.addPoint(x, y2, u1, v2)
}

func (p *Painter) DrawLine(x1, y1, x2, y2 int) {
	pen := p.pen
	p.dev.SetBrush(nil, pen.R, pen.G, pen.B, pen.A)
	p.dev.SetTopology(gapi.Lines)
	p.color = [4]float32{pen.R, pen.G, pen.B, pen.A}

	p.addPoint(x1, y1, 0, 0)
	p.addPoint(x2, y2, 0, 0)
}

func (p *Painter) addPoint(x, y int, u, v float32) {
	p.dev.AddPoint(Point{
		X: float32(x)*p.invW - 1,
		Y: float32(y)*p.invH - 1,
		U: u,
		V: v,
		R: p.color[0],
		G: p.color[1],
		B: p.color[2],
		A: p.color[3],
	})
}
