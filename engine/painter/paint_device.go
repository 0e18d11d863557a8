// Package painter batches 2D drawing into GPU friendly vertex runs.
package painter

import (
	"unsafe"

	"github.com/spaghettifunk/gale/engine/gapi"
)

// Point is one vertex of the 2D pipelines, in normalized device coordinates.
type Point struct {
	X, Y, Z    float32
	U, V       float32
	R, G, B, A float32
}

func (Point) Decl() gapi.Decl {
	return gapi.Decl{gapi.Float3, gapi.Float2, gapi.Float4}
}

// PaintDevice receives the output of a Painter.
type PaintDevice interface {
	BeginPaint(clear bool, w, h uint32)
	EndPaint()

	AddPoint(p Point)
	CommitPoints()

	// SetBrush selects the texture of the following points; nil draws with
	// vertex colors only.
	SetBrush(tex gapi.Texture, r, g, b, a float32)
	SetTopology(tp gapi.Topology)
}

func pointBytes(pts []Point) []byte {
	if len(pts) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&pts[0])), len(pts)*int(unsafe.Sizeof(Point{})))
}
