package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/reader"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ImageLoader decodes png, jpeg and bmp files into RGBA pixmaps.
type ImageLoader struct {
	// FlipY stores the rows bottom up.
	FlipY bool
}

func (l ImageLoader) Load(r *reader.MemReader, path string) (any, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.Newf("%s: empty %s image", path, format)
	}
	return ToPixmap(img, l.FlipY), nil
}

// ToPixmap converts any image to a tightly packed RGBA pixmap.
func ToPixmap(img image.Image, flipY bool) *gapi.Pixmap {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	pix := gapi.NewPixmap(uint32(b.Dx()), uint32(b.Dy()))
	if !flipY {
		copy(pix.Data, rgba.Pix)
		return pix
	}
	row := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+row]
		dst := (b.Dy() - 1 - y) * row
		copy(pix.Data[dst:dst+row], src)
	}
	return pix
}

// Decode is a helper for callers holding raw bytes.
func Decode(data []byte) (*gapi.Pixmap, error) {
	v, err := ImageLoader{}.Load(reader.NewMemReader(data), "<memory>")
	if err != nil {
		return nil, err
	}
	return v.(*gapi.Pixmap), nil
}

