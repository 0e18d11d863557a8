package gapi

// Pixmap is a tightly packed RGBA8 image in host memory.
type Pixmap struct {
	Width  uint32
	Height uint32
	Data   []byte
}

func NewPixmap(w, h uint32) *Pixmap {
	return &Pixmap{Width: w, Height: h, Data: make([]byte, int(w)*int(h)*4)}
}

// Fill sets every pixel to the given color.
func (p *Pixmap) Fill(r, g, b, a uint8) {
	for i := 0; i+3 < len(p.Data); i += 4 {
		p.Data[i], p.Data[i+1], p.Data[i+2], p.Data[i+3] = r, g, b, a
	}
}

// MipCount is the length of a full mip chain for the pixmap.
func (p *Pixmap) MipCount() uint32 {
	n := uint32(1)
	for s := max(p.Width, p.Height); s > 1; s >>= 1 {
		n++
	}
	return n
}
