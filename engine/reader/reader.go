// Package reader provides the byte sources asset loaders parse from.
package reader

import "io"

// Device is a readable, forward-seekable byte source of known size.
type Device interface {
	io.Reader
	// Peek returns the next byte without consuming it.
	Peek() (byte, error)
	// Seek skips up to n bytes and returns how many were skipped.
	Seek(n int) int
	Size() int
}

// MemReader reads from a byte slice it does not copy.
type MemReader struct {
	data []byte
	pos  int
}

func NewMemReader(data []byte) *MemReader {
	return &MemReader{data: data}
}

// Read copies at most len(p) of the remaining bytes. It returns io.EOF once
// nothing is left.
func (r *MemReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *MemReader) Peek() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	return r.data[r.pos], nil
}

func (r *MemReader) Seek(n int) int {
	if n <= 0 {
		return 0
	}
	n = min(n, len(r.data)-r.pos)
	r.pos += n
	return n
}

func (r *MemReader) Size() int {
	return len(r.data)
}

// Remaining reports how many bytes are left to read.
func (r *MemReader) Remaining() int {
	return len(r.data) - r.pos
}

// Uint32 reads a little-endian 32 bit word.
func (r *MemReader) Uint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}
