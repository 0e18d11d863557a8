// Package resource creates GPU buffers and images on top of the page
// allocator. It is independent of the backend, which plugs in through
// Driver.
package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/gapi/memory"
)

// MemoryProps is a bit set of memory properties a type must have.
type MemoryProps uint8

const (
	DeviceLocal MemoryProps = 1 << iota
	HostVisible
	HostCoherent
)

// Requirements of a native object, as reported by the driver.
type Requirements struct {
	Size      uint64
	Alignment uint64
	// TypeBits has bit i set when memory type i can back the object.
	TypeBits uint32
}

// Driver is the native half of the factory. B, I and M are the backend's
// buffer, image and device memory handles.
type Driver[B, I, M any] interface {
	CreateBuffer(size uint64, usage gapi.MemUsage) (B, error)
	BufferRequirements(b B) Requirements
	DestroyBuffer(b B)

	// CreateImage makes an RGBA8 optimally tiled image usable as a transfer
	// destination and a sampled texture.
	CreateImage(w, h, mips uint32) (I, error)
	ImageRequirements(i I) Requirements
	DestroyImage(i I)

	MemoryTypeIndex(typeBits uint32, props MemoryProps) (uint32, bool)
	// Map exposes size bytes of mem starting at offset until Unmap.
	Map(mem M, offset, size uint64) ([]byte, error)
	Unmap(mem M)
	BindBuffer(b B, mem M, offset uint64) error
	BindImage(i I, mem M, offset uint64) error

	WaitIdle() error
}

type Buffer[B any] struct {
	Native      B
	Alloc       memory.Allocation
	Size        uint64
	Usage       gapi.MemUsage
	HostVisible bool
}

type Image[I any] struct {
	Native I
	Alloc  memory.Allocation
	Width  uint32
	Height uint32
	Mips   uint32
}

type Factory[B, I, M any] struct {
	drv   Driver[B, I, M]
	alloc *memory.Allocator[M]
}

func NewFactory[B, I, M any](drv Driver[B, I, M], alloc *memory.Allocator[M]) *Factory[B, I, M] {
	return &Factory[B, I, M]{drv: drv, alloc: alloc}
}

func (f *Factory[B, I, M]) Allocator() *memory.Allocator[M] {
	return f.alloc
}

// AllocBuffer creates a buffer of size bytes and uploads data into it when
// data is not nil. Staging buffers live in host visible memory. Static
// buffers live in device local memory; when they are created with data the
// memory must also be host visible, falling back to plain host memory on
// devices without such a type.
func (f *Factory[B, I, M]) AllocBuffer(data []byte, size uint64, usage gapi.MemUsage, flags gapi.BufferFlags) (*Buffer[B], error) {
	if size == 0 {
		return nil, errors.Wrap(memory.ErrZeroSize, "allocate buffer")
	}
	if uint64(len(data)) > size {
		return nil, errors.Newf("buffer data of %d bytes does not fit in %d", len(data), size)
	}

	var cleanup core.Cleanup
	defer cleanup.Run()

	native, err := f.drv.CreateBuffer(size, usage)
	if err != nil {
		return nil, err
	}
	cleanup.Add(func() { f.drv.DestroyBuffer(native) })

	req := f.drv.BufferRequirements(native)
	typeIndex, hostVisible, ok := f.bufferMemoryType(req.TypeBits, flags, data != nil)
	if !ok {
		return nil, core.Wrap(core.ErrUnsupported, nil, "no memory type for buffer")
	}

	al, err := f.alloc.Alloc(req.Size, req.Alignment, typeIndex, memory.Linear)
	if err != nil {
		return nil, err
	}
	cleanup.Add(func() { _ = f.alloc.Free(al) })
	mem, _ := f.alloc.Memory(al)

	if data != nil {
		if err := f.upload(mem, al.Offset, size, data); err != nil {
			return nil, err
		}
	}
	if err := f.drv.BindBuffer(native, mem, al.Offset); err != nil {
		core.LogError("failed to bind buffer memory: %s", err)
		return nil, core.Wrap(core.ErrOutOfHostMemory, err, "bind buffer memory")
	}

	cleanup.Release()
	return &Buffer[B]{
		Native:      native,
		Alloc:       al,
		Size:        size,
		Usage:       usage,
		HostVisible: hostVisible,
	}, nil
}

// Update copies data into buf at offset. Only host visible buffers can be
// updated this way.
func (f *Factory[B, I, M]) Update(buf *Buffer[B], data []byte, offset uint64) error {
	if !buf.HostVisible {
		return core.Wrap(core.ErrUnsupported, nil, "update of a device local buffer")
	}
	if offset+uint64(len(data)) > buf.Size {
		return errors.Newf("update of %d bytes at %d overflows buffer of %d", len(data), offset, buf.Size)
	}
	if len(data) == 0 {
		return nil
	}
	mem, ok := f.alloc.Memory(buf.Alloc)
	if !ok {
		return errors.Wrap(memory.ErrInvalidAllocation, "update buffer")
	}
	return f.upload(mem, buf.Alloc.Offset+offset, uint64(len(data)), data)
}

// AllocImage creates a device local image. Uploading its contents and
// moving it to a sampled layout is up to the caller.
func (f *Factory[B, I, M]) AllocImage(w, h, mips uint32) (*Image[I], error) {
	if w == 0 || h == 0 {
		return nil, errors.Wrap(memory.ErrZeroSize, "allocate image")
	}
	var cleanup core.Cleanup
	defer cleanup.Run()

	native, err := f.drv.CreateImage(w, h, mips)
	if err != nil {
		return nil, err
	}
	cleanup.Add(func() { f.drv.DestroyImage(native) })

	req := f.drv.ImageRequirements(native)
	typeIndex, ok := f.drv.MemoryTypeIndex(req.TypeBits, DeviceLocal)
	if !ok {
		return nil, core.Wrap(core.ErrUnsupported, nil, "no device local memory type for image")
	}
	al, err := f.alloc.Alloc(req.Size, req.Alignment, typeIndex, memory.Optimal)
	if err != nil {
		return nil, err
	}
	cleanup.Add(func() { _ = f.alloc.Free(al) })

	mem, _ := f.alloc.Memory(al)
	if err := f.drv.BindImage(native, mem, al.Offset); err != nil {
		core.LogError("failed to bind image memory: %s", err)
		return nil, core.Wrap(core.ErrOutOfHostMemory, err, "bind image memory")
	}

	cleanup.Release()
	return &Image[I]{Native: native, Alloc: al, Width: w, Height: h, Mips: mips}, nil
}

// FreeBuffer waits for the whole device to go idle before the buffer and
// its memory are released.
func (f *Factory[B, I, M]) FreeBuffer(buf *Buffer[B]) error {
	waitErr := f.drv.WaitIdle()
	f.drv.DestroyBuffer(buf.Native)
	return errors.CombineErrors(waitErr, f.alloc.Free(buf.Alloc))
}

// FreeImage waits for the whole device to go idle before the image and its
// memory are released.
func (f *Factory[B, I, M]) FreeImage(img *Image[I]) error {
	waitErr := f.drv.WaitIdle()
	f.drv.DestroyImage(img.Native)
	return errors.CombineErrors(waitErr, f.alloc.Free(img.Alloc))
}

func (f *Factory[B, I, M]) bufferMemoryType(typeBits uint32, flags gapi.BufferFlags, withData bool) (index uint32, hostVisible bool, ok bool) {
	host := HostVisible | HostCoherent
	if flags == gapi.BufferStatic {
		if !withData {
			index, ok = f.drv.MemoryTypeIndex(typeBits, DeviceLocal)
			return index, false, ok
		}
		if index, ok = f.drv.MemoryTypeIndex(typeBits, DeviceLocal|host); ok {
			return index, true, true
		}
	}
	index, ok = f.drv.MemoryTypeIndex(typeBits, host)
	return index, ok, ok
}

func (f *Factory[B, I, M]) upload(mem M, offset, size uint64, data []byte) error {
	dst, err := f.drv.Map(mem, offset, size)
	if err != nil {
		core.LogError("failed to map memory: %s", err)
		return core.Wrap(core.ErrOutOfHostMemory, err, "map memory")
	}
	copy(dst, data)
	f.drv.Unmap(mem)
	return nil
}
