package resource

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/gapi/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMem struct {
	data   []byte
	mapped bool
}

type fakeBuf struct {
	size      uint64
	usage     gapi.MemUsage
	destroyed bool
	mem       *fakeMem
	offset    uint64
}

type fakeImg struct {
	w, h      uint32
	destroyed bool
	mem       *fakeMem
}

// memory types: 0 device local, 1 host visible+coherent, 2 all three
var fakeTypes = []MemoryProps{
	DeviceLocal,
	HostVisible | HostCoherent,
	DeviceLocal | HostVisible | HostCoherent,
}

type fakeDriver struct {
	typeBits  uint32
	failMap   bool
	failBind  bool
	waitIdles int
	buffers   []*fakeBuf
	images    []*fakeImg
}

func (d *fakeDriver) CreateBuffer(size uint64, usage gapi.MemUsage) (*fakeBuf, error) {
	b := &fakeBuf{size: size, usage: usage}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDriver) BufferRequirements(b *fakeBuf) Requirements {
	return Requirements{Size: (b.size + 63) &^ 63, Alignment: 64, TypeBits: d.typeBits}
}

func (d *fakeDriver) DestroyBuffer(b *fakeBuf) { b.destroyed = true }

func (d *fakeDriver) CreateImage(w, h, mips uint32) (*fakeImg, error) {
	i := &fakeImg{w: w, h: h}
	d.images = append(d.images, i)
	return i, nil
}

func (d *fakeDriver) ImageRequirements(i *fakeImg) Requirements {
	return Requirements{Size: uint64(i.w) * uint64(i.h) * 4, Alignment: 256, TypeBits: d.typeBits}
}

func (d *fakeDriver) DestroyImage(i *fakeImg) { i.destroyed = true }

func (d *fakeDriver) MemoryTypeIndex(typeBits uint32, props MemoryProps) (uint32, bool) {
	for i, p := range fakeTypes {
		if typeBits&(1<<i) != 0 && p&props == props {
			return uint32(i), true
		}
	}
	return 0, false
}

func (d *fakeDriver) Map(mem *fakeMem, offset, size uint64) ([]byte, error) {
	if d.failMap {
		return nil, errors.New("VK_ERROR_MEMORY_MAP_FAILED")
	}
	mem.mapped = true
	return mem.data[offset : offset+size], nil
}

func (d *fakeDriver) Unmap(mem *fakeMem) { mem.mapped = false }

func (d *fakeDriver) BindBuffer(b *fakeBuf, mem *fakeMem, offset uint64) error {
	if d.failBind {
		return errors.New("VK_ERROR_OUT_OF_HOST_MEMORY")
	}
	b.mem, b.offset = mem, offset
	return nil
}

func (d *fakeDriver) BindImage(i *fakeImg, mem *fakeMem, offset uint64) error {
	if d.failBind {
		return errors.New("VK_ERROR_OUT_OF_HOST_MEMORY")
	}
	i.mem = mem
	return nil
}

func (d *fakeDriver) WaitIdle() error {
	d.waitIdles++
	return nil
}

type fakeProvider struct{}

func (fakeProvider) Alloc(size uint64, typeIndex uint32) (*fakeMem, error) {
	return &fakeMem{data: make([]byte, size)}, nil
}

func (fakeProvider) Free(*fakeMem) {}

const pageSize = 4096

func newFactory(drv *fakeDriver) *Factory[*fakeBuf, *fakeImg, *fakeMem] {
	return NewFactory[*fakeBuf, *fakeImg, *fakeMem](drv, memory.New[*fakeMem](fakeProvider{}, pageSize))
}

func TestStagingBufferRoundTrip(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b111}
	f := newFactory(drv)
	data := []byte("vertex bytes for the round trip")

	buf, err := f.AllocBuffer(data, uint64(len(data)), gapi.MemVertex|gapi.MemTransferSrc, gapi.BufferStaging)
	require.NoError(t, err)
	assert.True(t, buf.HostVisible)
	assert.Equal(t, uint32(1), buf.Alloc.TypeIndex)

	mem, ok := f.Allocator().Memory(buf.Alloc)
	require.True(t, ok)
	assert.False(t, mem.mapped)
	assert.Same(t, mem, buf.Native.mem)

	back, err := drv.Map(mem, buf.Alloc.Offset, buf.Size)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestUniformBufferFitsOnePage(t *testing.T) {
	f := newFactory(&fakeDriver{typeBits: 0b111})

	buf, err := f.AllocBuffer(make([]byte, 256), 256, gapi.MemUniform, gapi.BufferStaging)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), buf.Alloc.Size)
	assert.LessOrEqual(t, buf.Alloc.Offset+buf.Alloc.Size, uint64(pageSize))
	assert.Equal(t, 1, f.Allocator().Stats().Pages)
}

func TestStaticBufferMemoryType(t *testing.T) {
	f := newFactory(&fakeDriver{typeBits: 0b111})

	empty, err := f.AllocBuffer(nil, 64, gapi.MemVertex, gapi.BufferStatic)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), empty.Alloc.TypeIndex)
	assert.False(t, empty.HostVisible)

	loaded, err := f.AllocBuffer([]byte{1, 2, 3}, 64, gapi.MemVertex, gapi.BufferStatic)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), loaded.Alloc.TypeIndex)
	assert.True(t, loaded.HostVisible)

	// without a device local + host visible type the data goes to host memory
	f = newFactory(&fakeDriver{typeBits: 0b011})
	loaded, err = f.AllocBuffer([]byte{1, 2, 3}, 64, gapi.MemVertex, gapi.BufferStatic)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), loaded.Alloc.TypeIndex)
}

func TestNoMemoryTypeDestroysBuffer(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b001}
	f := newFactory(drv)

	_, err := f.AllocBuffer(nil, 64, gapi.MemUniform, gapi.BufferStaging)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupported))
	require.Len(t, drv.buffers, 1)
	assert.True(t, drv.buffers[0].destroyed)
}

func TestMapFailureLeavesNoTrace(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b111, failMap: true}
	f := newFactory(drv)

	_, err := f.AllocBuffer([]byte{1}, 16, gapi.MemUniform, gapi.BufferStaging)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOutOfHostMemory))
	assert.True(t, drv.buffers[0].destroyed)
	assert.Zero(t, f.Allocator().Stats().Used)
}

func TestBindFailureLeavesNoTrace(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b111, failBind: true}
	f := newFactory(drv)

	_, err := f.AllocBuffer(nil, 16, gapi.MemVertex, gapi.BufferStaging)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOutOfHostMemory))
	assert.True(t, drv.buffers[0].destroyed)
	assert.Zero(t, f.Allocator().Stats().Used)

	_, err = f.AllocImage(4, 4, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOutOfHostMemory))
	assert.True(t, drv.images[0].destroyed)
	assert.Zero(t, f.Allocator().Stats().Used)
}

func TestOversizedData(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b111}
	f := newFactory(drv)

	_, err := f.AllocBuffer(make([]byte, 10), 4, gapi.MemVertex, gapi.BufferStaging)
	assert.Error(t, err)
	assert.Empty(t, drv.buffers)
}

func TestUpdate(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b111}
	f := newFactory(drv)

	buf, err := f.AllocBuffer(make([]byte, 8), 8, gapi.MemUniform, gapi.BufferStaging)
	require.NoError(t, err)
	require.NoError(t, f.Update(buf, []byte{9, 9}, 6))

	mem, _ := f.Allocator().Memory(buf.Alloc)
	back, _ := drv.Map(mem, buf.Alloc.Offset, buf.Size)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 9, 9}, back)

	assert.Error(t, f.Update(buf, []byte{1, 2, 3}, 6))

	static, err := f.AllocBuffer(nil, 8, gapi.MemVertex, gapi.BufferStatic)
	require.NoError(t, err)
	assert.True(t, errors.Is(f.Update(static, []byte{1}, 0), core.ErrUnsupported))
}

func TestImageIsDeviceLocal(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b111}
	f := newFactory(drv)

	img, err := f.AllocImage(16, 16, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), img.Alloc.TypeIndex)
	assert.Zero(t, img.Alloc.Offset%256)
	assert.NotNil(t, img.Native.mem)
}

func TestFreeWaitsForIdle(t *testing.T) {
	drv := &fakeDriver{typeBits: 0b111}
	f := newFactory(drv)

	buf, err := f.AllocBuffer(nil, 32, gapi.MemVertex, gapi.BufferStaging)
	require.NoError(t, err)
	img, err := f.AllocImage(2, 2, 1)
	require.NoError(t, err)

	require.NoError(t, f.FreeBuffer(buf))
	require.NoError(t, f.FreeImage(img))

	assert.Equal(t, 2, drv.waitIdles)
	assert.True(t, buf.Native.destroyed)
	assert.True(t, img.Native.destroyed)
	assert.Zero(t, f.Allocator().Stats().Used)

	assert.True(t, errors.Is(f.FreeBuffer(buf), memory.ErrInvalidAllocation))
}

func TestBuffersAndImagesNeverSharePage(t *testing.T) {
	// a single device local type serves both
	drv := &fakeDriver{typeBits: 0b001}
	f := newFactory(drv)

	vbo, err := f.AllocBuffer(nil, 64, gapi.MemVertex, gapi.BufferStatic)
	require.NoError(t, err)
	img, err := f.AllocImage(4, 4, 1)
	require.NoError(t, err)
	ubo, err := f.AllocBuffer(nil, 64, gapi.MemUniform, gapi.BufferStatic)
	require.NoError(t, err)

	assert.Equal(t, vbo.Alloc.TypeIndex, img.Alloc.TypeIndex)
	assert.NotEqual(t, vbo.Alloc.Page, img.Alloc.Page)
	assert.NotSame(t, vbo.Native.mem, img.Native.mem)
	assert.Equal(t, memory.Linear, vbo.Alloc.Tiling)
	assert.Equal(t, memory.Optimal, img.Alloc.Tiling)
	assert.Equal(t, vbo.Alloc.Page, ubo.Alloc.Page)
	assert.Equal(t, 2, f.Allocator().Stats().Pages)
}
