// Package memory suballocates native device memory in pages.
package memory

import (
	"math"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/core"
	"golang.org/x/exp/constraints"
)

var (
	ErrInvalidAllocation = errors.New("invalid allocation")
	ErrZeroSize          = errors.New("zero sized allocation")
	ErrTooLarge          = errors.New("allocation too large")
)

// Tiling is the resource kind an allocation backs. Linear resources
// (buffers) and optimal ones (images) never share a page, so
// bufferImageGranularity cannot be violated between neighbours.
type Tiling uint8

const (
	Linear Tiling = iota
	Optimal
)

func (t Tiling) String() string {
	if t == Optimal {
		return "optimal"
	}
	return "linear"
}

// Provider hands out native memory of a given type.
type Provider[M any] interface {
	Alloc(size uint64, typeIndex uint32) (M, error)
	Free(mem M)
}

// Allocation is a range inside one page, addressed by the page index.
type Allocation struct {
	Page      int
	Offset    uint64
	Size      uint64
	TypeIndex uint32
	Tiling    Tiling
}

type Stats struct {
	Pages    int
	Reserved uint64
	Used     uint64
}

type span struct {
	offset uint64
	size   uint64
}

func (s span) end() uint64 { return s.offset + s.size }

type page[M any] struct {
	mem       M
	size      uint64
	typeIndex uint32
	tiling    Tiling
	// free ranges sorted by offset, never adjacent
	free []span
	// allocated ranges, offset to size
	taken     map[uint64]uint64
	used      uint64
	dedicated bool
}

// Allocator owns every page it allocated. Pages are never moved, so an
// Allocation stays valid until it is freed. Pages larger than the page size
// are released once empty; their slots are not reused.
//
// Allocator is not safe for concurrent use.
type Allocator[M any] struct {
	provider Provider[M]
	pageSize uint64
	pages    []*page[M]
}

func New[M any](provider Provider[M], pageSize uint64) *Allocator[M] {
	return &Allocator[M]{
		provider: provider,
		pageSize: pageSize,
	}
}

// Alloc returns size bytes aligned to alignment from a page of typeIndex
// holding resources of the same tiling, allocating a new page when none has
// room.
func (a *Allocator[M]) Alloc(size, alignment uint64, typeIndex uint32, tiling Tiling) (Allocation, error) {
	if size == 0 {
		return Allocation{}, ErrZeroSize
	}
	if alignment == 0 {
		alignment = 1
	}
	if size > math.MaxUint64-alignment {
		return Allocation{}, errors.Wrapf(ErrTooLarge, "%d bytes aligned to %d", size, alignment)
	}
	for i, p := range a.pages {
		if p == nil || p.typeIndex != typeIndex || p.tiling != tiling {
			continue
		}
		if off, ok := p.take(size, alignment); ok {
			return Allocation{Page: i, Offset: off, Size: size, TypeIndex: typeIndex, Tiling: tiling}, nil
		}
	}

	pageSize := max(a.pageSize, alignUp(size, alignment))
	mem, err := a.provider.Alloc(pageSize, typeIndex)
	if err != nil {
		core.LogError("failed to allocate %d bytes page of memory type %d: %s", pageSize, typeIndex, err)
		return Allocation{}, core.Wrap(core.ErrOutOfDeviceMemory, err, "allocate memory page")
	}
	p := &page[M]{
		mem:       mem,
		size:      pageSize,
		typeIndex: typeIndex,
		tiling:    tiling,
		free:      []span{{0, pageSize}},
		taken:     make(map[uint64]uint64),
		dedicated: pageSize > a.pageSize,
	}
	off, ok := p.take(size, alignment)
	if !ok {
		a.provider.Free(mem)
		return Allocation{}, errors.Wrapf(ErrTooLarge, "%d bytes do not fit a page of %d", size, pageSize)
	}
	a.pages = append(a.pages, p)
	return Allocation{Page: len(a.pages) - 1, Offset: off, Size: size, TypeIndex: typeIndex, Tiling: tiling}, nil
}

// Free returns the range to its page.
func (a *Allocator[M]) Free(al Allocation) error {
	p, err := a.page(al)
	if err != nil {
		return err
	}
	if !p.release(span{al.Offset, al.Size}) {
		return errors.Wrapf(ErrInvalidAllocation, "range [%d, %d) of page %d is not allocated", al.Offset, al.Offset+al.Size, al.Page)
	}
	if len(p.taken) == 0 && p.dedicated {
		a.provider.Free(p.mem)
		a.pages[al.Page] = nil
	}
	return nil
}

// Memory resolves the native memory backing al.
func (a *Allocator[M]) Memory(al Allocation) (M, bool) {
	p, err := a.page(al)
	if err != nil {
		var zero M
		return zero, false
	}
	return p.mem, true
}

func (a *Allocator[M]) Stats() Stats {
	var st Stats
	for _, p := range a.pages {
		if p == nil {
			continue
		}
		st.Pages++
		st.Reserved += p.size
		st.Used += p.used
	}
	return st
}

// Close frees every page, including the ones still in use.
func (a *Allocator[M]) Close() {
	for i, p := range a.pages {
		if p != nil {
			a.provider.Free(p.mem)
			a.pages[i] = nil
		}
	}
	a.pages = nil
}

func (a *Allocator[M]) page(al Allocation) (*page[M], error) {
	if al.Page < 0 || al.Page >= len(a.pages) || a.pages[al.Page] == nil {
		return nil, errors.Wrapf(ErrInvalidAllocation, "page %d does not exist", al.Page)
	}
	p := a.pages[al.Page]
	if p.typeIndex != al.TypeIndex {
		return nil, errors.Wrapf(ErrInvalidAllocation, "page %d holds memory type %d, not %d", al.Page, p.typeIndex, al.TypeIndex)
	}
	if p.tiling != al.Tiling {
		return nil, errors.Wrapf(ErrInvalidAllocation, "page %d holds %s resources, not %s", al.Page, p.tiling, al.Tiling)
	}
	return p, nil
}

// take carves size bytes out of the first free range that fits.
func (p *page[M]) take(size, alignment uint64) (uint64, bool) {
	for i, s := range p.free {
		start := alignUp(s.offset, alignment)
		if start < s.offset || start >= s.end() || size > s.end()-start {
			continue
		}
		var rest []span
		if start > s.offset {
			rest = append(rest, span{s.offset, start - s.offset})
		}
		if start+size < s.end() {
			rest = append(rest, span{start + size, s.end() - start - size})
		}
		p.free = slices.Replace(p.free, i, i+1, rest...)
		p.taken[start] = size
		p.used += size
		return start, true
	}
	return 0, false
}

// release merges r back into the free list. It fails unless r is exactly
// one of the ranges handed out by take.
func (p *page[M]) release(r span) bool {
	if size, ok := p.taken[r.offset]; !ok || size != r.size {
		return false
	}
	i, _ := slices.BinarySearchFunc(p.free, r.offset, func(s span, off uint64) int {
		switch {
		case s.offset < off:
			return -1
		case s.offset > off:
			return 1
		}
		return 0
	})
	if i > 0 && p.free[i-1].end() > r.offset {
		return false
	}
	if i < len(p.free) && r.end() > p.free[i].offset {
		return false
	}

	p.free = slices.Insert(p.free, i, r)
	if i+1 < len(p.free) && p.free[i].end() == p.free[i+1].offset {
		p.free[i].size += p.free[i+1].size
		p.free = slices.Delete(p.free, i+1, i+2)
	}
	if i > 0 && p.free[i-1].end() == p.free[i].offset {
		p.free[i-1].size += p.free[i].size
		p.free = slices.Delete(p.free, i, i+1)
	}
	delete(p.taken, r.offset)
	p.used -= r.size
	return true
}

func alignUp[T constraints.Unsigned](v, alignment T) T {
	return (v + alignment - 1) / alignment * alignment
}
