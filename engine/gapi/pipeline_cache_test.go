package gapi

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLayout is compatible with any layout of the same format.
type fakeLayout struct{ format int }

func (l *fakeLayout) IsCompatible(other FramebufferLayout) bool {
	o, ok := other.(*fakeLayout)
	return ok && o.format == l.format
}

type pso struct{ id int }

type logicalPipeline struct {
	cache  InstanceCache[*pso]
	builds int
}

func (p *logicalPipeline) instance(lay FramebufferLayout, w, h uint32) (*pso, error) {
	return p.cache.Instance(lay, w, h, func() (*pso, error) {
		p.builds++
		return &pso{id: p.builds}, nil
	})
}

func TestInstanceIsCached(t *testing.T) {
	var p logicalPipeline
	lay := &fakeLayout{format: 1}

	a, err := p.instance(lay, 800, 600)
	require.NoError(t, err)
	b, err := p.instance(lay, 800, 600)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, p.builds)
}

func TestCompatibleLayoutSharesInstance(t *testing.T) {
	var p logicalPipeline

	a, err := p.instance(&fakeLayout{format: 1}, 800, 600)
	require.NoError(t, err)
	b, err := p.instance(&fakeLayout{format: 1}, 800, 600)
	require.NoError(t, err)
	c, err := p.instance(&fakeLayout{format: 2}, 800, 600)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, p.builds)
}

func TestDifferentSizeBuildsNewInstance(t *testing.T) {
	var p logicalPipeline
	lay := &fakeLayout{format: 1}

	a, _ := p.instance(lay, 800, 600)
	b, _ := p.instance(lay, 1024, 600)
	c, _ := p.instance(lay, 800, 768)

	assert.NotSame(t, a, b)
	assert.NotSame(t, b, c)
	assert.Equal(t, 3, p.builds)
	assert.Equal(t, 3, p.cache.Len())
}

func TestCachesAreNotShared(t *testing.T) {
	var p1, p2 logicalPipeline

	a, _ := p1.instance(&fakeLayout{format: 1}, 800, 600)
	b, _ := p2.instance(&fakeLayout{format: 2}, 800, 600)

	assert.NotSame(t, a, b)
	assert.Equal(t, 1, p1.cache.Len())
	assert.Equal(t, 1, p2.cache.Len())
}

func TestFailedBuildLeavesCacheUnchanged(t *testing.T) {
	var c InstanceCache[*pso]
	lay := &fakeLayout{}
	boom := errors.New("boom")

	_, err := c.Instance(lay, 1, 1, func() (*pso, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	v, err := c.Instance(lay, 1, 1, func() (*pso, error) { return &pso{id: 9}, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, v.id)
}

func TestConcurrentInstanceBuildsOnce(t *testing.T) {
	var c InstanceCache[*pso]
	lay := &fakeLayout{}
	builds := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Instance(lay, 640, 480, func() (*pso, error) {
				builds++
				return &pso{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builds)
}

func TestDrain(t *testing.T) {
	var c InstanceCache[*pso]
	for i := uint32(1); i <= 3; i++ {
		_, _ = c.Instance(&fakeLayout{}, i, i, func() (*pso, error) { return &pso{id: int(i)}, nil })
	}
	var destroyed []int
	c.Drain(func(p *pso) { destroyed = append(destroyed, p.id) })

	assert.Equal(t, []int{1, 2, 3}, destroyed)
	assert.Zero(t, c.Len())
}
