package gapi

import "sync"

type instance[T any] struct {
	w, h   uint32
	layout FramebufferLayout
	val    T
}

// InstanceCache holds the concrete objects built for one logical pipeline,
// one per render target size and framebuffer layout class. Entries live as
// long as the cache.
type InstanceCache[T any] struct {
	mu   sync.Mutex
	inst []instance[T]
}

// Instance returns the cached value for (layout, w, h) or builds it. A
// failing build leaves the cache untouched.
func (c *InstanceCache[T]) Instance(layout FramebufferLayout, w, h uint32, build func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, i := range c.inst {
		if i.w == w && i.h == h && i.layout.IsCompatible(layout) {
			return i.val, nil
		}
	}
	val, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	c.inst = append(c.inst, instance[T]{w: w, h: h, layout: layout, val: val})
	return val, nil
}

func (c *InstanceCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inst)
}

// Drain hands every cached value to fn and empties the cache.
func (c *InstanceCache[T]) Drain(fn func(T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range c.inst {
		fn(i.val)
	}
	c.inst = nil
}
