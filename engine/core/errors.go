package core

import (
	"github.com/cockroachdb/errors"
)

// Error kinds surfaced by the engine. Backend failures are marked with one
// of these so callers can test them with errors.Is without ever seeing a
// native result code.
var (
	ErrOutOfHostMemory   = errors.New("out of host memory")
	ErrOutOfDeviceMemory = errors.New("out of device memory")
	ErrDeviceLost        = errors.New("device lost")
	ErrUnsupported       = errors.New("unsupported")
	ErrNativeFailure     = errors.New("native call failed")
	ErrSwapchainOutdated = errors.New("swapchain resized or recreated")
	ErrUnknown           = errors.New("unknown")
)

// Wrap annotates err with op and marks it with kind. A nil err yields a new
// error of the given kind.
func Wrap(kind error, err error, op string) error {
	if err == nil {
		return errors.Mark(errors.Newf("%s: %v", op, kind), kind)
	}
	return errors.Mark(errors.Wrap(err, op), kind)
}

// Cleanup collects release functions for partially constructed objects and
// runs them in reverse order when a build step fails.
type Cleanup struct {
	fns []func()
}

func (c *Cleanup) Add(fn func()) {
	c.fns = append(c.fns, fn)
}

// Run releases everything registered so far.
func (c *Cleanup) Run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
	c.fns = nil
}

// Release forgets the registered functions once construction succeeded.
func (c *Cleanup) Release() {
	c.fns = nil
}
