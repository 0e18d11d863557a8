package platform

import (
	"testing"

	"github.com/spaghettifunk/gale/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestCallbacksFireEvents(t *testing.T) {
	t.Cleanup(core.EventShutdown)

	var size [2]uint32
	var cursor [2]float32
	quit := false
	listener := &struct{}{}

	core.EventRegister(core.EVENT_CODE_RESIZED, listener, func(_ core.SystemEventCode, _, _ interface{}, ctx core.EventContext) bool {
		size = [2]uint32{ctx.Data.U32[0], ctx.Data.U32[1]}
		return true
	})
	core.EventRegister(core.EVENT_CODE_MOUSE_MOVED, listener, func(_ core.SystemEventCode, _, _ interface{}, ctx core.EventContext) bool {
		cursor = [2]float32{ctx.Data.F32[0], ctx.Data.F32[1]}
		return true
	})
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, listener, func(core.SystemEventCode, interface{}, interface{}, core.EventContext) bool {
		quit = true
		return true
	})

	framebufferSizeCallback(nil, 800, 600)
	cursorPosCallback(nil, 12.5, 40)
	closeCallback(nil)

	assert.Equal(t, [2]uint32{800, 600}, size)
	assert.Equal(t, [2]float32{12.5, 40}, cursor)
	assert.True(t, quit)
}
