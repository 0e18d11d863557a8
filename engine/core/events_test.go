package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventFireStopsWhenHandled(t *testing.T) {
	t.Cleanup(EventShutdown)

	a, b := new(int), new(int)
	var got []uint32
	handler := func(handled bool) FnOnEvent {
		return func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
			got = append(got, data.Data.U32[0])
			return handled
		}
	}

	assert.True(t, EventRegister(EVENT_CODE_RESIZED, a, handler(true)))
	assert.True(t, EventRegister(EVENT_CODE_RESIZED, b, handler(false)))
	assert.False(t, EventRegister(EVENT_CODE_RESIZED, a, handler(false)))

	var ctx EventContext
	ctx.Data.U32[0] = 800
	assert.True(t, EventFire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []uint32{800}, got)

	assert.True(t, EventUnregister(EVENT_CODE_RESIZED, a))
	assert.False(t, EventUnregister(EVENT_CODE_RESIZED, a))
	assert.False(t, EventFire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []uint32{800, 800}, got)
}

func TestEventFireWithoutListeners(t *testing.T) {
	t.Cleanup(EventShutdown)
	assert.False(t, EventFire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}))
}
