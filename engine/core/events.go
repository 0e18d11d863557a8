package core

import "sync"

// EventContext carries the payload of a fired event.
type EventContext struct {
	Data struct {
		I32 [4]int32
		U32 [4]uint32
		F32 [4]float32
	}
}

type SystemEventCode int

const (
	// Shuts the editor down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Cursor moved.
	/* Context usage:
	 * x = data.F32[0]
	 * y = data.F32[1]
	 */
	EVENT_CODE_MOUSE_MOVED SystemEventCode = 0x06

	// Framebuffer size changed.
	/* Context usage:
	 * width = data.U32[0]
	 * height = data.U32[1]
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// FnOnEvent returns true when the event is handled and must not be passed on.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

var (
	eventMu    sync.Mutex
	registered = map[SystemEventCode][]registeredEvent{}
)

// EventRegister returns false when listener is already registered for code.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	eventMu.Lock()
	defer eventMu.Unlock()

	for _, e := range registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	registered[code] = append(registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

func EventUnregister(code SystemEventCode, listener interface{}) bool {
	eventMu.Lock()
	defer eventMu.Unlock()

	events := registered[code]
	for i, e := range events {
		if e.listener == listener {
			registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire stops at the first listener that handles the event.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	eventMu.Lock()
	events := append([]registeredEvent(nil), registered[code]...)
	eventMu.Unlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// EventShutdown drops every registration.
func EventShutdown() {
	eventMu.Lock()
	defer eventMu.Unlock()
	registered = map[SystemEventCode][]registeredEvent{}
}
