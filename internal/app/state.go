// Package app provides the editing session: it owns the layers, masks and
// devices, coordinates them for the interaction controls and talks to the
// simulation service.
package app

import "sync"

// EventType identifies different session events.
type EventType int

const (
	EventModelLoaded EventType = iota
	EventMasksChanged
	EventDevicesChanged
	EventConnectionsChanged
	EventFocusChanged
	EventSelectedCount
	EventSelectionSaved
	EventSelectionLoaded
	EventServiceResponse
	EventServiceError
	EventStreamMessage
	EventStreamEnded
	EventConfigChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// ServiceResult is the payload of EventServiceResponse, EventServiceError and
// EventStreamEnded.
type ServiceResult struct {
	Op       string
	Response []byte
	Err      error
	// Stream numbers the stream a "stream" result belongs to.
	Stream int
}

// emitter is the listener table shared by the session.
type emitter struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// On registers an event listener for the specified event type.
func (e *emitter) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *emitter) Emit(event EventType, data interface{}) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
