package service

import (
	"context"
	"sync"
)

// Frontend event names.
const (
	EventAnnotationsLoaded = "annotations:loaded"
	EventAnnotationAdded   = "annotation:added"
	EventCanvasDraw        = "canvas:draw"
	EventViewerState       = "viewer:state"
	EventDocumentChanged   = "document:changed"
	EventDocumentError     = "document:error"
	EventPendingChanged    = "annotations:pending"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to the frontend.
// The App struct implements this by delegating to wailsRuntime.EventsEmit.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NoopEmitter drops every event. Used by the headless commands.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Events may arrive from watcher and retry goroutines, hence the lock.
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{Event: event, Data: data})
}

// Events returns a copy of everything emitted so far.
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.events...)
}

// Named returns the emissions of one event, in order.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	var out []EmittedEvent
	for _, e := range m.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
