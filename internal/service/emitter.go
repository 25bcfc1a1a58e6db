package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// Events emitted by the services.
const (
	EventSceneChanged    = "scene:changed"
	EventSceneSaved      = "scene:saved"
	EventSceneSaveFailed = "scene:save-failed"
	EventSceneReloaded   = "scene:reloaded"
	EventPagesChanged    = "pages:changed"
	EventBackupCompleted = "backup:completed"
)

// EventEmitter is an interface for emitting events to the frontend.
// The desktop app implements this by delegating to wailsRuntime.EventsEmit.
// Saves fire on timer goroutines, so implementations must be safe for
// concurrent use.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded emissions of event, oldest first.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
