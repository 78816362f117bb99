// Package events provides a lightweight in-process event bus that carries
// UI-originated window signals and lifecycle notifications to subscribers
// (window controller, presence poller, debug logging).
package events

import (
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// EventType identifies the kind of event.
type EventType string

const (
	// Signals emitted by the embedded content. The values double as the
	// runtime event names the content bridge emits.
	WindowClose    EventType = "window-close"
	WindowMinimize EventType = "window-minimize"
	WindowMaximize EventType = "window-maximize"
	MediaMetadata  EventType = "media-metadata"

	// Lifecycle events
	ContentLoaded  EventType = "content.loaded"
	SecondInstance EventType = "instance.second_launch"
	TrayShow       EventType = "tray.show"
	TrayQuit       EventType = "tray.quit"
)

// UISignals lists the event types the embedded content is allowed to emit.
var UISignals = []EventType{WindowClose, WindowMinimize, WindowMaximize, MediaMetadata}

// Event is a single event emitted by a producer.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates an Event, marshaling data to JSON.
// If marshaling fails the Data field is set to null.
func NewEvent(t EventType, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      raw,
	}
}

// SubscriberFunc is a callback invoked for each event.
// Implementations must not block; slow subscribers should buffer internally.
type SubscriberFunc func(Event)

// Bus is a simple synchronous fan-out event bus.
// Publishing blocks until all subscribers have been called, so subscribers
// should be fast (e.g., write to a channel).
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]SubscriberFunc
	nextID      int
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]SubscriberFunc),
	}
}

// Subscribe registers a callback and returns an unsubscribe function.
func (b *Bus) Subscribe(fn SubscriberFunc) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// SubscribeTypes registers a callback that only receives the listed event types.
func (b *Bus) SubscribeTypes(fn SubscriberFunc, types ...EventType) func() {
	return b.Subscribe(func(e Event) {
		if slices.Contains(types, e.Type) {
			fn(e)
		}
	})
}

// Publish sends an event to all current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	// Snapshot subscriber list under read lock so we don't hold it during callbacks.
	subs := make([]SubscriberFunc, 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}
