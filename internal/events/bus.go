// Package events carries controller notifications to the daemon, metrics
// and logs without coupling them to the control loop.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Handlers run on the dispatcher's
// goroutines, never on the publisher's.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev to every subscriber of its type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ModeChangedEvent:
		event.Publish(b.dispatcher, e)
	case SettingsSavedEvent:
		event.Publish(b.dispatcher, e)
	case DisplayBlankedEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts and returns an
// unsubscribe function. Handlers of unknown types are ignored.
//
//	unsub := bus.Subscribe(func(e ModeChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ModeChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsSavedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DisplayBlankedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
