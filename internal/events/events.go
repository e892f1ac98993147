// Package events carries remote-control signals from their transport to
// the daemon loop over a typed in-process dispatcher.
package events

import "github.com/kelindar/event"

// Event type constants for kelindar/event.
const (
	TypeBrightness uint32 = iota + 1
	TypePower
)

// BrightnessEvent is a request to change the display's global brightness.
type BrightnessEvent struct {
	Level uint8
}

// Type returns the event type identifier for BrightnessEvent.
func (e BrightnessEvent) Type() uint32 { return TypeBrightness }

// PowerEvent is a request to turn the display output on or off. Turning
// off must not discard the configured brightness.
type PowerEvent struct {
	On bool
}

// Type returns the event type identifier for PowerEvent.
func (e PowerEvent) Type() uint32 { return TypePower }

// Bus wraps a kelindar/event dispatcher for the two control signals.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// PublishBrightness publishes a brightness change to all subscribers.
func (b *Bus) PublishBrightness(ev BrightnessEvent) {
	event.Publish(b.dispatcher, ev)
}

// PublishPower publishes a power change to all subscribers.
func (b *Bus) PublishPower(ev PowerEvent) {
	event.Publish(b.dispatcher, ev)
}

// SubscribeBrightness subscribes to brightness changes. It returns an
// unsubscribe function.
func (b *Bus) SubscribeBrightness(handler func(BrightnessEvent)) func() {
	return event.Subscribe(b.dispatcher, handler)
}

// SubscribePower subscribes to power changes. It returns an unsubscribe
// function.
func (b *Bus) SubscribePower(handler func(PowerEvent)) func() {
	return event.Subscribe(b.dispatcher, handler)
}
