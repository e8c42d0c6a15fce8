package input

import "time"

// ButtonPin is a polled push-button level.
type ButtonPin interface {
	Pressed() bool
}

// Button debounces a polled level into single press events.
type Button struct {
	debounce time.Duration

	level          bool
	lastTransition time.Time
	armed          bool
}

// NewButton creates a debouncer. debounce <= 0 uses DefaultDebounce.
func NewButton(debounce time.Duration) *Button {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Button{debounce: debounce}
}

// Sample feeds the current level and reports whether a press fired. A press
// fires once the level has been held down for the debounce interval since
// the last transition, and only once per stable press.
func (b *Button) Sample(now time.Time, pressed bool) bool {
	if pressed != b.level {
		b.level = pressed
		b.lastTransition = now
		b.armed = pressed
	}

	if b.level && b.armed && now.Sub(b.lastTransition) >= b.debounce {
		b.armed = false
		return true
	}
	return false
}

// Pressed reports the last observed raw level.
func (b *Button) Pressed() bool {
	return b.level
}
