package input

import "io"

// Source is a hardware front-end. It pushes encoder edges into an Encoder
// and exposes the push-button as a polled level.
type Source interface {
	ButtonPin
	io.Closer
}

// GPIOConfig describes encoder and button lines on a GPIO character device.
type GPIOConfig struct {
	Chip      string
	PinA      int
	PinB      int
	PinButton int
}

// EvdevConfig names the input devices created by the kernel rotary-encoder
// and gpio-keys drivers.
type EvdevConfig struct {
	EncoderDevice string
	ButtonDevice  string
	ButtonCode    int
}

// StaticPin is a ButtonPin whose level is set by the caller. The simulator
// and tests drive it directly.
type StaticPin struct {
	Level bool
}

func (p *StaticPin) Pressed() bool { return p.Level }
