//go:build !ws281x || !linux

package strip

import "github.com/timfallmk/glowstick/internal/color"

// WS281xTransport is only available in binaries built with the ws281x tag.
type WS281xTransport struct{}

func NewWS281xTransport(gpioPin, count int) (*WS281xTransport, error) {
	return nil, ErrUnavailable
}

func (*WS281xTransport) Show([]color.RGBW, uint8) error { return ErrUnavailable }
func (*WS281xTransport) Close() error                   { return nil }
