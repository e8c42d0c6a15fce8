//go:build ws281x && linux

package strip

import (
	"fmt"
	"sync"

	ws2811 "github.com/rpi-ws281x/rpi-ws281x-go"

	"github.com/timfallmk/glowstick/internal/color"
)

// WS281xTransport drives an SK6812 GRBW strip directly from a PWM pin.
type WS281xTransport struct {
	mu    sync.Mutex
	dev   *ws2811.WS2811
	count int
}

func NewWS281xTransport(gpioPin, count int) (*WS281xTransport, error) {
	opt := ws2811.DefaultOptions
	opt.Channels[0].GpioPin = gpioPin
	opt.Channels[0].LedCount = count
	opt.Channels[0].Brightness = 255
	opt.Channels[0].StripeType = ws2811.SK6812StripGRBW

	dev, err := ws2811.MakeWS2811(&opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ws281x device: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize ws281x on gpio %d: %w", gpioPin, err)
	}
	return &WS281xTransport{dev: dev, count: count}, nil
}

func (t *WS281xTransport) Show(pixels []color.RGBW, brightness uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return ErrNotConnected
	}

	leds := t.dev.Leds(0)
	for i := range leds {
		if i < len(pixels) {
			leds[i] = pixels[i].Pack()
		} else {
			leds[i] = 0
		}
	}
	t.dev.SetBrightness(0, int(brightness))
	if err := t.dev.Render(); err != nil {
		return fmt.Errorf("failed to render ws281x frame: %w", err)
	}
	return nil
}

func (t *WS281xTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nil
	}
	leds := t.dev.Leds(0)
	for i := range leds {
		leds[i] = 0
	}
	_ = t.dev.Render()
	t.dev.Fini()
	t.dev = nil
	return nil
}
