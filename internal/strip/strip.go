// Package strip delivers rendered pixel buffers to the LED strip.
package strip

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/logging"
)

var (
	ErrNotConnected = errors.New("not connected to any port")
	// ErrUnavailable is returned for transports not compiled into this binary.
	ErrUnavailable = errors.New("transport not available in this build")
)

// Transport sends one frame with a global brightness to the strip.
type Transport interface {
	Show(pixels []color.RGBW, brightness uint8) error
	Close() error
}

// Bridge is a transport with a microcontroller on the other end that can
// answer a version request.
type Bridge interface {
	Transport
	Version() ([]byte, error)
	Clear() error
	BytesWritten() uint64
}

var _ Bridge = (*SerialTransport)(nil)

// Options selects and configures a transport.
type Options struct {
	Transport    string // "serial", "ws281x", "none"
	Count        int
	Port         string
	BaudRate     int
	AutoDiscover bool
	Timeout      time.Duration
	GPIOPin      int
}

// Open builds the transport named in opts. The serial transport is
// connected before returning.
func Open(opts Options, logger *logging.Logger) (Transport, error) {
	switch opts.Transport {
	case "serial":
		t := NewSerialTransport(SerialConfig{
			Port:         opts.Port,
			BaudRate:     opts.BaudRate,
			AutoDiscover: opts.AutoDiscover,
			Timeout:      opts.Timeout,
		}, logger)
		if err := t.Connect(); err != nil {
			return nil, err
		}
		return t, nil
	case "ws281x":
		t, err := NewWS281xTransport(opts.GPIOPin, opts.Count)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "none", "":
		return &Noop{}, nil
	}
	return nil, fmt.Errorf("unknown strip transport %q", opts.Transport)
}

// Noop discards frames but remembers the last one.
type Noop struct {
	mu         sync.Mutex
	frames     int
	last       []color.RGBW
	brightness uint8
}

func (n *Noop) Show(pixels []color.RGBW, brightness uint8) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames++
	n.last = append(n.last[:0], pixels...)
	n.brightness = brightness
	return nil
}

func (n *Noop) Close() error { return nil }

// Frames is the number of Show calls so far.
func (n *Noop) Frames() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frames
}

// Last returns a copy of the last frame and its brightness.
func (n *Noop) Last() ([]color.RGBW, uint8) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]color.RGBW(nil), n.last...), n.brightness
}
