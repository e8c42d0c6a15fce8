//go:build linux

package input

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/timfallmk/glowstick/internal/logging"
)

// GPIOSource reads a quadrature encoder and a push-button from a GPIO
// character device. The encoder A line raises falling-edge events; line B
// is sampled in the event handler to find the direction. All lines are
// active low with pull-ups.
type GPIOSource struct {
	encoder *Encoder
	logger  *logging.Logger

	lineA  *gpiocdev.Line
	lineB  *gpiocdev.Line
	button *gpiocdev.Line
}

// NewGPIOSource requests the configured lines and starts feeding enc.
func NewGPIOSource(cfg GPIOConfig, enc *Encoder, logger *logging.Logger) (*GPIOSource, error) {
	s := &GPIOSource{
		encoder: enc,
		logger:  logger.WithComponent("gpio"),
	}

	var err error
	s.lineB, err = gpiocdev.RequestLine(cfg.Chip, cfg.PinB, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("failed to request encoder B line %d: %w", cfg.PinB, err)
	}

	s.button, err = gpiocdev.RequestLine(cfg.Chip, cfg.PinButton, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to request button line %d: %w", cfg.PinButton, err)
	}

	s.lineA, err = gpiocdev.RequestLine(cfg.Chip, cfg.PinA,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(s.handleEdge))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to request encoder A line %d: %w", cfg.PinA, err)
	}

	s.logger.Info("GPIO input ready",
		"chip", cfg.Chip,
		"pin_a", cfg.PinA,
		"pin_b", cfg.PinB,
		"pin_button", cfg.PinButton)

	return s, nil
}

func (s *GPIOSource) handleEdge(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	b, err := s.lineB.Value()
	if err != nil {
		s.logger.Debug("failed to read encoder B line", "error", err)
		return
	}
	// B low at the falling edge of A means clockwise.
	s.encoder.Edge(b == 0, time.Now())
}

// Pressed reports the button level. A read error counts as released.
func (s *GPIOSource) Pressed() bool {
	if s.button == nil {
		return false
	}
	v, err := s.button.Value()
	if err != nil {
		return false
	}
	return v == 0
}

// Close releases all requested lines.
func (s *GPIOSource) Close() error {
	var firstErr error
	for _, l := range []*gpiocdev.Line{s.lineA, s.lineB, s.button} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
