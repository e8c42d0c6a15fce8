//go:build !linux

package input

import "github.com/timfallmk/glowstick/internal/logging"

type GPIOSource struct{}

func NewGPIOSource(GPIOConfig, *Encoder, *logging.Logger) (*GPIOSource, error) {
	return nil, ErrUnsupported
}

func (*GPIOSource) Pressed() bool { return false }
func (*GPIOSource) Close() error  { return nil }

type EvdevSource struct{}

func NewEvdevSource(EvdevConfig, *Encoder, *logging.Logger) (*EvdevSource, error) {
	return nil, ErrUnsupported
}

func (*EvdevSource) Pressed() bool { return false }
func (*EvdevSource) Close() error  { return nil }
