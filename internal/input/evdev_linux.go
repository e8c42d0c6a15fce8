//go:build linux

package input

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/timfallmk/glowstick/internal/logging"
)

// EvdevSource reads the input devices exposed by the kernel rotary-encoder
// (EV_REL) and gpio-keys (EV_KEY) drivers.
type EvdevSource struct {
	encoder *Encoder
	logger  *logging.Logger
	code    evdev.EvCode

	encDev *evdev.InputDevice
	btnDev *evdev.InputDevice

	pressed atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// NewEvdevSource finds the named devices and starts reader goroutines.
// Device names may also be /dev/input paths.
func NewEvdevSource(cfg EvdevConfig, enc *Encoder, logger *logging.Logger) (*EvdevSource, error) {
	s := &EvdevSource{
		encoder: enc,
		logger:  logger.WithComponent("evdev"),
		code:    evdev.EvCode(cfg.ButtonCode),
	}
	if cfg.ButtonCode == 0 {
		s.code = evdev.KEY_ENTER
	}

	var err error
	s.encDev, err = openDevice(cfg.EncoderDevice)
	if err != nil {
		return nil, fmt.Errorf("failed to open encoder device: %w", err)
	}

	if cfg.ButtonDevice == cfg.EncoderDevice {
		s.btnDev = s.encDev
	} else {
		s.btnDev, err = openDevice(cfg.ButtonDevice)
		if err != nil {
			s.encDev.Close()
			return nil, fmt.Errorf("failed to open button device: %w", err)
		}
	}

	s.wg.Add(1)
	go s.read(s.encDev)
	if s.btnDev != s.encDev {
		s.wg.Add(1)
		go s.read(s.btnDev)
	}

	s.logger.Info("evdev input ready",
		"encoder", cfg.EncoderDevice,
		"button", cfg.ButtonDevice)

	return s, nil
}

func openDevice(name string) (*evdev.InputDevice, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if p.Name == name || p.Path == name {
			return evdev.Open(p.Path)
		}
	}
	return nil, fmt.Errorf("no input device named %q", name)
}

func (s *EvdevSource) read(dev *evdev.InputDevice) {
	defer s.wg.Done()
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Warn("input device read failed", "error", err)
			}
			return
		}

		switch ev.Type {
		case evdev.EV_REL:
			s.encoder.Turn(int(ev.Value), time.Now())
		case evdev.EV_KEY:
			if ev.Code == s.code {
				// 2 is autorepeat; keep the level.
				if ev.Value == 0 || ev.Value == 1 {
					s.pressed.Store(ev.Value == 1)
				}
			}
		}
	}
}

func (s *EvdevSource) Pressed() bool {
	return s.pressed.Load()
}

// Close closes the devices, which ends the reader goroutines.
func (s *EvdevSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.encDev.Close()
	if s.btnDev != s.encDev {
		if berr := s.btnDev.Close(); err == nil {
			err = berr
		}
	}
	s.wg.Wait()
	return err
}
