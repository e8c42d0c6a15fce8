package strip

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/logging"
)

const (
	DefaultBaudRate = 115200
	DefaultTimeout  = 1 * time.Second
)

// SerialConfig configures a SerialTransport.
type SerialConfig struct {
	Port         string
	BaudRate     int
	AutoDiscover bool
	Timeout      time.Duration
}

// SerialTransport drives a strip through a USB serial bridge.
type SerialTransport struct {
	mu      sync.Mutex
	port    serial.Port
	mode    *serial.Mode
	cfg     SerialConfig
	logger  *logging.Logger
	written uint64
}

func NewSerialTransport(cfg SerialConfig, logger *logging.Logger) *SerialTransport {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &SerialTransport{
		mode:   &serial.Mode{BaudRate: cfg.BaudRate},
		cfg:    cfg,
		logger: logger.WithComponent("strip"),
	}
}

// DiscoverPort returns the first USB serial port, falling back to the
// first port of any kind.
func (t *SerialTransport) DiscoverPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate ports: %w", err)
	}

	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}

	for _, port := range ports {
		if port.IsUSB {
			t.logger.Debug("found USB serial port", "port", port.Name, "vid", port.VID, "pid", port.PID)
			return port.Name, nil
		}
	}

	return ports[0].Name, nil
}

// Connect opens the configured port, discovering one when none is set.
func (t *SerialTransport) Connect() error {
	portName := t.cfg.Port
	if portName == "" {
		if !t.cfg.AutoDiscover {
			return fmt.Errorf("no serial port configured and auto discovery disabled")
		}
		discovered, err := t.DiscoverPort()
		if err != nil {
			return fmt.Errorf("failed to discover port: %w", err)
		}
		portName = discovered
	}

	port, err := serial.Open(portName, t.mode)
	if err != nil {
		return fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	t.mu.Lock()
	t.port = port
	t.mu.Unlock()

	t.logger.Info("connected to strip bridge", "port", portName, "baud_rate", t.mode.BaudRate)
	return nil
}

// Connected reports whether a port is open.
func (t *SerialTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

func (t *SerialTransport) send(cmd Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(cmd)
}

func (t *SerialTransport) sendLocked(cmd Command) error {
	if t.port == nil {
		return ErrNotConnected
	}

	data := cmd.ToBytes()
	n, err := t.port.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write command 0x%02X: %w", cmd.ID, err)
	}
	t.written += uint64(n)
	return nil
}

// Show sends one frame.
func (t *SerialTransport) Show(pixels []color.RGBW, brightness uint8) error {
	return t.send(ShowCommand(pixels, brightness))
}

// Clear turns the strip off.
func (t *SerialTransport) Clear() error {
	return t.send(ClearCommand())
}

// Version asks the bridge for its firmware version. The request and the
// reply hold the lock together so Close cannot release the port between them.
func (t *SerialTransport) Version() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.sendLocked(VersionCommand()); err != nil {
		return nil, err
	}
	if err := t.port.SetReadTimeout(t.cfg.Timeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	buffer := make([]byte, 3)
	n, err := t.port.Read(buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return buffer[:n], nil
}

// BytesWritten is the total payload written since Connect.
func (t *SerialTransport) BytesWritten() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}

// Close clears the strip and closes the port.
func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}

	_, _ = t.port.Write(ClearCommand().ToBytes())
	err := t.port.Close()
	t.port = nil
	return err
}
