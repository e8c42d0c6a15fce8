package display

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// SSD1306Address is the I²C address the periph driver always talks to.
const SSD1306Address = 0x3C

// SSD1306Config selects the I²C bus and panel geometry.
type SSD1306Config struct {
	Bus     string
	Width   int
	Height  int
	Rotated bool
}

// SSD1306Panel is an SSD1306 OLED on an I²C bus.
type SSD1306Panel struct {
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// OpenSSD1306 initializes the host drivers and opens the panel.
func OpenSSD1306(cfg SSD1306Config) (*SSD1306Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", cfg.Bus, err)
	}

	opts := ssd1306.DefaultOpts
	if cfg.Width > 0 {
		opts.W = cfg.Width
	}
	if cfg.Height > 0 {
		opts.H = cfg.Height
	}
	opts.Rotated = cfg.Rotated

	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize SSD1306 at %#x on %q: %w", SSD1306Address, cfg.Bus, err)
	}

	return &SSD1306Panel{bus: bus, dev: dev}, nil
}

func (p *SSD1306Panel) Bounds() image.Rectangle {
	return p.dev.Bounds()
}

func (p *SSD1306Panel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	return p.dev.Draw(r, src, sp)
}

func (p *SSD1306Panel) SetContrast(level byte) error {
	return p.dev.SetContrast(level)
}

func (p *SSD1306Panel) Halt() error {
	return p.dev.Halt()
}

// Close halts the panel and releases the bus.
func (p *SSD1306Panel) Close() error {
	herr := p.dev.Halt()
	if err := p.bus.Close(); err != nil {
		return err
	}
	return herr
}
