// Package settings persists the user's color and display choices as a
// fixed-size record on a byte-addressable medium.
package settings

import (
	"errors"
	"fmt"
	"io"

	"github.com/timfallmk/glowstick/internal/color"
)

// Record layout.
const (
	offsetMarker            = 0
	offsetHSV               = 1
	offsetWhite             = 4
	offsetDisplayBrightness = 5

	RecordSize = 6

	// Marker flags an initialized record. Erased EEPROM and fresh medium
	// images read as 0xFF.
	Marker byte = 0xA5
	Erased byte = 0xFF
)

// ErrShortRecord is returned when the medium accepts fewer bytes than a
// full record.
var ErrShortRecord = errors.New("short settings record")

// Medium is a byte-addressable store such as an EEPROM image.
type Medium interface {
	io.ReaderAt
	io.WriterAt
}

// Settings is the persisted subset of the device state.
type Settings struct {
	HSV               color.HSV `yaml:"hsv"`
	White             uint8     `yaml:"white"`
	DisplayBrightness uint8     `yaml:"display_brightness"`
}

// Encode lays s out as a marked record.
func Encode(s Settings) [RecordSize]byte {
	var b [RecordSize]byte
	b[offsetMarker] = Marker
	b[offsetHSV] = s.HSV.H
	b[offsetHSV+1] = s.HSV.S
	b[offsetHSV+2] = s.HSV.V
	b[offsetWhite] = s.White
	b[offsetDisplayBrightness] = s.DisplayBrightness
	return b
}

// Decode parses a record. ok is false if the record is not initialized.
func Decode(b []byte) (s Settings, ok bool) {
	if len(b) < RecordSize || b[offsetMarker] != Marker {
		return Settings{}, false
	}
	return Settings{
		HSV:               color.HSV{H: b[offsetHSV], S: b[offsetHSV+1], V: b[offsetHSV+2]},
		White:             b[offsetWhite],
		DisplayBrightness: b[offsetDisplayBrightness],
	}, true
}

// Gateway reads and writes the settings record at a fixed offset.
type Gateway struct {
	medium   Medium
	offset   int64
	defaults Settings
}

// NewGateway creates a gateway. defaults are written on first boot.
func NewGateway(m Medium, offset int64, defaults Settings) *Gateway {
	return &Gateway{medium: m, offset: offset, defaults: defaults}
}

// Load reads the record. If it is uninitialized the defaults are written
// once and returned with firstBoot set.
func (g *Gateway) Load() (s Settings, firstBoot bool, err error) {
	buf := make([]byte, RecordSize)
	n, err := g.medium.ReadAt(buf, g.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return g.defaults, false, fmt.Errorf("failed to read settings: %w", err)
	}

	if s, ok := Decode(buf[:n]); ok {
		return s, false, nil
	}

	if err := g.Save(g.defaults); err != nil {
		return g.defaults, true, err
	}
	return g.defaults, true, nil
}

// Save writes s as an initialized record.
func (g *Gateway) Save(s Settings) error {
	rec := Encode(s)
	n, err := g.medium.WriteAt(rec[:], g.offset)
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if n != RecordSize {
		return fmt.Errorf("wrote %d of %d bytes: %w", n, RecordSize, ErrShortRecord)
	}
	if syncer, ok := g.medium.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("failed to sync settings: %w", err)
		}
	}
	return nil
}
