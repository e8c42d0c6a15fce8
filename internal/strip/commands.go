package strip

import "github.com/timfallmk/glowstick/internal/color"

// Protocol magic bytes for the serial strip bridge.
const (
	MagicByte1 = 0x32
	MagicByte2 = 0xAC
)

// Command IDs understood by the bridge firmware.
const (
	CmdShow    = 0x10
	CmdClear   = 0x11
	CmdVersion = 0x20
)

// MaxPixels is the largest frame the 16-bit count field can describe.
const MaxPixels = 0xFFFF

// Command is one bridge command with its parameters.
type Command struct {
	Params []byte
	ID     byte
}

// NewCommand creates a command with the specified ID and parameters.
func NewCommand(id byte, params ...byte) Command {
	return Command{
		ID:     id,
		Params: params,
	}
}

// ToBytes returns the wire form: magic, ID, params.
func (c Command) ToBytes() []byte {
	result := make([]byte, 0, 3+len(c.Params))
	result = append(result, MagicByte1, MagicByte2, c.ID)
	return append(result, c.Params...)
}

// ShowCommand latches a frame: brightness, big-endian pixel count, then
// four bytes per pixel in G, R, B, W order. Pixels past MaxPixels are dropped.
func ShowCommand(pixels []color.RGBW, brightness uint8) Command {
	n := len(pixels)
	if n > MaxPixels {
		n = MaxPixels
	}
	params := make([]byte, 0, 3+4*n)
	params = append(params, brightness, byte(n>>8), byte(n))
	for _, p := range pixels[:n] {
		params = append(params, p.G, p.R, p.B, p.W)
	}
	return NewCommand(CmdShow, params...)
}

// ClearCommand turns every pixel off.
func ClearCommand() Command {
	return NewCommand(CmdClear)
}

// VersionCommand requests the bridge firmware version.
func VersionCommand() Command {
	return NewCommand(CmdVersion)
}
