// Package display decides what the status display shows for each menu
// screen and provides the raster canvas and panel drivers that draw it.
package display

// DrawColor selects how primitives affect pixels.
type DrawColor uint8

const (
	ColorClear DrawColor = iota
	ColorSet
	ColorXOR
)

// Canvas receives drawing intents. Coordinates are in pixels; text y is
// the baseline.
type Canvas interface {
	Width() int
	Height() int

	Clear()
	SetDrawColor(c DrawColor)
	DrawText(x, y int, s string)
	DrawBox(x, y, w, h int)
	DrawFrame(x, y, w, h int)
	DrawTriangle(x0, y0, x1, y1, x2, y2 int)

	SetContrast(level uint8) error
	// Flush sends the buffer to the panel.
	Flush() error
	// Blank clears both buffer and panel.
	Blank() error
}

// Contrast maps a display brightness setting through a cubic curve so the
// control feels linear.
func Contrast(brightness uint8) uint8 {
	b := uint32(brightness)
	return uint8(b * b * b / 65025)
}
