package color

import "github.com/timfallmk/glowstick/internal/mathx"

// Gradient is a two-stop HSV gradient.
type Gradient struct {
	Start HSV `yaml:"start"`
	End   HSV `yaml:"end"`
}

// At returns the interpolated color for index i of n. Index 0 is Start and
// index n-1 is End. Hue takes the short way across 0 when Start.H > End.H.
func (g Gradient) At(i, n int) HSV {
	if n <= 1 {
		return g.Start
	}
	last := n - 1

	startHue := int(g.Start.H)
	if g.Start.H > g.End.H {
		startHue -= 256
	}

	return HSV{
		H: uint8(mathx.Map(i, 0, last, startHue, int(g.End.H)) & 0xFF),
		S: uint8(mathx.Map(i, 0, last, int(g.Start.S), int(g.End.S))),
		V: uint8(mathx.Map(i, 0, last, int(g.Start.V), int(g.End.V))),
	}
}

// Fill writes the corrected gradient across out.
func (g Gradient) Fill(out []RGBW, correction Correction) {
	for i := range out {
		out[i] = HSVToRGBW(g.At(i, len(out)), correction)
	}
}
