// Package color converts the 8-bit HSV values edited on the device into RGBW
// pixels for an SK6812-style strip with a separate white emitter.
//
// All math is 8-bit fixed point (a*b/255). Nothing here allocates or keeps
// state, so the functions are safe to call per pixel from the frame loop.
package color

import "github.com/timfallmk/glowstick/internal/mathx"

// HSV is an 8-bit hue/saturation/value triple. Hue is cyclic.
type HSV struct {
	H uint8 `yaml:"h"`
	S uint8 `yaml:"s"`
	V uint8 `yaml:"v"`
}

// Channel returns H, S or V for index 0, 1 or 2.
func (c HSV) Channel(i int) uint8 {
	switch i {
	case 0:
		return c.H
	case 1:
		return c.S
	default:
		return c.V
	}
}

// SetChannel sets H, S or V for index 0, 1 or 2.
func (c *HSV) SetChannel(i int, v uint8) {
	switch i {
	case 0:
		c.H = v
	case 1:
		c.S = v
	default:
		c.V = v
	}
}

// RGBW is one strip pixel.
type RGBW struct {
	R, G, B, W uint8
}

// Off is the dark pixel.
var Off = RGBW{}

// Pack returns the pixel as 0xWWRRGGBB.
func (c RGBW) Pack() uint32 {
	return uint32(c.W)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Correction is a per-channel balance applied to R, G and B.
type Correction struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// TypicalSMD5050 is the measured balance of common 5050 RGBW packages.
var TypicalSMD5050 = Correction{R: 255, G: 176, B: 240}

// NoCorrection leaves channels untouched.
var NoCorrection = Correction{R: 255, G: 255, B: 255}

// Scale8 returns a*b/255.
func Scale8(a, b uint8) uint8 {
	return uint8(uint16(a) * uint16(b) / 255)
}

// ScaleVideo is Scale8 except that a non-zero result never rounds down to 0
// when both inputs are non-zero.
func ScaleVideo(a, b uint8) uint8 {
	r := Scale8(a, b)
	if r == 0 && a != 0 && b != 0 {
		return 1
	}
	return r
}

// QAdd8 adds with saturation at 255.
func QAdd8(a, b uint8) uint8 {
	return uint8(mathx.Min(uint16(a)+uint16(b), 255))
}

// QSub8 subtracts with saturation at 0.
func QSub8(a, b uint8) uint8 {
	if b > a {
		return 0
	}
	return a - b
}

// HSVToRGBW converts with the 8-sector "rainbow" hue mapping. Desaturation
// moves energy into W, value is applied through a squared curve, and the
// correction touches R, G and B only.
func HSVToRGBW(hsv HSV, correction Correction) RGBW {
	var r, g, b, w uint8

	offset8 := (hsv.H & 0x1F) << 3
	third := offset8 / 3

	if hsv.H&0x80 == 0 {
		if hsv.H&0x40 == 0 {
			if hsv.H&0x20 == 0 {
				// red -> orange
				r, g, b = 255-third, third, 0
			} else {
				// orange -> yellow
				r, g, b = 171, 85+third, 0
			}
		} else {
			if hsv.H&0x20 == 0 {
				// yellow -> green
				r, g, b = 171-third*2, 170+third, 0
			} else {
				// green -> aqua
				r, g, b = 0, 255-third, third
			}
		}
	} else {
		if hsv.H&0x40 == 0 {
			if hsv.H&0x20 == 0 {
				// aqua -> blue
				twoThirds := third * 2
				r, g, b = 0, 171-twoThirds, 85+twoThirds
			} else {
				// blue -> purple
				r, g, b = third, 0, 255-third
			}
		} else {
			if hsv.H&0x20 == 0 {
				// purple -> pink
				r, g, b = 85+third, 0, 171-third
			} else {
				// pink -> red
				r, g, b = 170+third, 0, 85-third
			}
		}
	}

	switch hsv.S {
	case 255:
		w = 0
	case 0:
		r, g, b, w = 0, 0, 0, 255
	default:
		r = Scale8(r, hsv.S)
		g = Scale8(g, hsv.S)
		b = Scale8(b, hsv.S)
		w = 255 - hsv.S
	}

	if hsv.V != 255 {
		val := ScaleVideo(hsv.V, hsv.V)
		if val == 0 {
			r, g, b, w = 0, 0, 0, 0
		} else {
			r = Scale8(r, val)
			g = Scale8(g, val)
			b = Scale8(b, val)
			w = Scale8(w, val)
		}
	}

	return RGBW{
		R: Scale8(r, correction.R),
		G: Scale8(g, correction.G),
		B: Scale8(b, correction.B),
		W: w,
	}
}

// White returns a pixel lit only on the white emitter.
func White(level uint8) RGBW {
	return RGBW{W: level}
}
