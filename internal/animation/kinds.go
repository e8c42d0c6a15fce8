package animation

import (
	"math/rand/v2"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/mathx"
)

const (
	cycleSaturation = 255
	cycleValue      = 128

	fireSpreadChance = 48
	fireIgniteChance = 3
)

type cycleHue struct{}

func (cycleHue) Kind() Kind { return CycleHue }
func (cycleHue) animation() {}

func (cycleHue) Render(f Frame, out []color.RGBW) {
	n := len(out)
	for i := range out {
		hue := uint8(mathx.Frac(f.T+f.X(i, n)) * 256)
		out[i] = color.HSVToRGBW(color.HSV{H: hue, S: cycleSaturation, V: cycleValue}, f.Correction)
	}
}

type flash struct{}

func (flash) Kind() Kind { return Flash }
func (flash) animation() {}

func (flash) Render(f Frame, out []color.RGBW) {
	n := len(out)
	for i := range out {
		if mathx.Frac(f.T+f.X(i, n)) < 0.5 {
			out[i] = f.base(i)
		} else {
			out[i] = color.Off
		}
	}
}

type checkerboard struct {
	sectors float64
}

func (checkerboard) Kind() Kind { return Checkerboard }
func (checkerboard) animation() {}

func (c checkerboard) Render(f Frame, out []color.RGBW) {
	n := len(out)
	phase := mathx.Frac(f.T*c.sectors) < 0.5
	for i := range out {
		if (mathx.Frac(f.X(i, n)*c.sectors) < 0.5) == phase {
			out[i] = f.base(i)
		} else {
			out[i] = color.Off
		}
	}
}

type triangles struct{}

func (triangles) Kind() Kind { return Triangles }
func (triangles) animation() {}

func (triangles) Render(f Frame, out []color.RGBW) {
	n := len(out)
	edge := mathx.Frac(f.T)
	for i := range out {
		if mathx.Frac(f.X(i, n)) < edge {
			out[i] = f.base(i)
		} else {
			out[i] = color.Off
		}
	}
}

// fire keeps a heat value per pixel. Heat decays every frame, is pulled
// from the next two pixels and occasionally re-ignites on the far half.
type fire struct {
	rng  *rand.Rand
	heat []uint8
}

func (*fire) Kind() Kind { return Fire }
func (*fire) animation() {}

func (a *fire) random8(lo, hi int) int {
	return lo + a.rng.IntN(hi-lo)
}

func (a *fire) Render(f Frame, out []color.RGBW) {
	n := len(out)
	if len(a.heat) != n {
		a.heat = make([]uint8, n)
	}

	for i := range out {
		h := color.QSub8(a.heat[i], uint8(a.random8(1, 4)))

		if i < n-1 && float64(a.random8(0, 256)) < fireSpreadChance*f.Speed {
			next := int(a.heat[i+1])
			far := next
			if i+2 < n {
				far = int(a.heat[i+2])
			}
			h = uint8((2*next + far) / 3)
		}

		if f.X(i, n) > 0.5 && float64(a.random8(0, 256)) < fireIgniteChance*f.Speed {
			h = color.QAdd8(h, uint8(a.random8(16, 255)))
		}

		a.heat[i] = h

		c := f.base(i)
		out[i] = color.RGBW{
			R: color.QSub8(c.R, h),
			G: color.QSub8(c.G, h),
			B: color.QSub8(c.B, h),
			W: h,
		}
	}
}
