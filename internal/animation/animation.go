// Package animation computes one full pixel buffer per tick for the
// procedural light modes.
package animation

import (
	"math/rand/v2"
	"time"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/mathx"
)

// Kind selects one of the built-in animations.
type Kind uint8

const (
	CycleHue Kind = iota
	Flash
	Checkerboard
	Triangles
	Fire

	NumKinds
)

var kindNames = [NumKinds]string{
	CycleHue:     "Cycle Hue",
	Flash:        "Flash",
	Checkerboard: "Checkerboard",
	Triangles:    "Scanning Point",
	Fire:         "Fire",
}

func (k Kind) String() string {
	if k >= NumKinds {
		return "Unknown"
	}
	return kindNames[k]
}

// Valid reports whether k names a built-in animation.
func (k Kind) Valid() bool {
	return k < NumKinds
}

// Animation parameters wrap inside [ParamMin, ParamMax).
const (
	ParamMin = 0.0
	ParamMax = 10.0

	DefaultSectors = 6
)

// Params are the two encoder-editable animation parameters. Speed is in Hz,
// Scale is the number of pattern repeats across the strip.
type Params struct {
	Speed float64 `yaml:"speed"`
	Scale float64 `yaml:"scale"`
}

func DefaultParams() Params {
	return Params{Speed: 1, Scale: 1}
}

// Field returns parameter i (0 speed, 1 scale).
func (p Params) Field(i int) float64 {
	if i == 1 {
		return p.Scale
	}
	return p.Speed
}

// Nudge adds delta to parameter i and wraps it into [ParamMin, ParamMax).
func (p *Params) Nudge(i int, delta float64) {
	switch i {
	case 0:
		p.Speed = mathx.Wrap(p.Speed+delta, ParamMin, ParamMax)
	case 1:
		p.Scale = mathx.Wrap(p.Scale+delta, ParamMin, ParamMax)
	}
}

// Frame is the input to one render pass.
type Frame struct {
	// T is elapsed seconds multiplied by Speed.
	T     float64
	Speed float64
	Scale float64

	// Palette holds the active color per pixel, resolved once per frame.
	Palette    []color.RGBW
	Correction color.Correction
}

// NewFrame builds a frame for elapsed time since the loop started.
func NewFrame(elapsed time.Duration, p Params, palette []color.RGBW, corr color.Correction) Frame {
	return Frame{
		T:          elapsed.Seconds() * p.Speed,
		Speed:      p.Speed,
		Scale:      p.Scale,
		Palette:    palette,
		Correction: corr,
	}
}

// X returns the scaled normalized position of pixel i of n.
func (f Frame) X(i, n int) float64 {
	return float64(i) / float64(n) * f.Scale
}

func (f Frame) base(i int) color.RGBW {
	if i < len(f.Palette) {
		return f.Palette[i]
	}
	return color.Off
}

// Animation renders one kind of animation into out.
type Animation interface {
	Kind() Kind
	Render(f Frame, out []color.RGBW)

	animation()
}

// Engine owns one instance of every animation so stateful kinds keep their
// state across ticks.
type Engine struct {
	anims [NumKinds]Animation
}

// NewEngine creates an engine. sectors <= 0 uses DefaultSectors; a nil rng
// is seeded from the runtime.
func NewEngine(sectors int, rng *rand.Rand) *Engine {
	if sectors <= 0 {
		sectors = DefaultSectors
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{
		anims: [NumKinds]Animation{
			CycleHue:     cycleHue{},
			Flash:        flash{},
			Checkerboard: checkerboard{sectors: float64(sectors)},
			Triangles:    triangles{},
			Fire:         &fire{rng: rng},
		},
	}
}

// Select returns the animation for k. Unknown kinds fall back to CycleHue.
func (e *Engine) Select(k Kind) Animation {
	if !k.Valid() {
		return e.anims[CycleHue]
	}
	return e.anims[k]
}

// Render draws one frame of kind k.
func (e *Engine) Render(k Kind, f Frame, out []color.RGBW) {
	e.Select(k).Render(f, out)
}

// RenderGradient fills out with a gradient. Gradient mode is not animated.
func RenderGradient(out []color.RGBW, g color.Gradient, corr color.Correction) {
	g.Fill(out, corr)
}

// Fill sets every pixel to c.
func Fill(out []color.RGBW, c color.RGBW) {
	for i := range out {
		out[i] = c
	}
}
