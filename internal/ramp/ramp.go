// Package ramp eases the strip brightness in and out as the user moves
// between light views and menus.
package ramp

const DefaultStep = 8

// Ramp is a level in [0, 255] that moves by a fixed step per tick.
type Ramp struct {
	level uint8
	step  uint8
}

// New creates a ramp at level 0. step 0 uses DefaultStep.
func New(step uint8) *Ramp {
	if step == 0 {
		step = DefaultStep
	}
	return &Ramp{step: step}
}

// Step moves the level toward 255 when targetHigh, else toward 0.
func (r *Ramp) Step(targetHigh bool) uint8 {
	if targetHigh {
		if r.level > 255-r.step {
			r.level = 255
		} else {
			r.level += r.step
		}
	} else {
		if r.level < r.step {
			r.level = 0
		} else {
			r.level -= r.step
		}
	}
	return r.level
}

// Level is the current ramp state.
func (r *Ramp) Level() uint8 {
	return r.level
}

// Set forces the level, e.g. to skip the fade-in.
func (r *Ramp) Set(level uint8) {
	r.level = level
}

// Scale returns master * level / 255.
func (r *Ramp) Scale(master uint8) uint8 {
	return uint8(uint16(master) * uint16(r.level) / 255)
}
