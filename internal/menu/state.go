// Package menu is the navigation state machine. It owns the device state
// and routes rotate and press events to the parameter being edited.
package menu

import (
	"github.com/timfallmk/glowstick/internal/animation"
	"github.com/timfallmk/glowstick/internal/color"
)

// Mode is a screen of the menu hierarchy.
type Mode uint8

const (
	ModeMenu Mode = iota
	ModeHSV
	ModeWhite
	ModeGradient
	ModeAnimationMenu
	ModeAnimation
	ModeBrightness
)

var modeNames = map[Mode]string{
	ModeMenu:          "menu",
	ModeHSV:           "hsv",
	ModeWhite:         "white",
	ModeGradient:      "gradient",
	ModeAnimationMenu: "animation_menu",
	ModeAnimation:     "animation",
	ModeBrightness:    "brightness",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// Live reports whether the strip shows light in this mode. Menus and the
// display brightness editor dim the strip.
func (m Mode) Live() bool {
	switch m {
	case ModeHSV, ModeWhite, ModeGradient, ModeAnimation:
		return true
	}
	return false
}

// Source is the static color animations draw with.
type Source uint8

const (
	SourceHSV Source = iota
	SourceWhite
	SourceGradient
)

func (s Source) String() string {
	switch s {
	case SourceWhite:
		return "white"
	case SourceGradient:
		return "gradient"
	}
	return "hsv"
}

// Defaults applied on first boot.
var (
	DefaultHSV      = color.HSV{H: 128, S: 255, V: 128}
	DefaultGradient = color.Gradient{
		Start: color.HSV{H: 0, S: 255, V: 128},
		End:   color.HSV{H: 160, S: 255, V: 128},
	}
)

const (
	DefaultWhite             = 128
	DefaultDisplayBrightness = 96
)

// State is the whole mutable device state. It is owned by the control loop
// and passed by reference to the navigator.
type State struct {
	Mode    Mode
	Item    int
	Scroll  int
	Editing bool

	// NeedsRedraw is set by every transition and cleared once the display
	// has been asked to redraw.
	NeedsRedraw bool

	HSV               color.HSV
	White             uint8
	Gradient          color.Gradient
	Animation         animation.Kind
	Params            animation.Params
	Source            Source
	DisplayBrightness uint8
}

// DefaultState returns the boot state: main menu, default colors.
func DefaultState() State {
	return State{
		Mode:              ModeMenu,
		NeedsRedraw:       true,
		HSV:               DefaultHSV,
		White:             DefaultWhite,
		Gradient:          DefaultGradient,
		Animation:         animation.CycleHue,
		Params:            animation.DefaultParams(),
		Source:            SourceHSV,
		DisplayBrightness: DefaultDisplayBrightness,
	}
}

// ActiveColor resolves the static source to a single pixel value. For the
// gradient source callers should use the per-pixel gradient instead; this
// returns its start color.
func (s *State) ActiveColor(corr color.Correction) color.RGBW {
	switch s.Source {
	case SourceWhite:
		return color.White(s.White)
	case SourceGradient:
		return color.HSVToRGBW(s.Gradient.Start, corr)
	}
	return color.HSVToRGBW(s.HSV, corr)
}

// Palette writes the active source for every pixel into out.
func (s *State) Palette(out []color.RGBW, corr color.Correction) {
	if s.Source == SourceGradient {
		s.Gradient.Fill(out, corr)
		return
	}
	c := s.ActiveColor(corr)
	for i := range out {
		out[i] = c
	}
}
