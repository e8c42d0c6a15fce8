package menu

import "github.com/timfallmk/glowstick/internal/mathx"

const (
	DefaultVisibleLines = 3

	// FloatStep is the animation parameter change per scaled encoder step.
	FloatStep = 0.01
)

// Outcome reports what a press did so the caller can persist settings and
// publish events. The navigator itself performs no I/O.
type Outcome struct {
	Save bool
	From Mode
	To   Mode
}

// Changed reports whether the press switched screens.
func (o Outcome) Changed() bool {
	return o.From != o.To
}

// Navigator applies input events to a State.
type Navigator struct {
	visible int
}

// NewNavigator creates a navigator for a display showing visibleLines list
// entries at once.
func NewNavigator(visibleLines int) *Navigator {
	if visibleLines <= 0 {
		visibleLines = DefaultVisibleLines
	}
	return &Navigator{visible: visibleLines}
}

// VisibleLines is the scroll window height.
func (n *Navigator) VisibleLines() int {
	return n.visible
}

// Rotate applies steps encoder detents at the given velocity scale.
func (n *Navigator) Rotate(s *State, steps, scale int) {
	if steps == 0 {
		return
	}
	delta := steps * scale

	switch {
	case s.Mode == ModeBrightness:
		s.DisplayBrightness = addClamped(s.DisplayBrightness, delta)
	case s.Editing && s.Mode == ModeHSV && s.Item < 3:
		s.HSV.SetChannel(s.Item, addClamped(s.HSV.Channel(s.Item), delta))
	case s.Editing && s.Mode == ModeWhite && s.Item == 0:
		s.White = addClamped(s.White, delta)
	case s.Editing && s.Mode == ModeGradient && s.Item < 6:
		end := &s.Gradient.Start
		if s.Item > 2 {
			end = &s.Gradient.End
		}
		ch := s.Item % 3
		end.SetChannel(ch, addClamped(end.Channel(ch), delta))
	case s.Editing && s.Mode == ModeAnimation && s.Item < 2:
		s.Params.Nudge(s.Item, float64(delta)*FloatStep)
	default:
		// Cursor moves by raw detents.
		length := Layout[s.Mode].Len()
		if length > 0 {
			s.Item = ((s.Item+steps)%length + length) % length
			n.normalizeScroll(s)
		}
	}
	s.NeedsRedraw = true
}

// Press applies one debounced button press.
func (n *Navigator) Press(s *State) Outcome {
	out := Outcome{From: s.Mode, To: s.Mode}
	screen := Layout[s.Mode]

	switch {
	case s.Mode == ModeMenu:
		next := MainMenu[mathx.Clamp(s.Item, 0, len(MainMenu)-1)]
		n.enter(s, next, 0)
		// Brightness has a single field and is always editing.
		s.Editing = next == ModeBrightness

	case s.Mode == ModeBrightness:
		out.Save = true
		n.returnToMenu(s)

	case s.Mode == ModeAnimationMenu && s.Item != screen.Back():
		s.Animation = animationKind(s.Item)
		n.enter(s, ModeAnimation, 0)

	case s.Mode == ModeAnimation && s.Item == screen.Back():
		n.enter(s, ModeAnimationMenu, int(s.Animation))

	case s.Item != screen.Back():
		s.Editing = !s.Editing

	default:
		// Back field: save and return.
		out.Save = true
		switch s.Mode {
		case ModeHSV:
			s.Source = SourceHSV
		case ModeWhite:
			s.Source = SourceWhite
		case ModeGradient:
			s.Source = SourceGradient
		}
		n.returnToMenu(s)
	}

	out.To = s.Mode
	s.NeedsRedraw = true
	return out
}

func (n *Navigator) enter(s *State, m Mode, item int) {
	s.Mode = m
	s.Item = item
	s.Scroll = 0
	s.Editing = false
	n.normalizeScroll(s)
}

func (n *Navigator) returnToMenu(s *State) {
	n.enter(s, ModeMenu, mainMenuIndex(s.Mode))
}

// normalizeScroll keeps Item inside the visible window
// [Scroll, Scroll+visible-1] without overscrolling.
func (n *Navigator) normalizeScroll(s *State) {
	lastItem := s.Scroll + n.visible - 1
	if s.Item >= lastItem {
		s.Scroll += s.Item - lastItem
	}
	if s.Item < s.Scroll {
		s.Scroll = s.Item
	}
}

func addClamped(v uint8, delta int) uint8 {
	return uint8(mathx.Clamp(int(v)+delta, 0, 255))
}
