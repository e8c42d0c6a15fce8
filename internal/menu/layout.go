package menu

import "github.com/timfallmk/glowstick/internal/animation"

// Screen describes one mode's submenu. The back field, when present, is
// always the last item.
type Screen struct {
	Title string
	Items []string
	// HasBack is false for screens where every press returns.
	HasBack bool
}

// Len is the submenu length.
func (s Screen) Len() int {
	return len(s.Items)
}

// Back is the index of the back item, or -1.
func (s Screen) Back() int {
	if !s.HasBack {
		return -1
	}
	return len(s.Items) - 1
}

// MainMenu lists the modes reachable from the top-level menu, in order.
var MainMenu = []Mode{ModeHSV, ModeWhite, ModeGradient, ModeAnimationMenu, ModeBrightness}

// Layout maps every mode to its screen.
var Layout = map[Mode]Screen{
	ModeMenu: {
		Title: "Menu",
		Items: []string{"Color", "White", "Gradient", "Animations", "Display Brightness"},
	},
	ModeHSV: {
		Title:   "Color",
		Items:   []string{"H", "S", "V", "Back"},
		HasBack: true,
	},
	ModeWhite: {
		Title:   "White Brightness",
		Items:   []string{"Brightness", "Back"},
		HasBack: true,
	},
	ModeGradient: {
		Title:   "Gradient",
		Items:   []string{"H1", "S1", "V1", "H2", "S2", "V2", "Back"},
		HasBack: true,
	},
	ModeAnimationMenu: {
		Title:   "Animations",
		Items:   animationItems(),
		HasBack: true,
	},
	ModeAnimation: {
		Title:   "Animation",
		Items:   []string{"Speed", "Scale", "Back"},
		HasBack: true,
	},
	ModeBrightness: {
		Title: "Display Brightness",
		Items: []string{"Brightness"},
	},
}

func animationItems() []string {
	items := make([]string, 0, animation.NumKinds+1)
	for k := animation.Kind(0); k < animation.NumKinds; k++ {
		items = append(items, k.String())
	}
	return append(items, "Back")
}

func animationKind(item int) animation.Kind {
	if item < 0 || item >= int(animation.NumKinds) {
		return animation.CycleHue
	}
	return animation.Kind(item)
}

// mainMenuIndex returns the top-level menu position of m.
func mainMenuIndex(m Mode) int {
	for i, mm := range MainMenu {
		if mm == m {
			return i
		}
	}
	return 0
}
