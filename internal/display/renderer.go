package display

import (
	"fmt"
	"strconv"

	"github.com/timfallmk/glowstick/internal/animation"
	"github.com/timfallmk/glowstick/internal/mathx"
	"github.com/timfallmk/glowstick/internal/menu"
)

const (
	CharacterHeight = 8
	LineHeight      = 11

	listTextLeft = 10
	labelLeft    = 16
	backWidth    = 12
)

// Renderer draws the screen for the current menu state.
type Renderer struct {
	visible int
}

// NewRenderer creates a renderer for a display with visibleLines text rows.
func NewRenderer(visibleLines int) *Renderer {
	if visibleLines <= 0 {
		visibleLines = menu.DefaultVisibleLines
	}
	return &Renderer{visible: visibleLines}
}

// Draw clears c, draws the screen for s and flushes.
func (r *Renderer) Draw(s *menu.State, c Canvas) error {
	c.Clear()
	c.SetDrawColor(ColorSet)

	switch s.Mode {
	case menu.ModeMenu, menu.ModeAnimationMenu:
		r.drawList(s, c)
	case menu.ModeHSV:
		r.drawHSV(s, c)
	case menu.ModeWhite:
		r.drawWhite(s, c)
	case menu.ModeGradient:
		r.drawGradient(s, c)
	case menu.ModeAnimation:
		r.drawAnimation(s, c)
	case menu.ModeBrightness:
		r.drawBrightness(s, c)
	}

	if err := c.Flush(); err != nil {
		return fmt.Errorf("failed to flush display: %w", err)
	}
	return nil
}

// Splash shows the boot screen.
func (r *Renderer) Splash(c Canvas, version string) error {
	c.Clear()
	c.SetDrawColor(ColorSet)
	c.DrawText(0, 2*LineHeight-CharacterHeight/2, "GlowStick")
	c.DrawText(0, c.Height()-2, "FW "+version)
	return c.Flush()
}

func (r *Renderer) drawList(s *menu.State, c Canvas) {
	items := menu.Layout[s.Mode].Items
	for i := 0; i < r.visible && i+s.Scroll < len(items); i++ {
		item := i + s.Scroll
		top := i * LineHeight
		if item == s.Item {
			c.DrawTriangle(0, top, 8, top+CharacterHeight/2, 0, top+CharacterHeight)
		}
		c.DrawText(listTextLeft, CharacterHeight+top, items[item])
	}
}

func (r *Renderer) drawBack(c Canvas, highlight bool) {
	if highlight {
		c.DrawBox(0, 0, backWidth, c.Height())
	}
	c.SetDrawColor(ColorXOR)
	c.DrawTriangle(10, LineHeight, 2, LineHeight+CharacterHeight/2, 10, LineHeight+CharacterHeight)
	c.SetDrawColor(ColorSet)
}

// drawSlider draws a bar slider on a text line. A selected slider gets a
// frame; an active one shows a thumb instead of a filled bar.
func (r *Renderer) drawSlider(c Canvas, line, left, width, value, lo, hi int, selected, active bool) {
	top := line * LineHeight
	if selected {
		c.DrawFrame(left, 1+top, width, CharacterHeight-2)
	}
	bar := mathx.Map(value, lo, hi, 0, width-4)
	if active {
		c.DrawBox(left+2+bar-1, 3+top, 3, CharacterHeight-6)
	} else {
		c.DrawBox(left+2, 3+top, bar, CharacterHeight-6)
	}
}

func (r *Renderer) drawLabels(c Canvas, labels ...string) {
	for i, l := range labels {
		c.DrawText(labelLeft, CharacterHeight+i*LineHeight, l)
	}
}

func (r *Renderer) drawHSV(s *menu.State, c Canvas) {
	r.drawBack(c, s.Item == menu.Layout[menu.ModeHSV].Back())

	w := c.Width()
	for i := 0; i < 3; i++ {
		v := int(s.HSV.Channel(i))
		r.drawSlider(c, i, 25, w-25-20, v, 0, 255, s.Item == i, s.Item == i && s.Editing)

		readout := mathx.Map(v, 0, 255, 0, 100)
		if i == 0 {
			readout = mathx.Map(v, 0, 255, 0, 359)
		}
		c.DrawText(w-18, CharacterHeight+i*LineHeight, strconv.Itoa(readout))
	}
	r.drawLabels(c, "H", "S", "V")
}

func (r *Renderer) drawWhite(s *menu.State, c Canvas) {
	r.drawBack(c, s.Item == menu.Layout[menu.ModeWhite].Back())

	c.DrawText(labelLeft, CharacterHeight, menu.Layout[menu.ModeWhite].Title)
	r.drawSlider(c, 1, labelLeft, c.Width()-labelLeft, int(s.White), 0, 255, s.Item == 0, s.Editing)
	c.DrawText(labelLeft, CharacterHeight+2*LineHeight, fmt.Sprintf("%d%%", mathx.Map(int(s.White), 0, 255, 0, 100)))
}

func (r *Renderer) drawGradient(s *menu.State, c Canvas) {
	r.drawBack(c, s.Item == menu.Layout[menu.ModeGradient].Back())

	width := (c.Width()-25)/2 - 2
	for i := 0; i < 6; i++ {
		end, ch := s.Gradient.Start, i%3
		left := 25
		if i > 2 {
			end = s.Gradient.End
			left += width
		}
		r.drawSlider(c, ch, left, width, int(end.Channel(ch)), 0, 255, s.Item == i, s.Item == i && s.Editing)
	}
	r.drawLabels(c, "H", "S", "V")
}

func (r *Renderer) drawAnimation(s *menu.State, c Canvas) {
	r.drawBack(c, s.Item == menu.Layout[menu.ModeAnimation].Back())

	w := c.Width()
	c.DrawText(labelLeft, CharacterHeight, s.Animation.String())
	for i := 0; i < 2; i++ {
		v := int(mathx.MapFloat(s.Params.Field(i), animation.ParamMin, animation.ParamMax, 0, 255))
		r.drawSlider(c, i+1, 48, w-48, v, 0, 255, s.Item == i, s.Item == i && s.Editing)
	}
	c.DrawText(labelLeft, CharacterHeight+LineHeight, "Speed")
	c.DrawText(labelLeft, CharacterHeight+2*LineHeight, "Scale")
	c.DrawText(w-40, CharacterHeight, strconv.FormatFloat(s.Params.Speed, 'f', 3, 64)+"Hz")
}

func (r *Renderer) drawBrightness(s *menu.State, c Canvas) {
	r.drawBack(c, true)
	c.DrawText(labelLeft, CharacterHeight, menu.Layout[menu.ModeBrightness].Title)
	r.drawSlider(c, 1, labelLeft, c.Width()-labelLeft, int(s.DisplayBrightness), 0, 255, true, true)
}
