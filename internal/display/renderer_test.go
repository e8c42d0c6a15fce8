package display_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/display"
	"github.com/timfallmk/glowstick/internal/menu"
	"github.com/timfallmk/glowstick/internal/testutils"
)

func draw(t *testing.T, s menu.State) *testutils.RecordingCanvas {
	t.Helper()
	c := testutils.NewRecordingCanvas()
	if err := display.NewRenderer(3).Draw(&s, c); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if c.Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", c.Flushes)
	}
	return c
}

func TestRendererMainMenu(t *testing.T) {
	tests := []struct {
		name      string
		item      int
		scroll    int
		wantTexts []string
		wantArrow []int
	}{
		{
			name:      "top",
			wantTexts: []string{"Color", "White", "Gradient"},
			wantArrow: []int{0, 0, 8, 4, 0, 8},
		},
		{
			name:      "scrolled to last item",
			item:      4,
			scroll:    2,
			wantTexts: []string{"Gradient", "Animations", "Display Brightness"},
			wantArrow: []int{0, 22, 8, 26, 0, 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := menu.DefaultState()
			s.Item, s.Scroll = tt.item, tt.scroll
			c := draw(t, s)

			if got := c.Texts(); !reflect.DeepEqual(got, tt.wantTexts) {
				t.Errorf("texts = %v, want %v", got, tt.wantTexts)
			}
			arrows := c.Find("triangle")
			if len(arrows) != 1 {
				t.Fatalf("got %d cursors, want 1", len(arrows))
			}
			if !reflect.DeepEqual(arrows[0].Args, tt.wantArrow) {
				t.Errorf("cursor = %v, want %v", arrows[0].Args, tt.wantArrow)
			}
		})
	}
}

func TestRendererAnimationMenu(t *testing.T) {
	s := menu.DefaultState()
	s.Mode = menu.ModeAnimationMenu
	c := draw(t, s)

	if !c.HasText("Cycle Hue") {
		t.Errorf("texts = %v, want first animation listed", c.Texts())
	}
}

func TestRendererBackHighlight(t *testing.T) {
	s := menu.DefaultState()
	s.Mode = menu.ModeHSV
	s.Item = menu.Layout[menu.ModeHSV].Back()
	c := draw(t, s)

	boxes := c.Find("box")
	if len(boxes) == 0 || !reflect.DeepEqual(boxes[0].Args, []int{0, 0, 12, 32}) {
		t.Fatalf("first box = %v, want highlighted back column", boxes)
	}
	arrows := c.Find("triangle")
	if len(arrows) != 1 {
		t.Fatalf("got %d back arrows, want 1", len(arrows))
	}
	if arrows[0].Color != display.ColorXOR {
		t.Errorf("back arrow color = %v, want XOR", arrows[0].Color)
	}
	if !reflect.DeepEqual(arrows[0].Args, []int{10, 11, 2, 15, 10, 19}) {
		t.Errorf("back arrow = %v", arrows[0].Args)
	}
	if len(c.Find("frame")) != 0 {
		t.Error("no slider should be framed while Back is selected")
	}
}

func TestRendererHSV(t *testing.T) {
	s := menu.DefaultState()
	s.Mode = menu.ModeHSV
	s.HSV = color.HSV{H: 255, S: 0, V: 255}
	s.Item = 0
	s.Editing = true
	c := draw(t, s)

	for _, want := range []string{"359", "0", "100", "H", "S", "V"} {
		if !c.HasText(want) {
			t.Errorf("missing %q in %v", want, c.Texts())
		}
	}

	frames := c.Find("frame")
	if len(frames) != 1 || !reflect.DeepEqual(frames[0].Args, []int{25, 1, 83, 6}) {
		t.Errorf("frames = %v, want hue slider framed", frames)
	}
	if c.Find("box")[0].Args[2] != 3 {
		t.Errorf("active slider should draw a 3px thumb, got %v", c.Find("box")[0].Args)
	}
}

func TestRendererWhite(t *testing.T) {
	s := menu.DefaultState()
	s.Mode = menu.ModeWhite
	s.White = 255
	c := draw(t, s)

	if !c.HasText("White Brightness") || !c.HasText("100%") {
		t.Errorf("texts = %v", c.Texts())
	}
}

func TestRendererGradientDrawsSixSliders(t *testing.T) {
	s := menu.DefaultState()
	s.Mode = menu.ModeGradient
	s.Item = 4
	c := draw(t, s)

	if got := len(c.Find("box")); got != 6 {
		t.Errorf("slider bars = %d, want 6", got)
	}
	if got := len(c.Find("frame")); got != 1 {
		t.Errorf("frames = %d, want 1", got)
	}
}

func TestRendererAnimation(t *testing.T) {
	s := menu.DefaultState()
	s.Mode = menu.ModeAnimation
	c := draw(t, s)

	for _, want := range []string{"Cycle Hue", "Speed", "Scale", "1.000Hz"} {
		if !c.HasText(want) {
			t.Errorf("missing %q in %v", want, c.Texts())
		}
	}
}

func TestRendererBrightness(t *testing.T) {
	s := menu.DefaultState()
	s.Mode = menu.ModeBrightness
	c := draw(t, s)

	if !c.HasText("Display Brightness") {
		t.Errorf("texts = %v", c.Texts())
	}
	if len(c.Find("frame")) != 1 {
		t.Error("brightness slider is always selected")
	}
}

func TestRendererFlushError(t *testing.T) {
	c := testutils.NewRecordingCanvas()
	c.FlushErr = testutils.ErrInjected

	s := menu.DefaultState()
	err := display.NewRenderer(3).Draw(&s, c)
	if !errors.Is(err, testutils.ErrInjected) {
		t.Errorf("Draw() error = %v, want wrapped flush error", err)
	}
	testutils.ExpectError(t, err, "failed to flush display")
}

func TestRendererSplash(t *testing.T) {
	c := testutils.NewRecordingCanvas()
	if err := display.NewRenderer(0).Splash(c, "1.2.0"); err != nil {
		t.Fatal(err)
	}

	want := []string{"GlowStick", "FW 1.2.0"}
	if got := c.Texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("splash texts = %v, want %v", got, want)
	}
	if y := c.Find("text")[1].Args[1]; y != 30 {
		t.Errorf("version baseline = %d, want 30", y)
	}
}
