package main

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/config"
	"github.com/timfallmk/glowstick/internal/controller"
	"github.com/timfallmk/glowstick/internal/logging"
	"github.com/timfallmk/glowstick/internal/menu"
	"github.com/timfallmk/glowstick/internal/settings"
	"github.com/timfallmk/glowstick/internal/testutils"
)

func newTestSimulator(t *testing.T) (*simulator, tcell.SimulationScreen) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen.Init() error = %v", err)
	}
	screen.SetSize(200, 40)
	t.Cleanup(screen.Fini)

	cfg := config.DefaultConfig()
	return newSimulator(screen, cfg, settings.NewMemoryMedium(int(cfg.Storage.Size)), logging.NewDiscardLogger()), screen
}

func TestBuildInfo(t *testing.T) {
	if version == "" || buildTime == "" {
		t.Error("version and buildTime must have defaults")
	}
}

func TestHalfBlock(t *testing.T) {
	tests := []struct {
		top, bottom bool
		want        rune
	}{
		{false, false, ' '},
		{true, false, '▀'},
		{false, true, '▄'},
		{true, true, '█'},
	}

	for _, tt := range tests {
		if got := halfBlock(tt.top, tt.bottom); got != tt.want {
			t.Errorf("halfBlock(%v, %v) = %q, want %q", tt.top, tt.bottom, got, tt.want)
		}
	}
}

func TestLEDColor(t *testing.T) {
	tests := []struct {
		name       string
		px         color.RGBW
		brightness uint8
		want       string
	}{
		{"off", color.Off, 255, "#000000"},
		{"white channel", color.RGBW{W: 255}, 255, "#ffffff"},
		{"white adds to color", color.RGBW{R: 255, W: 255}, 255, "#ffffff"},
		{"pure red", color.RGBW{R: 255}, 255, "#ff0000"},
		{"zero brightness", color.RGBW{R: 255, G: 255, B: 255, W: 255}, 0, "#000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ledColor(tt.px, tt.brightness).Hex(); got != tt.want {
				t.Errorf("ledColor() = %s, want %s", got, tt.want)
			}
		})
	}

	half := ledColor(color.RGBW{G: 255}, 128)
	if half.G < 0.49 || half.G > 0.51 || half.R != 0 {
		t.Errorf("half brightness green = %+v", half)
	}
}

func TestHandleEvent(t *testing.T) {
	s, _ := newTestSimulator(t)
	now := time.Now()

	if !s.handleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), now) {
		t.Fatal("arrow key should not quit")
	}
	if steps, _ := s.encoder.Sample(); steps != 1 {
		t.Errorf("right arrow steps = %d, want 1", steps)
	}

	s.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), now.Add(200*time.Millisecond))
	if steps, _ := s.encoder.Sample(); steps != -1 {
		t.Errorf("'a' steps = %d, want -1", steps)
	}

	s.handleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), now)
	if !s.pin.Level {
		t.Fatal("enter should hold the button down")
	}
	s.tick(now.Add(s.holdFor))
	if s.pin.Level {
		t.Error("button should release after the hold time")
	}

	for _, ev := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone),
	} {
		if s.handleEvent(ev, now) {
			t.Errorf("%s should quit", ev.Name())
		}
	}
}

func TestDrawSplash(t *testing.T) {
	s, screen := newTestSimulator(t)
	s.ctrl.Init(time.Now())
	s.draw()

	lit := 0
	for y := 0; y < s.raster.Height()/2; y++ {
		for x := 0; x < s.raster.Width(); x++ {
			if r, _, _, _ := screen.GetContent(x, y); r != ' ' {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("splash screen should light some display cells")
	}

	if got := len(s.leds.pixels); got != config.DefaultConfig().LED.Count {
		t.Errorf("strip length = %d", got)
	}
	if r, _, _, _ := screen.GetContent(0, s.raster.Height()/2+1); r != '●' {
		t.Errorf("LED row starts with %q, want a LED glyph", r)
	}
}

func TestEnterColorLightsStrip(t *testing.T) {
	s, _ := newTestSimulator(t)
	start := time.Now()
	s.ctrl.Init(start)

	now := start.Add(controller.DefaultSplashDuration + 100*time.Millisecond)
	s.tick(now)

	s.press(now)
	for i := 0; i < 40; i++ {
		now = now.Add(10 * time.Millisecond)
		s.tick(now)
	}

	if mode := s.ctrl.State().Mode; mode != menu.ModeHSV {
		t.Fatalf("mode = %v, want %v", mode, menu.ModeHSV)
	}
	if s.leds.brightness == 0 {
		t.Error("strip should ramp up after entering the color screen")
	}
}

func TestLoopStops(t *testing.T) {
	testutils.SkipIfShort(t, "runs the terminal loop")

	t.Run("context", func(t *testing.T) {
		s, _ := newTestSimulator(t)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		testutils.ExpectNoError(t, s.loop(ctx, time.Millisecond))
		if s.leds.frames < 2 {
			t.Errorf("frames = %d, want loop to have ticked", s.leds.frames)
		}
	})

	t.Run("quit key", func(t *testing.T) {
		s, screen := newTestSimulator(t)
		screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

		done := make(chan error, 1)
		go func() { done <- s.loop(context.Background(), time.Millisecond) }()

		select {
		case err := <-done:
			testutils.ExpectNoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not stop on q")
		}
	})
}
