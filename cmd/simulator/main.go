package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/pflag"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/config"
	"github.com/timfallmk/glowstick/internal/controller"
	"github.com/timfallmk/glowstick/internal/display"
	"github.com/timfallmk/glowstick/internal/input"
	"github.com/timfallmk/glowstick/internal/logging"
	"github.com/timfallmk/glowstick/internal/settings"
)

var (
	// These are set by the build system via -ldflags.
	version   = "dev"
	buildTime = "unknown"
)

const helpLine = "←/→ rotate   enter/space press   q quit"

// oledColor is the lit pixel color at full contrast.
var oledColor = colorful.Color{R: 0.37, G: 0.84, B: 1}

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to configuration file")
		storage    = pflag.String("storage", "", "Settings file (kept in memory when empty)")
		logFile    = pflag.String("log", "", "Write logs to this file (discarded when empty)")
		duration   = pflag.Duration("duration", 0, "Stop after this long (0 runs until q)")
		showVer    = pflag.BoolP("version", "v", false, "Show version information")
	)
	pflag.Parse()

	if *showVer {
		fmt.Printf("glowstick simulator %s (built %s)\n", version, buildTime)
		return
	}

	if err := run(*configPath, *storage, *logFile, *duration); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, storage, logFile string, duration time.Duration) error {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	logger := logging.NewDiscardLogger()
	if logFile != "" {
		var err error
		logger, err = logging.NewLogger(logging.Config{
			Level:  logging.LogLevel(cfg.Logging.Level),
			Format: logging.FormatText,
			Output: logFile,
		})
		if err != nil {
			return err
		}
		defer logger.Close()
	}

	var medium settings.Medium = settings.NewMemoryMedium(int(cfg.Storage.Size))
	if storage != "" {
		fm, err := settings.OpenFile(storage, cfg.Storage.Size)
		if err != nil {
			return fmt.Errorf("failed to open settings storage: %w", err)
		}
		defer fm.Close()
		medium = fm
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	defer screen.Fini()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	return newSimulator(screen, cfg, medium, logger).loop(ctx, cfg.Loop.TickPeriod)
}

// terminalStrip is a strip.Transport that keeps the last frame for drawing.
type terminalStrip struct {
	pixels     []color.RGBW
	brightness uint8
	frames     int
}

func (t *terminalStrip) Show(pixels []color.RGBW, brightness uint8) error {
	t.pixels = append(t.pixels[:0], pixels...)
	t.brightness = brightness
	t.frames++
	return nil
}

func (t *terminalStrip) Close() error { return nil }

// simulator runs the control loop against a terminal. Keys, ticks and
// drawing all happen on the loop goroutine.
type simulator struct {
	screen  tcell.Screen
	ctrl    *controller.Controller
	encoder *input.Encoder
	pin     *input.StaticPin
	raster  *display.Raster
	leds    *terminalStrip

	holdFor time.Duration
	release time.Time
}

func newSimulator(screen tcell.Screen, cfg *config.Config, medium settings.Medium, logger *logging.Logger) *simulator {
	in := cfg.Input
	enc := input.NewEncoder(input.EncoderConfig{
		Debounce:        in.Debounce,
		CoarseThreshold: in.CoarseThreshold,
		FineScale:       in.FineScale,
		CoarseScale:     in.CoarseScale,
	})

	s := &simulator{
		screen:  screen,
		encoder: enc,
		pin:     &input.StaticPin{},
		raster:  display.NewRaster(cfg.Display.Width, cfg.Display.Height, nil),
		leds:    &terminalStrip{},
		holdFor: 3 * in.Debounce,
	}

	s.ctrl = controller.New(controller.ConfigFrom(cfg, version), controller.Deps{
		Encoder:   enc,
		Button:    s.pin,
		Debounce:  in.Debounce,
		Gateway:   settings.NewGateway(medium, cfg.Storage.Offset, controller.DefaultSettings()),
		Transport: s.leds,
		Canvas:    s.raster,
		Logger:    logger,
	})
	return s
}

func (s *simulator) loop(ctx context.Context, period time.Duration) error {
	evCh := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go s.screen.ChannelEvents(evCh, quit)
	defer close(quit)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	s.ctrl.Init(time.Now())
	s.draw()

	for {
		select {
		case <-ctx.Done():
			s.ctrl.Shutdown()
			return nil
		case ev := <-evCh:
			if !s.handleEvent(ev, time.Now()) {
				s.ctrl.Shutdown()
				return nil
			}
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *simulator) tick(now time.Time) {
	if s.pin.Level && !now.Before(s.release) {
		s.pin.Level = false
	}
	s.ctrl.Tick(now)
	s.draw()
}

func (s *simulator) press(now time.Time) {
	s.pin.Level = true
	s.release = now.Add(s.holdFor)
}

// handleEvent applies one terminal event and reports whether to keep running.
func (s *simulator) handleEvent(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyLeft:
			s.encoder.Edge(false, now)
		case tcell.KeyRight:
			s.encoder.Edge(true, now)
		case tcell.KeyEnter:
			s.press(now)
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case ' ':
				s.press(now)
			case 'h', 'a':
				s.encoder.Edge(false, now)
			case 'l', 'd':
				s.encoder.Edge(true, now)
			case 'q', 'Q':
				return false
			}
		}
	case *tcell.EventResize:
		s.screen.Sync()
	}
	return true
}

func (s *simulator) draw() {
	s.screen.Clear()

	w, h := s.raster.Width(), s.raster.Height()
	contrast := float64(s.raster.Contrast()) / 255
	lit := colorful.Color{}.BlendRgb(oledColor, 0.25+0.75*contrast)
	oled := tcell.StyleDefault.Foreground(toTcell(lit)).Background(tcell.ColorBlack)

	// Each terminal cell shows two pixel rows.
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			r := halfBlock(s.raster.Bit(x, y), y+1 < h && s.raster.Bit(x, y+1))
			s.screen.SetContent(x, y/2, r, nil, oled)
		}
	}

	row := (h + 1) / 2
	sw, _ := s.screen.Size()
	if sw <= 0 {
		sw = w
	}
	for i, px := range s.leds.pixels {
		c := ledColor(px, s.leds.brightness)
		style := tcell.StyleDefault.Foreground(toTcell(c)).Background(tcell.ColorBlack)
		s.screen.SetContent(i%sw, row+1+i/sw, '●', nil, style)
	}
	row += 2 + (len(s.leds.pixels)+sw-1)/sw

	state := s.ctrl.State()
	first := color.Off
	if len(s.leds.pixels) > 0 {
		first = s.leds.pixels[0]
	}
	status := fmt.Sprintf("%s  output %d/255  led0 %s  frames %d",
		state.Mode, s.ctrl.RampLevel(), ledColor(first, s.leds.brightness).Hex(), s.leds.frames)
	drawText(s.screen, 0, row, status, tcell.StyleDefault)
	drawText(s.screen, 0, row+1, helpLine, tcell.StyleDefault.Dim(true))

	s.screen.Show()
}

func halfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}

// ledColor approximates how an RGBW pixel looks at the given brightness by
// adding the white channel to each color channel.
func ledColor(px color.RGBW, brightness uint8) colorful.Color {
	w := float64(px.W) / 255
	c := colorful.Color{
		R: float64(px.R)/255 + w,
		G: float64(px.G)/255 + w,
		B: float64(px.B)/255 + w,
	}.Clamped()

	k := float64(brightness) / 255
	return colorful.Color{R: c.R * k, G: c.G * k, B: c.B * k}
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
