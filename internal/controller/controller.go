// Package controller runs the glowstick control loop: it drains input,
// drives the menu state machine, renders the strip frame and keeps the
// status display up to date.
package controller

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timfallmk/glowstick/internal/animation"
	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/config"
	"github.com/timfallmk/glowstick/internal/display"
	"github.com/timfallmk/glowstick/internal/events"
	"github.com/timfallmk/glowstick/internal/input"
	"github.com/timfallmk/glowstick/internal/logging"
	"github.com/timfallmk/glowstick/internal/menu"
	"github.com/timfallmk/glowstick/internal/ramp"
	"github.com/timfallmk/glowstick/internal/settings"
	"github.com/timfallmk/glowstick/internal/strip"
)

const (
	DefaultLEDCount         = 84
	DefaultMasterBrightness = 10
	DefaultDisplayTimeout   = 15 * time.Second
	DefaultTickPeriod       = 10 * time.Millisecond
	DefaultSplashDuration   = 800 * time.Millisecond
)

// Config holds the loop's tunables.
type Config struct {
	LEDCount         int
	MasterBrightness uint8
	Correction       color.Correction
	RampStep         uint8
	Sectors          int
	VisibleLines     int
	DisplayTimeout   time.Duration
	TickPeriod       time.Duration
	SplashDuration   time.Duration
	Version          string
}

// ConfigFrom maps the file configuration onto loop tunables.
func ConfigFrom(cfg *config.Config, version string) Config {
	return Config{
		LEDCount:         cfg.LED.Count,
		MasterBrightness: cfg.LED.MasterBrightness,
		Correction:       cfg.LED.Correction,
		RampStep:         cfg.LED.RampStep,
		Sectors:          cfg.LED.Sectors,
		VisibleLines:     cfg.Display.VisibleLines,
		DisplayTimeout:   cfg.Display.Timeout,
		TickPeriod:       cfg.Loop.TickPeriod,
		SplashDuration:   DefaultSplashDuration,
		Version:          version,
	}
}

// Recorder receives loop measurements. observability.Metrics implements it.
type Recorder interface {
	Tick(d time.Duration, overrun bool)
	ModeChanged(from, to string)
	SettingsSaved(err error)
	EncoderSteps(n int)
	ButtonPressed()
	OutputBrightness(b uint8)
	TransportError()
	DisplayBlanked()
}

// Deps are the collaborators the loop drives. Bus, Metrics, Logger and
// Rand may be nil.
type Deps struct {
	Encoder   *input.Encoder
	Button    input.ButtonPin
	Debounce  time.Duration
	Gateway   *settings.Gateway
	Transport strip.Transport
	Canvas    display.Canvas
	Bus       *events.Bus
	Metrics   Recorder
	Logger    *logging.Logger
	Rand      *rand.Rand
}

// Controller owns the device state. Tick is not safe for concurrent use;
// the setters and State may be called from other goroutines.
type Controller struct {
	cfg Config

	mu       sync.Mutex
	state    menu.State
	nav      *menu.Navigator
	encoder  *input.Encoder
	button   *input.Button
	pin      input.ButtonPin
	engine   *animation.Engine
	ramp     *ramp.Ramp
	gateway  *settings.Gateway
	out      strip.Transport
	canvas   display.Canvas
	renderer *display.Renderer
	bus      *events.Bus
	metrics  Recorder
	logger   *logging.Logger
	events   *logging.EventLogger

	buf     []color.RGBW
	palette []color.RGBW

	start         time.Time
	splashUntil   time.Time
	lastRedraw    time.Time
	blanked       bool
	contrast      uint8
	outputFailing bool

	lastTick atomic.Int64
}

// DefaultSettings is the record written on first boot.
func DefaultSettings() settings.Settings {
	return settings.Settings{
		HSV:               menu.DefaultHSV,
		White:             menu.DefaultWhite,
		DisplayBrightness: menu.DefaultDisplayBrightness,
	}
}

// New wires a controller. Call Init before the first Tick.
func New(cfg Config, deps Deps) *Controller {
	if cfg.LEDCount <= 0 {
		cfg.LEDCount = DefaultLEDCount
	}
	if cfg.Correction == (color.Correction{}) {
		cfg.Correction = color.TypicalSMD5050
	}
	if cfg.DisplayTimeout <= 0 {
		cfg.DisplayTimeout = DefaultDisplayTimeout
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.SplashDuration < 0 {
		cfg.SplashDuration = 0
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	pin := deps.Button
	if pin == nil {
		pin = &input.StaticPin{}
	}
	enc := deps.Encoder
	if enc == nil {
		enc = input.NewEncoder(input.DefaultEncoderConfig())
	}
	debounce := deps.Debounce
	if debounce <= 0 {
		debounce = input.DefaultDebounce
	}
	out := deps.Transport
	if out == nil {
		out = &strip.Noop{}
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Controller{
		cfg:      cfg,
		state:    menu.DefaultState(),
		nav:      menu.NewNavigator(cfg.VisibleLines),
		encoder:  enc,
		button:   input.NewButton(debounce),
		pin:      pin,
		engine:   animation.NewEngine(cfg.Sectors, rng),
		ramp:     ramp.New(cfg.RampStep),
		gateway:  deps.Gateway,
		out:      out,
		canvas:   deps.Canvas,
		renderer: display.NewRenderer(cfg.VisibleLines),
		bus:      deps.Bus,
		metrics:  metrics,
		logger:   logger.WithComponent("controller"),
		events:   logging.NewEventLogger(logger),
		buf:      make([]color.RGBW, cfg.LEDCount),
		palette:  make([]color.RGBW, cfg.LEDCount),
	}
}

// Init loads persisted settings, sets the display contrast and shows the
// splash screen. A settings read failure falls back to defaults.
func (c *Controller) Init(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gateway != nil {
		s, firstBoot, err := c.gateway.Load()
		if err != nil {
			c.events.LogError(err, "failed to load settings, using defaults", nil)
		} else {
			c.state.HSV = s.HSV
			c.state.White = s.White
			c.state.DisplayBrightness = s.DisplayBrightness
			c.events.LogSettings(logging.LevelInfo, "settings loaded", firstBoot, map[string]interface{}{
				"hsv":                s.HSV,
				"white":              s.White,
				"display_brightness": s.DisplayBrightness,
			})
			if firstBoot {
				c.publish(events.SettingsSavedEvent{Settings: s, FirstBoot: true, Timestamp: now})
			}
		}
	}

	c.start = now
	c.lastRedraw = now
	c.splashUntil = now.Add(c.cfg.SplashDuration)
	c.state.NeedsRedraw = true

	animation.Fill(c.buf, color.Off)
	if err := c.out.Show(c.buf, 0); err != nil {
		c.outputError(err)
	}

	if c.canvas != nil {
		c.applyContrast()
		if err := c.renderer.Splash(c.canvas, c.cfg.Version); err != nil {
			c.logger.Warn("failed to draw splash screen", "error", err)
		}
	}
	c.lastTick.Store(now.UnixNano())
}

// Tick runs one iteration of the control loop.
func (c *Controller) Tick(now time.Time) {
	wall := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.lastTick.Store(now.UnixNano())

	if now.Before(c.splashUntil) {
		return
	}

	if steps, scale := c.encoder.Sample(); steps != 0 {
		c.nav.Rotate(&c.state, steps, scale)
		c.metrics.EncoderSteps(steps)
		c.events.LogInput(logging.LevelDebug, "encoder moved", "encoder", map[string]interface{}{
			"steps": steps,
			"scale": scale,
		})
	}

	if c.button.Sample(now, c.pin.Pressed()) {
		c.metrics.ButtonPressed()
		c.handle(now, c.nav.Press(&c.state))
	}

	live := c.state.Mode.Live()
	if live {
		c.render(now)
	}
	c.ramp.Step(live)
	level := c.ramp.Scale(c.cfg.MasterBrightness)

	if err := c.out.Show(c.buf, level); err != nil {
		c.outputError(err)
	} else if c.outputFailing {
		c.outputFailing = false
		c.events.LogStrip(logging.LevelInfo, "strip output recovered", fmt.Sprintf("%T", c.out), nil)
	}
	c.metrics.OutputBrightness(level)

	if c.canvas != nil {
		c.updateDisplay(now)
	}

	elapsed := time.Since(wall)
	c.metrics.Tick(elapsed, elapsed > c.cfg.TickPeriod)
}

func (c *Controller) handle(now time.Time, o menu.Outcome) {
	if o.Save {
		c.save(now)
	}
	if o.Changed() {
		c.metrics.ModeChanged(o.From.String(), o.To.String())
		c.events.LogMenu(logging.LevelDebug, "screen changed", o.From.String(), o.To.String(), nil)
		c.publish(events.ModeChangedEvent{From: o.From.String(), To: o.To.String(), Timestamp: now})
	}
}

func (c *Controller) save(now time.Time) {
	if c.gateway == nil {
		return
	}
	s := settings.Settings{
		HSV:               c.state.HSV,
		White:             c.state.White,
		DisplayBrightness: c.state.DisplayBrightness,
	}
	err := c.gateway.Save(s)
	c.metrics.SettingsSaved(err)
	if err != nil {
		c.events.LogError(err, "failed to save settings", nil)
		return
	}
	c.events.LogSettings(logging.LevelDebug, "settings saved", false, nil)
	c.publish(events.SettingsSavedEvent{Settings: s, Timestamp: now})
}

// render fills the frame buffer for the current light view.
func (c *Controller) render(now time.Time) {
	corr := c.cfg.Correction
	switch c.state.Mode {
	case menu.ModeHSV:
		animation.Fill(c.buf, color.HSVToRGBW(c.state.HSV, corr))
	case menu.ModeWhite:
		animation.Fill(c.buf, color.White(c.state.White))
	case menu.ModeGradient:
		animation.RenderGradient(c.buf, c.state.Gradient, corr)
	case menu.ModeAnimation:
		c.state.Palette(c.palette, corr)
		f := animation.NewFrame(now.Sub(c.start), c.state.Params, c.palette, corr)
		c.engine.Render(c.state.Animation, f, c.buf)
	}
}

func (c *Controller) updateDisplay(now time.Time) {
	if c.state.DisplayBrightness != c.contrast {
		c.applyContrast()
	}

	if c.state.NeedsRedraw {
		if err := c.renderer.Draw(&c.state, c.canvas); err != nil {
			c.metrics.TransportError()
			c.logger.Warn("failed to redraw display", "mode", c.state.Mode.String(), "error", err)
		}
		c.state.NeedsRedraw = false
		c.lastRedraw = now
		c.blanked = false
		return
	}

	if idle := now.Sub(c.lastRedraw); !c.blanked && idle > c.cfg.DisplayTimeout {
		if err := c.canvas.Blank(); err != nil {
			c.logger.Warn("failed to blank display", "error", err)
		}
		c.blanked = true
		c.metrics.DisplayBlanked()
		c.publish(events.DisplayBlankedEvent{Idle: idle, Timestamp: now})
	}
}

func (c *Controller) applyContrast() {
	c.contrast = c.state.DisplayBrightness
	if err := c.canvas.SetContrast(display.Contrast(c.contrast)); err != nil {
		c.logger.Warn("failed to set display contrast", "error", err)
	}
}

func (c *Controller) outputError(err error) {
	c.metrics.TransportError()
	if !c.outputFailing {
		c.outputFailing = true
		c.events.LogStrip(logging.LevelWarn, "strip output failed", fmt.Sprintf("%T", c.out), map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

// Run ticks every period until ctx is done, then turns the strip off and
// blanks the display.
func (c *Controller) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = c.cfg.TickPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	c.logger.Info("control loop started", "period", period, "leds", c.cfg.LEDCount)
	for {
		select {
		case <-ctx.Done():
			c.Shutdown()
			c.logger.Info("control loop stopped")
			return nil
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

// Shutdown turns the strip off and blanks the display.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	animation.Fill(c.buf, color.Off)
	c.ramp.Set(0)
	if err := c.out.Show(c.buf, 0); err != nil {
		c.logger.Debug("failed to clear strip on shutdown", "error", err)
	}
	if c.canvas != nil {
		if err := c.canvas.Blank(); err != nil {
			c.logger.Debug("failed to blank display on shutdown", "error", err)
		}
	}
	c.events.Close()
}

// SetMasterBrightness changes the strip's full-scale brightness.
func (c *Controller) SetMasterBrightness(b uint8) {
	c.mu.Lock()
	c.cfg.MasterBrightness = b
	c.mu.Unlock()
}

// SetCorrection changes the color correction used for new frames.
func (c *Controller) SetCorrection(corr color.Correction) {
	c.mu.Lock()
	c.cfg.Correction = corr
	c.mu.Unlock()
}

// State returns a copy of the device state.
func (c *Controller) State() menu.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RampLevel is the current brightness ramp state.
func (c *Controller) RampLevel() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ramp.Level()
}

// LastTick is the timestamp of the last Tick, for liveness checks.
func (c *Controller) LastTick() time.Time {
	ns := c.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

type nopRecorder struct{}

func (nopRecorder) Tick(time.Duration, bool)  {}
func (nopRecorder) ModeChanged(string, string) {}
func (nopRecorder) SettingsSaved(error)        {}
func (nopRecorder) EncoderSteps(int)           {}
func (nopRecorder) ButtonPressed()             {}
func (nopRecorder) OutputBrightness(uint8)     {}
func (nopRecorder) TransportError()            {}
func (nopRecorder) DisplayBlanked()            {}
