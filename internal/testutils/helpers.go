package testutils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/config"
	"github.com/timfallmk/glowstick/internal/display"
)

// CreateTempConfig writes configData to a config file in a test temp dir.
func CreateTempConfig(t *testing.T, configData string) string {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "test_config.yaml")
	if err := os.WriteFile(configFile, []byte(configData), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configFile
}

// CreateTestConfig returns defaults with hardware disabled and storage in
// a temp dir.
func CreateTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Input.Backend = "none"
	cfg.Display.Driver = "none"
	cfg.Strip.Transport = "none"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "eeprom.bin")
	cfg.Metrics.Enabled = false
	cfg.Loop.TickPeriod = time.Millisecond
	return cfg
}

// CreateTestConfigYAML returns a headless configuration in YAML form.
func CreateTestConfigYAML() string {
	return `
led:
  count: 16
  master_brightness: 40
  correction: {r: 255, g: 176, b: 240}
  ramp_step: 8
  sectors: 6

input:
  backend: "none"
  debounce: 20ms
  coarse_threshold: 60ms

display:
  driver: "none"
  visible_lines: 3
  timeout: 15s

strip:
  transport: "none"

loop:
  tick_period: 10ms

metrics:
  enabled: false

logging:
  level: "debug"
  format: "text"
`
}

// Op is one recorded canvas call.
type Op struct {
	Name  string
	Args  []int
	Text  string
	Color display.DrawColor
}

// RecordingCanvas is a display.Canvas that records every drawing intent.
type RecordingCanvas struct {
	mu       sync.Mutex
	W, H     int
	ops      []Op
	color    display.DrawColor
	Contrast uint8
	Flushes  int
	Blanks   int
	FlushErr error
}

// NewRecordingCanvas creates a 128x32 canvas.
func NewRecordingCanvas() *RecordingCanvas {
	return &RecordingCanvas{W: 128, H: 32, color: display.ColorSet}
}

func (c *RecordingCanvas) Width() int  { return c.W }
func (c *RecordingCanvas) Height() int { return c.H }

func (c *RecordingCanvas) record(name, text string, args ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, Op{Name: name, Args: args, Text: text, Color: c.color})
}

// Clear starts a new frame; previous ops are dropped.
func (c *RecordingCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = nil
}

func (c *RecordingCanvas) SetDrawColor(col display.DrawColor) {
	c.mu.Lock()
	c.color = col
	c.mu.Unlock()
}

func (c *RecordingCanvas) DrawText(x, y int, s string) { c.record("text", s, x, y) }
func (c *RecordingCanvas) DrawBox(x, y, w, h int)      { c.record("box", "", x, y, w, h) }
func (c *RecordingCanvas) DrawFrame(x, y, w, h int)    { c.record("frame", "", x, y, w, h) }

func (c *RecordingCanvas) DrawTriangle(x0, y0, x1, y1, x2, y2 int) {
	c.record("triangle", "", x0, y0, x1, y1, x2, y2)
}

func (c *RecordingCanvas) SetContrast(level uint8) error {
	c.mu.Lock()
	c.Contrast = level
	c.mu.Unlock()
	return nil
}

func (c *RecordingCanvas) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Flushes++
	return c.FlushErr
}

func (c *RecordingCanvas) Blank() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = nil
	c.Blanks++
	return nil
}

// Ops returns the calls made since the last Clear or Blank.
func (c *RecordingCanvas) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Op(nil), c.ops...)
}

// Find returns the recorded ops with the given name.
func (c *RecordingCanvas) Find(name string) []Op {
	var out []Op
	for _, op := range c.Ops() {
		if op.Name == name {
			out = append(out, op)
		}
	}
	return out
}

// Texts returns the strings drawn in order.
func (c *RecordingCanvas) Texts() []string {
	var out []string
	for _, op := range c.Find("text") {
		out = append(out, op.Text)
	}
	return out
}

// HasText reports whether a drawn string contains s.
func (c *RecordingCanvas) HasText(s string) bool {
	for _, text := range c.Texts() {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// CaptureTransport is a strip.Transport that keeps every frame.
type CaptureTransport struct {
	mu         sync.Mutex
	Frames     [][]color.RGBW
	Brightness []uint8
	Err        error
	Closed     bool
	KeepFrames bool
	frameCount int
	lastPixels []color.RGBW
	lastBright uint8
}

func (t *CaptureTransport) Show(pixels []color.RGBW, brightness uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.frameCount++
	t.lastPixels = append(t.lastPixels[:0], pixels...)
	t.lastBright = brightness
	t.Brightness = append(t.Brightness, brightness)
	if t.KeepFrames {
		t.Frames = append(t.Frames, append([]color.RGBW(nil), pixels...))
	}
	return nil
}

func (t *CaptureTransport) Close() error {
	t.mu.Lock()
	t.Closed = true
	t.mu.Unlock()
	return nil
}

// Last returns a copy of the most recent frame and its brightness.
func (t *CaptureTransport) Last() ([]color.RGBW, uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]color.RGBW(nil), t.lastPixels...), t.lastBright
}

// Count is the number of frames shown.
func (t *CaptureTransport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frameCount
}

// ScriptedPin is an input.ButtonPin whose level the test sets.
type ScriptedPin struct {
	mu    sync.Mutex
	level bool
}

func (p *ScriptedPin) Set(pressed bool) {
	p.mu.Lock()
	p.level = pressed
	p.mu.Unlock()
}

func (p *ScriptedPin) Pressed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// AssertDurationEqual asserts that two durations are equal within a tolerance
func AssertDurationEqual(t *testing.T, actual, expected, tolerance time.Duration, msg string) {
	t.Helper()

	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}

	if diff > tolerance {
		t.Errorf("%s: actual=%v, expected=%v (tolerance=%v)", msg, actual, expected, tolerance)
	}
}

// SkipIfShort skips a test if running in short mode
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()

	if testing.Short() {
		t.Skipf("Skipping test in short mode: %s", reason)
	}
}

// WaitForCondition waits for a condition to become true within a timeout
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(1 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, message)
}

// ExpectError asserts that an error is not nil and optionally contains a message
func ExpectError(t *testing.T, err error, expectedMessage string) {
	t.Helper()

	if err == nil {
		t.Error("Expected error but got nil")
		return
	}

	if expectedMessage != "" && !strings.Contains(err.Error(), expectedMessage) {
		t.Errorf("Expected error containing '%s', got '%s'", expectedMessage, err.Error())
	}
}

// ExpectNoError asserts that an error is nil
func ExpectNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Errorf("Expected no error but got: %v", err)
	}
}
