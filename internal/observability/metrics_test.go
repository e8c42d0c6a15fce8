package observability

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/timfallmk/glowstick/internal/logging"
)

func newTestMetrics(t *testing.T, textfile string) *Metrics {
	t.Helper()
	m := NewMetrics(logging.NewDiscardLogger(), textfile, time.Hour)
	t.Cleanup(m.Close)
	return m
}

func TestMetricsRecording(t *testing.T) {
	m := newTestMetrics(t, "")

	m.Tick(2*time.Millisecond, false)
	m.Tick(20*time.Millisecond, true)
	m.ModeChanged("menu", "hsv")
	m.ModeChanged("hsv", "menu")
	m.ModeChanged("menu", "hsv")
	m.SettingsSaved(nil)
	m.SettingsSaved(errors.New("short write"))
	m.EncoderSteps(-3)
	m.EncoderSteps(2)
	m.ButtonPressed()
	m.OutputBrightness(10)
	m.TransportError()
	m.DisplayBlanked()
	m.RecordConfigReload(true)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"ticks", testutil.ToFloat64(m.ticks), 2},
		{"overruns", testutil.ToFloat64(m.overruns), 1},
		{"mode changes to hsv", testutil.ToFloat64(m.modeChanges.WithLabelValues("hsv")), 2},
		{"successful saves", testutil.ToFloat64(m.saves.WithLabelValues("true")), 1},
		{"failed saves", testutil.ToFloat64(m.saves.WithLabelValues("false")), 1},
		{"encoder steps", testutil.ToFloat64(m.encoderSteps), 5},
		{"presses", testutil.ToFloat64(m.presses), 1},
		{"brightness", testutil.ToFloat64(m.outputBrightness), 10},
		{"transport errors", testutil.ToFloat64(m.transportErrors), 1},
		{"blanks", testutil.ToFloat64(m.displayBlanks), 1},
		{"reloads", testutil.ToFloat64(m.configReloads.WithLabelValues("true")), 1},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMetricsFlushWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector", "glowstick.prom")
	m := newTestMetrics(t, path)

	m.ButtonPressed()
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	text := string(content)
	for _, want := range []string{
		"glowstick_button_presses_total 1",
		"# TYPE glowstick_tick_duration_seconds histogram",
		"glowstick_uptime_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestMetricsFlushWithoutTextfileLogs(t *testing.T) {
	m := newTestMetrics(t, "")
	m.Tick(time.Millisecond, false)

	if err := m.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}

func TestMetricsStartClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glowstick.prom")
	m := NewMetrics(logging.NewDiscardLogger(), path, time.Hour)
	m.Start()
	m.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Close() should flush once: %v", err)
	}
}
