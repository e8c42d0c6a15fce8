package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHostStatusString(t *testing.T) {
	tests := []struct {
		status HostStatus
		want   string
	}{
		{HostNormal, "normal"},
		{HostWarning, "warning"},
		{HostCritical, "critical"},
		{HostStatus(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("HostStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestHostThresholdsGrade(t *testing.T) {
	th := DefaultHostThresholds()

	tests := []struct {
		name   string
		sample HostSample
		want   HostStatus
	}{
		{"idle", HostSample{CPUPercent: 5, MemoryPercent: 30, Temperature: 45}, HostNormal},
		{"busy cpu", HostSample{CPUPercent: 90, MemoryPercent: 30}, HostWarning},
		{"memory critical", HostSample{CPUPercent: 5, MemoryPercent: 96}, HostCritical},
		{"warm", HostSample{Temperature: 72}, HostWarning},
		{"throttling", HostSample{Temperature: 80}, HostCritical},
		{"critical wins over warning", HostSample{CPUPercent: 90, Temperature: 85}, HostCritical},
		{"no sensor", HostSample{CPUPercent: 10, Temperature: 0}, HostNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.grade(&tt.sample); got != tt.want {
				t.Errorf("grade() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := (HostThresholds{}).grade(&HostSample{CPUPercent: 100, MemoryPercent: 100, Temperature: 100}); got != HostNormal {
		t.Errorf("zero thresholds should never trip, got %v", got)
	}
}

func TestHostCollectorCollect(t *testing.T) {
	if testing.Short() {
		t.Skip("reads host statistics")
	}

	c := NewHostCollector(DefaultHostThresholds())
	if c.Last() != nil {
		t.Fatal("Last() should be nil before the first sample")
	}

	sample, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if sample.MemoryPercent <= 0 || sample.MemoryPercent > 100 {
		t.Errorf("memory percent = %v", sample.MemoryPercent)
	}
	if sample.CPUPercent < 0 || sample.CPUPercent > 100 {
		t.Errorf("cpu percent = %v", sample.CPUPercent)
	}
	if c.Last() != sample {
		t.Error("Last() should return the latest sample")
	}
}

func TestHostHealthChecker(t *testing.T) {
	if testing.Short() {
		t.Skip("reads host statistics")
	}

	m := newTestMetrics(t, "")

	ok := NewHostHealthChecker(NewHostCollector(HostThresholds{}), m)
	if ok.Name() != "host" {
		t.Errorf("Name() = %q", ok.Name())
	}
	if err := ok.Check(context.Background()); err != nil {
		t.Errorf("Check() with no limits error = %v", err)
	}
	if testutil.ToFloat64(m.hostMemory) <= 0 {
		t.Error("host memory gauge should be recorded")
	}

	// Any machine running the test uses some memory.
	tight := NewHostHealthChecker(NewHostCollector(HostThresholds{MemoryCritical: 0.001}), nil)
	err := tight.Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "host critical") {
		t.Errorf("Check() error = %v, want host critical", err)
	}
	if errors.Is(err, ErrDegraded) {
		t.Error("critical must not be reported as degraded")
	}

	warm := NewHostHealthChecker(NewHostCollector(HostThresholds{MemoryWarning: 0.001}), nil)
	if err := warm.Check(context.Background()); !errors.Is(err, ErrDegraded) {
		t.Errorf("Check() error = %v, want degraded", err)
	}
}
