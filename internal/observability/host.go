package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStatus grades a host sample against HostThresholds.
type HostStatus int

const (
	HostNormal HostStatus = iota
	HostWarning
	HostCritical
)

func (s HostStatus) String() string {
	switch s {
	case HostNormal:
		return "normal"
	case HostWarning:
		return "warning"
	case HostCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// HostThresholds are percent and degree limits. A zero limit is ignored.
type HostThresholds struct {
	CPUWarning          float64
	CPUCritical         float64
	MemoryWarning       float64
	MemoryCritical      float64
	TemperatureWarning  float64
	TemperatureCritical float64
}

// DefaultHostThresholds suit a Raspberry Pi class board, which throttles
// at 80°C.
func DefaultHostThresholds() HostThresholds {
	return HostThresholds{
		CPUWarning:          85,
		CPUCritical:         98,
		MemoryWarning:       85,
		MemoryCritical:      95,
		TemperatureWarning:  70,
		TemperatureCritical: 80,
	}
}

// HostSample is one reading of the machine driving the strip.
type HostSample struct {
	Timestamp     time.Time
	CPUPercent    float64
	MemoryPercent float64
	Load1         float64
	Uptime        time.Duration
	// Temperature is the hottest sensor in °C, zero when none report.
	Temperature float64
	Status      HostStatus
}

func (s *HostSample) String() string {
	return fmt.Sprintf("cpu %.1f%%, memory %.1f%%, temperature %.1f°C", s.CPUPercent, s.MemoryPercent, s.Temperature)
}

// HostCollector samples CPU, memory, load and temperature.
type HostCollector struct {
	mu         sync.RWMutex
	thresholds HostThresholds
	last       *HostSample
}

func NewHostCollector(thresholds HostThresholds) *HostCollector {
	return &HostCollector{thresholds: thresholds}
}

// Collect takes a sample. CPU and memory are required; load, uptime and
// temperature are best effort.
func (c *HostCollector) Collect(ctx context.Context) (*HostSample, error) {
	sample := &HostSample{Timestamp: time.Now()}

	percent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(percent) > 0 {
		sample.CPUPercent = percent[0]
	}

	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get virtual memory stats: %w", err)
	}
	sample.MemoryPercent = vmem.UsedPercent

	if avg, err := load.AvgWithContext(ctx); err == nil {
		sample.Load1 = avg.Load1
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		sample.Uptime = time.Duration(up) * time.Second
	}

	// Partial sensor failures come back as warnings alongside readings.
	temps, _ := host.SensorsTemperaturesWithContext(ctx)
	for _, t := range temps {
		if t.Temperature > sample.Temperature {
			sample.Temperature = t.Temperature
		}
	}

	c.mu.Lock()
	sample.Status = c.thresholds.grade(sample)
	c.last = sample
	c.mu.Unlock()

	return sample, nil
}

// Last returns the most recent sample, or nil.
func (c *HostCollector) Last() *HostSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (t HostThresholds) grade(s *HostSample) HostStatus {
	over := func(v, limit float64) bool { return limit > 0 && v >= limit }

	if over(s.CPUPercent, t.CPUCritical) || over(s.MemoryPercent, t.MemoryCritical) ||
		over(s.Temperature, t.TemperatureCritical) {
		return HostCritical
	}
	if over(s.CPUPercent, t.CPUWarning) || over(s.MemoryPercent, t.MemoryWarning) ||
		over(s.Temperature, t.TemperatureWarning) {
		return HostWarning
	}
	return HostNormal
}

// HostHealthChecker samples the host on every check. A warning grade is
// reported as degraded and a critical one fails. Samples are recorded to
// metrics when set.
type HostHealthChecker struct {
	collector *HostCollector
	metrics   *Metrics
}

func NewHostHealthChecker(collector *HostCollector, metrics *Metrics) *HostHealthChecker {
	return &HostHealthChecker{collector: collector, metrics: metrics}
}

func (h *HostHealthChecker) Name() string           { return "host" }
func (h *HostHealthChecker) Timeout() time.Duration { return 2 * time.Second }

func (h *HostHealthChecker) Check(ctx context.Context) error {
	sample, err := h.collector.Collect(ctx)
	if err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.RecordHost(sample)
	}
	switch sample.Status {
	case HostCritical:
		return fmt.Errorf("host critical: %s", sample)
	case HostWarning:
		return fmt.Errorf("%w: host %s", ErrDegraded, sample)
	}
	return nil
}
