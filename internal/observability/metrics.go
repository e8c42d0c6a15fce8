package observability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"

	"github.com/timfallmk/glowstick/internal/logging"
)

const namespace = "glowstick"

// Metrics holds the control loop's prometheus collectors. Values are
// written to a node-exporter textfile, or logged when no path is set.
type Metrics struct {
	registry *prometheus.Registry

	ticks            prometheus.Counter
	tickDuration     prometheus.Histogram
	overruns         prometheus.Counter
	modeChanges      *prometheus.CounterVec
	saves            *prometheus.CounterVec
	encoderSteps     prometheus.Counter
	presses          prometheus.Counter
	outputBrightness prometheus.Gauge
	transportErrors  prometheus.Counter
	displayBlanks    prometheus.Counter
	configReloads    *prometheus.CounterVec
	healthChecks     *prometheus.CounterVec
	componentHealth  *prometheus.GaugeVec
	uptime           prometheus.Gauge
	hostCPU          prometheus.Gauge
	hostMemory       prometheus.Gauge
	hostLoad         prometheus.Gauge
	hostTemperature  prometheus.Gauge

	started time.Time

	textfile      string
	flushInterval time.Duration
	logger        *logging.MetricsLogger
	eventLogger   *logging.EventLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMetrics registers all collectors. Call Start to begin periodic flushing.
func NewMetrics(logger *logging.Logger, textfile string, flushInterval time.Duration) *Metrics {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if flushInterval <= 0 {
		flushInterval = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Control loop ticks executed.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tick_duration_seconds",
			Help:    "Time spent in one control loop tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tick_overruns_total",
			Help: "Ticks that took longer than the tick period.",
		}),
		modeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "mode_changes_total",
			Help: "Screen transitions by destination mode.",
		}, []string{"to"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "settings_saves_total",
			Help: "Settings record writes.",
		}, []string{"success"}),
		encoderSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "encoder_steps_total",
			Help: "Encoder detents consumed by the control loop.",
		}),
		presses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "button_presses_total",
			Help: "Debounced button presses.",
		}),
		outputBrightness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "output_brightness",
			Help: "Brightness last sent to the strip (0-255).",
		}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "transport_errors_total",
			Help: "Failed strip or display updates.",
		}),
		displayBlanks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "display_blanks_total",
			Help: "Idle timeouts that blanked the display.",
		}),
		configReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "config_reloads_total",
			Help: "Configuration file reloads.",
		}, []string{"success"}),
		healthChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "health_checks_total",
			Help: "Health checks run.",
		}, []string{"component", "healthy"}),
		componentHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "component_healthy",
			Help: "1 when the component's last health check passed.",
		}, []string{"component"}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "uptime_seconds",
			Help: "Seconds since the daemon started.",
		}),
		hostCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "cpu_percent",
			Help: "Host CPU usage at the last host health check.",
		}),
		hostMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "memory_percent",
			Help: "Host memory usage at the last host health check.",
		}),
		hostLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "load1",
			Help: "One minute load average.",
		}),
		hostTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "temperature_celsius",
			Help: "Hottest temperature sensor reading.",
		}),
		started:       time.Now(),
		textfile:      textfile,
		flushInterval: flushInterval,
		logger:        logging.NewMetricsLogger(logger),
		eventLogger:   logging.NewEventLogger(logger),
		ctx:           ctx,
		cancel:        cancel,
	}

	m.registry.MustRegister(
		m.ticks, m.tickDuration, m.overruns, m.modeChanges, m.saves,
		m.encoderSteps, m.presses, m.outputBrightness, m.transportErrors,
		m.displayBlanks, m.configReloads, m.healthChecks, m.componentHealth,
		m.uptime, m.hostCPU, m.hostMemory, m.hostLoad, m.hostTemperature,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Start begins the flush loop.
func (m *Metrics) Start() {
	m.wg.Add(1)
	go m.flushLoop()
}

// Close stops the flush loop after a final flush.
func (m *Metrics) Close() {
	m.cancel()
	m.wg.Wait()
	m.eventLogger.Close()
}

func (m *Metrics) Tick(d time.Duration, overrun bool) {
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	if overrun {
		m.overruns.Inc()
	}
}

func (m *Metrics) ModeChanged(from, to string) {
	m.modeChanges.WithLabelValues(to).Inc()
}

func (m *Metrics) SettingsSaved(err error) {
	m.saves.WithLabelValues(successLabel(err == nil)).Inc()
}

func (m *Metrics) EncoderSteps(n int) {
	if n < 0 {
		n = -n
	}
	m.encoderSteps.Add(float64(n))
}

func (m *Metrics) ButtonPressed() {
	m.presses.Inc()
}

func (m *Metrics) OutputBrightness(b uint8) {
	m.outputBrightness.Set(float64(b))
}

func (m *Metrics) TransportError() {
	m.transportErrors.Inc()
}

func (m *Metrics) DisplayBlanked() {
	m.displayBlanks.Inc()
}

// RecordConfigReload counts a reload attempt.
func (m *Metrics) RecordConfigReload(success bool) {
	m.configReloads.WithLabelValues(successLabel(success)).Inc()
}

// RecordHealthCheck counts a health check and sets the component gauge.
func (m *Metrics) RecordHealthCheck(component string, healthy bool, duration time.Duration) {
	m.healthChecks.WithLabelValues(component, successLabel(healthy)).Inc()
	v := 0.0
	if healthy {
		v = 1
	}
	m.componentHealth.WithLabelValues(component).Set(v)
}

// RecordHost sets the host gauges from a sample.
func (m *Metrics) RecordHost(s *HostSample) {
	m.hostCPU.Set(s.CPUPercent)
	m.hostMemory.Set(s.MemoryPercent)
	m.hostLoad.Set(s.Load1)
	m.hostTemperature.Set(s.Temperature)
}

func successLabel(ok bool) string {
	if ok {
		return "true"
	}
	return "false"
}

func (m *Metrics) flushLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.flush()
			return
		case <-ticker.C:
			m.flush()
		}
	}
}

func (m *Metrics) flush() {
	if err := m.Flush(); err != nil {
		m.eventLogger.LogError(err, "failed to flush metrics", map[string]interface{}{
			"textfile": m.textfile,
		})
	}
}

// Flush writes the current values once.
func (m *Metrics) Flush() error {
	m.uptime.Set(time.Since(m.started).Seconds())

	if m.textfile == "" {
		return m.logSnapshot()
	}
	if err := os.MkdirAll(filepath.Dir(m.textfile), 0755); err != nil {
		return fmt.Errorf("failed to create textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// logSnapshot logs the glowstick metrics through the metrics logger.
func (m *Metrics) logSnapshot() error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}

			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				m.logger.LogCounter(mf.GetName(), metric.GetCounter().GetValue(), labels)
			case dto.MetricType_GAUGE:
				m.logger.LogGauge(mf.GetName(), metric.GetGauge().GetValue(), labels)
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				m.logger.LogCounter(mf.GetName()+"_count", float64(h.GetSampleCount()), labels)
				m.logger.LogGauge(mf.GetName()+"_sum", h.GetSampleSum(), labels)
			}
		}
	}
	return nil
}
