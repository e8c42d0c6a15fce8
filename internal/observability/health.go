package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/timfallmk/glowstick/internal/logging"
)

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusUnknown   HealthStatus = "unknown"
	StatusStarting  HealthStatus = "starting"
)

// rank orders statuses for the overall verdict; the highest wins.
func (s HealthStatus) rank() int {
	switch s {
	case StatusUnhealthy:
		return 4
	case StatusDegraded:
		return 3
	case StatusStarting:
		return 2
	case StatusHealthy:
		return 1
	default:
		return 0
	}
}

// ErrDegraded marks a check result that is reported without failing the
// component. Wrap it: fmt.Errorf("%w: running warm", ErrDegraded).
var ErrDegraded = errors.New("degraded")

// HealthCheck is the last result of one checker.
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

type HealthChecker interface {
	Check(ctx context.Context) error
	Name() string
	Timeout() time.Duration
}

const (
	defaultCheckTimeout = 5 * time.Second
	maxParallelChecks   = 4
)

type monitored struct {
	checker HealthChecker
	last    HealthCheck
}

// HealthMonitor runs registered checkers every interval and keeps the last
// result of each, in registration order.
type HealthMonitor struct {
	mu      sync.RWMutex
	checks  map[string]*monitored
	order   []string
	metrics *Metrics
	events  *logging.EventLogger

	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewHealthMonitor creates a monitor. metrics may be nil. A non-positive
// interval falls back to one second.
func NewHealthMonitor(logger *logging.Logger, metrics *Metrics, interval time.Duration) *HealthMonitor {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	events := logging.NewEventLogger(logger)

	if interval <= 0 {
		events.LogDaemon(logging.LevelWarn, "invalid health check interval, using 1s", "validate", map[string]interface{}{
			"interval": interval.String(),
		})
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &HealthMonitor{
		checks:   make(map[string]*monitored),
		metrics:  metrics,
		events:   events,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterChecker adds checker in the starting state. Registering a name
// again replaces the checker and keeps its position.
func (hm *HealthMonitor) RegisterChecker(checker HealthChecker) {
	name := checker.Name()

	hm.mu.Lock()
	if _, ok := hm.checks[name]; !ok {
		hm.order = append(hm.order, name)
	}
	hm.checks[name] = &monitored{
		checker: checker,
		last:    HealthCheck{Name: name, Status: StatusStarting, LastChecked: time.Now()},
	}
	hm.mu.Unlock()

	hm.events.LogDaemon(logging.LevelDebug, "health checker registered", "register", map[string]interface{}{
		"checker": name,
	})
}

func (hm *HealthMonitor) Start() {
	hm.wg.Add(1)
	go func() {
		defer hm.wg.Done()

		ticker := time.NewTicker(hm.interval)
		defer ticker.Stop()

		for {
			hm.runAll()
			select {
			case <-hm.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	hm.events.LogDaemon(logging.LevelInfo, "health monitor started", "start", map[string]interface{}{
		"interval": hm.interval.String(),
	})
}

func (hm *HealthMonitor) Stop() {
	hm.cancel()
	hm.wg.Wait()

	hm.events.LogDaemon(logging.LevelInfo, "health monitor stopped", "stop", nil)
	hm.events.Close()
}

// GetHealth returns a copy of the latest results keyed by checker name.
func (hm *HealthMonitor) GetHealth() map[string]*HealthCheck {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	out := make(map[string]*HealthCheck, len(hm.checks))
	for name, m := range hm.checks {
		c := m.last
		out[name] = &c
	}
	return out
}

// Report returns the latest results in registration order.
func (hm *HealthMonitor) Report() []HealthCheck {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	out := make([]HealthCheck, 0, len(hm.order))
	for _, name := range hm.order {
		out = append(out, hm.checks[name].last)
	}
	return out
}

// GetOverallHealth is the worst component status: unhealthy, then
// degraded, then starting. No checkers is unknown.
func (hm *HealthMonitor) GetOverallHealth() HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	overall := StatusUnknown
	for _, m := range hm.checks {
		if m.last.Status.rank() > overall.rank() {
			overall = m.last.Status
		}
	}
	return overall
}

// IsHealthy is true when every component passed, degraded ones included.
func (hm *HealthMonitor) IsHealthy() bool {
	s := hm.GetOverallHealth()
	return s == StatusHealthy || s == StatusDegraded
}

// CheckNow runs every checker once and waits for the results.
func (hm *HealthMonitor) CheckNow() {
	hm.runAll()
}

func (hm *HealthMonitor) runAll() {
	if hm.ctx.Err() != nil {
		return
	}

	hm.mu.RLock()
	checkers := make([]HealthChecker, 0, len(hm.order))
	for _, name := range hm.order {
		checkers = append(checkers, hm.checks[name].checker)
	}
	hm.mu.RUnlock()

	sem := make(chan struct{}, maxParallelChecks)
	var wg sync.WaitGroup
	for _, c := range checkers {
		select {
		case sem <- struct{}{}:
		case <-hm.ctx.Done():
			wg.Wait()
			return
		}
		wg.Add(1)
		go func(c HealthChecker) {
			defer func() { <-sem; wg.Done() }()
			hm.run(c)
		}(c)
	}
	wg.Wait()
}

func (hm *HealthMonitor) run(checker HealthChecker) {
	timeout := checker.Timeout()
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(hm.ctx, timeout)
	defer cancel()

	start := time.Now()
	err := checker.Check(ctx)
	result := HealthCheck{
		Name:        checker.Name(),
		Status:      statusOf(err),
		Message:     "OK",
		LastChecked: time.Now(),
		Duration:    time.Since(start),
	}
	if err != nil {
		result.Message = err.Error()
		result.Error = err.Error()
	}

	hm.mu.Lock()
	m, ok := hm.checks[result.Name]
	if !ok || m.checker != checker {
		// Replaced or removed while running.
		hm.mu.Unlock()
		return
	}
	previous := m.last.Status
	m.last = result
	hm.mu.Unlock()

	if hm.metrics != nil {
		hm.metrics.RecordHealthCheck(result.Name, result.Status != StatusUnhealthy, result.Duration)
	}

	level := logging.LevelDebug
	if previous != result.Status {
		level = logging.LevelInfo
		if result.Status != StatusHealthy {
			level = logging.LevelWarn
		}
	}
	hm.events.LogDaemon(level, "health check completed", "health_check", map[string]interface{}{
		"checker":  result.Name,
		"status":   string(result.Status),
		"previous": string(previous),
		"duration": result.Duration.String(),
		"error":    result.Error,
	})
}

func statusOf(err error) HealthStatus {
	switch {
	case err == nil:
		return StatusHealthy
	case errors.Is(err, ErrDegraded):
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// FuncHealthChecker adapts a function into a HealthChecker.
type FuncHealthChecker struct {
	name     string
	testFunc func(ctx context.Context) error
	timeout  time.Duration
}

// NewFuncHealthChecker wraps testFunc. A nil testFunc always fails.
func NewFuncHealthChecker(name string, timeout time.Duration, testFunc func(ctx context.Context) error) *FuncHealthChecker {
	return &FuncHealthChecker{
		name:     name,
		testFunc: testFunc,
		timeout:  timeout,
	}
}

func (f *FuncHealthChecker) Name() string           { return f.name }
func (f *FuncHealthChecker) Timeout() time.Duration { return f.timeout }

func (f *FuncHealthChecker) Check(ctx context.Context) error {
	if f.testFunc == nil {
		return fmt.Errorf("no test function provided")
	}
	return f.testFunc(ctx)
}

// LoopHealthChecker fails when the control loop has not ticked recently.
type LoopHealthChecker struct {
	lastTick func() time.Time
	maxAge   time.Duration
	now      func() time.Time
}

func NewLoopHealthChecker(lastTick func() time.Time, maxAge time.Duration) *LoopHealthChecker {
	return &LoopHealthChecker{lastTick: lastTick, maxAge: maxAge, now: time.Now}
}

func (l *LoopHealthChecker) Name() string           { return "control_loop" }
func (l *LoopHealthChecker) Timeout() time.Duration { return time.Second }

func (l *LoopHealthChecker) Check(ctx context.Context) error {
	last := l.lastTick()
	if last.IsZero() {
		return fmt.Errorf("control loop has not ticked yet")
	}
	if age := l.now().Sub(last); age > l.maxAge {
		return fmt.Errorf("last tick %v ago exceeds %v", age.Round(time.Millisecond), l.maxAge)
	}
	return nil
}

// MemoryHealthChecker fails when the process RSS exceeds a limit.
type MemoryHealthChecker struct {
	name           string
	maxMemoryBytes uint64
	timeout        time.Duration
	pid            int32
}

func NewMemoryHealthChecker(name string, maxMemoryBytes uint64) *MemoryHealthChecker {
	return &MemoryHealthChecker{
		name:           name,
		maxMemoryBytes: maxMemoryBytes,
		timeout:        time.Second,
		pid:            int32(os.Getpid()),
	}
}

func (m *MemoryHealthChecker) Name() string           { return m.name }
func (m *MemoryHealthChecker) Timeout() time.Duration { return m.timeout }

func (m *MemoryHealthChecker) Check(ctx context.Context) error {
	proc, err := process.NewProcessWithContext(ctx, m.pid)
	if err != nil {
		return fmt.Errorf("failed to inspect process %d: %w", m.pid, err)
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read memory info: %w", err)
	}
	if info.RSS > m.maxMemoryBytes {
		return fmt.Errorf("rss %d bytes exceeds limit %d", info.RSS, m.maxMemoryBytes)
	}
	return nil
}

// DiskSpaceHealthChecker fails when the filesystem holding path has less
// than minFreeBytes available.
type DiskSpaceHealthChecker struct {
	name         string
	path         string
	minFreeBytes uint64
	timeout      time.Duration
}

func NewDiskSpaceHealthChecker(name, path string, minFreeBytes uint64) *DiskSpaceHealthChecker {
	return &DiskSpaceHealthChecker{
		name:         name,
		path:         path,
		minFreeBytes: minFreeBytes,
		timeout:      2 * time.Second,
	}
}

func (d *DiskSpaceHealthChecker) Name() string           { return d.name }
func (d *DiskSpaceHealthChecker) Timeout() time.Duration { return d.timeout }

func (d *DiskSpaceHealthChecker) Check(ctx context.Context) error {
	usage, err := DiskUsageOf(d.path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", d.path, err)
	}
	if usage.Free < d.minFreeBytes {
		return fmt.Errorf("%d bytes free on %s, need %d", usage.Free, d.path, d.minFreeBytes)
	}
	return nil
}

// DiskUsage is the size of a filesystem in bytes.
type DiskUsage struct {
	Total uint64
	Free  uint64
}
