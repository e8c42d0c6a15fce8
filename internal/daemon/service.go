// Package daemon assembles the glowstick controller from configuration and
// runs it as a foreground process or system service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/takama/daemon"

	"github.com/timfallmk/glowstick/internal/animation"
	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/config"
	"github.com/timfallmk/glowstick/internal/controller"
	"github.com/timfallmk/glowstick/internal/display"
	"github.com/timfallmk/glowstick/internal/events"
	"github.com/timfallmk/glowstick/internal/input"
	"github.com/timfallmk/glowstick/internal/logging"
	"github.com/timfallmk/glowstick/internal/observability"
	"github.com/timfallmk/glowstick/internal/settings"
	"github.com/timfallmk/glowstick/internal/strip"
)

const (
	healthInterval  = 5 * time.Second
	maxMemoryBytes  = 256 << 20
	minStorageBytes = 1 << 20
)

type Service struct {
	daemon.Daemon
	config     *config.Config
	configPath string
	version    string

	logger *logging.Logger
	events *logging.EventLogger

	encoder    *input.Encoder
	button     input.ButtonPin
	closers    []io.Closer
	canvas     display.Canvas
	transport  strip.Transport
	medium     *settings.FileMedium
	bus        *events.Bus
	metrics    *observability.Metrics
	health     *observability.HealthMonitor
	watcher    *config.Watcher[*config.Config]
	controller *controller.Controller
	unsubs     []func()

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option customizes a Service.
type Option func(*Service)

// WithConfigPath enables reloads from path on SIGHUP and file changes.
func WithConfigPath(path string) Option {
	return func(s *Service) { s.configPath = path }
}

// WithVersion sets the firmware version shown on the splash screen.
func WithVersion(v string) Option {
	return func(s *Service) { s.version = v }
}

// WithLogger replaces the default discard logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	d, err := daemon.New(cfg.Daemon.Name, cfg.Daemon.Description, daemon.SystemDaemon, "run")
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	service := &Service{
		Daemon:  d,
		config:  cfg,
		version: "dev",
		logger:  logging.NewDiscardLogger(),
		ctx:     ctx,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(service)
	}
	service.logger = service.logger.WithComponent("daemon")
	service.events = logging.NewEventLogger(service.logger)

	return service, nil
}

// Initialize opens every collaborator named in the configuration and builds
// the controller. On error everything opened so far is closed again.
func (s *Service) Initialize() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("initializing glowstick daemon",
		"input", s.config.Input.Backend,
		"display", s.config.Display.Driver,
		"strip", s.config.Strip.Transport)

	defer func() {
		if err != nil {
			s.closeHardware()
		}
	}()

	if err := s.openInput(); err != nil {
		return err
	}
	if err := s.openDisplay(); err != nil {
		return err
	}

	s.transport, err = strip.Open(strip.Options{
		Transport:    s.config.Strip.Transport,
		Count:        s.config.LED.Count,
		Port:         s.config.Strip.Port,
		BaudRate:     s.config.Strip.BaudRate,
		AutoDiscover: s.config.Strip.AutoDiscover,
		Timeout:      s.config.Strip.Timeout,
		GPIOPin:      s.config.Strip.GPIOPin,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open LED strip: %w", err)
	}

	s.medium, err = settings.OpenFile(s.config.Storage.Path, s.config.Storage.Size)
	if err != nil {
		return fmt.Errorf("failed to open settings storage: %w", err)
	}

	if s.config.Metrics.Enabled {
		s.metrics = observability.NewMetrics(s.logger, s.config.Metrics.TextfilePath, s.config.Metrics.FlushInterval)
	}

	s.bus = events.New()
	s.subscribe()

	deps := controller.Deps{
		Encoder:   s.encoder,
		Button:    s.button,
		Debounce:  s.config.Input.Debounce,
		Gateway:   settings.NewGateway(s.medium, s.config.Storage.Offset, controller.DefaultSettings()),
		Transport: s.transport,
		Canvas:    s.canvas,
		Bus:       s.bus,
		Logger:    s.logger,
	}
	if s.metrics != nil {
		deps.Metrics = s.metrics
	}
	s.controller = controller.New(controller.ConfigFrom(s.config, s.version), deps)

	s.health = observability.NewHealthMonitor(s.logger, s.metrics, healthInterval)
	s.registerHealthCheckers()

	s.logger.Info("daemon initialized")
	return nil
}

func (s *Service) openInput() error {
	in := s.config.Input
	s.encoder = input.NewEncoder(input.EncoderConfig{
		Debounce:        in.Debounce,
		CoarseThreshold: in.CoarseThreshold,
		FineScale:       in.FineScale,
		CoarseScale:     in.CoarseScale,
	})

	switch in.Backend {
	case "gpio":
		src, err := input.NewGPIOSource(input.GPIOConfig{
			Chip:      in.Chip,
			PinA:      in.PinA,
			PinB:      in.PinB,
			PinButton: in.PinButton,
		}, s.encoder, s.logger)
		if err != nil {
			return fmt.Errorf("failed to open GPIO input: %w", err)
		}
		s.button = src
		s.closers = append(s.closers, src)
	case "evdev":
		src, err := input.NewEvdevSource(input.EvdevConfig{
			EncoderDevice: in.EncoderDevice,
			ButtonDevice:  in.ButtonDevice,
			ButtonCode:    in.ButtonCode,
		}, s.encoder, s.logger)
		if err != nil {
			return fmt.Errorf("failed to open evdev input: %w", err)
		}
		s.button = src
		s.closers = append(s.closers, src)
	default:
		s.button = &input.StaticPin{}
	}
	return nil
}

func (s *Service) openDisplay() error {
	d := s.config.Display
	if d.Driver != "ssd1306" {
		return nil
	}

	panel, err := display.OpenSSD1306(display.SSD1306Config{
		Bus:     d.Bus,
		Width:   d.Width,
		Height:  d.Height,
		Rotated: d.Rotated,
	})
	if err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	s.closers = append(s.closers, panel)
	s.canvas = display.NewRaster(d.Width, d.Height, panel)
	return nil
}

func (s *Service) subscribe() {
	s.unsubs = append(s.unsubs,
		s.bus.Subscribe(func(e events.ModeChangedEvent) {
			s.events.LogMenu(logging.LevelInfo, "screen changed", e.From, e.To, nil)
		}),
		s.bus.Subscribe(func(e events.SettingsSavedEvent) {
			s.events.LogSettings(logging.LevelInfo, "settings persisted", e.FirstBoot, map[string]interface{}{
				"white":              e.Settings.White,
				"display_brightness": e.Settings.DisplayBrightness,
			})
		}),
		s.bus.Subscribe(func(e events.DisplayBlankedEvent) {
			s.logger.Debug("display blanked", "idle", e.Idle)
		}),
		s.bus.Subscribe(func(e events.ConfigReloadedEvent) {
			s.events.LogConfig(logging.LevelInfo, "configuration applied", e.Path, nil)
		}),
	)
}

func (s *Service) registerHealthCheckers() {
	maxAge := 100 * s.config.Loop.TickPeriod
	if maxAge < time.Second {
		maxAge = time.Second
	}
	s.health.RegisterChecker(observability.NewLoopHealthChecker(s.controller.LastTick, maxAge))
	s.health.RegisterChecker(observability.NewMemoryHealthChecker("memory", maxMemoryBytes))
	s.health.RegisterChecker(observability.NewDiskSpaceHealthChecker("storage", filepath.Dir(s.config.Storage.Path), minStorageBytes))
	s.health.RegisterChecker(observability.NewHostHealthChecker(
		observability.NewHostCollector(observability.DefaultHostThresholds()), s.metrics))

	if c, ok := s.transport.(interface{ Connected() bool }); ok {
		s.health.RegisterChecker(observability.NewFuncHealthChecker("strip", time.Second, func(context.Context) error {
			if !c.Connected() {
				return strip.ErrNotConnected
			}
			return nil
		}))
	}
}

func (s *Service) Start() error {
	s.logger.Info("starting glowstick daemon", "version", s.version)

	if err := s.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	cfg := s.Config()
	s.controller.Init(time.Now())
	if s.metrics != nil {
		s.metrics.Start()
	}
	s.health.Start()
	s.startWatcher()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.controller.Run(s.ctx, cfg.Loop.TickPeriod); err != nil {
			s.events.LogError(err, "control loop failed", nil)
		}
	}()

	s.wg.Add(1)
	go s.handleSignals()

	s.events.LogDaemon(logging.LevelInfo, "daemon started", "start", map[string]interface{}{
		"leds":        cfg.LED.Count,
		"tick_period": cfg.Loop.TickPeriod.String(),
	})
	return nil
}

func (s *Service) startWatcher() {
	if s.configPath == "" {
		return
	}

	s.watcher = config.NewConfigWatcher(s.configPath, s.logger.Logger,
		config.WithErrorHandler[*config.Config](func(err error) {
			if s.metrics != nil {
				s.metrics.RecordConfigReload(false)
			}
			s.events.LogError(err, "failed to reload configuration", map[string]interface{}{"path": s.configPath})
		}))
	s.watcher.OnReload(s.applyConfig)

	if err := s.watcher.Start(); err != nil {
		s.logger.Warn("config hot reload disabled", "path", s.configPath, "error", err)
		s.watcher = nil
	}
}

func (s *Service) Stop() error {
	s.logger.Info("stopping glowstick daemon")

	s.requestStop()
	s.cancel()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop config watcher", "error", err)
		}
	}
	if s.health != nil {
		s.health.Stop()
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	if s.metrics != nil {
		s.metrics.Close()
	}
	s.closeHardware()

	s.events.LogDaemon(logging.LevelInfo, "daemon stopped", "stop", nil)
	s.events.Close()
	return nil
}

func (s *Service) requestStop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// closeHardware releases the strip, storage and input/display devices.
// Caller holds mu.
func (s *Service) closeHardware() {
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("failed to close LED strip", "error", err)
		}
		s.transport = nil
	}
	if s.medium != nil {
		if err := s.medium.Close(); err != nil {
			s.logger.Warn("failed to close settings storage", "error", err)
		}
		s.medium = nil
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("failed to close device", "error", err)
		}
	}
	s.closers = nil
}

func (s *Service) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	<-s.stopCh
	return s.Stop()
}

func (s *Service) handleSignals() {
	defer s.wg.Done()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-s.ctx.Done():
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				s.logger.Info("received signal, shutting down", "signal", sig.String())
				s.requestStop()
				return
			case syscall.SIGHUP:
				s.logger.Info("received SIGHUP, reloading configuration")
				if err := s.reloadConfig(); err != nil {
					s.events.LogError(err, "failed to reload configuration", nil)
				}
			}
		}
	}
}

func (s *Service) reloadConfig() error {
	newConfig, err := config.LoadConfig(s.configPath)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordConfigReload(false)
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	s.applyConfig(newConfig)
	return nil
}

// applyConfig updates the settings that can change at runtime. Hardware
// selections only take effect after a restart.
func (s *Service) applyConfig(newConfig *config.Config) {
	s.mu.Lock()
	old := s.config
	s.config = newConfig
	ctrl, bus, metrics := s.controller, s.bus, s.metrics
	s.mu.Unlock()

	if ctrl != nil {
		ctrl.SetMasterBrightness(newConfig.LED.MasterBrightness)
		ctrl.SetCorrection(newConfig.LED.Correction)
	}
	s.logger.SetLevel(logging.LogLevel(newConfig.Logging.Level))

	if old.Input != newConfig.Input || old.Display != newConfig.Display || old.Strip != newConfig.Strip || old.Storage != newConfig.Storage {
		s.logger.Warn("hardware configuration changed, restart required to apply")
	}

	if metrics != nil {
		metrics.RecordConfigReload(true)
	}
	if bus != nil {
		bus.Publish(events.ConfigReloadedEvent{Path: s.configPath, Timestamp: time.Now()})
	}
	s.logger.Info("configuration reloaded",
		"master_brightness", newConfig.LED.MasterBrightness,
		"log_level", newConfig.Logging.Level)
}

// Config returns the configuration currently in effect.
func (s *Service) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Health reports the monitor's overall status, or unknown before Start.
func (s *Service) Health() observability.HealthStatus {
	s.mu.Lock()
	h := s.health
	s.mu.Unlock()
	if h == nil {
		return observability.StatusUnknown
	}
	h.CheckNow()
	return h.GetOverallHealth()
}

// TestOutput initializes the hardware, flashes the strip white for flash
// and then turns it off and releases everything.
func (s *Service) TestOutput(ctx context.Context, flash time.Duration) error {
	if err := s.Initialize(); err != nil {
		return err
	}
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.Close()
			s.metrics = nil
		}
		s.closeHardware()
	}()

	return s.exerciseOutput(ctx, flash)
}

// exerciseOutput runs the hardware test against the opened transport and
// canvas. A serial bridge must answer a version request first.
func (s *Service) exerciseOutput(ctx context.Context, flash time.Duration) error {
	var errs []error

	bridge, isBridge := s.transport.(strip.Bridge)
	if isBridge {
		v, err := bridge.Version()
		if err != nil {
			return fmt.Errorf("strip bridge did not answer: %w", err)
		}
		s.logger.Info("strip bridge responded", "version", fmt.Sprintf("% x", v))
	}

	frame := make([]color.RGBW, s.config.LED.Count)
	animation.Fill(frame, color.White(255))

	if err := s.transport.Show(frame, s.config.LED.MasterBrightness); err != nil {
		errs = append(errs, fmt.Errorf("failed to show test frame: %w", err))
	}
	if s.canvas != nil {
		if err := display.NewRenderer(s.config.Display.VisibleLines).Splash(s.canvas, s.version); err != nil {
			errs = append(errs, fmt.Errorf("failed to draw test screen: %w", err))
		}
	}

	select {
	case <-ctx.Done():
	case <-time.After(flash):
	}

	if isBridge {
		if err := bridge.Clear(); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear strip: %w", err))
		}
		s.logger.Info("strip test finished", "bytes_written", bridge.BytesWritten())
	} else {
		animation.Fill(frame, color.Off)
		if err := s.transport.Show(frame, 0); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear strip: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) Install() (string, error) {
	s.events.LogDaemon(logging.LevelInfo, "installing service", "install", nil)
	if s.configPath != "" {
		return s.Daemon.Install("run", "--config", s.configPath)
	}
	return s.Daemon.Install("run")
}

func (s *Service) Remove() (string, error) {
	return s.Daemon.Remove()
}

func (s *Service) Status() (string, error) {
	return s.Daemon.Status()
}

func (s *Service) StartService() (string, error) {
	return s.Daemon.Start()
}

func (s *Service) StopService() (string, error) {
	return s.Daemon.Stop()
}
