package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config holds the logger configuration
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level"`
	Format    LogFormat `yaml:"format" json:"format"`
	Output    string    `yaml:"output" json:"output"` // "stdout", "stderr", or file path
	AddSource bool      `yaml:"add_source" json:"add_source"`
}

// DefaultConfig returns Info level text logs on stderr.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Output:    "stderr",
		AddSource: false,
	}
}

// Logger wraps slog.Logger with a runtime-adjustable level.
type Logger struct {
	*slog.Logger
	config Config
	writer io.Writer
	level  *slog.LevelVar
}

// ParseLevel converts a level name to a slog level. Unknown names are Info.
func ParseLevel(l LogLevel) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds a logger. Text output to a terminal is colorized.
func NewLogger(config Config) (*Logger, error) {
	var writer io.Writer
	var err error

	switch config.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr", "":
		writer = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(config.Output), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writer, err = os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(config.Level))

	var handler slog.Handler
	switch {
	case config.Format == FormatJSON:
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level:     level,
			AddSource: config.AddSource,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
				}
				return a
			},
		})
	case isTerminal(writer):
		handler = tint.NewHandler(writer, &tint.Options{
			Level:      level,
			AddSource:  config.AddSource,
			TimeFormat: time.TimeOnly,
		})
	default:
		handler = tint.NewHandler(writer, &tint.Options{
			Level:      level,
			AddSource:  config.AddSource,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	return &Logger{
		Logger: slog.New(handler),
		config: config,
		writer: writer,
		level:  level,
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewDiscardLogger returns a logger that drops everything. Used in tests and
// by library callers that pass no logger.
func NewDiscardLogger() *Logger {
	level := new(slog.LevelVar)
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})),
		config: DefaultConfig(),
		writer: io.Discard,
		level:  level,
	}
}

// SetLevel changes the level of this logger and every logger derived from it.
func (l *Logger) SetLevel(level LogLevel) {
	if l.level != nil {
		l.level.Set(ParseLevel(level))
	}
}

// Level reports the current level.
func (l *Logger) Level() slog.Level {
	if l.level == nil {
		return slog.LevelInfo
	}
	return l.level.Level()
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		config: l.config,
		writer: l.writer,
		level:  l.level,
	}
}

// WithFields adds structured fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
		writer: l.writer,
		level:  l.level,
	}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.writer == os.Stdout || l.writer == os.Stderr {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Component names stamped on EventLogger records.
const (
	ComponentInput    = "input"
	ComponentMenu     = "menu"
	ComponentSettings = "settings"
	ComponentStrip    = "strip"
	ComponentConfig   = "config"
	ComponentDaemon   = "daemon"
	ComponentError    = "error"
)

const eventQueueSize = 256

// event is one queued record. attrs are copied out of the caller's field
// map at enqueue time.
type event struct {
	level     slog.Level
	component string
	message   string
	attrs     []slog.Attr
}

// EventLogger writes component events from a background goroutine so the
// control loop never blocks on log output. When the queue is full the
// record is written inline.
type EventLogger struct {
	logger  *Logger
	queue   chan event
	closing chan struct{}
	exited  chan struct{}
	once    sync.Once
}

// NewEventLogger starts the writer goroutine. Call Close to drain it.
func NewEventLogger(logger *Logger) *EventLogger {
	el := &EventLogger{
		logger:  logger,
		queue:   make(chan event, eventQueueSize),
		closing: make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go el.drain()
	return el
}

func (el *EventLogger) LogInput(level LogLevel, message, source string, fields map[string]interface{}) {
	el.emit(level, ComponentInput, message, fields, slog.String("source", source))
}

func (el *EventLogger) LogMenu(level LogLevel, message, from, to string, fields map[string]interface{}) {
	el.emit(level, ComponentMenu, message, fields, slog.String("from", from), slog.String("to", to))
}

func (el *EventLogger) LogSettings(level LogLevel, message string, firstBoot bool, fields map[string]interface{}) {
	el.emit(level, ComponentSettings, message, fields, slog.Bool("first_boot", firstBoot))
}

func (el *EventLogger) LogStrip(level LogLevel, message, transport string, fields map[string]interface{}) {
	el.emit(level, ComponentStrip, message, fields, slog.String("transport", transport))
}

func (el *EventLogger) LogConfig(level LogLevel, message, configPath string, fields map[string]interface{}) {
	el.emit(level, ComponentConfig, message, fields, slog.String("config_path", configPath))
}

func (el *EventLogger) LogDaemon(level LogLevel, message, action string, fields map[string]interface{}) {
	el.emit(level, ComponentDaemon, message, fields, slog.String("action", action))
}

// LogError logs err at error level with the caller's location.
func (el *EventLogger) LogError(err error, message string, fields map[string]interface{}) {
	extra := make([]slog.Attr, 0, 4)
	if pc, file, line, ok := runtime.Caller(1); ok {
		extra = append(extra, slog.String("caller_file", filepath.Base(file)), slog.Int("caller_line", line))
		if fn := runtime.FuncForPC(pc); fn != nil {
			extra = append(extra, slog.String("caller_func", fn.Name()))
		}
	}
	if err != nil {
		extra = append(extra, slog.String("error", err.Error()))
	}
	el.emit(LevelError, ComponentError, message, fields, extra...)
}

func (el *EventLogger) emit(level LogLevel, component, message string, fields map[string]interface{}, extra ...slog.Attr) {
	select {
	case <-el.closing:
		return
	default:
	}

	attrs := make([]slog.Attr, 0, len(fields)+len(extra))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	ev := event{
		level:     ParseLevel(level),
		component: component,
		message:   message,
		attrs:     append(attrs, extra...),
	}

	select {
	case el.queue <- ev:
	default:
		el.write(ev)
	}
}

func (el *EventLogger) write(ev event) {
	attrs := make([]slog.Attr, 0, len(ev.attrs)+1)
	attrs = append(attrs, slog.String("component", ev.component))
	el.logger.LogAttrs(context.Background(), ev.level, ev.message, append(attrs, ev.attrs...)...)
}

func (el *EventLogger) drain() {
	defer close(el.exited)
	for {
		select {
		case ev := <-el.queue:
			el.write(ev)
		case <-el.closing:
			for {
				select {
				case ev := <-el.queue:
					el.write(ev)
				default:
					return
				}
			}
		}
	}
}

// Close stops the writer after draining queued events. Later events are
// dropped.
func (el *EventLogger) Close() {
	el.once.Do(func() { close(el.closing) })
	<-el.exited
}

// MetricsLogger writes metric snapshots as debug records when no metrics
// textfile is configured.
type MetricsLogger struct {
	logger *Logger
}

func NewMetricsLogger(logger *Logger) *MetricsLogger {
	return &MetricsLogger{logger: logger.WithComponent("metrics")}
}

func (ml *MetricsLogger) LogCounter(name string, value float64, labels map[string]string) {
	ml.log("counter", name, value, labels)
}

func (ml *MetricsLogger) LogGauge(name string, value float64, labels map[string]string) {
	ml.log("gauge", name, value, labels)
}

func (ml *MetricsLogger) log(kind, name string, value float64, labels map[string]string) {
	attrs := []slog.Attr{
		slog.String("metric_type", kind),
		slog.String("metric_name", name),
		slog.Float64("value", value),
	}
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		attrs = append(attrs, slog.String("label_"+k, labels[k]))
	}
	ml.logger.LogAttrs(context.Background(), slog.LevelDebug, kind+" metric", attrs...)
}

// Global logger instance
var globalLogger *Logger

// SetGlobalLogger sets the logger used by the package-level helpers.
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger, creating a default one lazily.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		logger, err := NewLogger(DefaultConfig())
		if err != nil {
			logger = NewDiscardLogger()
		}
		globalLogger = logger
	}
	return globalLogger
}

func Debug(msg string, args ...interface{}) {
	GetGlobalLogger().Debug(msg, args...)
}

func Info(msg string, args ...interface{}) {
	GetGlobalLogger().Info(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	GetGlobalLogger().Warn(msg, args...)
}

func Error(msg string, args ...interface{}) {
	GetGlobalLogger().Error(msg, args...)
}

// WithComponent returns the global logger scoped to component.
func WithComponent(component string) *Logger {
	return GetGlobalLogger().WithComponent(component)
}
