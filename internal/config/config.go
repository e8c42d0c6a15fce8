package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timfallmk/glowstick/internal/color"
	"github.com/timfallmk/glowstick/internal/settings"
)

const appName = "glowstick"

// ssd1306Address is the only I²C address the ssd1306 driver supports.
const ssd1306Address = 0x3C

type Config struct {
	LED     LEDConfig     `yaml:"led"`
	Input   InputConfig   `yaml:"input"`
	Display DisplayConfig `yaml:"display"`
	Strip   StripConfig   `yaml:"strip"`
	Storage StorageConfig `yaml:"storage"`
	Loop    LoopConfig    `yaml:"loop"`
	Metrics MetricsConfig `yaml:"metrics"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logging LoggingConfig `yaml:"logging"`
}

type LEDConfig struct {
	Count            int              `yaml:"count"`
	MasterBrightness byte             `yaml:"master_brightness"`
	Correction       color.Correction `yaml:"correction"`
	RampStep         byte             `yaml:"ramp_step"`
	Sectors          int              `yaml:"sectors"`
}

type InputConfig struct {
	Backend string `yaml:"backend"` // "gpio", "evdev", "none"

	// gpio backend
	Chip      string `yaml:"chip"`
	PinA      int    `yaml:"pin_a"`
	PinB      int    `yaml:"pin_b"`
	PinButton int    `yaml:"pin_button"`

	// evdev backend
	EncoderDevice string `yaml:"encoder_device"`
	ButtonDevice  string `yaml:"button_device"`
	ButtonCode    int    `yaml:"button_code"`

	Debounce        time.Duration `yaml:"debounce"`
	CoarseThreshold time.Duration `yaml:"coarse_threshold"`
	FineScale       int           `yaml:"fine_scale"`
	CoarseScale     int           `yaml:"coarse_scale"`
}

type DisplayConfig struct {
	Driver       string        `yaml:"driver"` // "ssd1306", "none"
	Bus          string        `yaml:"bus"`
	Address      uint16        `yaml:"address"`
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	Rotated      bool          `yaml:"rotated"`
	VisibleLines int           `yaml:"visible_lines"`
	Timeout      time.Duration `yaml:"timeout"`
}

type StripConfig struct {
	Transport    string        `yaml:"transport"` // "serial", "ws281x", "none"
	Port         string        `yaml:"port"`
	BaudRate     int           `yaml:"baud_rate"`
	AutoDiscover bool          `yaml:"auto_discover"`
	Timeout      time.Duration `yaml:"timeout"`
	GPIOPin      int           `yaml:"gpio_pin"`
}

type StorageConfig struct {
	Path   string `yaml:"path"`
	Offset int64  `yaml:"offset"`
	Size   int64  `yaml:"size"`
}

type LoopConfig struct {
	TickPeriod time.Duration `yaml:"tick_period"`
}

type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TextfilePath  string        `yaml:"textfile_path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type DaemonConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	User        string `yaml:"user"`
	Group       string `yaml:"group"`
	PidFile     string `yaml:"pid_file"`
	LogFile     string `yaml:"log_file"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	AddSource bool   `yaml:"add_source"`
}

func DefaultConfig() *Config {
	return &Config{
		LED: LEDConfig{
			Count:            84,
			MasterBrightness: 10,
			Correction:       color.TypicalSMD5050,
			RampStep:         8,
			Sectors:          6,
		},
		Input: InputConfig{
			Backend:         "gpio",
			Chip:            "gpiochip0",
			PinA:            17,
			PinB:            27,
			PinButton:       22,
			ButtonCode:      28, // KEY_ENTER
			Debounce:        20 * time.Millisecond,
			CoarseThreshold: 60 * time.Millisecond,
			FineScale:       1,
			CoarseScale:     10,
		},
		Display: DisplayConfig{
			Driver:       "ssd1306",
			Bus:          "1",
			Address:      ssd1306Address,
			Width:        128,
			Height:       32,
			VisibleLines: 3,
			Timeout:      15 * time.Second,
		},
		Strip: StripConfig{
			Transport:    "serial",
			Port:         "",
			BaudRate:     115200,
			AutoDiscover: true,
			Timeout:      1 * time.Second,
			GPIOPin:      18,
		},
		Storage: StorageConfig{
			Path:   getDefaultStatePath(),
			Offset: 0,
			Size:   1024,
		},
		Loop: LoopConfig{
			TickPeriod: 10 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			TextfilePath:  "/var/lib/node_exporter/textfile_collector/glowstick.prom",
			FlushInterval: 15 * time.Second,
		},
		Daemon: DaemonConfig{
			Name:        "glowstickd",
			Description: "GlowStick LED controller",
			User:        "",
			Group:       "",
			PidFile:     "/var/run/glowstickd.pid",
			LogFile:     "/var/log/glowstickd.log",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			File:      "",
			AddSource: false,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = getDefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) SaveConfig(path string) error {
	if path == "" {
		path = getDefaultConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate returns the first validation problem, or nil.
func (c *Config) Validate() error {
	if errs := c.ValidateDetailed(); len(errs) > 0 {
		return fmt.Errorf("%s %s", errs[0].Field, errs[0].Message)
	}
	return nil
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// ValidateDetailed returns every validation problem.
func (c *Config) ValidateDetailed() []ValidationError {
	var errs []ValidationError
	add := func(field string, value interface{}, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if c.LED.Count <= 0 || c.LED.Count > 1024 {
		add("led.count", c.LED.Count, "must be between 1 and 1024")
	}
	if c.LED.RampStep == 0 {
		add("led.ramp_step", c.LED.RampStep, "must be positive")
	}
	if c.LED.Sectors <= 0 {
		add("led.sectors", c.LED.Sectors, "must be positive")
	}

	validBackends := map[string]bool{"gpio": true, "evdev": true, "none": true}
	if !validBackends[c.Input.Backend] {
		add("input.backend", c.Input.Backend, "must be one of: gpio, evdev, none")
	}
	if c.Input.Backend == "evdev" && c.Input.EncoderDevice == "" {
		add("input.encoder_device", c.Input.EncoderDevice, "required for evdev backend")
	}
	if c.Input.Debounce <= 0 {
		add("input.debounce", c.Input.Debounce, "must be positive")
	}
	if c.Input.CoarseThreshold <= 0 {
		add("input.coarse_threshold", c.Input.CoarseThreshold, "must be positive")
	}
	if c.Input.FineScale <= 0 {
		add("input.fine_scale", c.Input.FineScale, "must be positive")
	}
	if c.Input.CoarseScale < c.Input.FineScale {
		add("input.coarse_scale", c.Input.CoarseScale, "must not be less than fine_scale")
	}

	validDrivers := map[string]bool{"ssd1306": true, "none": true}
	if !validDrivers[c.Display.Driver] {
		add("display.driver", c.Display.Driver, "must be one of: ssd1306, none")
	}
	if c.Display.Driver == "ssd1306" && c.Display.Address != ssd1306Address {
		add("display.address", fmt.Sprintf("%#x", c.Display.Address), "must be 0x3c for the ssd1306 driver")
	}
	if c.Display.VisibleLines <= 0 {
		add("display.visible_lines", c.Display.VisibleLines, "must be positive")
	}
	if c.Display.Timeout <= 0 {
		add("display.timeout", c.Display.Timeout, "must be positive")
	}

	validTransports := map[string]bool{"serial": true, "ws281x": true, "none": true}
	if !validTransports[c.Strip.Transport] {
		add("strip.transport", c.Strip.Transport, "must be one of: serial, ws281x, none")
	}
	if c.Strip.Transport == "serial" && c.Strip.BaudRate <= 0 {
		add("strip.baud_rate", c.Strip.BaudRate, "must be positive")
	}

	if c.Storage.Path == "" {
		add("storage.path", c.Storage.Path, "must not be empty")
	}
	if c.Storage.Offset < 0 || c.Storage.Offset+settings.RecordSize > c.Storage.Size {
		add("storage.offset", c.Storage.Offset, "record must fit inside storage.size")
	}

	if c.Loop.TickPeriod <= 0 {
		add("loop.tick_period", c.Loop.TickPeriod, "must be positive")
	} else if c.Loop.TickPeriod < time.Millisecond {
		add("loop.tick_period", c.Loop.TickPeriod, "must be at least 1ms")
	}

	if c.Metrics.Enabled {
		if c.Metrics.TextfilePath == "" {
			add("metrics.textfile_path", c.Metrics.TextfilePath, "required when metrics are enabled")
		}
		if c.Metrics.FlushInterval <= 0 {
			add("metrics.flush_interval", c.Metrics.FlushInterval, "must be positive")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		add("logging.level", c.Logging.Level, "must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		add("logging.format", c.Logging.Format, "must be one of: text, json")
	}

	return errs
}

func getDefaultConfigPath() string {
	if configDir := os.Getenv("XDG_CONFIG_HOME"); configDir != "" {
		return filepath.Join(configDir, appName, "config.yaml")
	}

	if homeDir := os.Getenv("HOME"); homeDir != "" {
		return filepath.Join(homeDir, ".config", appName, "config.yaml")
	}

	return "./config.yaml"
}

func getDefaultStatePath() string {
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		return filepath.Join(stateDir, appName, "eeprom.bin")
	}

	if homeDir := os.Getenv("HOME"); homeDir != "" {
		return filepath.Join(homeDir, ".local", "state", appName, "eeprom.bin")
	}

	return "./eeprom.bin"
}

func GetConfigPaths() []string {
	var paths []string

	paths = append(paths, getDefaultConfigPath())

	if configDir := os.Getenv("XDG_CONFIG_HOME"); configDir != "" {
		paths = append(paths, filepath.Join(configDir, appName+".yaml"))
	}

	paths = append(paths, "/etc/glowstick/config.yaml")
	paths = append(paths, "/usr/local/etc/glowstick/config.yaml")
	paths = append(paths, "./configs/config.yaml")

	return paths
}

func FindConfig() (string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err != nil {
				return path, nil // fallback to original path
			}
			return absPath, nil
		}
	}
	return "", fmt.Errorf("no config file found in standard locations")
}
