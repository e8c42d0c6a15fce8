package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/timfallmk/glowstick/internal/config"
	"github.com/timfallmk/glowstick/internal/testutils"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func headlessConfigFile(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	return testutils.CreateTempConfig(t, testutils.CreateTestConfigYAML()+
		"\nstorage:\n  path: \""+filepath.Join(dir, "eeprom.bin")+"\"\n  size: 64\n")
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"run", "install", "remove", "start", "stop", "status", "config", "test", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (got %v, %v)", name, cmd, err)
		}
	}

	cmd, _, err := root.Find([]string{"uninstall"})
	if err != nil || cmd.Name() != "remove" {
		t.Errorf("uninstall should alias remove, got %v, %v", cmd, err)
	}

	for _, flag := range []string{"config", "log-level", "port", "brightness"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	testutils.ExpectNoError(t, err)

	if !strings.Contains(out, name+" version "+version) {
		t.Errorf("version output = %q", out)
	}
	if !strings.Contains(out, "Build time: "+buildTime) {
		t.Errorf("version output missing build time: %q", out)
	}
}

func TestConfigCommand(t *testing.T) {
	path := headlessConfigFile(t)

	out, err := execute(t, "config", "--config", path, "--brightness", "200", "--port", "/dev/ttyUSB9")
	testutils.ExpectNoError(t, err)

	if !strings.Contains(out, "# Configuration file: "+path) {
		t.Errorf("output should name the config file: %q", out)
	}

	var cfg config.Config
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("config output is not valid YAML: %v", err)
	}
	if cfg.LED.MasterBrightness != 200 {
		t.Errorf("master_brightness = %d, want 200", cfg.LED.MasterBrightness)
	}
	if cfg.Strip.Port != "/dev/ttyUSB9" {
		t.Errorf("port = %q, want /dev/ttyUSB9", cfg.Strip.Port)
	}
	if cfg.LED.Count != 16 {
		t.Errorf("count = %d, want value from file", cfg.LED.Count)
	}
}

func TestConfigCommandRejectsBadBrightness(t *testing.T) {
	_, err := execute(t, "config", "--config", headlessConfigFile(t), "--brightness", "300")
	testutils.ExpectError(t, err, "brightness must be between 0 and 255")
}

func TestApplyCommandLineOverrides(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "no flags keeps config",
			check: func(t *testing.T, cfg *config.Config) {
				def := config.DefaultConfig()
				if cfg.LED.MasterBrightness != def.LED.MasterBrightness || cfg.Strip.Port != def.Strip.Port {
					t.Error("unset flags must not override the configuration")
				}
			},
		},
		{
			name: "zero brightness is explicit",
			args: []string{"--brightness", "0"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.LED.MasterBrightness != 0 {
					t.Errorf("master_brightness = %d, want 0", cfg.LED.MasterBrightness)
				}
			},
		},
		{
			name: "log level",
			args: []string{"--log-level", "warn"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Logging.Level != "warn" {
					t.Errorf("level = %q, want warn", cfg.Logging.Level)
				}
			},
		},
		{
			name: "port shorthand",
			args: []string{"-p", "/dev/ttyACM3"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Strip.Port != "/dev/ttyACM3" {
					t.Errorf("port = %q", cfg.Strip.Port)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := newRootCmd().PersistentFlags()
			if err := flags.Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			cfg := config.DefaultConfig()
			testutils.ExpectNoError(t, applyCommandLineOverrides(cfg, flags))
			tt.check(t, cfg)
		})
	}
}

func TestApplyCommandLineOverridesRevalidates(t *testing.T) {
	flags := newRootCmd().PersistentFlags()
	if err := flags.Parse([]string{"--log-level", "chatty"}); err != nil {
		t.Fatal(err)
	}

	err := applyCommandLineOverrides(config.DefaultConfig(), flags)
	testutils.ExpectError(t, err, "invalid configuration")
}

func TestLoadConfiguration(t *testing.T) {
	t.Run("explicit missing file gives defaults", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "absent.yaml")

		cfg, path, err := loadConfiguration(missing)
		testutils.ExpectNoError(t, err)
		if path != missing {
			t.Errorf("path = %q, want %q", path, missing)
		}
		if cfg.LED.Count != config.DefaultConfig().LED.Count {
			t.Error("expected default configuration")
		}
	})

	t.Run("explicit file is loaded", func(t *testing.T) {
		cfg, _, err := loadConfiguration(headlessConfigFile(t))
		testutils.ExpectNoError(t, err)
		if cfg.LED.MasterBrightness != 40 || cfg.Input.Backend != "none" {
			t.Errorf("loaded config = %+v", cfg.LED)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		path := testutils.CreateTempConfig(t, "led:\n  count: -1\n")

		_, _, err := loadConfiguration(path)
		testutils.ExpectError(t, err, "invalid configuration")
	})
}

func TestShowConfigurationDefaults(t *testing.T) {
	var out bytes.Buffer
	testutils.ExpectNoError(t, showConfiguration(&out, config.DefaultConfig(), ""))

	if !strings.HasPrefix(out.String(), "# Configuration file: (defaults)\n") {
		t.Errorf("header = %q", strings.SplitN(out.String(), "\n", 2)[0])
	}
	if !strings.Contains(out.String(), "master_brightness:") {
		t.Error("LED section missing from output")
	}
}

func TestTestCommandHeadless(t *testing.T) {
	testutils.SkipIfShort(t, "drives a full hardware test cycle")

	out, err := execute(t, "test", "--config", headlessConfigFile(t), "--duration", "1ms")
	testutils.ExpectNoError(t, err)

	if !strings.Contains(out, "Hardware test successful!") {
		t.Errorf("test output = %q", out)
	}
}
