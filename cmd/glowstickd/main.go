package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/timfallmk/glowstick/internal/config"
	"github.com/timfallmk/glowstick/internal/daemon"
	"github.com/timfallmk/glowstick/internal/logging"
)

const (
	name = "glowstickd"
)

var (
	// These are set by the build system via -ldflags.
	version   = "dev"     // Set via -X main.version=...
	buildTime = "unknown" // Set via -X main.buildTime=...
)

type options struct {
	configPath string
	logLevel   string
	port       string
	brightness int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   name,
		Short: "GlowStick LED controller daemon",
		Long: `Runs the GlowStick control loop: rotary encoder and button input, the menu on the
status display, and color or animation output to the LED strip.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Set log level (debug, info, warn, error)")
	flags.StringVarP(&opts.port, "port", "p", "", "Serial port of the strip bridge")
	flags.IntVarP(&opts.brightness, "brightness", "b", -1, "Master LED brightness (0-255)")

	root.AddCommand(
		newRunCmd(opts),
		newServiceCmd(opts, "install", "Install the daemon as a system service", nil, (*daemon.Service).Install),
		newServiceCmd(opts, "remove", "Remove the daemon service", []string{"uninstall"}, (*daemon.Service).Remove),
		newServiceCmd(opts, "start", "Start the installed daemon service", nil, (*daemon.Service).StartService),
		newServiceCmd(opts, "stop", "Stop the running daemon service", nil, (*daemon.Service).StopService),
		newServiceCmd(opts, "status", "Show the daemon service status", nil, (*daemon.Service).Status),
		newConfigCmd(opts),
		newTestCmd(opts),
		newVersionCmd(),
	)

	return root
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in foreground mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfiguration(opts.configPath)
			if err != nil {
				return err
			}
			if err := applyCommandLineOverrides(cfg, cmd.Flags()); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			service, err := daemon.NewService(cfg,
				daemon.WithConfigPath(path),
				daemon.WithVersion(version),
				daemon.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}

			if err := service.Run(); err != nil {
				return fmt.Errorf("failed to run service: %w", err)
			}
			return nil
		},
	}
}

func newServiceCmd(opts *options, use, short string, aliases []string, action func(*daemon.Service) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Aliases: aliases,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfiguration(opts.configPath)
			if err != nil {
				return err
			}

			service, err := daemon.NewService(cfg, daemon.WithConfigPath(path), daemon.WithVersion(version))
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}

			status, err := action(service)
			if err != nil {
				return fmt.Errorf("failed to %s service: %w", use, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfiguration(opts.configPath)
			if err != nil {
				return err
			}
			if err := applyCommandLineOverrides(cfg, cmd.Flags()); err != nil {
				return err
			}
			return showConfiguration(cmd.OutOrStdout(), cfg, path)
		},
	}
}

func newTestCmd(opts *options) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Flash the LED strip and status display once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfiguration(opts.configPath)
			if err != nil {
				return err
			}
			if err := applyCommandLineOverrides(cfg, cmd.Flags()); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			service, err := daemon.NewService(cfg, daemon.WithVersion(version), daemon.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}

			if err := service.TestOutput(cmd.Context(), duration); err != nil {
				return fmt.Errorf("hardware test failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Hardware test successful!")
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 500*time.Millisecond, "How long to keep the test frame lit")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", name, version)
			fmt.Fprintf(cmd.OutOrStdout(), "Build time: %s\n", buildTime)
		},
	}
}

// loadConfiguration returns the configuration and the file it came from.
// path is empty when no file was found and defaults are in use.
func loadConfiguration(configPath string) (*config.Config, string, error) {
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		return cfg, configPath, err
	}

	configFile, err := config.FindConfig()
	if err != nil {
		logging.Info("no configuration file found, using defaults")

		return config.DefaultConfig(), "", nil //nolint:nilerr
	}

	cfg, err := config.LoadConfig(configFile)
	return cfg, configFile, err
}

// applyCommandLineOverrides copies explicitly set flags over the loaded
// configuration and revalidates it.
func applyCommandLineOverrides(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "port":
			cfg.Strip.Port = f.Value.String()
		case "log-level":
			cfg.Logging.Level = f.Value.String()
		case "brightness":
			b, perr := flags.GetInt("brightness")
			if perr != nil || b < 0 || b > 255 {
				err = fmt.Errorf("brightness must be between 0 and 255, got %s", f.Value.String())
				return
			}
			cfg.LED.MasterBrightness = byte(b)
		}
	})
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	output := cfg.Logging.File
	if output == "" {
		output = "stderr"
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:     logging.LogLevel(cfg.Logging.Level),
		Format:    logging.LogFormat(cfg.Logging.Format),
		Output:    output,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logging.SetGlobalLogger(logger)
	return logger, nil
}

func showConfiguration(w io.Writer, cfg *config.Config, path string) error {
	source := path
	if source == "" {
		source = "(defaults)"
	}
	fmt.Fprintf(w, "# Configuration file: %s\n", source)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}
