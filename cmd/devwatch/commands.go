package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/muurk/devwatch/internal/app"
	"github.com/muurk/devwatch/internal/avahi"
	"github.com/muurk/devwatch/internal/config"
	"github.com/muurk/devwatch/internal/console"
	"github.com/muurk/devwatch/internal/logging"
	"github.com/muurk/devwatch/internal/mdns"
	"github.com/muurk/devwatch/internal/version"
)

// Flags shared by every command
var (
	configPath   string
	serviceType  string
	domain       string
	transport    string
	outputFormat string
	logLevel     string
	idleInterval int
	forceInit    bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/devwatch/config.yaml)")
	flags.StringVar(&serviceType, "service-type", "_discover._tcp", "DNS-SD service type to browse")
	flags.StringVar(&domain, "domain", "", "Browse domain (empty = default domains)")
	flags.StringVar(&transport, "transport", config.TransportAvahi, "Discovery transport (avahi, mdns)")
	flags.StringVar(&outputFormat, "format", string(console.FormatDetailed), "Output format (detailed, compact, json)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")
	flags.IntVar(&idleInterval, "idle-interval", 5, "Seconds between connection checks while idle")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
}

// listenCmd browses until interrupted
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen for device announcements",
	Long: `Browse for the configured service type and print every device that
resolves. Runs until interrupted (Ctrl+C) or until the connection to the
discovery daemon fails.`,
	Example: `  # Listen through avahi-daemon (default)
  devwatch listen

  # Another service type, one line per device
  devwatch listen --service-type _sensor._tcp --format compact

  # No avahi-daemon available: use multicast DNS directly
  devwatch listen --transport mdns

  # Pipe JSON into jq, logs stay on stderr
  devwatch listen --format json | jq .sn`,
	RunE: runListen,
}

// discoverer is a transport adapter that drives a device.Listener
type discoverer interface {
	Listen(ctx context.Context) error
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig(cmd.Flags())
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	format, err := console.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	view := console.NewPrinter(os.Stdout, format)
	svc := app.NewDiscoverService(view)

	var d discoverer
	switch cfg.Transport {
	case config.TransportMDNS:
		d = mdns.NewListener(svc, mdns.Options{
			ServiceType: cfg.ServiceType,
			Domain:      cfg.Domain,
		})
	default:
		d = avahi.NewListener(svc, avahi.Options{
			ServiceType:  cfg.ServiceType,
			Domain:       cfg.Domain,
			IdleInterval: cfg.IdleDuration(),
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("Starting devwatch",
		zap.String("version", version.Full()),
		zap.String("transport", cfg.Transport),
		zap.String("service_type", cfg.ServiceType),
		zap.String("format", cfg.Format),
		zap.Duration("idle_interval", cfg.IdleDuration()),
	)

	if err := d.Listen(ctx); err != nil {
		return fmt.Errorf("discovery stopped: %w", err)
	}

	logging.Info("Shut down cleanly")
	return nil
}

// effectiveConfig loads the config file and applies explicitly set flags on top
func effectiveConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("service-type") {
		cfg.ServiceType = serviceType
	}
	if flags.Changed("domain") {
		cfg.Domain = domain
	}
	if flags.Changed("transport") {
		cfg.Transport = transport
	}
	if flags.Changed("format") {
		cfg.Format = outputFormat
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("idle-interval") {
		cfg.IdleInterval = idleInterval
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Example: `  devwatch config init
  devwatch config init --config ./devwatch.yaml --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}

		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after applying the config file and any flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd.Flags())
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}
