package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "devwatch"
	configFile = "config.yaml"

	// CurrentVersion is the only config file version understood
	CurrentVersion = 1
)

// Transports
const (
	TransportAvahi = "avahi" // avahi-daemon over the system D-Bus
	TransportMDNS  = "mdns"  // in-process multicast DNS
)

// Formats names the output formats a config file may select
var Formats = []string{"detailed", "compact", "json"}

// Config is the devwatch configuration file
type Config struct {
	Version      int    `yaml:"version"`
	ServiceType  string `yaml:"service_type"`            // DNS-SD service type to browse
	Domain       string `yaml:"domain,omitempty"`        // Empty = daemon default domains
	Transport    string `yaml:"transport"`               // "avahi" or "mdns"
	Format       string `yaml:"format"`                  // "detailed", "compact" or "json"
	LogLevel     string `yaml:"log_level,omitempty"`     // Empty = DEVWATCH_LOG_LEVEL or info
	IdleInterval int    `yaml:"idle_interval,omitempty"` // Seconds between idle connection checks
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Version:      CurrentVersion,
		ServiceType:  "_discover._tcp",
		Transport:    TransportAvahi,
		Format:       Formats[0],
		IdleInterval: 5,
	}
}

// Validate checks field values
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.ServiceType == "" {
		return fmt.Errorf("service_type must not be empty")
	}
	switch c.Transport {
	case TransportAvahi, TransportMDNS:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportAvahi, TransportMDNS)
	}
	if !validFormat(c.Format) {
		return fmt.Errorf("unknown output format %q (want %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.IdleInterval <= 0 {
		return fmt.Errorf("idle_interval must be positive, got %d", c.IdleInterval)
	}
	return nil
}

func validFormat(name string) bool {
	for _, f := range Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// IdleDuration returns IdleInterval as a duration
func (c *Config) IdleDuration() time.Duration {
	return time.Duration(c.IdleInterval) * time.Second
}

// GetConfigDir returns the OS-appropriate configuration directory.
//   - Linux: $XDG_CONFIG_HOME/devwatch or $HOME/.config/devwatch
//   - macOS: $HOME/.config/devwatch
//   - Windows: %LOCALAPPDATA%\devwatch
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		return "", fmt.Errorf("cannot determine config directory (LOCALAPPDATA not set)")
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
		return filepath.Join(xdg, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// GetConfigPath returns the full path to the default configuration file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration at path, or at GetConfigPath if path is empty.
// A missing file yields Default(). Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path (GetConfigPath if empty).
// The write goes through a temporary file and a rename.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	header := []byte("# devwatch configuration\n# Command-line flags override these values.\n\n")
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
