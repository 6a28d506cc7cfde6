package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/muurk/devwatch/internal/config"
	"github.com/muurk/devwatch/internal/console"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// newFlagSet builds a fresh flag set bound to the same variables as the root
// command's persistent flags.
func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.AddFlagSet(rootCmd.PersistentFlags())
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return fs
}

func TestEffectiveConfig(t *testing.T) {
	file := "version: 1\nformat: compact\nservice_type: _file._tcp\nidle_interval: 9\n"

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *config.Config)
		wantErr bool
	}{
		{
			name: "file values without flags",
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Format != "compact" {
					t.Errorf("Format = %q, want compact", cfg.Format)
				}
				if cfg.IdleInterval != 9 {
					t.Errorf("IdleInterval = %d, want 9", cfg.IdleInterval)
				}
				if cfg.Transport != config.TransportAvahi {
					t.Errorf("Transport = %q, want %q", cfg.Transport, config.TransportAvahi)
				}
			},
		},
		{
			name: "set flags override the file",
			args: []string{"--format", "json", "--transport", "mdns", "--idle-interval", "2"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Format != "json" {
					t.Errorf("Format = %q, want json", cfg.Format)
				}
				if cfg.Transport != config.TransportMDNS {
					t.Errorf("Transport = %q, want mdns", cfg.Transport)
				}
				if cfg.IdleInterval != 2 {
					t.Errorf("IdleInterval = %d, want 2", cfg.IdleInterval)
				}
				if cfg.ServiceType != "_file._tcp" {
					t.Errorf("ServiceType = %q, want _file._tcp", cfg.ServiceType)
				}
			},
		},
		{
			name:    "invalid flag value",
			args:    []string{"--transport", "carrier-pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath = writeConfig(t, file)
			defer func() { configPath = "" }()

			// Flags are shared with rootCmd, so mark them unchanged again afterwards
			fs := newFlagSet(t, tt.args...)
			defer fs.VisitAll(func(f *pflag.Flag) {
				f.Changed = false
				_ = f.Value.Set(f.DefValue)
			})

			cfg, err := effectiveConfig(fs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("effectiveConfig: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestConfigFormatsMatchPrinter(t *testing.T) {
	if len(config.Formats) != len(console.Formats) {
		t.Fatalf("config accepts %v, printer supports %v", config.Formats, console.Formats)
	}
	for _, name := range config.Formats {
		if _, err := console.ParseFormat(name); err != nil {
			t.Errorf("config format %q not supported by the printer: %v", name, err)
		}
	}
	if config.Default().Format != string(console.FormatDetailed) {
		t.Errorf("default format = %q, want %q", config.Default().Format, console.FormatDetailed)
	}
}
