package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitialize_Off(t *testing.T) {
	defer SetLogger(nil)

	if err := Initialize("off"); err != nil {
		t.Fatalf("Initialize(off) error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent for level off")
	}
}

func TestInitialize_UnknownLevel(t *testing.T) {
	defer SetLogger(nil)

	if err := Initialize("chatty"); err == nil {
		t.Error("Initialize(chatty) should fail")
	}
}

func TestInitialize_EnvFallback(t *testing.T) {
	defer SetLogger(nil)
	t.Setenv(LogLevelEnvVar, "error")

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be disabled at level error")
	}
	if !core.Enabled(zapcore.ErrorLevel) {
		t.Error("error should be enabled at level error")
	}
}

func TestLogTXT(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogTXT("sensor", [][]byte{{0xff, 'a'}})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hex"] != "ff61" {
		t.Errorf("hex = %v, want ff61", fields["hex"])
	}
	if fields["ascii"] != ".a" {
		t.Errorf("ascii = %v, want .a", fields["ascii"])
	}
}

func TestProtocolName(t *testing.T) {
	tests := map[int32]string{-1: "any", 0: "ipv4", 1: "ipv6", 7: "unknown(7)"}
	for in, want := range tests {
		if got := ProtocolName(in); got != want {
			t.Errorf("ProtocolName(%d) = %q, want %q", in, got, want)
		}
	}
}
