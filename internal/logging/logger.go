package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity
// when no level is passed explicitly.
// Valid values: "debug", "info", "warn", "error", "off"
const LogLevelEnvVar = "DEVWATCH_LOG_LEVEL"

// DefaultLevel is used when neither the caller nor the environment sets a level
const DefaultLevel = "info"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks DEVWATCH_LOG_LEVEL, then falls back to DefaultLevel.
// Logs go to stderr; stdout belongs to the device view.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		level = DefaultLevel
	}

	if level == "off" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// InitializeFromEnv initializes the logger from DEVWATCH_LOG_LEVEL
func InitializeFromEnv() error {
	return Initialize("")
}

// ParseLevel maps a level name to a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn, error or off)", level)
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Silent until initialized so library callers and tests stay quiet
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// ServiceFields describes a service instance for structured logs
type ServiceFields struct {
	Interface int32
	Protocol  int32
	Name      string
	Type      string
	Domain    string
	Flags     uint32
}

func (s ServiceFields) fields() []zap.Field {
	return []zap.Field{
		zap.Int32("interface", s.Interface),
		zap.String("protocol", ProtocolName(s.Protocol)),
		zap.String("name", s.Name),
		zap.String("type", s.Type),
		zap.String("domain", s.Domain),
		zap.Uint32("flags", s.Flags),
	}
}

// LogAnnouncement logs an add or remove announcement
func LogAnnouncement(event string, s ServiceFields) {
	Info("Service "+event, s.fields()...)
}

// LogResolution logs a successfully resolved service
func LogResolution(s ServiceFields, host string, addrProtocol int32, address string, port uint16, txtCount int) {
	fields := append(s.fields(),
		zap.String("host", host),
		zap.String("address_protocol", ProtocolName(addrProtocol)),
		zap.String("address", address),
		zap.Uint16("port", port),
		zap.Int("txt_records", txtCount),
	)
	Info("Service resolved", fields...)
}

// LogTXT logs TXT entries that were not valid text and were left out of the device record
func LogTXT(name string, skipped [][]byte) {
	for i, raw := range skipped {
		Debug("Skipped non-text TXT record",
			zap.String("name", name),
			zap.Int("index", i),
			zap.Int("length", len(raw)),
			zap.String("hex", hexDump(raw)),
			zap.String("ascii", asciiDump(raw)),
		)
	}
}

// ProtocolName returns the Avahi protocol name for logging
func ProtocolName(proto int32) string {
	switch proto {
	case -1:
		return "any"
	case 0:
		return "ipv4"
	case 1:
		return "ipv6"
	default:
		return fmt.Sprintf("unknown(%d)", proto)
	}
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 256 bytes for logging
	if len(data) > 256 {
		return hex.EncodeToString(data[:256]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > 256 {
		data = data[:256]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
