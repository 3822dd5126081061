package mlog

import (
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging
// verbosity. When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error".
const LogLevelEnvVar = "WMBUS_LOG_LEVEL"

// Initialize creates a new logger at the given level. If level is empty,
// it falls back to WMBUS_LOG_LEVEL; if that is empty too, logging stays
// silent (a no-op logger).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// InitializeFromEnv is the recommended entry point for CLI commands: it
// defaults to silent unless WMBUS_LOG_LEVEL is set.
func InitializeFromEnv() error {
	return Initialize("")
}

// GetLogger returns the global logger, falling back to a silent one if
// Initialize was never called.
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// LogFrame logs an inbound frame's arrival: its source tag, RSSI, and
// (at debug level) a hex/ASCII dump of the raw bytes.
func LogFrame(source string, rssi int, raw []byte) {
	fields := []zap.Field{
		zap.String("source", source),
		zap.Int("rssi", rssi),
		zap.Int("length", len(raw)),
	}
	if GetLogger().Core().Enabled(zapcore.DebugLevel) {
		fields = append(fields, zap.String("hex", hexDump(raw)), zap.String("ascii", asciiDump(raw)))
	}
	Info("frame received", fields...)
}

// LogDriverMatch logs which driver a telegram's address resolved to.
func LogDriverMatch(meterID, driverName string) {
	Info("driver matched",
		zap.String("meter_id", meterID),
		zap.String("driver", driverName),
	)
}

// LogDecryptionFailure logs a decryption failure for a meter id, without
// ever logging the key itself.
func LogDecryptionFailure(meterID string, mode int) {
	Warn("decryption failed, please check key",
		zap.String("meter_id", meterID),
		zap.Int("security_mode", mode),
	)
}

// LogDecodeResult logs the outcome of one decode call: success, a
// partial-decode warning, or a classified error.
func LogDecodeResult(meterID string, err error, warning string) {
	switch {
	case err != nil:
		Error("decode failed", zap.String("meter_id", meterID), zap.Error(err))
	case warning != "":
		Warn("decode partially understood", zap.String("meter_id", meterID), zap.String("warning", warning))
	default:
		Debug("decode succeeded", zap.String("meter_id", meterID))
	}
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
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

// Sync flushes any buffered log entries.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
