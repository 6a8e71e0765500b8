// Package logger provides the shared structured logger for the SecureRoom
// server. All components log through this package so output formatting and
// level configuration stay in one place.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

func init() {
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		zapcore.InfoLevel,
	)

	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// Info logs a message at info level.
func Info(msg string, fields ...zap.Field) { log.Info(msg, fields...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { log.Info(fmt.Sprintf(format, args...)) }

// Warn logs a message at warn level.
func Warn(msg string, fields ...zap.Field) { log.Warn(msg, fields...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { log.Warn(fmt.Sprintf(format, args...)) }

// Error logs a message at error level.
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { log.Error(fmt.Sprintf(format, args...)) }

// Debug logs a message at debug level.
func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { log.Debug(fmt.Sprintf(format, args...)) }

// Sync flushes any buffered log entries. Call before exit.
func Sync() {
	_ = log.Sync()
}
