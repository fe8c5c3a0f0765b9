// Package logging contains the structured logger used across aether.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("startup")
)

// ReplaceGlobal replaces the global logger.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels. Logs go to stderr
	// so stdout carries nothing but measurements.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stderr.
func NewLogger(name string) Logger {
	return newFromConfig(name, INFO)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stderr.
func NewDebugLogger(name string) Logger {
	return newFromConfig(name, DEBUG)
}

func newFromConfig(name string, level Level) Logger {
	atomicLevel := zap.NewAtomicLevelAt(level.AsZap())
	config := NewLoggerConfig()
	config.Level = atomicLevel
	return &impl{
		SugaredLogger: zap.Must(config.Build()).Sugar().Named(name),
		name:          name,
		level:         atomicLevel,
	}
}

// FromZap wraps an existing zap logger. The returned logger's level can only be lowered
// as far as the wrapped core allows.
func FromZap(name string, logger *zap.Logger) Logger {
	atomicLevel := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	return &impl{
		SugaredLogger: logger.WithOptions(levelFilter(atomicLevel)).Sugar().Named(name),
		name:          name,
		level:         atomicLevel,
	}
}

func levelFilter(level zap.AtomicLevel) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &leveledCore{Core: core, level: level}
	})
}

// leveledCore drops entries below level before they reach the wrapped core.
type leveledCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *leveledCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{Core: c.Core.With(fields), level: c.level}
}

func (c *leveledCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(entry.Level) {
		return checked
	}
	return c.Core.Check(entry, checked)
}
