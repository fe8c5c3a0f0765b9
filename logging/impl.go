package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger is the logging interface passed to every component. It is a zap
// SugaredLogger with a settable level and named subloggers.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})
	Sync() error

	// Sublogger returns a logger named "<name>.<subname>" that shares this logger's
	// outputs and level.
	Sublogger(subname string) Logger
	// WithFields returns a logger that adds the given key/value pairs to every entry.
	WithFields(keysAndValues ...interface{}) Logger
	SetLevel(level Level)
	GetLevel() Level
	AsZap() *zap.SugaredLogger
}

type impl struct {
	*zap.SugaredLogger
	name  string
	level zap.AtomicLevel
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return &impl{
		SugaredLogger: imp.SugaredLogger.Named(subname),
		name:          newName,
		level:         imp.level,
	}
}

func (imp *impl) WithFields(keysAndValues ...interface{}) Logger {
	return &impl{
		SugaredLogger: imp.SugaredLogger.With(keysAndValues...),
		name:          imp.name,
		level:         imp.level,
	}
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	return levelFromZap(imp.level.Level())
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.SugaredLogger
}
