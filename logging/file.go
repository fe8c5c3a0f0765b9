package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileMegabytes = 10
	maxLogFileBackups   = 3
)

// NewFileLogger returns a logger that writes to stderr like NewLogger and also appends
// JSON entries to a rotated file at path. The returned closer closes the file.
func NewFileLogger(name string, level Level, path string) (Logger, io.Closer) {
	atomicLevel := zap.NewAtomicLevelAt(level.AsZap())
	config := NewLoggerConfig()
	config.Level = atomicLevel

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileMegabytes,
		MaxBackups: maxLogFileBackups,
		Compress:   true,
	}
	fileEncoder := config.EncoderConfig
	fileEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(file), atomicLevel)

	logger := zap.Must(config.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})))
	return &impl{
		SugaredLogger: logger.Sugar().Named(name),
		name:          name,
		level:         atomicLevel,
	}, file
}
