package logging

import (
	"github.com/ThreeDotsLabs/watermill"
)

// NewWatermillAdapter returns a watermill.LoggerAdapter that writes to logger. Watermill's
// trace level is mapped to debug.
func NewWatermillAdapter(logger Logger) watermill.LoggerAdapter {
	return &watermillAdapter{logger: logger}
}

type watermillAdapter struct {
	logger Logger
}

func (w *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Errorw(msg, append(flatten(fields), "error", err)...)
}

func (w *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	w.logger.Infow(msg, flatten(fields)...)
}

func (w *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debugw(msg, flatten(fields)...)
}

func (w *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	w.logger.Debugw(msg, flatten(fields)...)
}

func (w *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{logger: w.logger.WithFields(flatten(fields)...)}
}

func flatten(fields watermill.LogFields) []interface{} {
	keysAndValues := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		keysAndValues = append(keysAndValues, k, v)
	}
	return keysAndValues
}
