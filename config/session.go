// Package config holds the settings shared by a single invocation of the aether CLI.
package config

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/sensor"
)

// DefaultThemeOutDir is where theme-test writes frames when no directory is given.
const DefaultThemeOutDir = "out"

// Session is the configuration of one CLI run.
type Session struct {
	ID              uuid.UUID
	SampleInterval  time.Duration
	Debug           bool
	MetricsTextfile string
	ThemeOutDir     string
	// LogFile, if set, also receives every log entry as JSON.
	LogFile         string

	logFiles []io.Closer
}

// NewSession returns a session with a fresh ID and default settings.
func NewSession() *Session {
	return &Session{
		ID:             uuid.New(),
		SampleInterval: sensor.DefaultInterval,
		ThemeOutDir:    DefaultThemeOutDir,
	}
}

// Validate ensures all parts of the session are valid and fills in defaults.
func (s *Session) Validate(path string) error {
	if s.ID == uuid.Nil {
		return utils.NewConfigValidationFieldRequiredError(path, "id")
	}
	if s.SampleInterval <= 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("sample interval must be positive, got %s", s.SampleInterval))
	}
	if s.MetricsTextfile != "" && !strings.HasSuffix(s.MetricsTextfile, ".prom") {
		return utils.NewConfigValidationError(path,
			errors.Errorf("metrics textfile %q must end in .prom", s.MetricsTextfile))
	}
	if s.ThemeOutDir == "" {
		s.ThemeOutDir = DefaultThemeOutDir
	}
	return nil
}

// Logger returns a logger for this session at the configured level. Call Close once the
// session's loggers are no longer used.
func (s *Session) Logger(name string) logging.Logger {
	level := logging.INFO
	if s.Debug {
		level = logging.DEBUG
	}
	var logger logging.Logger
	switch {
	case s.LogFile != "":
		var file io.Closer
		logger, file = logging.NewFileLogger(name, level, s.LogFile)
		s.logFiles = append(s.logFiles, file)
	case s.Debug:
		logger = logging.NewDebugLogger(name)
	default:
		logger = logging.NewLogger(name)
	}
	return logger.WithFields("session", s.ID.String())
}

// Close closes any log files opened by Logger.
func (s *Session) Close() error {
	var errs error
	for _, file := range s.logFiles {
		errs = multierr.Combine(errs, file.Close())
	}
	s.logFiles = nil
	return errs
}

// PollingConfig returns the sampling settings handed to polling sensors.
func (s *Session) PollingConfig() sensor.PollingConfig {
	return sensor.PollingConfig{Interval: s.SampleInterval}
}
