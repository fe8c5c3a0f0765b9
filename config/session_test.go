package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.viam.com/test"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/sensor"
)

func TestNewSession(t *testing.T) {
	s := NewSession()
	test.That(t, s.ID, test.ShouldNotEqual, uuid.Nil)
	test.That(t, s.SampleInterval, test.ShouldEqual, sensor.DefaultInterval)
	test.That(t, s.ThemeOutDir, test.ShouldEqual, DefaultThemeOutDir)
	test.That(t, s.Validate("session"), test.ShouldBeNil)

	other := NewSession()
	test.That(t, other.ID, test.ShouldNotEqual, s.ID)
}

func TestSessionValidate(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		s := NewSession()
		s.ID = uuid.Nil
		err := s.Validate("session")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "id")
	})

	t.Run("non-positive interval", func(t *testing.T) {
		s := NewSession()
		s.SampleInterval = 0
		err := s.Validate("session")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "sample interval must be positive")

		s.SampleInterval = -time.Second
		test.That(t, s.Validate("session"), test.ShouldNotBeNil)
	})

	t.Run("textfile suffix", func(t *testing.T) {
		s := NewSession()
		s.MetricsTextfile = "/tmp/aether.txt"
		err := s.Validate("session")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, ".prom")

		s.MetricsTextfile = "/tmp/aether.prom"
		test.That(t, s.Validate("session"), test.ShouldBeNil)
	})

	t.Run("out dir default", func(t *testing.T) {
		s := NewSession()
		s.ThemeOutDir = ""
		test.That(t, s.Validate("session"), test.ShouldBeNil)
		test.That(t, s.ThemeOutDir, test.ShouldEqual, DefaultThemeOutDir)
	})
}

func TestSessionLoggerAndPolling(t *testing.T) {
	s := NewSession()
	s.SampleInterval = 250 * time.Millisecond
	test.That(t, s.PollingConfig().Interval, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, s.PollingConfig().Clock, test.ShouldBeNil)

	test.That(t, s.Logger("aether").GetLevel(), test.ShouldEqual, logging.INFO)
	s.Debug = true
	test.That(t, s.Logger("aether").GetLevel(), test.ShouldEqual, logging.DEBUG)
}

func TestSessionLogFile(t *testing.T) {
	s := NewSession()
	s.LogFile = filepath.Join(t.TempDir(), "aether.log")
	s.Debug = true
	logger := s.Logger("aether")
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
	logger.Debug("sampling")
	test.That(t, s.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(s.LogFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, `"msg":"sampling"`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"session":"`+s.ID.String()+`"`)
}
