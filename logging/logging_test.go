package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedLoggerLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("debug line", "k", 1)
	logger.Info("info line")
	test.That(t, logs.Len(), test.ShouldEqual, 2)

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	logger.Info("dropped")
	logger.Warnf("kept %d", 3)
	test.That(t, logs.Len(), test.ShouldEqual, 3)
	test.That(t, logs.All()[2].Message, test.ShouldEqual, "kept 3")
	test.That(t, logs.All()[2].Level, test.ShouldEqual, zapcore.WarnLevel)
}

func TestSubloggerSharesLevel(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("scd4x")
	sub.Info("from sub")
	test.That(t, logs.FilterMessage("from sub").All()[0].LoggerName, test.ShouldEqual, "scd4x")

	logger.SetLevel(ERROR)
	sub.Warn("dropped")
	test.That(t, logs.FilterMessage("dropped").Len(), test.ShouldEqual, 0)
}

func TestWithFields(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.WithFields("session", "abc").Info("hello")
	test.That(t, logs.FilterField(zapcoreString("session", "abc")).Len(), test.ShouldEqual, 1)
}

func TestLevelFromString(t *testing.T) {
	for input, expected := range map[string]Level{"debug": DEBUG, "INFO": INFO, "Warn": WARN, "error": ERROR} {
		level, err := LevelFromString(input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWatermillAdapter(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	adapter := NewWatermillAdapter(logger).With(watermill.LogFields{"topic": "measurements"})
	adapter.Trace("trace", nil)
	adapter.Info("info", watermill.LogFields{"n": 1})
	adapter.Error("failed", errors.New("boom"), nil)

	test.That(t, logs.Len(), test.ShouldEqual, 3)
	test.That(t, logs.FilterField(zapcoreString("topic", "measurements")).Len(), test.ShouldEqual, 3)
	test.That(t, logs.FilterMessage("failed").All()[0].Level, test.ShouldEqual, zapcore.ErrorLevel)
}

func zapcoreString(key, val string) zapcore.Field {
	return zapcore.Field{Key: key, Type: zapcore.StringType, String: val}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aether.log")
	logger, closer := NewFileLogger("aether", INFO, path)
	logger.Debug("dropped")
	logger.Infow("to file", "sensor", "SCD4x")
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, `"msg":"to file"`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"sensor":"SCD4x"`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"logger":"aether"`)
	test.That(t, string(contents), test.ShouldNotContainSubstring, "dropped")
}
