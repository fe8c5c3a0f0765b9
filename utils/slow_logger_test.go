package utils

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.aether.dev/aether/logging"
)

func TestSlowLogger(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	mock := clock.NewMock()

	stop := SlowLogger(context.Background(), mock, "waiting for data", "sensor", "SCD4x", logger)
	defer stop()
	test.That(t, logs.FilterMessage("waiting for data").Len(), test.ShouldEqual, 0)

	mock.Add(2 * time.Second)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, logs.FilterMessage("waiting for data").Len(), test.ShouldEqual, 1)
	})
	entry := logs.FilterMessage("waiting for data").All()[0]
	test.That(t, entry.ContextMap()["sensor"], test.ShouldEqual, "SCD4x")
	test.That(t, entry.ContextMap()["time_elapsed"], test.ShouldEqual, "2s")
}
