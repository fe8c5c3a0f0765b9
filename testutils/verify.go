// Package testutils holds helpers shared by package tests.
package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain runs the package tests and fails if goroutines outlive them.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
	)
}
