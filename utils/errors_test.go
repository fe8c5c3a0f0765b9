package utils

import (
	"testing"

	"go.viam.com/test"
)

type (
	someStruct struct{}
	someIfc    interface{}
)

func TestNewUnexpectedTypeError(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		errStr string
	}{
		{"string", NewUnexpectedTypeError[string]("actual1"), `expected string but got string`},
		{"int", NewUnexpectedTypeError[int]("actual2"), `expected int but got string`},
		{"interface", NewUnexpectedTypeError[someIfc](4), `expected utils.someIfc but got int`},
		{"pointer", NewUnexpectedTypeError[*someStruct](6), `expected *utils.someStruct but got int`},
		{"struct", NewUnexpectedTypeError[someStruct](7), `expected utils.someStruct but got int`},
		{"nil", NewUnexpectedTypeError[someStruct](nil), `expected utils.someStruct but got <nil>`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, tc.err.Error(), test.ShouldEqual, tc.errStr)
		})
	}
}
