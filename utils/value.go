package utils

// AssertType narrows a loosely typed value, such as the connection parameters handed to a
// sensor constructor, to T. A mismatch yields an error naming both types instead of a
// panic.
func AssertType[T any](v any) (T, error) {
	if narrowed, ok := v.(T); ok {
		return narrowed, nil
	}
	var zero T
	return zero, NewUnexpectedTypeError[T](v)
}
