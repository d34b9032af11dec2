package frame

import "fmt"

// FormatError reports a frame whose planes, strides or lengths are inconsistent
// with its declared dimensions.
type FormatError struct {
	Op     string // "frame", "luma" or "chroma"
	Plane  int    // plane index, -1 when the error is not tied to a plane
	Reason string
}

func (e *FormatError) Error() string {
	if e.Plane >= 0 {
		return fmt.Sprintf("frame format error in %s (plane %d): %s", e.Op, e.Plane, e.Reason)
	}
	return fmt.Sprintf("frame format error in %s: %s", e.Op, e.Reason)
}

func frameError(format string, args ...any) *FormatError {
	return &FormatError{Op: "frame", Plane: -1, Reason: fmt.Sprintf(format, args...)}
}

func planeError(op string, plane int, format string, args ...any) *FormatError {
	return &FormatError{Op: op, Plane: plane, Reason: fmt.Sprintf(format, args...)}
}
