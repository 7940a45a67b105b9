package scale

import (
	"errors"
	"fmt"
)

// ErrMalformedOption is returned when an Option<T> discriminant byte is
// neither 0x00 nor 0x01.
var ErrMalformedOption = errors.New("scale: malformed option discriminant")

// UnknownPrimitiveTypeError reports a primitive type name with no entry
// in the decode dispatch table. Decoding must fail loudly on this, never
// silently succeed with a truncated or zero value.
type UnknownPrimitiveTypeError struct {
	Name string
}

func (e *UnknownPrimitiveTypeError) Error() string {
	return fmt.Sprintf("scale: unknown primitive type %q", e.Name)
}

// IsUnknownPrimitiveType reports whether err is (or wraps) an
// UnknownPrimitiveTypeError.
func IsUnknownPrimitiveType(err error) bool {
	var target *UnknownPrimitiveTypeError
	return errors.As(err, &target)
}
