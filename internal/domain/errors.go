package domain

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed input (non-positive quantity, missing ids, bad status text).
var ErrValidation = errors.New("validation")

// Validation wraps msg so that errors.Is(err, ErrValidation) holds.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
