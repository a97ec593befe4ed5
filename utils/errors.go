package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewUnknownCommandError is used when a DoCommand request names a command nobody handles.
func NewUnknownCommandError(name string) error {
	return errors.Errorf("unknown command %q", name)
}
