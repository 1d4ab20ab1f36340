package campaign

import (
	"fmt"
)

// MissingInputError is returned when a file that a task depends on does not exist.
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input not found at %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("input not found at %q", e.Path)
}

func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// TypeCoercionError describes a value that could not be converted to the type of its column.
// It is recovered locally by callers: the value becomes null.
type TypeCoercionError struct {
	Column string
	Value  string
	Err    error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("unable to coerce column %v value %q: %v", e.Column, e.Value, e.Err)
}

func (e *TypeCoercionError) Unwrap() error {
	return e.Err
}
