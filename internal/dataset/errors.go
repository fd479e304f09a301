package dataset

import (
	"errors"
	"fmt"
)

// ErrMissingDescriptor is returned when description.json does not exist.
var ErrMissingDescriptor = errors.New("missing dataset descriptor")

// ErrSampleCount is returned when the vector file, metadata and index disagree on N.
var ErrSampleCount = errors.New("sample count mismatch")

// SchemaError reports a field a pipeline stage needs but the descriptor lacks.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("descriptor is missing required field %q", e.Field)
}

// FieldError reports a field that is present but invalid.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("descriptor field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
