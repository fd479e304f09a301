package vector

import (
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrBackendMismatch   = errors.New("index file belongs to another backend")
	ErrUnknownBackend    = errors.New("unknown index backend")
	ErrBuilderClosed     = errors.New("builder closed")
	ErrLabelOrder        = errors.New("labels must be contiguous ordinals")
)

// DimensionMismatchError reports a vector of the wrong length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// IndexLoadError wraps any failure to open a persisted index.
type IndexLoadError struct {
	Path string
	Err  error
}

func (e *IndexLoadError) Error() string {
	return fmt.Sprintf("load index %s: %v", e.Path, e.Err)
}

func (e *IndexLoadError) Unwrap() error { return e.Err }

func checkDim(want int, v []float32) error {
	if len(v) != want {
		return &DimensionMismatchError{Expected: want, Actual: len(v)}
	}
	return nil
}
