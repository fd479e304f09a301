package transform

import "fmt"

// RowError reports which row of a batch failed a transform.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// MismatchError is returned when vectors on disk do not match the transforms a
// descriptor claims were applied (for example a float32 store under quantize=true).
type MismatchError struct {
	Reason string
}

func (e *MismatchError) Error() string {
	return "transform mismatch: " + e.Reason
}
