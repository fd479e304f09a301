// Package vecstore implements the flat binary vector file used by a dataset.
//
// The file has no header. Vector i of dimension D occupies bytes
// [i*D*e, (i+1)*D*e) where e is the element size (4 for little-endian float32,
// 1 for quantized uint8). Shape is reconstructed from the dataset descriptor.
package vecstore

import (
	"errors"
	"fmt"
)

// DefaultChunkSize is the number of rows written or read per chunk.
const DefaultChunkSize = 1024

// ElemType is the on-disk component type.
type ElemType int

const (
	Float32 ElemType = 4
	Uint8   ElemType = 1
)

// Size returns the element size in bytes.
func (e ElemType) Size() int { return int(e) }

func (e ElemType) String() string {
	switch e {
	case Float32:
		return "float32"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("elem(%d)", int(e))
	}
}

// ElemFor returns the element type produced by a quantize flag.
func ElemFor(quantized bool) ElemType {
	if quantized {
		return Uint8
	}
	return Float32
}

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrElemType          = errors.New("element type mismatch")
	ErrShortRead         = errors.New("vector file shorter than descriptor")
	ErrSizeMismatch      = errors.New("vector file size does not match descriptor")
	ErrClosed            = errors.New("vector store closed")
	ErrOutOfRange        = errors.New("vector offset out of range")
)

// ExpectedSize returns the byte length of a store holding n vectors of dim components.
func ExpectedSize(n, dim int, elem ElemType) int64 {
	return int64(n) * int64(dim) * int64(elem.Size())
}
