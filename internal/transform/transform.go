// Package transform provides the numeric transforms applied to vectors before they
// are stored or searched: L2 normalization and fixed-range uint8 quantization.
//
// The same transforms must be applied at build time and at query time. Callers build a
// Pipeline from a dataset descriptor instead of choosing flags themselves.
package transform

import (
	"errors"
	"math"

	"github.com/viterin/vek/vek32"
)

// DefaultQuantizeMax is the clip range used when a descriptor does not record one.
const DefaultQuantizeMax = 0.4

// quantLevels is the number of steps between -max and +max.
const quantLevels = 255

// ErrZeroVector is returned when a vector with zero norm is normalized.
var ErrZeroVector = errors.New("cannot normalize zero vector")

// NormalizeVector returns v divided by its L2 norm. The input is not modified.
func NormalizeVector(v []float32) ([]float32, error) {
	norm := vek32.Norm(v)
	if norm == 0 || math.IsNaN(float64(norm)) {
		return nil, ErrZeroVector
	}
	return vek32.DivNumber(v, norm), nil
}

// Normalize normalizes each row independently.
func Normalize(rows [][]float32) ([][]float32, error) {
	out := make([][]float32, len(rows))
	for i, row := range rows {
		n, err := NormalizeVector(row)
		if err != nil {
			return nil, &RowError{Row: i, Err: err}
		}
		out[i] = n
	}
	return out, nil
}

// quantRange returns maxVal, or DefaultQuantizeMax when maxVal is not a positive
// finite number.
func quantRange(maxVal float32) float64 {
	m := float64(maxVal)
	if !(m > 0) || math.IsInf(m, 1) {
		return DefaultQuantizeMax
	}
	return m
}

// QuantizeVector maps each component in [-maxVal, maxVal] to a byte.
// Components outside the range saturate at 0 or 255, and NaN components map to 0.
// A maxVal that is not positive and finite is replaced by DefaultQuantizeMax.
func QuantizeVector(v []float32, maxVal float32) []uint8 {
	out := make([]uint8, len(v))
	m := quantRange(maxVal)
	for i, x := range v {
		q := (float64(x) + m) / (2 * m) * quantLevels
		if math.IsNaN(q) || q < 0 {
			q = 0
		} else if q > quantLevels {
			q = quantLevels
		}
		out[i] = uint8(math.Round(q))
	}
	return out
}

// Quantize quantizes each row independently.
func Quantize(rows [][]float32, maxVal float32) [][]uint8 {
	out := make([][]uint8, len(rows))
	for i, row := range rows {
		out[i] = QuantizeVector(row, maxVal)
	}
	return out
}

// Dequantize maps bytes back to the float value at the center of their bucket.
func Dequantize(q []uint8, maxVal float32) []float32 {
	out := make([]float32, len(q))
	m := quantRange(maxVal)
	step := 2 * m / quantLevels
	for i, b := range q {
		out[i] = float32(float64(b)*step - m)
	}
	return out
}

// Step returns the width of one quantization bucket for maxVal.
func Step(maxVal float32) float32 {
	return float32(2 * quantRange(maxVal) / quantLevels)
}

// BytesToFloat32 widens quantized components so that ANN backends can compute
// distances in byte space.
func BytesToFloat32(q []uint8) []float32 {
	out := make([]float32, len(q))
	for i, b := range q {
		out[i] = float32(b)
	}
	return out
}
