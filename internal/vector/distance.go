package vector

import (
	"fmt"

	"github.com/viterin/vek/vek32"
)

// Metric is the distance function an index ranks by. It is fixed when a dataset is
// built and derived from the dataset's normalize and quantize flags.
type Metric uint8

const (
	// MetricEuclidean reports squared L2 distance.
	MetricEuclidean Metric = iota
	// MetricCosine reports 1 - cos(a, b).
	MetricCosine
)

// MetricFor returns the metric for a dataset. Normalized float vectors use cosine.
// Quantized vectors always use squared L2: quantization shifts every component by
// half the byte range, which breaks cosine in byte space but preserves L2 order.
func MetricFor(normalized, quantized bool) Metric {
	if normalized && !quantized {
		return MetricCosine
	}
	return MetricEuclidean
}

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("metric(%d)", uint8(m))
	}
}

// Distance computes the metric between a and b, which must have equal length.
func (m Metric) Distance(a, b []float32) float32 {
	if m == MetricCosine {
		return CosineDistance(a, b)
	}
	return SquaredL2(a, b)
}

// SquaredL2 returns the squared Euclidean distance.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1.
func CosineDistance(a, b []float32) float32 {
	na, nb := vek32.Norm(a), vek32.Norm(b)
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - vek32.Dot(a, b)/(na*nb)
	if d < 0 {
		return 0
	}
	return d
}
