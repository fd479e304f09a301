package vector

import (
	"context"
	"testing"
)

func BenchmarkSearch(b *testing.B) {
	rows := randomRows(2000, 64, 7)
	query := randomRows(1, 64, 8)[0]
	ctx := context.Background()
	for _, backend := range backends {
		idx := build(b, backend, rows, MetricEuclidean, DefaultParams())
		b.Run(string(backend), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = idx.Search(ctx, query, 20, 0)
			}
		})
		_ = idx.Close()
	}
}

func BenchmarkExact(b *testing.B) {
	rows := randomRows(2000, 64, 7)
	query := randomRows(1, 64, 8)[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Exact(rows, 0, query, 20, MetricCosine)
	}
}

func BenchmarkCosineDistance(b *testing.B) {
	rows := randomRows(2, 768, 3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CosineDistance(rows[0], rows[1])
	}
}
