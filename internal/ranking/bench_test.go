package ranking

import (
	"testing"

	"github.com/hyperjump/vecsearch/internal/metadata"
)

func BenchmarkRerank(b *testing.B) {
	candidates := make([]Candidate, 200)
	for i := range candidates {
		candidates[i] = Candidate{
			Ordinal:  i,
			Distance: float64(i) / 200,
			Entry:    metadata.Entry{Views: int64((i * 7919) % 50000)},
		}
	}
	r := NewReranker(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Rerank(candidates, 20)
	}
}
