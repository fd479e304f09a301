package embedding

import (
	"context"
	"testing"
)

func BenchmarkMockEncoder_Encode(b *testing.B) {
	e := NewMockEncoder(768)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Encode(ctx, "Der Harz ist das höchste Gebirge Norddeutschlands.")
	}
}

func BenchmarkCachedEncoder_Hit(b *testing.B) {
	e := NewCachedEncoder(NewMockEncoder(768), 16)
	ctx := context.Background()
	_, _ = e.Encode(ctx, "Ostsee")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Encode(ctx, "Ostsee")
	}
}
