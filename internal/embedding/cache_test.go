package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

type countingEncoder struct {
	*MockEncoder
	calls int
}

func (c *countingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEncoder.Encode(ctx, text)
}

func TestCachedEncoder(t *testing.T) {
	inner := &countingEncoder{MockEncoder: NewMockEncoder(4)}
	enc := NewCachedEncoder(inner, 8)
	ctx := context.Background()

	a, err := enc.Encode(ctx, "berlin")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := enc.Encode(ctx, "berlin")
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("cached vector differs")
		}
	}
	hits, misses := enc.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", hits, misses)
	}
	if enc.ID() != "mock-4" {
		t.Errorf("ID = %q", enc.ID())
	}
}
