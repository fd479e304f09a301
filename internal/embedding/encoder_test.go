package embedding

import (
	"context"
	"testing"
)

func TestMockEncoder_Deterministic(t *testing.T) {
	enc := NewMockEncoder(16)
	ctx := context.Background()
	a, _ := enc.Encode(ctx, "Berlin ist die Hauptstadt")
	b, _ := enc.Encode(ctx, "Berlin ist die Hauptstadt")
	c, _ := enc.Encode(ctx, "Hamburg")
	if len(a) != 16 {
		t.Fatalf("len = %d", len(a))
	}
	same, differ := true, false
	for i := range a {
		if a[i] != b[i] {
			same = false
		}
		if a[i] != c[i] {
			differ = true
		}
	}
	if !same {
		t.Error("same text produced different vectors")
	}
	if !differ {
		t.Error("different texts produced identical vectors")
	}
}

func TestMockEncoder_Batch(t *testing.T) {
	enc := NewMockEncoder(8)
	out, err := enc.EncodeBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || len(out[2]) != 8 {
		t.Errorf("batch shape = %d x %d", len(out), len(out[0]))
	}
}

func TestMockEncoder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockEncoder(4).Encode(ctx, "x"); err == nil {
		t.Error("expected context error")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantID  string
		wantDim int
		wantErr bool
	}{
		{"default mock", Config{}, "mock-768", 768, false},
		{"mock dims", Config{Type: "mock", Dimensions: 32}, "mock-32", 32, false},
		{"renamed", Config{Type: "mock", Dimensions: 4, ID: "cross-en-de"}, "cross-en-de", 4, false},
		{"cached", Config{Type: "mock", Dimensions: 4, CacheSize: 10}, "mock-4", 4, false},
		{"unknown", Config{Type: "word2vec"}, "", 0, true},
		{"onnx without model", Config{Type: "onnx"}, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer enc.Close()
			if enc.ID() != tt.wantID || enc.Dimensions() != tt.wantDim {
				t.Errorf("ID/Dimensions = %q/%d, want %q/%d", enc.ID(), enc.Dimensions(), tt.wantID, tt.wantDim)
			}
		})
	}
}

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	got := MeanPool(hidden, []int64{1, 1, 0}, 2)
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("MeanPool = %v, want [2 3]", got)
	}
	zero := MeanPool(hidden, []int64{0, 0, 0}, 2)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("MeanPool with empty mask = %v", zero)
	}
}
