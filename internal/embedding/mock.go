package embedding

import (
	"context"
	"fmt"
	"math"
)

// MockEncoder is a deterministic encoder for tests and dry runs. It returns a
// fixed-dimension vector derived from the text hash so that the same text always
// gets the same embedding. Vectors are not normalized.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder that produces deterministic embeddings of the given dimensions.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEncoder{dimensions: dimensions}
}

// Encode returns a deterministic embedding based on the text hash.
func (e *MockEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	return emb, nil
}

// EncodeBatch calls Encode for each text.
func (e *MockEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Encode(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// ID returns "mock-<dimensions>".
func (e *MockEncoder) ID() string {
	return fmt.Sprintf("mock-%d", e.dimensions)
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}
