// Package embedding turns text into fixed-dimension float32 vectors.
//
// Encoders return raw model output. Normalization and quantization are dataset
// transforms applied by the caller, so that build and query see identical vectors.
package embedding

import (
	"context"
	"fmt"
)

// Encoder produces vector embeddings for text.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ID identifies the model. It is recorded in the dataset descriptor and checked
	// at query time.
	ID() string
	Close() error
}

// Config selects and configures an encoder.
type Config struct {
	Type       string `yaml:"type"`        // mock | onnx
	ID         string `yaml:"id"`          // overrides the derived encoder id
	ModelPath  string `yaml:"model_path"`  // onnx model file
	VocabPath  string `yaml:"vocab_path"`  // WordPiece vocab.txt; hash tokenizer when empty
	Dimensions int    `yaml:"dimensions"`  // default: 768
	MaxTokens  int    `yaml:"max_tokens"`  // default: 256
	OutputName string `yaml:"output_name"` // default: last_hidden_state
	CacheSize  int    `yaml:"cache_size"`  // query-time LRU entries, 0 disables
}

// New creates the encoder described by cfg. A positive CacheSize wraps it in an
// LRU cache.
func New(cfg Config) (Encoder, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "last_hidden_state"
	}

	var (
		enc Encoder
		err error
	)
	switch cfg.Type {
	case "", "mock":
		enc = NewMockEncoder(cfg.Dimensions)
	case "onnx":
		enc, err = NewONNXEncoder(cfg)
	default:
		return nil, fmt.Errorf("unknown encoder type: %s (supported: mock, onnx)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	if cfg.ID != "" {
		enc = &renamed{Encoder: enc, id: cfg.ID}
	}
	if cfg.CacheSize > 0 {
		enc = NewCachedEncoder(enc, cfg.CacheSize)
	}
	return enc, nil
}

type renamed struct {
	Encoder
	id string
}

func (r *renamed) ID() string { return r.id }
