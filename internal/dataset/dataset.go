package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/metadata"
	"github.com/hyperjump/vecsearch/internal/storage"
	"github.com/hyperjump/vecsearch/internal/transform"
	"github.com/hyperjump/vecsearch/internal/vecstore"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// Dataset is a loaded, read-only dataset ready for queries.
type Dataset struct {
	Layout     Layout
	Descriptor *Descriptor
	Pipeline   transform.Pipeline
	Metadata   *metadata.Table
	Index      vector.Index
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

type openOptions struct {
	params vector.Params
	logger *zap.Logger
}

// WithParams sets the backend parameters used for query-time defaults.
func WithParams(p vector.Params) OpenOption {
	return func(o *openOptions) { o.params = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) OpenOption {
	return func(o *openOptions) { o.logger = l }
}

// Open loads the descriptor, metadata and index from dir and checks that all three
// agree on the sample count.
func Open(ctx context.Context, dir string, opts ...OpenOption) (*Dataset, error) {
	o := openOptions{params: vector.DefaultParams(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	layout := Layout{Dir: dir}

	desc, err := ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	if err := desc.Require(QueryFields...); err != nil {
		return nil, err
	}
	if err := checkStore(layout, desc); err != nil {
		return nil, err
	}

	meta, err := loadMetadata(ctx, layout)
	if err != nil {
		return nil, err
	}
	if meta.Len() != desc.NumSamples {
		return nil, fmt.Errorf("%w: descriptor has %d, metadata has %d", ErrSampleCount, desc.NumSamples, meta.Len())
	}

	idx, err := vector.Load(desc.IndexBackend, layout.Index(desc.IndexBackend), desc.Metric(), o.params)
	if err != nil {
		return nil, err
	}
	if idx.Len() != desc.NumSamples {
		idx.Close()
		return nil, fmt.Errorf("%w: descriptor has %d, index has %d", ErrSampleCount, desc.NumSamples, idx.Len())
	}
	if idx.Dim() != desc.Dim {
		idx.Close()
		return nil, &vector.DimensionMismatchError{Expected: desc.Dim, Actual: idx.Dim()}
	}

	o.logger.Info("Dataset loaded",
		zap.String("dir", dir),
		zap.Int("dim", desc.Dim),
		zap.Int("num_samples", desc.NumSamples),
		zap.String("backend", string(desc.IndexBackend)),
		zap.Bool("normalize", desc.Normalize),
		zap.Bool("quantize", desc.Quantize),
	)
	return &Dataset{
		Layout:     layout,
		Descriptor: desc,
		Pipeline:   desc.Pipeline(),
		Metadata:   meta,
		Index:      idx,
	}, nil
}

// Close releases the index.
func (d *Dataset) Close() error {
	if d == nil || d.Index == nil {
		return nil
	}
	return d.Index.Close()
}

// loadMetadata prefers meta.json and falls back to the SQLite mirror.
func loadMetadata(ctx context.Context, layout Layout) (*metadata.Table, error) {
	table, err := metadata.LoadJSON(layout.Metadata())
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	if _, statErr := os.Stat(layout.MetadataDB()); statErr != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	store, err := storage.NewSQLiteStorage(layout.MetadataDB())
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata db: %w", err)
	}
	defer store.Close()
	table, err = store.LoadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata db: %w", err)
	}
	return table, nil
}

// checkStore verifies the vector file, when present, holds exactly N*D elements of
// the type the descriptor's quantize flag implies.
func checkStore(layout Layout, d *Descriptor) error {
	info, err := os.Stat(layout.Features())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	want := vecstore.ExpectedSize(d.NumSamples, d.Dim, Elem(d))
	if info.Size() == want {
		return nil
	}
	other := vecstore.ElemFor(!d.Quantize)
	if d.NumSamples > 0 && info.Size() == vecstore.ExpectedSize(d.NumSamples, d.Dim, other) {
		return &transform.MismatchError{
			Reason: fmt.Sprintf("descriptor says quantize=%v but %s holds %s vectors", d.Quantize, FeaturesFile, other),
		}
	}
	return fmt.Errorf("%w: %s is %d bytes, want %d", vecstore.ErrSizeMismatch, FeaturesFile, info.Size(), want)
}
