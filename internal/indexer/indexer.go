// Package indexer builds datasets: it encodes corpus items into the vector store and
// metadata table, builds an ANN index over the store, and finalizes the descriptor.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/embedding"
	"github.com/hyperjump/vecsearch/internal/metadata"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/storage"
	"github.com/hyperjump/vecsearch/internal/transform"
	"github.com/hyperjump/vecsearch/internal/vecstore"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// DefaultBatchSize is the number of items encoded per encoder call.
const DefaultBatchSize = 256

// progressEvery is the number of store chunks between build progress lines.
const progressEvery = 10

// ErrEmptyCorpus is returned when the item source yields nothing.
var ErrEmptyCorpus = errors.New("corpus produced no items")

// ItemSource yields corpus items in ordinal order until io.EOF.
type ItemSource interface {
	Next() (models.Item, error)
}

// Indexer runs the build stages for one encoder and transform pipeline.
type Indexer struct {
	encoder    embedding.Encoder
	pipeline   transform.Pipeline
	params     vector.Params
	batchSize  int
	chunkSize  int
	metadataDB bool
	dry        bool
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger for progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets the encoder batch size.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithChunkSize sets the number of rows read from the store per builder call.
func WithChunkSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.chunkSize = n
		}
	}
}

// WithParams sets the index construction parameters.
func WithParams(p vector.Params) IndexerOption {
	return func(idx *Indexer) { idx.params = p }
}

// WithMetadataDB enables the SQLite metadata mirror (meta.db).
func WithMetadataDB(enabled bool) IndexerOption {
	return func(idx *Indexer) { idx.metadataDB = enabled }
}

// WithDryRun makes EncodeCorpus count items without encoding or writing anything.
func WithDryRun(dry bool) IndexerOption {
	return func(idx *Indexer) { idx.dry = dry }
}

// NewIndexer returns an indexer. encoder may be nil when only BuildIndex is used.
func NewIndexer(encoder embedding.Encoder, pipeline transform.Pipeline, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		encoder:   encoder,
		pipeline:  pipeline,
		params:    vector.DefaultParams(),
		batchSize: DefaultBatchSize,
		chunkSize: vecstore.DefaultChunkSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// EncodeStats summarizes an encode run.
type EncodeStats struct {
	Items    int
	Dim      int
	Elapsed  time.Duration
	DryRun   bool
	Encoder  string
	Quantize bool
}

// BuildStats summarizes an index build.
type BuildStats struct {
	Backend    vector.Backend
	NumSamples int
	Elapsed    time.Duration
	// Recall is the mean self-recall measured by VerifyRecall, or -1 when not run.
	Recall float64
}

type encodedBatch struct {
	items  []models.Item
	floats [][]float32
	bytes  [][]uint8
}

// EncodeCorpus encodes every item of src into dir: the vector store, meta.json, the
// optional meta.db mirror, and a draft descriptor without an index backend. A previous
// descriptor and index in dir are removed before the new store is committed. Encoding of
// the next batch overlaps the write of the current one; rows are written in item order.
func (idx *Indexer) EncodeCorpus(ctx context.Context, src ItemSource, dir string) (*EncodeStats, error) {
	start := time.Now()
	if idx.dry {
		return idx.countItems(src, start)
	}
	if idx.encoder == nil {
		return nil, errors.New("encoder is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset dir: %w", err)
	}
	layout := dataset.Layout{Dir: dir}
	dim := idx.encoder.Dimensions()
	elem := vecstore.ElemFor(idx.pipeline.Quantize())

	w, err := vecstore.Create(layout.Features(), dim, elem)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			w.Abort()
		}
	}()

	var meta metadata.Builder
	batches := make(chan encodedBatch, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		return idx.produce(gctx, src, batches)
	})
	g.Go(func() error {
		for b := range batches {
			var err error
			if b.bytes != nil {
				err = w.WriteQuantizedChunk(b.bytes)
			} else {
				err = w.WriteChunk(b.floats)
			}
			if err != nil {
				return fmt.Errorf("failed to write vectors: %w", err)
			}
			for _, it := range b.items {
				meta.Append(metadata.Entry{Title: it.Title, Link: it.Link, Views: it.Views})
			}
			idx.logger.Debug("Batch written", zap.Int("items", meta.Len()))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if w.Count() == 0 {
		return nil, ErrEmptyCorpus
	}
	if w.Count() != meta.Len() {
		return nil, fmt.Errorf("vector count %d differs from metadata count %d", w.Count(), meta.Len())
	}
	if err := layout.Invalidate(); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize vector store: %w", err)
	}
	committed = true

	table := meta.Table()
	if err := metadata.SaveJSON(layout.Metadata(), table); err != nil {
		return nil, err
	}
	if idx.metadataDB {
		if err := writeMetadataDB(ctx, layout.MetadataDB(), table); err != nil {
			return nil, err
		}
	}

	desc := &dataset.Descriptor{
		Dim:        dim,
		NumSamples: table.Len(),
		EncoderID:  idx.encoder.ID(),
		Normalize:  idx.pipeline.Normalize(),
		Quantize:   idx.pipeline.Quantize(),
		ChunkSize:  idx.chunkSize,
		CreatedAt:  time.Now().UTC(),
	}
	if desc.Quantize {
		desc.QuantizeMax = idx.pipeline.QuantizeMax()
	}
	if err := dataset.WriteDescriptor(dir, desc); err != nil {
		return nil, err
	}

	stats := &EncodeStats{
		Items:    table.Len(),
		Dim:      dim,
		Elapsed:  time.Since(start),
		Encoder:  desc.EncoderID,
		Quantize: desc.Quantize,
	}
	idx.logger.Info("Corpus encoded",
		zap.Int("num_samples", stats.Items),
		zap.Int("dim", dim),
		zap.String("encoder", stats.Encoder),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// produce reads items in batches, encodes and transforms them, and sends them in order.
func (idx *Indexer) produce(ctx context.Context, src ItemSource, out chan<- encodedBatch) error {
	batch := make([]models.Item, 0, idx.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, len(batch))
		for i, it := range batch {
			texts[i] = cleanText(it.Text)
		}
		raw, err := idx.encoder.EncodeBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to encode batch: %w", err)
		}
		floats, bytes, err := idx.pipeline.ApplyBatch(raw)
		if err != nil {
			return fmt.Errorf("failed to transform batch: %w", err)
		}
		select {
		case out <- encodedBatch{items: batch, floats: floats, bytes: bytes}:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([]models.Item, 0, idx.batchSize)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		it, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read corpus: %w", err)
		}
		batch = append(batch, it)
		if len(batch) >= idx.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (idx *Indexer) countItems(src ItemSource, start time.Time) (*EncodeStats, error) {
	n := 0
	for {
		_, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus: %w", err)
		}
		n++
	}
	stats := &EncodeStats{Items: n, Elapsed: time.Since(start), DryRun: true}
	idx.logger.Info("Dry run", zap.Int("items", n), zap.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

func writeMetadataDB(ctx context.Context, path string, table *metadata.Table) error {
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return fmt.Errorf("failed to open metadata db: %w", err)
	}
	defer store.Close()
	if err := store.ReplaceEntries(ctx, table.Entries()); err != nil {
		return fmt.Errorf("failed to write metadata db: %w", err)
	}
	return nil
}

// SliceSource yields a fixed list of items.
type SliceSource struct {
	Items []models.Item
	next  int
}

// Next returns the next item or io.EOF.
func (s *SliceSource) Next() (models.Item, error) {
	if s.next >= len(s.Items) {
		return models.Item{}, io.EOF
	}
	it := s.Items[s.next]
	s.next++
	return it, nil
}
