// Package search runs queries against a loaded dataset: encode, transform, nearest
// neighbor search, metadata join and popularity reranking.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/embedding"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/ranking"
	"github.com/hyperjump/vecsearch/internal/vector"
)

var (
	// ErrEmptyQuery is returned for a query without text.
	ErrEmptyQuery = models.ErrEmptyQuery
	// ErrEncoderMismatch is returned when the query encoder differs from the one
	// recorded in the dataset descriptor.
	ErrEncoderMismatch = errors.New("encoder does not match dataset")
	// ErrNoDataset is returned when the engine has no dataset loaded.
	ErrNoDataset = errors.New("no dataset loaded")
)

// Config holds query defaults. Zero quality values select the index defaults.
type Config struct {
	KDisplay     int
	KCandidates  int
	QualityGraph float64
	QualityHNSW  float64
	// AllowEncoderMismatch skips the encoder id check.
	AllowEncoderMismatch bool
}

// Engine answers queries. It is safe for concurrent use; the dataset is swapped
// atomically by Reload.
type Engine struct {
	dataset  atomic.Pointer[dataset.Dataset]
	encoder  embedding.Encoder
	reranker *ranking.Reranker
	config   Config
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine over ds. reranker may be nil for the default weighting.
func NewEngine(ds *dataset.Dataset, encoder embedding.Encoder, reranker *ranking.Reranker, cfg Config, opts ...EngineOption) (*Engine, error) {
	if encoder == nil {
		return nil, errors.New("encoder is required")
	}
	if reranker == nil {
		reranker = ranking.NewReranker(nil)
	}
	e := &Engine{
		encoder:  encoder,
		reranker: reranker,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if err := e.check(ds); err != nil {
		return nil, err
	}
	e.dataset.Store(ds)
	return e, nil
}

// check verifies the encoder can produce queries for ds.
func (e *Engine) check(ds *dataset.Dataset) error {
	if ds == nil {
		return ErrNoDataset
	}
	d := ds.Descriptor
	if !e.config.AllowEncoderMismatch && d.EncoderID != e.encoder.ID() {
		return fmt.Errorf("%w: dataset %q, encoder %q", ErrEncoderMismatch, d.EncoderID, e.encoder.ID())
	}
	if e.encoder.Dimensions() != d.Dim {
		return &vector.DimensionMismatchError{Expected: d.Dim, Actual: e.encoder.Dimensions()}
	}
	return nil
}

// Dataset returns the dataset currently served.
func (e *Engine) Dataset() *dataset.Dataset { return e.dataset.Load() }

// Reload swaps in ds and returns the previous dataset. In-flight queries keep using
// the previous one, so the caller closes it once they have drained.
func (e *Engine) Reload(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if err := e.check(ds); err != nil {
		return nil, err
	}
	old := e.dataset.Swap(ds)
	e.logger.Info("Dataset reloaded",
		zap.String("dir", ds.Layout.Dir),
		zap.Int("num_samples", ds.Descriptor.NumSamples),
		zap.String("backend", string(ds.Descriptor.IndexBackend)),
	)
	return old, nil
}

// Search encodes the query text and returns reranked results.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	e.applyDefaults(q)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	raw, err := e.encoder.Encode(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return e.search(ctx, e.dataset.Load(), q, raw, start)
}

// SearchVector searches with a pre-encoded query. raw is encoder output; the dataset
// transforms are applied to it.
func (e *Engine) SearchVector(ctx context.Context, raw []float32, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if q == nil {
		q = &models.SearchQuery{}
	}
	e.applyDefaults(q)
	if err := q.ValidateCounts(); err != nil {
		return nil, err
	}
	return e.search(ctx, e.dataset.Load(), q, raw, start)
}

func (e *Engine) applyDefaults(q *models.SearchQuery) {
	if q.K <= 0 {
		q.K = e.config.KDisplay
	}
	if q.KCandidates <= 0 {
		q.KCandidates = e.config.KCandidates
	}
}

func (e *Engine) search(ctx context.Context, ds *dataset.Dataset, q *models.SearchQuery, raw []float32, start time.Time) (*models.SearchResponse, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	if len(raw) != ds.Descriptor.Dim {
		return nil, &vector.DimensionMismatchError{Expected: ds.Descriptor.Dim, Actual: len(raw)}
	}
	v, err := ds.Pipeline.Apply(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to transform query: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quality := q.Quality
	if quality == 0 {
		quality = e.defaultQuality(ds.Descriptor.IndexBackend)
	}
	neighbors, err := ds.Index.Search(ctx, v.ANN(), q.KCandidates, quality)
	if err != nil {
		return nil, err
	}

	candidates := make([]ranking.Candidate, len(neighbors))
	for i, n := range neighbors {
		entry, err := ds.Metadata.Resolve(int(n.ID))
		if err != nil {
			return nil, err
		}
		candidates[i] = ranking.Candidate{Ordinal: int(n.ID), Distance: float64(n.Distance), Entry: entry}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := e.reranker.Rerank(candidates, q.K)
	resp := &models.SearchResponse{
		Query:      q.Query,
		Results:    make([]*models.SearchResult, len(ranked)),
		Total:      len(ranked),
		Candidates: len(candidates),
		Backend:    string(ds.Descriptor.IndexBackend),
	}
	for i, r := range ranked {
		resp.Results[i] = &models.SearchResult{
			Rank:     i + 1,
			Ordinal:  r.Ordinal,
			Title:    r.Entry.Title,
			Link:     r.Entry.Link,
			Views:    r.Entry.Views,
			Distance: r.Distance,
			Score:    r.Score,
		}
	}
	elapsed := time.Since(start)
	resp.QueryTime = elapsed.Milliseconds()
	e.logger.Debug("Query answered",
		zap.String("query", q.Query),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(ranked)),
		zap.Duration("elapsed", elapsed),
	)
	return resp, nil
}

func (e *Engine) defaultQuality(b vector.Backend) float64 {
	if b == vector.BackendHNSW {
		return e.config.QualityHNSW
	}
	return e.config.QualityGraph
}

// Close releases the served dataset.
func (e *Engine) Close() error {
	return e.dataset.Swap(nil).Close()
}
