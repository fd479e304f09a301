package indexer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/vecstore"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// BuildIndex builds an index of the given backend over the vector store in dir, saves it,
// and rewrites the descriptor with the backend recorded. The descriptor is written only
// after the index file is durable.
func (idx *Indexer) BuildIndex(ctx context.Context, dir string, backend vector.Backend) (*BuildStats, error) {
	start := time.Now()
	layout := dataset.Layout{Dir: dir}
	desc, err := dataset.ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	if err := desc.Require(dataset.BuildFields...); err != nil {
		return nil, err
	}

	index, err := idx.buildFromStore(ctx, layout, desc, backend)
	if err != nil {
		return nil, err
	}
	defer index.Close()

	if err := index.Save(layout.Index(backend)); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	desc.IndexBackend = backend
	if err := dataset.WriteDescriptor(dir, desc); err != nil {
		return nil, err
	}

	stats := &BuildStats{
		Backend:    backend,
		NumSamples: index.Len(),
		Elapsed:    time.Since(start),
		Recall:     -1,
	}
	idx.logger.Info("Index built",
		zap.String("backend", string(backend)),
		zap.Int("num_samples", stats.NumSamples),
		zap.String("metric", desc.Metric().String()),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

func (idx *Indexer) buildFromStore(ctx context.Context, layout dataset.Layout, desc *dataset.Descriptor, backend vector.Backend) (vector.Index, error) {
	it, err := vecstore.Open(layout.Features(), desc.Dim, desc.NumSamples, dataset.Elem(desc), idx.chunkSize)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	builder, err := vector.NewBuilder(backend, desc.Dim, desc.NumSamples, desc.Metric(), idx.params)
	if err != nil {
		return nil, err
	}
	defer builder.Close()

	idx.logger.Info("Adding data points to builder",
		zap.Int("num_samples", desc.NumSamples),
		zap.Int("dim", desc.Dim),
		zap.String("backend", string(backend)),
	)
	start := time.Now()
	chunks := 0
	for it.Next() {
		c := it.Chunk()
		if chunks != 0 && chunks%progressEvery == 0 {
			idx.logger.Info("Added data points",
				zap.Int("count", c.Offset),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
		labels := make([]uint32, c.Len())
		for i := range labels {
			labels[i] = uint32(c.Offset + i)
		}
		if err := builder.Add(ctx, labels, c.Float()); err != nil {
			return nil, fmt.Errorf("failed to add chunk at %d: %w", c.Offset, err)
		}
		chunks++
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector store: %w", err)
	}
	idx.logger.Info("Added all data points", zap.Int("count", desc.NumSamples), zap.Duration("elapsed", time.Since(start)))

	index, err := builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	return index, nil
}

// VerifyRecall queries index with up to samples stored vectors and returns the mean
// recall@k against an exact scan of the store.
func (idx *Indexer) VerifyRecall(ctx context.Context, dir string, index vector.Index, samples, k int, quality float64) (float64, error) {
	layout := dataset.Layout{Dir: dir}
	desc, err := dataset.ReadDescriptor(dir)
	if err != nil {
		return 0, err
	}
	if samples <= 0 || desc.NumSamples == 0 {
		return 1, nil
	}
	samples = min(samples, desc.NumSamples)

	reader, err := vecstore.OpenMmap(layout.Features(), desc.Dim, desc.NumSamples, dataset.Elem(desc))
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	rng := rand.New(rand.NewSource(idx.params.Seed))
	picks := rng.Perm(desc.NumSamples)[:samples]
	queries := make([][]float32, samples)
	for i, p := range picks {
		if queries[i], err = reader.Vector(p); err != nil {
			return 0, err
		}
	}

	// exact nearest neighbors of every query in one pass over the store
	exact := make([][]vector.Neighbor, samples)
	it, err := vecstore.Open(layout.Features(), desc.Dim, desc.NumSamples, dataset.Elem(desc), idx.chunkSize)
	if err != nil {
		return 0, err
	}
	defer it.Close()
	metric := desc.Metric()
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		c := it.Chunk()
		rows := c.Float()
		for i, q := range queries {
			exact[i] = vector.MergeNearest(exact[i], vector.Exact(rows, uint32(c.Offset), q, k, metric), k)
		}
	}
	if err := it.Err(); err != nil {
		return 0, err
	}

	var total float64
	for i, q := range queries {
		got, err := index.Search(ctx, q, k, quality)
		if err != nil {
			return 0, err
		}
		total += vector.Recall(got, exact[i])
	}
	recall := total / float64(samples)
	idx.logger.Info("Recall verified",
		zap.Int("samples", samples),
		zap.Int("k", k),
		zap.Float64("recall", recall),
	)
	return recall, nil
}

// BuildAndVerify runs BuildIndex and, when samples > 0, VerifyRecall on the saved index.
func (idx *Indexer) BuildAndVerify(ctx context.Context, dir string, backend vector.Backend, samples, k int) (*BuildStats, error) {
	stats, err := idx.BuildIndex(ctx, dir, backend)
	if err != nil || samples <= 0 {
		return stats, err
	}
	desc, err := dataset.ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	index, err := vector.Load(backend, dataset.Layout{Dir: dir}.Index(backend), desc.Metric(), idx.params)
	if err != nil {
		return nil, err
	}
	defer index.Close()
	recall, err := idx.VerifyRecall(ctx, dir, index, samples, k, 0)
	if err != nil {
		return nil, err
	}
	stats.Recall = recall
	return stats, nil
}
