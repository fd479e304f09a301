// Package vector provides the approximate nearest neighbor indexes behind a dataset.
//
// Two backends implement the same Index capability: a size-bounded regular graph
// (BackendGraph) and a hierarchical small-world graph (BackendHNSW). Callers build an
// index through a Builder, persist it with Save and reopen it read-only with Load.
package vector

import "context"

// Backend identifies an index implementation.
type Backend string

const (
	BackendGraph Backend = "graph"
	BackendHNSW  Backend = "hnsw"
)

// Neighbor is a single search hit. ID is the ordinal of the vector in the dataset.
type Neighbor struct {
	ID       uint32
	Distance float32
}

// Index is a read-only nearest neighbor index. Implementations are safe for
// concurrent Search calls.
type Index interface {
	// Search returns up to k neighbors in ascending distance. quality tunes the
	// recall/latency trade-off in backend units; zero selects the default.
	Search(ctx context.Context, query []float32, k int, quality float64) ([]Neighbor, error)
	Save(path string) error
	Len() int
	Dim() int
	Backend() Backend
	Metric() Metric
	Close() error
}

// Builder accumulates vectors and produces an Index. Labels must be contiguous
// ordinals starting at zero, added in order.
type Builder interface {
	Add(ctx context.Context, labels []uint32, rows [][]float32) error
	Build(ctx context.Context) (Index, error)
	Close() error
}
