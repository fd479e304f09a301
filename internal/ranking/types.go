// Package ranking reranks nearest neighbor candidates by combining their distance
// with an item popularity signal.
package ranking

import "github.com/hyperjump/vecsearch/internal/metadata"

// Candidate is an ANN hit joined with its metadata, in ANN order.
type Candidate struct {
	Ordinal  int
	Distance float64
	Entry    metadata.Entry
}

// Result is a reranked candidate. Lower scores rank first.
type Result struct {
	Candidate
	ViewFactor float64
	Score      float64
}
