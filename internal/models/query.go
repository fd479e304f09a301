package models

import (
	"errors"
	"fmt"
)

// Query defaults.
const (
	DefaultK           = 20
	DefaultKCandidates = 200
	MaxK               = 1000
)

var (
	ErrEmptyQuery = errors.New("query cannot be empty")
	ErrInvalidK   = errors.New("invalid result count")
)

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	// K is the number of results displayed after reranking.
	K int `json:"k,omitempty"`
	// KCandidates is the number of nearest neighbors fetched before reranking.
	KCandidates int `json:"k_candidates,omitempty"`
	// Quality is the backend search parameter: eps for graph, ef for hnsw.
	Quality float64 `json:"quality,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// KCandidates must exceed K so reranking can promote items from below the cut.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return ErrEmptyQuery
	}
	return q.ValidateCounts()
}

// ValidateCounts applies count defaults without requiring query text, for
// pre-encoded vector queries.
func (q *SearchQuery) ValidateCounts() error {
	if q.K <= 0 {
		q.K = DefaultK
	}
	if q.K > MaxK {
		q.K = MaxK
	}
	if q.KCandidates <= 0 {
		q.KCandidates = max(DefaultKCandidates, q.K+1)
	}
	if q.KCandidates <= q.K {
		return fmt.Errorf("%w: k_candidates (%d) must be greater than k (%d)", ErrInvalidK, q.KCandidates, q.K)
	}
	if q.Quality < 0 {
		return fmt.Errorf("quality must not be negative, got %g", q.Quality)
	}
	return nil
}
