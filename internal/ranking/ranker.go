package ranking

import "sort"

// Reranker scales raw distances by a popularity factor:
//
//	factor = (base/(base+views) - 1) * weight + 1
//
// The factor is 1 for unseen items and approaches 1-weight for very popular ones.
type Reranker struct {
	config *RerankConfig
}

// NewReranker creates a Reranker with the given configuration.
func NewReranker(config *RerankConfig) *Reranker {
	if config == nil {
		config = DefaultRerankConfig()
	}
	config.ApplyDefaults()
	return &Reranker{config: config}
}

// ViewFactor returns the multiplier for an item with the given view count.
func (r *Reranker) ViewFactor(views int64) float64 {
	v := float64(max(views, 0))
	base := r.config.BaseViews
	return (base/(base+v)-1)*r.config.Weight + 1
}

// ViewFactor applies the default weighting.
func ViewFactor(views int64) float64 {
	return defaultReranker.ViewFactor(views)
}

var defaultReranker = NewReranker(nil)

// Rerank scores candidates and returns the best kDisplay in ascending score. The sort
// is stable, so equal scores keep their ANN order.
func (r *Reranker) Rerank(candidates []Candidate, kDisplay int) []Result {
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		f := r.ViewFactor(c.Entry.Views)
		out[i] = Result{Candidate: c, ViewFactor: f, Score: c.Distance * f}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score < out[j].Score
	})
	if kDisplay >= 0 && len(out) > kDisplay {
		out = out[:kDisplay]
	}
	return out
}

// Rerank applies the default weighting.
func Rerank(candidates []Candidate, kDisplay int) []Result {
	return defaultReranker.Rerank(candidates, kDisplay)
}
