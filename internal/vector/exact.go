package vector

import "sort"

// Exact returns the k nearest rows to query by brute force. Row i has ID offset+i.
// It is the reference used to measure index recall.
func Exact(rows [][]float32, offset uint32, query []float32, k int, metric Metric) []Neighbor {
	if k <= 0 {
		return nil
	}
	out := make([]Neighbor, len(rows))
	for i, r := range rows {
		out[i] = Neighbor{ID: offset + uint32(i), Distance: metric.Distance(query, r)}
	}
	sortNeighbors(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// MergeNearest merges two ascending neighbor lists and keeps the k nearest.
func MergeNearest(a, b []Neighbor, k int) []Neighbor {
	out := make([]Neighbor, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sortNeighbors(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Recall returns the fraction of want that also appears in got.
func Recall(got, want []Neighbor) float64 {
	if len(want) == 0 {
		return 1
	}
	seen := make(map[uint32]struct{}, len(got))
	for _, n := range got {
		seen[n.ID] = struct{}{}
	}
	hit := 0
	for _, n := range want {
		if _, ok := seen[n.ID]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(want))
}

func sortNeighbors(ns []Neighbor) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Distance == ns[j].Distance {
			return ns[i].ID < ns[j].ID
		}
		return ns[i].Distance < ns[j].Distance
	})
}
