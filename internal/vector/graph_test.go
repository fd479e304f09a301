package vector

import (
	"context"
	"testing"
)

func newTestGraphBuilder(t *testing.T, rows [][]float32, edges int) *graphBuilder {
	t.Helper()
	p := DefaultParams()
	p.Graph.EdgesPerVertex = edges
	b := newGraphBuilder(len(rows[0]), len(rows), MetricEuclidean, p.withDefaults())
	if err := b.Add(context.Background(), labels(0, len(rows)), rows); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestGraphIsRegularBeforePruning(t *testing.T) {
	const edges = 6
	b := newTestGraphBuilder(t, randomRows(200, 5, 11), edges)
	if err := b.construct(context.Background()); err != nil {
		t.Fatal(err)
	}
	g := b.g
	for v := range g.adj {
		if len(g.adj[v]) != edges {
			t.Fatalf("vertex %d has degree %d, want %d", v, len(g.adj[v]), edges)
		}
		for _, n := range g.adj[v] {
			if int(n) == v {
				t.Fatalf("vertex %d has a self loop", v)
			}
			if !g.hasEdge(n, uint32(v)) {
				t.Fatalf("edge %d-%d is not symmetric", v, n)
			}
		}
	}
}

func TestImprovePreservesDegree(t *testing.T) {
	const edges = 4
	b := newTestGraphBuilder(t, randomRows(120, 3, 12), edges)
	b.params.ImproveK = 8
	if err := b.construct(context.Background()); err != nil {
		t.Fatal(err)
	}
	for v, nbrs := range b.g.adj {
		if len(nbrs) != edges {
			t.Fatalf("vertex %d has degree %d after improvement", v, len(nbrs))
		}
	}
}

func TestPruneKeepsGraphConnected(t *testing.T) {
	b := newTestGraphBuilder(t, randomRows(300, 4, 13), 8)
	idx, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	g := idx.(*graph)

	seen := make([]bool, len(g.adj))
	stack := []uint32{g.entry}
	seen[g.entry] = true
	reached := 1
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range g.adj[v] {
			if !seen[n] {
				seen[n] = true
				reached++
				stack = append(stack, n)
			}
		}
	}
	if reached != len(g.adj) {
		t.Errorf("reached %d of %d vertices after pruning", reached, len(g.adj))
	}
	for v, nbrs := range g.adj {
		if len(nbrs) > 8 {
			t.Errorf("vertex %d has degree %d > 8", v, len(nbrs))
		}
	}
}

func TestPruneRemovesLongTriangleEdge(t *testing.T) {
	g := &graph{
		dim:     1,
		metric:  MetricEuclidean,
		vectors: [][]float32{{0}, {1}, {2}},
		adj:     [][]uint32{{1, 2}, {0, 2}, {0, 1}},
	}
	g.pruneNonRNG()
	if g.hasEdge(0, 2) || g.hasEdge(2, 0) {
		t.Error("edge 0-2 should be removed: vertex 1 is closer to both ends")
	}
	if !g.hasEdge(0, 1) || !g.hasEdge(1, 2) {
		t.Error("short edges must survive")
	}
}
