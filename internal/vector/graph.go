package vector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// graph is an undirected, size-bounded regular graph. Before pruning every vertex has
// exactly EdgesPerVertex neighbors (fewer when the dataset is smaller than that).
type graph struct {
	dim     int
	metric  Metric
	edges   int
	entry   uint32
	vectors [][]float32
	adj     [][]uint32
	eps     float64

	compression Compression
}

func (g *graph) dist(a, b uint32) float32 {
	return g.metric.Distance(g.vectors[a], g.vectors[b])
}

func (g *graph) hasEdge(a, b uint32) bool {
	for _, n := range g.adj[a] {
		if n == b {
			return true
		}
	}
	return false
}

func (g *graph) replaceEdge(a, from, to uint32) {
	for i, n := range g.adj[a] {
		if n == from {
			g.adj[a][i] = to
			return
		}
	}
}

// search runs a range search from entries. Exploration continues while the nearest
// unexpanded candidate is within radius*(1+eps), radius being the current k-th best.
func (g *graph) search(query []float32, k int, eps float64, entries []uint32) []candidate {
	visited := roaring.New()
	next := &distQueue{}
	best := &distQueue{max: true}
	for _, e := range entries {
		if !visited.CheckedAdd(e) {
			continue
		}
		c := candidate{id: e, dist: g.metric.Distance(query, g.vectors[e])}
		next.push(c)
		best.push(c)
	}
	for best.Len() > k {
		best.pop()
	}
	radius := math.Inf(1)
	if best.Len() == k {
		radius = float64(best.top().dist)
	}

	for next.Len() > 0 {
		c := next.pop()
		if float64(c.dist) > radius*(1+eps) {
			break
		}
		for _, n := range g.adj[c.id] {
			if !visited.CheckedAdd(n) {
				continue
			}
			d := g.metric.Distance(query, g.vectors[n])
			if float64(d) > radius*(1+eps) {
				continue
			}
			next.push(candidate{id: n, dist: d})
			if best.Len() < k || float64(d) < radius {
				best.push(candidate{id: n, dist: d})
				if best.Len() > k {
					best.pop()
				}
				if best.Len() == k {
					radius = float64(best.top().dist)
				}
			}
		}
	}
	return best.sorted()
}

func (g *graph) Search(ctx context.Context, query []float32, k int, quality float64) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDim(g.dim, query); err != nil {
		return nil, err
	}
	if k <= 0 || len(g.vectors) == 0 {
		return nil, nil
	}
	eps := quality
	if eps <= 0 {
		eps = g.eps
	}
	found := g.search(query, k, eps, []uint32{g.entry})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Neighbor, len(found))
	for i, c := range found {
		out[i] = Neighbor{ID: c.id, Distance: c.dist}
	}
	return out, nil
}

func (g *graph) Len() int         { return len(g.vectors) }
func (g *graph) Dim() int         { return g.dim }
func (g *graph) Backend() Backend { return BackendGraph }
func (g *graph) Metric() Metric   { return g.metric }
func (g *graph) Close() error     { return nil }

// degree returns the neighbor count of vertex v.
func (g *graph) degree(v uint32) int { return len(g.adj[v]) }

type graphBuilder struct {
	g      *graph
	cursor labelCursor
	params GraphParams
	rng    *rand.Rand
	closed bool
}

func newGraphBuilder(dim, numSamples int, metric Metric, p Params) *graphBuilder {
	return &graphBuilder{
		g: &graph{
			dim:     dim,
			metric:  metric,
			edges:   p.Graph.EdgesPerVertex,
			vectors: make([][]float32, 0, numSamples),
			eps:     p.Graph.SearchEps,

			compression: p.Compression,
		},
		cursor: labelCursor{cap: numSamples},
		params: p.Graph,
		rng:    rand.New(rand.NewSource(p.Seed)),
	}
}

func (b *graphBuilder) Add(ctx context.Context, labels []uint32, rows [][]float32) error {
	if b.closed {
		return ErrBuilderClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := checkDim(b.g.dim, r); err != nil {
			return err
		}
	}
	if err := b.cursor.advance(labels, len(rows)); err != nil {
		return err
	}
	for _, r := range rows {
		v := make([]float32, len(r))
		copy(v, r)
		b.g.vectors = append(b.g.vectors, v)
	}
	return nil
}

func (b *graphBuilder) Build(ctx context.Context) (Index, error) {
	if b.closed {
		return nil, ErrBuilderClosed
	}
	g := b.g
	if len(g.vectors) != b.cursor.cap {
		return nil, fmt.Errorf("added %d of %d vectors", len(g.vectors), b.cursor.cap)
	}
	if err := b.construct(ctx); err != nil {
		return nil, err
	}
	g.pruneNonRNG()

	b.g = nil
	b.closed = true
	return g, nil
}

// construct builds the regular graph without pruning.
func (b *graphBuilder) construct(ctx context.Context) error {
	g := b.g
	n := len(g.vectors)
	g.adj = make([][]uint32, n)

	seed := min(n, g.edges+1)
	for i := 0; i < seed; i++ {
		g.adj[i] = make([]uint32, 0, g.edges)
		for j := 0; j < seed; j++ {
			if i != j {
				g.adj[i] = append(g.adj[i], uint32(j))
			}
		}
	}
	for v := seed; v < n; v++ {
		if v%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		b.extend(uint32(v))
	}
	if b.params.ImproveK > 0 {
		return b.improve(ctx)
	}
	return nil
}

// extend connects v by splitting edges among its nearest existing vertices: an edge
// (a, b) is replaced by (a, v) and (v, b), which keeps every degree unchanged.
func (b *graphBuilder) extend(v uint32) {
	g := b.g
	g.adj[v] = make([]uint32, 0, g.edges)
	k := max(b.params.ExtendK, g.edges)
	found := g.search(g.vectors[v], k, b.params.ExtendEps, []uint32{g.entry})
	b.splitEdges(v, found)
	if g.degree(v) < g.edges {
		b.splitEdges(v, b.scan(v))
	}
}

func (b *graphBuilder) splitEdges(v uint32, cands []candidate) {
	g := b.g
	for _, c := range cands {
		if g.degree(v) >= g.edges {
			return
		}
		a := c.id
		if a == v || g.hasEdge(v, a) {
			continue
		}
		pick, pickDist := uint32(0), float32(math.Inf(1))
		found := false
		for _, n := range g.adj[a] {
			if n == v || g.hasEdge(v, n) {
				continue
			}
			if d := g.dist(v, n); d < pickDist {
				pick, pickDist, found = n, d, true
			}
		}
		if !found {
			continue
		}
		g.replaceEdge(a, pick, v)
		g.replaceEdge(pick, a, v)
		g.adj[v] = append(g.adj[v], a, pick)
	}
}

// scan orders every earlier vertex by distance to v. Used only when the graph search
// did not yield enough usable candidates, which happens on tiny datasets.
func (b *graphBuilder) scan(v uint32) []candidate {
	g := b.g
	out := make([]candidate, 0, v)
	for u := uint32(0); u < v; u++ {
		out = append(out, candidate{id: u, dist: g.dist(v, u)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].dist == out[j].dist {
			return out[i].id < out[j].id
		}
		return out[i].dist < out[j].dist
	})
	return out
}

// improve swaps edge pairs (a,b),(c,e) for (a,c),(b,e) whenever that shortens the
// total edge length. Degrees are preserved.
func (b *graphBuilder) improve(ctx context.Context) error {
	g := b.g
	order := b.rng.Perm(len(g.vectors))
	for i, vi := range order {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		a := uint32(vi)
		if g.degree(a) == 0 {
			continue
		}
		worst, worstDist := g.adj[a][0], g.dist(a, g.adj[a][0])
		for _, n := range g.adj[a][1:] {
			if d := g.dist(a, n); d > worstDist {
				worst, worstDist = n, d
			}
		}
		bv := worst
		found := g.search(g.vectors[a], b.params.ImproveK, b.params.ExtendEps, []uint32{g.entry})
		for _, c := range found {
			cv := c.id
			if cv == a || cv == bv || g.hasEdge(a, cv) {
				continue
			}
			var (
				pick uint32
				gain float32
				ok   bool
			)
			for _, e := range g.adj[cv] {
				if e == bv || g.hasEdge(bv, e) {
					continue
				}
				delta := worstDist + g.dist(cv, e) - c.dist - g.dist(bv, e)
				if delta > gain {
					pick, gain, ok = e, delta, true
				}
			}
			if !ok {
				continue
			}
			g.replaceEdge(a, bv, cv)
			g.replaceEdge(cv, pick, a)
			g.replaceEdge(bv, a, pick)
			g.replaceEdge(pick, cv, bv)
			break
		}
	}
	return nil
}

// pruneNonRNG removes every edge (a,b) for which a common neighbor c is closer to both
// endpoints than they are to each other. Decisions are made against the unpruned
// graph, so a removed edge always has a two-hop detour of shorter edges and the graph
// stays connected.
func (g *graph) pruneNonRNG() {
	type edge struct{ a, b uint32 }
	var drop []edge
	for av := range g.adj {
		a := uint32(av)
		for _, b := range g.adj[a] {
			if b <= a {
				continue
			}
			dab := g.dist(a, b)
			for _, c := range g.adj[a] {
				if c == b || !g.hasEdge(b, c) {
					continue
				}
				if g.dist(a, c) < dab && g.dist(b, c) < dab {
					drop = append(drop, edge{a, b})
					break
				}
			}
		}
	}
	for _, e := range drop {
		g.adj[e.a] = removeID(g.adj[e.a], e.b)
		g.adj[e.b] = removeID(g.adj[e.b], e.a)
	}
}

func removeID(s []uint32, id uint32) []uint32 {
	for i, n := range s {
		if n == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func (b *graphBuilder) Close() error {
	b.g = nil
	b.closed = true
	return nil
}
