package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

const hnswVersion = 1

var hnswMagic = [4]byte{'V', 'S', 'H', 'N'}

// hnswHeader records what the exported graph does not: the dataset dimension, size and
// metric. It precedes the hnsw export stream.
type hnswHeader struct {
	Magic   [4]byte
	Version uint16
	Metric  uint8
	_       uint8
	Dim     uint32
	Count   uint32
}

type hnswIndex struct {
	mu     sync.RWMutex
	g      *hnsw.Graph[uint32]
	dim    int
	n      int
	metric Metric
	ef     int
}

func newGraph(metric Metric, p HNSWParams, seed int64) *hnsw.Graph[uint32] {
	g := hnsw.NewGraph[uint32]()
	g.M = p.M
	g.Ml = 1 / math.Log(float64(p.M))
	g.EfSearch = p.EfConstruction
	g.Rng = rand.New(rand.NewSource(seed))
	if metric == MetricCosine {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}
	return g
}

// Search maps quality to the hnsw ef parameter: ef = max(k, quality). The graph is
// asked for ef results, which are re-ranked by the index metric and cut to k.
func (h *hnswIndex) Search(ctx context.Context, query []float32, k int, quality float64) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDim(h.dim, query); err != nil {
		return nil, err
	}
	if k <= 0 || h.n == 0 {
		return nil, nil
	}
	ef := h.ef
	if quality > 0 {
		ef = int(quality)
	}
	ef = min(max(ef, k), h.n)

	h.mu.RLock()
	nodes := h.g.Search(query, ef)
	h.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Neighbor, len(nodes))
	for i, n := range nodes {
		out[i] = Neighbor{ID: n.Key, Distance: h.metric.Distance(query, n.Value)}
	}
	sortNeighbors(out)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (h *hnswIndex) Save(path string) error {
	hdr := hnswHeader{
		Magic:   hnswMagic,
		Version: hnswVersion,
		Metric:  uint8(h.metric),
		Dim:     uint32(h.dim),
		Count:   uint32(h.n),
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return writeFileAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriterSize(w, 256*1024)
		if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if h.n > 0 {
			if err := h.g.Export(bw); err != nil {
				return fmt.Errorf("failed to export hnsw graph: %w", err)
			}
		}
		return bw.Flush()
	})
}

func (h *hnswIndex) Len() int         { return h.n }
func (h *hnswIndex) Dim() int         { return h.dim }
func (h *hnswIndex) Backend() Backend { return BackendHNSW }
func (h *hnswIndex) Metric() Metric   { return h.metric }

func (h *hnswIndex) Close() error {
	h.mu.Lock()
	h.g = hnsw.NewGraph[uint32]()
	h.n = 0
	h.mu.Unlock()
	return nil
}

func loadHNSW(path string, p Params) (*hnswIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 256*1024)
	var hdr hnswHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if hdr.Magic != hnswMagic {
		if hdr.Magic == graphMagic {
			return nil, ErrBackendMismatch
		}
		return nil, errors.New("not an hnsw index file")
	}
	if hdr.Version != hnswVersion {
		return nil, fmt.Errorf("unsupported hnsw version %d", hdr.Version)
	}
	if hdr.Dim == 0 {
		return nil, errors.New("corrupt header")
	}
	metric := Metric(hdr.Metric)
	g := newGraph(metric, p.HNSW, p.Seed)
	if hdr.Count > 0 {
		if err := g.Import(r); err != nil {
			return nil, fmt.Errorf("failed to import hnsw graph: %w", err)
		}
	}
	if g.Len() != int(hdr.Count) {
		return nil, fmt.Errorf("graph holds %d nodes, header says %d", g.Len(), hdr.Count)
	}
	g.EfSearch = p.HNSW.EfSearch
	return &hnswIndex{
		g:      g,
		dim:    int(hdr.Dim),
		n:      int(hdr.Count),
		metric: metric,
		ef:     p.HNSW.EfSearch,
	}, nil
}

type hnswBuilder struct {
	g      *hnsw.Graph[uint32]
	dim    int
	metric Metric
	params HNSWParams
	cursor labelCursor
	closed bool
}

func newHNSWBuilder(dim, numSamples int, metric Metric, p Params) *hnswBuilder {
	return &hnswBuilder{
		g:      newGraph(metric, p.HNSW, p.Seed),
		dim:    dim,
		metric: metric,
		params: p.HNSW,
		cursor: labelCursor{cap: numSamples},
	}
}

func (b *hnswBuilder) Add(ctx context.Context, labels []uint32, rows [][]float32) error {
	if b.closed {
		return ErrBuilderClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := checkDim(b.dim, r); err != nil {
			return err
		}
	}
	if err := b.cursor.advance(labels, len(rows)); err != nil {
		return err
	}
	nodes := make([]hnsw.Node[uint32], len(rows))
	for i, r := range rows {
		v := make([]float32, len(r))
		copy(v, r)
		nodes[i] = hnsw.MakeNode(labels[i], v)
	}
	b.g.Add(nodes...)
	return nil
}

func (b *hnswBuilder) Build(ctx context.Context) (Index, error) {
	if b.closed {
		return nil, ErrBuilderClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int(b.cursor.next) != b.cursor.cap {
		return nil, fmt.Errorf("added %d of %d vectors", b.cursor.next, b.cursor.cap)
	}
	b.g.EfSearch = b.params.EfSearch
	idx := &hnswIndex{
		g:      b.g,
		dim:    b.dim,
		n:      b.cursor.cap,
		metric: b.metric,
		ef:     b.params.EfSearch,
	}
	b.g = nil
	b.closed = true
	return idx, nil
}

func (b *hnswBuilder) Close() error {
	b.g = nil
	b.closed = true
	return nil
}
