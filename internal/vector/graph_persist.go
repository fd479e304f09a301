package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
)

const graphVersion = 1

var graphMagic = [4]byte{'V', 'S', 'D', 'G'}

// graphHeader precedes the (possibly compressed) graph payload.
type graphHeader struct {
	Magic       [4]byte
	Version     uint16
	Compression uint8
	Metric      uint8
	RawLen      uint64
	BodyLen     uint64
	Checksum    uint32
}

// Save writes the graph with the compression chosen at build time.
func (g *graph) Save(path string) error {
	raw := g.encode()
	body, used, err := compress(raw, g.compression)
	if err != nil {
		return fmt.Errorf("failed to compress graph: %w", err)
	}
	h := graphHeader{
		Magic:       graphMagic,
		Version:     graphVersion,
		Compression: uint8(used),
		Metric:      uint8(g.metric),
		RawLen:      uint64(len(raw)),
		BodyLen:     uint64(len(body)),
		Checksum:    crc32.ChecksumIEEE(raw),
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriterSize(w, 256*1024)
		if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if _, err := bw.Write(body); err != nil {
			return fmt.Errorf("failed to write graph: %w", err)
		}
		return bw.Flush()
	})
}

// encode lays out dim, n, entry, edges, the vectors and the adjacency lists.
func (g *graph) encode() []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	var scratch [4]byte
	put := func(v uint32) {
		le.PutUint32(scratch[:], v)
		buf.Write(scratch[:])
	}
	put(uint32(g.dim))
	put(uint32(len(g.vectors)))
	put(g.entry)
	put(uint32(g.edges))
	for _, v := range g.vectors {
		for _, x := range v {
			put(math.Float32bits(x))
		}
	}
	for _, nbrs := range g.adj {
		put(uint32(len(nbrs)))
		for _, n := range nbrs {
			put(n)
		}
	}
	return buf.Bytes()
}

func loadGraph(path string, p Params) (*graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 256*1024)
	var h graphHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if h.Magic != graphMagic {
		if string(h.Magic[:]) == string(hnswMagic[:]) {
			return nil, ErrBackendMismatch
		}
		return nil, errors.New("not a graph index file")
	}
	if h.Version != graphVersion {
		return nil, fmt.Errorf("unsupported graph version %d", h.Version)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if h.BodyLen > uint64(info.Size()) || h.RawLen > math.MaxInt32*4 {
		return nil, errors.New("corrupt header")
	}
	body := make([]byte, h.BodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	raw, err := decompress(body, Compression(h.Compression), int(h.RawLen))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress graph: %w", err)
	}
	if crc32.ChecksumIEEE(raw) != h.Checksum {
		return nil, errors.New("checksum mismatch")
	}
	g, err := decodeGraph(raw)
	if err != nil {
		return nil, err
	}
	g.metric = Metric(h.Metric)
	g.compression = Compression(h.Compression)
	g.eps = p.Graph.SearchEps
	return g, nil
}

func decodeGraph(raw []byte) (*graph, error) {
	le := binary.LittleEndian
	pos := 0
	next := func() (uint32, error) {
		if pos+4 > len(raw) {
			return 0, io.ErrUnexpectedEOF
		}
		v := le.Uint32(raw[pos:])
		pos += 4
		return v, nil
	}
	var hdr [4]uint32
	for i := range hdr {
		v, err := next()
		if err != nil {
			return nil, fmt.Errorf("truncated graph: %w", err)
		}
		hdr[i] = v
	}
	dim, n, entry, edges := int(hdr[0]), int(hdr[1]), hdr[2], int(hdr[3])
	if dim <= 0 || (n > 0 && int(entry) >= n) {
		return nil, errors.New("corrupt graph header")
	}
	if uint64(n)*uint64(dim)*4 > uint64(len(raw)) {
		return nil, errors.New("truncated graph vectors")
	}
	g := &graph{
		dim:     dim,
		edges:   edges,
		entry:   entry,
		vectors: make([][]float32, n),
		adj:     make([][]uint32, n),
	}
	for i := range g.vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(le.Uint32(raw[pos:]))
			pos += 4
		}
		g.vectors[i] = v
	}
	for i := range g.adj {
		deg, err := next()
		if err != nil {
			return nil, fmt.Errorf("truncated adjacency: %w", err)
		}
		if int(deg) >= max(n, 1) {
			return nil, fmt.Errorf("vertex %d degree %d out of range", i, deg)
		}
		nbrs := make([]uint32, deg)
		for j := range nbrs {
			id, err := next()
			if err != nil {
				return nil, fmt.Errorf("truncated adjacency: %w", err)
			}
			if int(id) >= n {
				return nil, fmt.Errorf("vertex %d neighbor %d out of range", i, id)
			}
			nbrs[j] = id
		}
		g.adj[i] = nbrs
	}
	if pos != len(raw) {
		return nil, errors.New("trailing bytes after graph")
	}
	return g, nil
}
