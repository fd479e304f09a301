package vector

// GraphParams configures the regular graph backend.
type GraphParams struct {
	// EdgesPerVertex is the degree of every vertex before pruning. Must be even.
	EdgesPerVertex int
	// ExtendK is the candidate count searched when inserting a vertex.
	ExtendK int
	// ExtendEps widens the insertion search radius.
	ExtendEps float64
	// ImproveK is the candidate count of the optional edge improvement pass;
	// zero disables it.
	ImproveK int
	// SearchEps is the default query-time radius factor.
	SearchEps float64
}

// HNSWParams configures the hnsw backend.
type HNSWParams struct {
	M              int
	EfConstruction int
	EfSearch       int
}

// Compression selects the codec for persisted graph indexes.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZSTD Compression = 2
)

// ParseCompression maps a config string to a Compression.
func ParseCompression(s string) (Compression, bool) {
	switch s {
	case "", "zstd":
		return CompressionZSTD, true
	case "lz4":
		return CompressionLZ4, true
	case "none":
		return CompressionNone, true
	default:
		return CompressionNone, false
	}
}

// Params holds construction parameters for every backend.
type Params struct {
	Graph       GraphParams
	HNSW        HNSWParams
	Compression Compression
	// Seed drives every random choice made during construction.
	Seed int64
}

// DefaultParams returns the parameters used by the production dataset.
func DefaultParams() Params {
	return Params{
		Graph: GraphParams{
			EdgesPerVertex: 24,
			ExtendK:        32,
			ExtendEps:      0.1,
			ImproveK:       0,
			SearchEps:      0.2,
		},
		HNSW: HNSWParams{
			M:              24,
			EfConstruction: 400,
			EfSearch:       1200,
		},
		Compression: CompressionZSTD,
		Seed:        42,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Graph.EdgesPerVertex <= 0 {
		p.Graph.EdgesPerVertex = d.Graph.EdgesPerVertex
	}
	if p.Graph.EdgesPerVertex%2 != 0 {
		p.Graph.EdgesPerVertex++
	}
	if p.Graph.ExtendK <= 0 {
		p.Graph.ExtendK = d.Graph.ExtendK
	}
	if p.Graph.ExtendEps <= 0 {
		p.Graph.ExtendEps = d.Graph.ExtendEps
	}
	if p.Graph.ImproveK < 0 {
		p.Graph.ImproveK = 0
	}
	if p.Graph.SearchEps <= 0 {
		p.Graph.SearchEps = d.Graph.SearchEps
	}
	if p.HNSW.M <= 0 {
		p.HNSW.M = d.HNSW.M
	}
	if p.HNSW.EfConstruction <= 0 {
		p.HNSW.EfConstruction = d.HNSW.EfConstruction
	}
	if p.HNSW.EfSearch <= 0 {
		p.HNSW.EfSearch = d.HNSW.EfSearch
	}
	return p
}
