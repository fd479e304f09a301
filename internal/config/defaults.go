package config

import (
	"time"

	"github.com/hyperjump/vecsearch/internal/indexer"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/vecstore"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.WatchDebounce == 0 {
		cfg.Server.WatchDebounce = 500 * time.Millisecond
	}
	if cfg.Server.DrainDelay == 0 {
		cfg.Server.DrainDelay = 30 * time.Second
	}

	if cfg.Dataset.Lang == "" {
		cfg.Dataset.Lang = "de"
	}

	if cfg.Encoder.Type == "" {
		cfg.Encoder.Type = "onnx"
	}
	if cfg.Encoder.Dimensions == 0 {
		cfg.Encoder.Dimensions = 768
	}
	if cfg.Encoder.MaxTokens == 0 {
		cfg.Encoder.MaxTokens = 256
	}

	params := vector.DefaultParams()
	if cfg.Build.Backend == "" {
		cfg.Build.Backend = string(vector.BackendGraph)
	}
	if cfg.Build.ChunkSize == 0 {
		cfg.Build.ChunkSize = vecstore.DefaultChunkSize
	}
	if cfg.Build.BatchSize == 0 {
		cfg.Build.BatchSize = indexer.DefaultBatchSize
	}
	if cfg.Build.Compression == "" {
		cfg.Build.Compression = "zstd"
	}
	if cfg.Build.Seed == 0 {
		cfg.Build.Seed = params.Seed
	}
	if cfg.Build.Graph.EdgesPerVertex == 0 {
		cfg.Build.Graph.EdgesPerVertex = params.Graph.EdgesPerVertex
	}
	if cfg.Build.Graph.ExtendK == 0 {
		cfg.Build.Graph.ExtendK = params.Graph.ExtendK
	}
	if cfg.Build.Graph.ExtendEps == 0 {
		cfg.Build.Graph.ExtendEps = params.Graph.ExtendEps
	}
	if cfg.Build.HNSW.M == 0 {
		cfg.Build.HNSW.M = params.HNSW.M
	}
	if cfg.Build.HNSW.EfConstruction == 0 {
		cfg.Build.HNSW.EfConstruction = params.HNSW.EfConstruction
	}
	if cfg.Build.HNSW.EfSearch == 0 {
		cfg.Build.HNSW.EfSearch = params.HNSW.EfSearch
	}

	if cfg.Query.KDisplay == 0 {
		cfg.Query.KDisplay = models.DefaultK
	}
	if cfg.Query.KCandidates == 0 {
		cfg.Query.KCandidates = max(models.DefaultKCandidates, cfg.Query.KDisplay+1)
	}
	if cfg.Query.QualityGraph == 0 {
		cfg.Query.QualityGraph = params.Graph.SearchEps
	}
	if cfg.Query.QualityHNSW == 0 {
		cfg.Query.QualityHNSW = float64(params.HNSW.EfSearch)
	}
	if cfg.Query.CacheSize == 0 {
		cfg.Query.CacheSize = 1000
	}

	cfg.Rerank.ApplyDefaults()
}
