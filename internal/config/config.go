// Package config provides configuration loading and structs for vecsearch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/vecsearch/internal/embedding"
	"github.com/hyperjump/vecsearch/internal/ranking"
	"github.com/hyperjump/vecsearch/internal/search"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool                 `yaml:"debug"`
	Server  ServerConfig         `yaml:"server"`
	Dataset DatasetConfig        `yaml:"dataset"`
	Encoder embedding.Config     `yaml:"encoder"`
	Build   BuildConfig          `yaml:"build"`
	Query   QueryConfig          `yaml:"query"`
	Rerank  ranking.RerankConfig `yaml:"rerank"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeout bounds each request, including the search itself.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Watch reloads the dataset when its descriptor is rewritten.
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	// DrainDelay is how long a replaced dataset stays open for in-flight queries.
	DrainDelay time.Duration `yaml:"drain_delay"`
}

// DatasetConfig locates the dataset and its ingestion inputs.
type DatasetConfig struct {
	Dir        string `yaml:"dir"`
	Lang       string `yaml:"lang"`
	PageViews  string `yaml:"pageviews"`
	MetadataDB bool   `yaml:"metadata_db"`
}

// GraphConfig mirrors vector.GraphParams.
type GraphConfig struct {
	EdgesPerVertex int     `yaml:"edges_per_vertex"`
	ExtendK        int     `yaml:"extend_k"`
	ExtendEps      float64 `yaml:"extend_eps"`
	ImproveK       int     `yaml:"improve_k"`
}

// HNSWConfig mirrors vector.HNSWParams.
type HNSWConfig struct {
	M              int `yaml:"m"`
	EfConstruction int `yaml:"ef_construction"`
	EfSearch       int `yaml:"ef_search"`
}

// BuildConfig holds encode and index construction settings.
type BuildConfig struct {
	Backend     string      `yaml:"backend"`
	ChunkSize   int         `yaml:"chunk_size"`
	BatchSize   int         `yaml:"batch_size"`
	Compression string      `yaml:"compression"`
	Seed        int64       `yaml:"seed"`
	Graph       GraphConfig `yaml:"graph"`
	HNSW        HNSWConfig  `yaml:"hnsw"`
	// VerifySamples is the number of stored vectors used to measure recall after a
	// build; zero skips the check.
	VerifySamples int `yaml:"verify_samples"`
}

// QueryConfig holds query-time defaults.
type QueryConfig struct {
	KCandidates  int     `yaml:"k_candidates"`
	KDisplay     int     `yaml:"k_display"`
	QualityGraph float64 `yaml:"quality_graph"`
	QualityHNSW  float64 `yaml:"quality_hnsw"`
	CacheSize    int     `yaml:"cache_size"`
}

// Params converts the build and query sections into index parameters.
func (c *Config) Params() (vector.Params, error) {
	comp, ok := vector.ParseCompression(c.Build.Compression)
	if !ok {
		return vector.Params{}, fmt.Errorf("unknown compression %q (supported: zstd, lz4, none)", c.Build.Compression)
	}
	return vector.Params{
		Graph: vector.GraphParams{
			EdgesPerVertex: c.Build.Graph.EdgesPerVertex,
			ExtendK:        c.Build.Graph.ExtendK,
			ExtendEps:      c.Build.Graph.ExtendEps,
			ImproveK:       c.Build.Graph.ImproveK,
			SearchEps:      c.Query.QualityGraph,
		},
		HNSW: vector.HNSWParams{
			M:              c.Build.HNSW.M,
			EfConstruction: c.Build.HNSW.EfConstruction,
			EfSearch:       c.Build.HNSW.EfSearch,
		},
		Compression: comp,
		Seed:        c.Build.Seed,
	}, nil
}

// Backend parses the configured build backend.
func (c *Config) Backend() (vector.Backend, error) {
	return vector.ParseBackend(c.Build.Backend)
}

// SearchConfig returns the query defaults for the search engine.
func (c *Config) SearchConfig() search.Config {
	return search.Config{
		KDisplay:     c.Query.KDisplay,
		KCandidates:  c.Query.KCandidates,
		QualityGraph: c.Query.QualityGraph,
		QualityHNSW:  c.Query.QualityHNSW,
	}
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Dataset.Dir = expandPath(cfg.Dataset.Dir, configDir)
	cfg.Dataset.PageViews = expandPath(cfg.Dataset.PageViews, configDir)
	cfg.Encoder.ModelPath = expandPath(cfg.Encoder.ModelPath, configDir)
	cfg.Encoder.VocabPath = expandPath(cfg.Encoder.VocabPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
