package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vecsearch/internal/indexer"
	"github.com/hyperjump/vecsearch/internal/transform"
)

type buildOptions struct {
	backend        string
	compression    string
	edgesPerVertex int
	extendK        int
	extendEps      float64
	m              int
	efConstruction int
	efSearch       int
	seed           int64
	verify         int
	verifyK        int
}

func newBuildCommand(g *globals) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build <dataset-dir>",
		Short: "Build the nearest neighbor index for an encoded dataset",
		Long: `Streams the vector store of dataset-dir into the chosen index backend, saves the
index and records the backend in the descriptor. With --verify, recall@k of the
saved index is measured against an exact scan over a random sample.`,
		Example: `  vecsearch build ./data/dewiki
  vecsearch build --backend hnsw --m 32 --ef-construction 600 ./data/dewiki
  vecsearch build --verify 500 ./data/dewiki`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, g, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.backend, "backend", "", "index backend: graph or hnsw (default from config)")
	f.StringVar(&opts.compression, "compression", "", "graph index file compression: zstd, lz4 or none")
	f.IntVar(&opts.edgesPerVertex, "edges", 0, "graph: edges per vertex")
	f.IntVar(&opts.extendK, "extend-k", 0, "graph: candidate list size during construction")
	f.Float64Var(&opts.extendEps, "extend-eps", 0, "graph: search widening during construction")
	f.IntVar(&opts.m, "m", 0, "hnsw: neighbors per node")
	f.IntVar(&opts.efConstruction, "ef-construction", 0, "hnsw: candidate list size during construction")
	f.IntVar(&opts.efSearch, "ef-search", 0, "hnsw: default candidate list size at query time")
	f.Int64Var(&opts.seed, "seed", 0, "random seed for construction and verification")
	f.IntVar(&opts.verify, "verify", 0, "sample this many stored vectors to measure recall (0 = from config)")
	f.IntVar(&opts.verifyK, "verify-k", 10, "k used for the recall measurement")
	return cmd
}

func runBuild(cmd *cobra.Command, g *globals, opts *buildOptions, dir string) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Build.Backend = opts.backend
	}
	if flags.Changed("compression") {
		cfg.Build.Compression = opts.compression
	}
	if flags.Changed("edges") {
		cfg.Build.Graph.EdgesPerVertex = opts.edgesPerVertex
	}
	if flags.Changed("extend-k") {
		cfg.Build.Graph.ExtendK = opts.extendK
	}
	if flags.Changed("extend-eps") {
		cfg.Build.Graph.ExtendEps = opts.extendEps
	}
	if flags.Changed("m") {
		cfg.Build.HNSW.M = opts.m
	}
	if flags.Changed("ef-construction") {
		cfg.Build.HNSW.EfConstruction = opts.efConstruction
	}
	if flags.Changed("ef-search") {
		cfg.Build.HNSW.EfSearch = opts.efSearch
	}
	if flags.Changed("seed") {
		cfg.Build.Seed = opts.seed
	}
	if flags.Changed("verify") {
		cfg.Build.VerifySamples = opts.verify
	}

	backend, err := cfg.Backend()
	if err != nil {
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	idx := indexer.NewIndexer(nil, transform.Pipeline{},
		indexer.WithLogger(logger),
		indexer.WithParams(params),
		indexer.WithChunkSize(cfg.Build.ChunkSize),
	)
	ctx, stop := signalContext(cmd)
	defer stop()
	stats, err := idx.BuildAndVerify(ctx, dir, backend, cfg.Build.VerifySamples, opts.verifyK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Built %s index over %d vectors in %s\n", stats.Backend, stats.NumSamples, stats.Elapsed.Round(time.Millisecond))
	if stats.Recall >= 0 {
		fmt.Fprintf(out, "recall@%d: %.4f (%d samples)\n", opts.verifyK, stats.Recall, cfg.Build.VerifySamples)
	}
	return nil
}
