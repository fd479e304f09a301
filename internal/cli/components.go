package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/embedding"
	"github.com/hyperjump/vecsearch/internal/ranking"
	"github.com/hyperjump/vecsearch/internal/search"
)

// Components holds the services a query command needs.
type Components struct {
	Encoder embedding.Encoder
	Engine  *search.Engine
	// OpenOptions reopen the dataset the same way on reload.
	OpenOptions []dataset.OpenOption
}

// Close releases the engine's dataset and the encoder.
func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
}

// queryOptions are the flags shared by search and serve.
type queryOptions struct {
	encoder       string
	allowMismatch bool
	k             int
	kCandidates   int
	quality       float64
}

func addQueryFlags(cmd *cobra.Command, opts *queryOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.encoder, "encoder", "", "encoder type: onnx or mock (default from config)")
	f.BoolVar(&opts.allowMismatch, "allow-encoder-mismatch", false, "serve a dataset encoded by a different encoder id")
	f.IntVar(&opts.k, "k", 0, "results to display (default from config)")
	f.IntVar(&opts.kCandidates, "k-candidates", 0, "nearest neighbors retrieved before reranking (default from config)")
	f.Float64Var(&opts.quality, "quality", 0, "search quality: graph eps or hnsw ef (default from config)")
}

func (o *queryOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("encoder") {
		cfg.Encoder.Type = o.encoder
	}
	if flags.Changed("k") {
		cfg.Query.KDisplay = o.k
	}
	if flags.Changed("k-candidates") {
		cfg.Query.KCandidates = o.kCandidates
	} else if cfg.Query.KCandidates <= cfg.Query.KDisplay {
		cfg.Query.KCandidates = max(200, cfg.Query.KDisplay+1)
	}
	if flags.Changed("quality") {
		cfg.Query.QualityGraph = o.quality
		cfg.Query.QualityHNSW = o.quality
	}
}

// initializeComponents opens the dataset in dir and wires encoder, reranker and engine.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, dir string, allowMismatch bool) (*Components, error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	openOpts := []dataset.OpenOption{dataset.WithParams(params), dataset.WithLogger(logger)}
	ds, err := dataset.Open(ctx, dir, openOpts...)
	if err != nil {
		return nil, err
	}

	encCfg := cfg.Encoder
	encCfg.CacheSize = cfg.Query.CacheSize
	enc, err := embedding.New(encCfg)
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	searchCfg := cfg.SearchConfig()
	searchCfg.AllowEncoderMismatch = allowMismatch
	engine, err := search.NewEngine(ds, enc, ranking.NewReranker(&cfg.Rerank), searchCfg, search.WithLogger(logger))
	if err != nil {
		_ = ds.Close()
		_ = enc.Close()
		return nil, err
	}
	logger.Info("Dataset opened",
		zap.String("dir", dir),
		zap.Int("num_samples", ds.Descriptor.NumSamples),
		zap.String("backend", string(ds.Index.Backend())),
		zap.String("encoder", enc.ID()),
	)
	return &Components{Encoder: enc, Engine: engine, OpenOptions: openOpts}, nil
}

// signalContext returns the command context canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
