package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/corpus"
	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/embedding"
	"github.com/hyperjump/vecsearch/internal/indexer"
	"github.com/hyperjump/vecsearch/internal/transform"
)

type encodeOptions struct {
	encoder     string
	normalize   bool
	quantize    bool
	quantizeMax float32
	pageViews   string
	lang        string
	limit       int
	batchSize   int
	metadataDB  bool
	dry         bool
}

func newEncodeCommand(g *globals) *cobra.Command {
	opts := &encodeOptions{}
	cmd := &cobra.Command{
		Use:   "encode <corpus-dir> <dataset-dir>",
		Short: "Encode article summaries into a dataset",
		Long: `Reads every *.txt summary file in corpus-dir, encodes each article title and its
first summary line, and writes the vector store, metadata and a descriptor draft
into dataset-dir. Run "vecsearch build" afterwards to create the index.`,
		Example: `  vecsearch encode --normalize ./summaries ./data/dewiki
  vecsearch encode --quantize --quantize-max 0.25 --pageviews pageviews-20240101.gz ./summaries ./data/q8
  vecsearch encode --dry --limit 1000 ./summaries ./data/tmp`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, g, opts, args[0], args[1])
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.encoder, "encoder", "", "encoder type: onnx or mock (default from config)")
	f.BoolVar(&opts.normalize, "normalize", false, "L2-normalize vectors and search by cosine distance")
	f.BoolVar(&opts.quantize, "quantize", false, "store vectors as unsigned bytes")
	f.Float32Var(&opts.quantizeMax, "quantize-max", transform.DefaultQuantizeMax, "largest component magnitude representable when quantizing")
	f.StringVar(&opts.pageViews, "pageviews", "", "page view dump (.gz, .zst, .bz2 or plain) used for popularity")
	f.StringVar(&opts.lang, "lang", "", "wiki language for article links (default from config)")
	f.IntVar(&opts.limit, "limit", 0, "stop after this many articles (0 = all)")
	f.IntVar(&opts.batchSize, "batch-size", 0, "items per encoder batch (default from config)")
	f.BoolVar(&opts.metadataDB, "metadata-db", false, "also write the SQLite metadata mirror")
	f.BoolVar(&opts.dry, "dry", false, "count items without encoding or writing anything")
	return cmd
}

func runEncode(cmd *cobra.Command, g *globals, opts *encodeOptions, corpusDir, datasetDir string) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	flags := cmd.Flags()
	if flags.Changed("encoder") {
		cfg.Encoder.Type = opts.encoder
	}
	if flags.Changed("pageviews") {
		cfg.Dataset.PageViews = opts.pageViews
	}
	if flags.Changed("lang") {
		cfg.Dataset.Lang = opts.lang
	}
	if flags.Changed("batch-size") {
		cfg.Build.BatchSize = opts.batchSize
	}
	if flags.Changed("metadata-db") {
		cfg.Dataset.MetadataDB = opts.metadataDB
	}

	reader, err := corpus.NewSummaryReader(corpusDir)
	if err != nil {
		return err
	}
	defer reader.Close()
	logger.Info("Corpus opened", zap.String("dir", corpusDir), zap.Int("files", len(reader.Files())))

	src := &corpus.ItemSource{Articles: reader, Lang: cfg.Dataset.Lang, Limit: opts.limit}
	if cfg.Dataset.PageViews != "" {
		start := time.Now()
		pop, err := corpus.LoadPageViewsFile(cfg.Dataset.PageViews)
		if err != nil {
			return err
		}
		logger.Info("Page views loaded",
			zap.String("path", cfg.Dataset.PageViews),
			zap.Int("pages", pop.Pages()),
			zap.Duration("elapsed", time.Since(start)),
		)
		src.Views = pop
	}

	var enc embedding.Encoder
	if !opts.dry {
		encCfg := cfg.Encoder
		encCfg.CacheSize = 0
		enc, err = embedding.New(encCfg)
		if err != nil {
			return fmt.Errorf("failed to create encoder: %w", err)
		}
		defer enc.Close()
	}

	draft := &dataset.Descriptor{Normalize: opts.normalize, Quantize: opts.quantize, QuantizeMax: opts.quantizeMax}
	idx := indexer.NewIndexer(enc, draft.Pipeline(),
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Build.BatchSize),
		indexer.WithChunkSize(cfg.Build.ChunkSize),
		indexer.WithMetadataDB(cfg.Dataset.MetadataDB),
		indexer.WithDryRun(opts.dry),
	)

	ctx, stop := signalContext(cmd)
	defer stop()
	stats, err := idx.EncodeCorpus(ctx, src, datasetDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if stats.DryRun {
		fmt.Fprintf(out, "%d items from %d articles (dry run, nothing written)\n", stats.Items, src.ArticlesRead())
		return nil
	}
	fmt.Fprintf(out, "Encoded %d items from %d articles in %s\n", stats.Items, src.ArticlesRead(), stats.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "encoder: %s  dim: %d  normalize: %t  quantize: %t\n", stats.Encoder, stats.Dim, opts.normalize, stats.Quantize)
	fmt.Fprintf(out, "next: vecsearch build %s\n", datasetDir)
	return nil
}
