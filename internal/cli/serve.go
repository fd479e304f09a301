package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/server"
	"github.com/hyperjump/vecsearch/internal/watcher"
)

type serveOptions struct {
	queryOptions
	host  string
	port  int
	watch bool
}

func newServeCommand(g *globals) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve <dataset-dir>",
		Short: "Serve the search HTTP API",
		Long: `Serves POST /api/v1/search, GET /api/v1/status, POST /api/v1/reload and GET /health
over dataset-dir. With --watch the dataset is reopened whenever its descriptor is
rewritten, for example after "vecsearch build" switched the backend.`,
		Example: `  vecsearch serve ./data/dewiki
  vecsearch serve --port 9090 --watch ./data/dewiki`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, opts, args[0])
		},
	}
	addQueryFlags(cmd, &opts.queryOptions)
	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the dataset when its descriptor changes")
	return cmd
}

func runServe(cmd *cobra.Command, g *globals, opts *serveOptions, dir string) error {
	cfg, logger, err := g.setupServer()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	opts.apply(cmd, cfg)
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("watch") {
		cfg.Server.Watch = opts.watch
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	components, err := initializeComponents(ctx, cfg, logger, dir, opts.allowMismatch)
	if err != nil {
		return err
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, &cfg.Server, logger, components.OpenOptions...)

	if cfg.Server.Watch {
		w := watcher.NewWatcher(dir, []string{dataset.DescriptorFile}, func(path string) {
			logger.Info("Descriptor changed, reloading", zap.String("path", path))
			rctx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := srv.Reload(rctx); err != nil {
				logger.Warn("reload failed", zap.Error(err))
			}
		}, watcher.WithLogger(logger), watcher.WithDebounce(cfg.Server.WatchDebounce))
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
