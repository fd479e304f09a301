package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/pkg/utils"
)

// DefaultConfigPath is read when --config is not given and no config.yaml exists in
// the working directory.
const DefaultConfigPath = "/usr/local/etc/vecsearch/config.yaml"

// globals holds the persistent flags shared by all subcommands.
type globals struct {
	configPath string
	debug      bool
}

// NewRootCommand creates the vecsearch command tree.
func NewRootCommand(version string) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "vecsearch",
		Short: "Semantic search over encoded article summaries",
		Long: `vecsearch encodes a corpus of article summaries into a chunked vector store,
builds an approximate nearest neighbor index over it (graph or hnsw) and answers
queries interactively, once, or over HTTP, reranking hits by page popularity.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file path (default: ./config.yaml, then "+DefaultConfigPath+")")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(newEncodeCommand(g))
	root.AddCommand(newBuildCommand(g))
	root.AddCommand(newSearchCommand(g))
	root.AddCommand(newServeCommand(g))
	root.AddCommand(newInfoCommand())
	root.AddCommand(newVersionCommand(version))
	return root
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if version == "" {
				version = "dev"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vecsearch version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig resolves the config file. An explicit path must exist. Without one,
// ./config.yaml and then DefaultConfigPath are tried, and built-in defaults are used
// when neither exists. Returns the config and the path that was loaded, if any.
func (g *globals) loadConfig() (*config.Config, string, error) {
	if g.configPath != "" {
		cfg, err := config.Load(g.configPath)
		if err != nil {
			return nil, "", err
		}
		return cfg, g.configPath, nil
	}
	candidates := []string{DefaultConfigPath}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(cwd, "config.yaml")}, candidates...)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg, "", nil
}

// setup loads the config and creates a quiet logger for an interactive command.
func (g *globals) setup() (*config.Config, *zap.Logger, error) {
	return g.setupWith(utils.NewCLILogger)
}

// setupServer is setup with the service logger.
func (g *globals) setupServer() (*config.Config, *zap.Logger, error) {
	return g.setupWith(utils.NewLogger)
}

func (g *globals) setupWith(newLogger func(debug bool) (*zap.Logger, error)) (*config.Config, *zap.Logger, error) {
	cfg, path, err := g.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || g.debug
	logger, err := newLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Info("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return cfg, logger, nil
}
