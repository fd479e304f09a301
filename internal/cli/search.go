package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/search"
)

type searchOptions struct {
	queryOptions
	once   string
	output string
}

func newSearchCommand(g *globals) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <dataset-dir>",
		Short: "Query a dataset interactively or once",
		Long: `Opens dataset-dir and reads one query per line from stdin until an empty line or
end of input. Normalization and quantization follow the dataset descriptor.`,
		Example: `  vecsearch search ./data/dewiki
  vecsearch search --once "Hauptstadt von Frankreich" ./data/dewiki
  vecsearch search --output json --k 5 --once "Bergbau im Erzgebirge" ./data/dewiki`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, opts, args[0])
		},
	}
	addQueryFlags(cmd, &opts.queryOptions)
	cmd.Flags().StringVar(&opts.once, "once", "", "run a single query and exit")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	return cmd
}

func runSearch(cmd *cobra.Command, g *globals, opts *searchOptions, dir string) error {
	format, err := ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	opts.apply(cmd, cfg)

	ctx, stop := signalContext(cmd)
	defer stop()
	components, err := initializeComponents(ctx, cfg, logger, dir, opts.allowMismatch)
	if err != nil {
		return err
	}
	defer components.Close()

	out := cmd.OutOrStdout()
	if cmd.Flags().Changed("once") {
		return runQuery(ctx, components.Engine, opts.once, out, format)
	}
	return queryLoop(ctx, components.Engine, cmd.InOrStdin(), out, cmd.ErrOrStderr(), format)
}

func runQuery(ctx context.Context, engine *search.Engine, text string, out io.Writer, format SearchOutputFormat) error {
	response, err := engine.Search(ctx, &models.SearchQuery{Query: text})
	if err != nil {
		return err
	}
	return WriteSearchResults(out, response, format)
}

// queryLoop answers one query per input line. An empty line or end of input ends the
// loop without error; failed queries are reported and the loop continues.
func queryLoop(ctx context.Context, engine *search.Engine, in io.Reader, out, errOut io.Writer, format SearchOutputFormat) error {
	scanner := bufio.NewScanner(in)
	prompt := format == OutputText
	for {
		if prompt {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			if prompt {
				fmt.Fprintln(out)
			}
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return nil
		}
		if err := runQuery(ctx, engine, text, out, format); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(errOut, "search failed: %v\n", err)
		}
	}
}
