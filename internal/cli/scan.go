package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/config"
	"github.com/imyousuf/srcgraph/internal/scanner"
	"github.com/imyousuf/srcgraph/internal/table"
	"github.com/imyousuf/srcgraph/internal/watcher"
)

func newScanCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "scan [roots...]",
		Short: "Extract function bodies and symbols from Python sources",
		Long: `Walk the scan roots (or the given directories) and write the corpus tables:

  bodies.csv         one row per top-level function or method
  symbol_nodes.csv   module, class and function symbols
  symbol_edges.csv   defines edges between symbols

.gitignore files and scan.exclude patterns are honoured. With --watch the
tables are regenerated whenever a Python file changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Scan.Roots = args
			}
			out := cmd.OutOrStdout()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := runScan(ctx, cfg, cmd, out); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchAndScan(ctx, cfg, cmd, out)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "rescan when Python files change")

	return cmd
}

func runScan(ctx context.Context, cfg *config.Config, cmd *cobra.Command, out io.Writer) error {
	s := scanner.New(scanner.Config{
		Roots:           cfg.Scan.Roots,
		ExcludePatterns: cfg.Scan.Exclude,
		Registry:        newRegistry(),
		Verbose:         verbose,
		Logger:          logger(cmd),
	})
	res, err := s.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if err := ensureDir(cfg.Corpus.Dir); err != nil {
		return err
	}
	if err := table.WriteBodies(corpusPath(cfg, bodiesFile), res.Bodies); err != nil {
		return fmt.Errorf("write bodies: %w", err)
	}
	if err := table.WriteNodes(corpusPath(cfg, symbolNodesFile), res.Symbols); err != nil {
		return fmt.Errorf("write symbols: %w", err)
	}
	if err := table.WriteEdges(corpusPath(cfg, symbolEdgesFile), res.Edges); err != nil {
		return fmt.Errorf("write symbol edges: %w", err)
	}

	fmt.Fprintf(out, "Scanned %d files: %d symbols, %d bodies -> %s\n",
		res.Files, len(res.Symbols), len(res.Bodies), cfg.Corpus.Dir)
	if len(res.Errors) > 0 {
		fmt.Fprintf(out, "  Errors: %d\n", len(res.Errors))
		if verbose {
			for _, e := range res.Errors {
				fmt.Fprintf(out, "    %s\n", e)
			}
		}
	}
	return nil
}

func watchAndScan(ctx context.Context, cfg *config.Config, cmd *cobra.Command, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	w, err := watcher.New(watcher.Config{
		Roots:           cfg.Scan.Roots,
		ExcludePatterns: cfg.Scan.Exclude,
		Extensions:      newRegistry().Extensions(),
		Logger:          logger(cmd),
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	events, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	fmt.Fprintln(out, "Watching for changes (Ctrl-C to stop)...")

	for evt := range events {
		if verbose {
			fmt.Fprintf(out, "  %s %s\n", evt.Op, evt.Path)
		}
		// Coalesce a burst of saves into one rescan.
	drain:
		for {
			select {
			case _, ok := <-events:
				if !ok {
					break drain
				}
			default:
				break drain
			}
		}
		if err := runScan(ctx, cfg, cmd, out); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Rescan failed: %v\n", err)
		}
	}
	return nil
}
