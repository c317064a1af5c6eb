package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/symbols"
	"github.com/imyousuf/srcgraph/internal/table"
)

func newMergeNamesCmd() *cobra.Command {
	var dbPath string
	var outDir string

	cmd := &cobra.Command{
		Use:   "merge-names [nodes.csv]",
		Short: "Normalize an external symbol index",
		Long: `Read raw symbol-index nodes, drop file entities, map numeric kind codes to
semantic type names and normalize serialized names.

The input is either a CSV with id, type and serialized_name columns, or the
indexer's SQLite project database given with --db (which also provides
edges). Output goes to symbol_nodes.csv and symbol_edges.csv in the corpus
directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Corpus.SymbolDB
			}
			if dbPath == "" && len(args) == 0 {
				return fmt.Errorf("give a nodes CSV or --db")
			}
			if outDir == "" {
				outDir = cfg.Corpus.Dir
			}

			var rows []symbols.Row
			var edgeRows []symbols.EdgeRow
			if dbPath != "" {
				db, err := symbols.OpenDB(dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				if rows, err = db.Nodes(cmd.Context()); err != nil {
					return err
				}
				if edgeRows, err = db.Edges(cmd.Context()); err != nil {
					return err
				}
			} else if rows, err = symbols.ReadCSV(args[0]); err != nil && !errors.Is(err, symbols.ErrNoData) {
				return fmt.Errorf("read symbols: %w", err)
			}

			nodes, err := symbols.Merge(rows)
			if errors.Is(err, symbols.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), "No symbol data; nothing written")
				return nil
			}
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			if err := table.WriteNodes(filepath.Join(outDir, symbolNodesFile), nodes); err != nil {
				return fmt.Errorf("write symbols: %w", err)
			}
			edges := symbols.MergeEdges(edgeRows)
			if err := table.WriteEdges(filepath.Join(outDir, symbolEdgesFile), edges); err != nil {
				return fmt.Errorf("write symbol edges: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d symbols (%d dropped), %d edges -> %s\n",
				len(nodes), len(rows)-len(nodes), len(edges), outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "indexer SQLite project database")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: corpus.dir)")

	return cmd
}
