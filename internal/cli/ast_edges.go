package cli

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/astgraph"
	"github.com/imyousuf/srcgraph/internal/indexer"
	"github.com/imyousuf/srcgraph/internal/table"
)

func newASTEdgesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ast-edges",
		Short: "Compile function bodies into local node and edge tables",
		Long: `Run the syntax graph generator over every body in bodies.csv and write
local_nodes.csv and local_edges.csv to the corpus directory. Bodies that fail
to parse are skipped and counted.

With --file, compile the single function in that file and print its edge
list as CSV instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return printEdgeList(cmd, file)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			bodies, err := table.ReadBodies(corpusPath(cfg, bodiesFile))
			if err != nil {
				return fmt.Errorf("read bodies: %w", err)
			}

			idx := indexer.NewIndexer(indexer.IndexerConfig{
				Verbose: verbose,
				Logger:  logger(cmd),
			})
			local, err := idx.IndexBodies(cmd.Context(), bodies)
			if err != nil {
				return fmt.Errorf("index bodies: %w", err)
			}
			if err := table.WriteNodes(corpusPath(cfg, localNodesFile), local.Nodes); err != nil {
				return fmt.Errorf("write local nodes: %w", err)
			}
			if err := table.WriteEdges(corpusPath(cfg, localEdgesFile), local.Edges); err != nil {
				return fmt.Errorf("write local edges: %w", err)
			}

			stats := idx.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d bodies (%d skipped): %d nodes, %d edges\n",
				stats.UnitsIndexed, stats.UnitsSkipped, stats.NodesTotal, stats.EdgesTotal)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "compile one Python function and print its edges")

	return cmd
}

func printEdgeList(cmd *cobra.Command, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	g, err := astgraph.Generate(cmd.Context(), string(src))
	if err != nil {
		return fmt.Errorf("compile %s: %w", path, err)
	}
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(astgraph.RowHeader); err != nil {
		return err
	}
	if err := w.WriteAll(g.Rows()); err != nil {
		return err
	}
	return w.Error()
}
