package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/graph/bolt"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the assembled graph (JSON lines or Neo4j)",
	}

	cmd.AddCommand(newExportJSONLCmd())
	cmd.AddCommand(newExportNeo4jCmd())

	return cmd
}

func newExportJSONLCmd() *cobra.Command {
	var dsRef, dbPath string

	cmd := &cobra.Command{
		Use:   "jsonl <file>",
		Short: "Write every relation and node type of the graph store as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, datasetDir(cfg, dsRef), dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()

			w := bufio.NewWriter(f)
			if err := store.Export(cmd.Context(), w); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("flush export file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported graph to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&dsRef, "dataset", "", "registered dataset name or directory (default: dataset.output)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "graph database path (default: graph.db_path)")

	return cmd
}

func newExportNeo4jCmd() *cobra.Command {
	var (
		dsRef string
		clean bool
	)

	cmd := &cobra.Command{
		Use:   "neo4j",
		Short: "Publish the assembled corpus graph to a Neo4j database",
		Long: `Write every assembled node as a SourceNode vertex and every edge as an EDGE
relationship. Connection settings come from the graph section of the config;
set the password with SRCGRAPH_GRAPH_NEO4J_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ds, err := dataset.Load(cmd.Context(), datasetDir(cfg, dsRef), nil)
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}

			exp, err := bolt.NewExporter(cmd.Context(), bolt.Config{
				URI:       cfg.Graph.Neo4jURI,
				User:      cfg.Graph.Neo4jUser,
				Password:  cfg.Graph.Neo4jPassword,
				Database:  cfg.Graph.Neo4jDatabase,
				BatchSize: cfg.Graph.BatchSize,
				Verbose:   verbose,
				Logger:    logger(cmd),
			})
			if err != nil {
				return err
			}
			defer exp.Close(cmd.Context())

			if err := exp.Export(cmd.Context(), ds, clean); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d nodes and %d edges to %s\n",
				len(ds.Nodes), len(ds.Edges), cfg.Graph.Neo4jURI)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsRef, "dataset", "", "registered dataset name or directory (default: dataset.output)")
	cmd.Flags().BoolVar(&clean, "clean", false, "delete existing SourceNode vertices first")

	return cmd
}

func newImportCmd() *cobra.Command {
	var dsRef, dbPath string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the graph store with a JSON-lines export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			dir := datasetDir(cfg, dsRef)
			if err := ensureDir(dir); err != nil {
				return err
			}
			store, err := openStore(cfg, dir, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Import(cmd.Context(), bufio.NewReader(f)); err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d nodes and %d edges\n", stats.NodeCount, stats.EdgeCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsRef, "dataset", "", "registered dataset name or directory (default: dataset.output)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "graph database path (default: graph.db_path)")

	return cmd
}
