// Package cli implements the command-line interface for srcgraph.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "srcgraph",
		Short: "srcgraph - Python source graphs and GNN training datasets",
		Long: `srcgraph compiles Python function bodies into typed syntax graphs, merges
them with a symbol index into one corpus-wide graph, and assembles that graph
into a partitioned heterogeneous dataset with supervised target tables.

Pipeline:
  scan          Extract function bodies and symbols from a source tree
  merge-names   Normalize an external symbol index
  ast-edges     Compile function bodies into local node and edge tables
  map-ids       Rewrite local ids in a table to global ids
  build-corpus  Merge symbols and local tables into nodes.csv / edges.csv
  partition     Write a precomputed train/val/test partition
  assemble      Build the heterogeneous dataset and its split
  targets       Extract objective target tables
  export        Export the assembled graph (JSON lines or Neo4j)
  import        Load a JSON-lines export into the graph store`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .srcgraph.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("config_file", root.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	root.AddCommand(newInitCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newMergeNamesCmd())
	root.AddCommand(newASTEdgesCmd())
	root.AddCommand(newMapIDsCmd())
	root.AddCommand(newBuildCorpusCmd())
	root.AddCommand(newPartitionCmd())
	root.AddCommand(newAssembleCmd())
	root.AddCommand(newTargetsCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
