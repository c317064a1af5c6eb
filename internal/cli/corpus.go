package cli

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/corpus"
	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/idmap"
	"github.com/imyousuf/srcgraph/internal/indexer"
	"github.com/imyousuf/srcgraph/internal/table"
)

func newMapIDsCmd() *cobra.Command {
	var (
		localPath  string
		globalPath string
		tablePath  string
		columns    string
		outPath    string
		appendOut  bool
	)

	cmd := &cobra.Command{
		Use:   "map-ids",
		Short: "Rewrite local ids in a table to global ids",
		Long: `Match local nodes to global nodes by name and replace the ids in the given
columns of a table. Every id in those columns must resolve; a missing id is
an error naming the column.

With --append the mapped rows are appended to --out instead of replacing it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if localPath == "" || globalPath == "" || tablePath == "" {
				return fmt.Errorf("--local, --global and --table are required")
			}
			cols := splitList(columns)
			if len(cols) == 0 {
				return fmt.Errorf("--columns must name at least one column")
			}
			if outPath == "" {
				outPath = tablePath
			}

			local, err := table.ReadNodes(localPath)
			if err != nil {
				return fmt.Errorf("read local nodes: %w", err)
			}
			global, err := table.ReadNodes(globalPath)
			if err != nil {
				return fmt.Errorf("read global nodes: %w", err)
			}
			m, err := idmap.Build(local, global)
			if err != nil {
				return err
			}

			rows, err := table.ReadRows(tablePath)
			if err != nil {
				return fmt.Errorf("read table: %w", err)
			}
			if err := m.Apply(rows, cols...); err != nil {
				return err
			}

			if appendOut {
				err = idmap.AppendTable(outPath, rows)
			} else {
				err = table.WriteRows(outPath, rows)
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mapped %d rows (%s) -> %s\n",
				len(rows.Records), strings.Join(cols, ", "), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&localPath, "local", "", "local node table")
	cmd.Flags().StringVar(&globalPath, "global", "", "global node table")
	cmd.Flags().StringVar(&tablePath, "table", "", "table whose id columns are rewritten")
	cmd.Flags().StringVar(&columns, "columns", "src,dst", "comma-separated id columns")
	cmd.Flags().StringVar(&outPath, "out", "", "output table (default: overwrite --table)")
	cmd.Flags().BoolVar(&appendOut, "append", false, "append to --out instead of overwriting")

	return cmd
}

func newBuildCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build-corpus",
		Short: "Merge symbols and local tables into nodes.csv / edges.csv",
		Long: `Union the symbol nodes with the nodes produced by ast-edges, rewrite the
local edges to global ids and write nodes.csv and edges.csv to the corpus
directory. When corpus.reverse_global_edges is set, the reverse of every
symbol edge (defined_in, called_by, ...) is added.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			syms, err := table.ReadNodes(corpusPath(cfg, symbolNodesFile))
			if err != nil {
				return fmt.Errorf("read symbols: %w", err)
			}
			symEdges, err := readOptionalEdges(corpusPath(cfg, symbolEdgesFile))
			if err != nil {
				return fmt.Errorf("read symbol edges: %w", err)
			}
			local := &indexer.Local{}
			if local.Nodes, err = table.ReadNodes(corpusPath(cfg, localNodesFile)); err != nil {
				return fmt.Errorf("read local nodes: %w", err)
			}
			if local.Edges, err = table.ReadEdges(corpusPath(cfg, localEdgesFile)); err != nil {
				return fmt.Errorf("read local edges: %w", err)
			}

			b := corpus.NewBuilder(corpus.Config{
				ReverseGlobalEdges: cfg.Corpus.ReverseGlobalEdges,
				Verbose:            verbose,
				Logger:             logger(cmd),
			})
			c, err := b.Build(syms, symEdges, local)
			if err != nil {
				return err
			}
			if err := table.WriteNodes(corpusPath(cfg, dataset.NodesFile), c.Nodes); err != nil {
				return fmt.Errorf("write nodes: %w", err)
			}
			if err := table.WriteEdges(corpusPath(cfg, dataset.EdgesFile), c.Edges); err != nil {
				return fmt.Errorf("write edges: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Corpus: %d nodes, %d edges -> %s\n",
				len(c.Nodes), len(c.Edges), cfg.Corpus.Dir)
			return nil
		},
	}
	return cmd
}

func newPartitionCmd() *cobra.Command {
	var (
		forcedTest string
		poolPath   string
		outPath    string
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Write a precomputed train/val/test partition",
		Long: `Assign every corpus node to train (with probability dataset.train_frac) or
to val or test. Nodes referenced by a type-annotation test set (--forced-test,
JSON lines) never go to train. Nodes outside --pool get no partition.

Point dataset.partition_file at the result to use it during assembly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = filepath.Join(cfg.Corpus.Dir, "partition.csv")
			}

			nodes, err := table.ReadNodes(corpusPath(cfg, dataset.NodesFile))
			if err != nil {
				return fmt.Errorf("read nodes: %w", err)
			}
			ids := make([]int64, len(nodes))
			for i, n := range nodes {
				ids[i] = n.ID
			}

			var forced, pool map[int64]bool
			if forcedTest != "" {
				if forced, err = dataset.ReadForcedTestIDs(forcedTest); err != nil {
					return err
				}
			}
			if poolPath != "" {
				if pool, err = dataset.ReadIDPool(poolPath); err != nil {
					return err
				}
			}

			if !cmd.Flags().Changed("seed") && cfg.Dataset.Seed != nil {
				seed = *cfg.Dataset.Seed
			}
			rng := rand.New(rand.NewPCG(seed, seed))
			assignments := dataset.RandomItemSplit(ids, cfg.Dataset.TrainFrac, forced, pool, rng)
			if err := dataset.WritePartition(outPath, assignments); err != nil {
				return fmt.Errorf("write partition: %w", err)
			}

			split := dataset.SplitOf(assignments)
			fmt.Fprintf(cmd.OutOrStdout(), "Partition: %d train, %d val, %d test -> %s\n",
				len(split.Train), len(split.Val), len(split.Test), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&forcedTest, "forced-test", "", "type annotation test set (JSON lines)")
	cmd.Flags().StringVar(&poolPath, "pool", "", "table with a node_id column restricting the partition")
	cmd.Flags().StringVar(&outPath, "out", "", "output table (default: <corpus>/partition.csv)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default: dataset.seed or 0)")

	return cmd
}

// readOptionalEdges reads an edge table, treating a missing file as empty.
func readOptionalEdges(path string) ([]table.Edge, error) {
	if !fileExists(path) {
		return nil, nil
	}
	return table.ReadEdges(path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
