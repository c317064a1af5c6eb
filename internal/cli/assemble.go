package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/config"
	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/objectives"
	"github.com/imyousuf/srcgraph/internal/table"
)

func newAssembleCmd() *cobra.Command {
	var (
		outDir string
		dbPath string
		name   string
		noDB   bool
	)

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Build the heterogeneous dataset and its split",
		Long: `Read nodes.csv and edges.csv from the corpus directory, filter and type the
edges, assign train/val/test masks and build the heterogeneous graph.

The assembled tables, the manifest (dataset.toml) and the graph store are
written to the dataset output directory, which is registered under --name
in ~/.srcgraph.conf.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Dataset.Output
			}

			asm := dataset.NewAssembler(datasetOptions(cfg, logger(cmd)))
			ds, err := asm.Assemble(cmd.Context(), cfg.Corpus.Dir)
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}

			if err := ensureDir(outDir); err != nil {
				return err
			}
			var saveErr error
			if noDB {
				saveErr = ds.Save(cmd.Context(), outDir, nil)
			} else {
				store, err := openStore(cfg, outDir, dbPath)
				if err != nil {
					return err
				}
				saveErr = ds.Save(cmd.Context(), outDir, store)
				if err := store.Close(); err != nil && saveErr == nil {
					saveErr = fmt.Errorf("close graph store: %w", err)
				}
			}
			if saveErr != nil {
				return saveErr
			}

			if name == "" {
				name = cfg.Project.Name
			}
			if err := config.RegisterDataset(name, outDir, cfg.Project.Name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to register dataset in %s: %v\n", config.RegistryPath(), err)
			}

			printManifest(cmd.OutOrStdout(), ds.Manifest())
			fmt.Fprintf(cmd.OutOrStdout(), "\nDataset written to %s\n", outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: dataset.output)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "graph database path (default: graph.db_path)")
	cmd.Flags().StringVar(&name, "name", "", "registry name (default: project name or directory)")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "skip writing the graph store")

	return cmd
}

func newTargetsCmd() *cobra.Command {
	var (
		dsRef  string
		outDir string
		names  []string
	)

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Extract objective target tables",
		Long: `Extract supervised (src, dst) target tables from an assembled dataset:

  node_names        names of local variables
  var_use           variables used inside each function
  api_calls         the next global callee after each call
  type_annotations  normalized annotation labels
  node_classes      node type labels
  docstrings        the first sentences of each function's docstring

Each objective is written to <out>/<name>.csv. Labels seen fewer than
objectives.min_count times are dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := datasetDir(cfg, dsRef)
			if outDir == "" {
				outDir = filepath.Join(dir, "targets")
			}
			if len(names) == 0 {
				names = cfg.Objectives.Enabled
			}

			ds, err := dataset.Load(cmd.Context(), dir, nil)
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			if err := ensureDir(outDir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				var targets []objectives.Target
				if name == objectives.DocstringsObjective {
					bodies, err := table.ReadBodies(corpusPath(cfg, bodiesFile))
					if err != nil {
						return fmt.Errorf("read bodies: %w", err)
					}
					if targets, err = objectives.Docstrings(bodies); err != nil {
						return err
					}
					targets = objectives.FilterByFreq(targets, cfg.Objectives.MinCount)
				} else {
					var ok bool
					targets, ok = objectives.Extract(name, ds, cfg.Objectives.MinCount)
					if !ok {
						return fmt.Errorf("unknown objective %q", name)
					}
				}
				path := filepath.Join(outDir, name+".csv")
				if err := table.WriteTargets(path, targets); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
				fmt.Fprintf(out, "  %-18s %d\n", name, len(targets))
			}
			fmt.Fprintf(out, "Targets written to %s\n", outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsRef, "dataset", "", "registered dataset name or directory (default: dataset.output)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: <dataset>/targets)")
	cmd.Flags().StringSliceVar(&names, "objective", nil, "objectives to extract (default: objectives.enabled)")

	return cmd
}

func printManifest(out io.Writer, m dataset.Manifest) {
	printSection(out, "Dataset")
	printKV(out, "Nodes", fmt.Sprint(m.Nodes))
	printKV(out, "Edges", fmt.Sprint(m.Edges))
	if m.HeldOut > 0 {
		printKV(out, "Held out", fmt.Sprint(m.HeldOut))
	}
	printKV(out, "Split", fmt.Sprintf("%d train / %d val / %d test", m.Train, m.Val, m.Test))
	seed := fmt.Sprint(m.Seed)
	if !m.SeedFixed {
		seed += " (random)"
	}
	printKV(out, "Seed", seed)
	printKV(out, "Node types", boolYesNo(m.UseNodeTypes))
	printKV(out, "Edge types", boolYesNo(m.UseEdgeTypes))
	if m.PackageSplit {
		printKV(out, "Package split", "yes")
	}
}
