package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/config"
	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/graph"
)

func newStatusCmd() *cobra.Command {
	var dsRef, dbPath string
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the dataset manifest and graph stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if all {
				printRegistry(out, config.ListDatasets())
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := datasetDir(cfg, dsRef)

			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render("Dataset Status"))
			fmt.Fprintln(out)

			m, err := dataset.ReadManifest(filepath.Join(dir, dataset.ManifestFile))
			if err != nil {
				return fmt.Errorf("no assembled dataset in %s; run 'srcgraph assemble' first: %w", dir, err)
			}
			printManifest(out, *m)
			printKV(out, "Created", m.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintln(out)

			if !fileExists(resolvedStorePath(cfg, dir, dbPath)) {
				return nil
			}
			store, err := openStore(cfg, dir, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			printStats(out, stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsRef, "dataset", "", "registered dataset name or directory (default: dataset.output)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "graph database path (default: graph.db_path)")
	cmd.Flags().BoolVar(&all, "all", false, "list every registered dataset")

	return cmd
}

func resolvedStorePath(cfg *config.Config, dir, dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	if filepath.IsAbs(cfg.Graph.DBPath) {
		return cfg.Graph.DBPath
	}
	return filepath.Join(dir, cfg.Graph.DBPath)
}

func printStats(out io.Writer, stats *graph.GraphStats) {
	printSection(out, "Graph")
	printKV(out, "Total nodes", fmt.Sprint(stats.NodeCount))
	printKV(out, "Total edges", fmt.Sprint(stats.EdgeCount))
	fmt.Fprintln(out)

	if len(stats.NodesByType) > 0 {
		printSection(out, "Nodes by type")
		for _, nt := range sortedKeys(stats.NodesByType) {
			fmt.Fprintf(out, "    %-40s %d\n", nt, stats.NodesByType[nt])
		}
		fmt.Fprintln(out)
	}

	if len(stats.EdgesByRelation) > 0 {
		printSection(out, "Edges by relation")
		for _, rel := range sortedKeys(stats.EdgesByRelation) {
			fmt.Fprintf(out, "    %-40s %d\n", rel, stats.EdgesByRelation[rel])
		}
		fmt.Fprintln(out)
	}
}

func printRegistry(out io.Writer, entries []config.DatasetEntry) {
	printSection(out, "Registered datasets")
	if len(entries) == 0 {
		fmt.Fprintln(out, "    (none)")
		return
	}
	for _, e := range entries {
		label := e.Name
		if e.Project != "" {
			label += " (" + e.Project + ")"
		}
		printKV(out, label, e.Dir)
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
