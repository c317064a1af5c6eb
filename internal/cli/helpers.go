package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/config"
	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/graph/embedded"
	"github.com/imyousuf/srcgraph/internal/parser"
	"github.com/imyousuf/srcgraph/internal/parser/python"
)

// Table names inside the corpus directory.
const (
	bodiesFile      = "bodies.csv"
	symbolNodesFile = "symbol_nodes.csv"
	symbolEdgesFile = "symbol_edges.csv"
	localNodesFile  = "local_nodes.csv"
	localEdgesFile  = "local_edges.csv"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// logger writes to the command's stderr.
func logger(cmd *cobra.Command) func(format string, args ...any) {
	errOut := cmd.ErrOrStderr()
	return func(format string, args ...any) {
		fmt.Fprintf(errOut, format+"\n", args...)
	}
}

func corpusPath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.Corpus.Dir, name)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newRegistry() *parser.Registry {
	registry := parser.NewRegistry()
	registry.Register(python.NewParser())
	return registry
}

// datasetOptions maps the dataset section of the config onto assembler
// options.
func datasetOptions(cfg *config.Config, log func(format string, args ...any)) dataset.Options {
	d := cfg.Dataset
	opts := dataset.DefaultOptions()
	opts.UseNodeTypes = d.UseNodeTypes
	opts.UseEdgeTypes = d.UseEdgeTypes
	opts.FilterEdges = d.FilterEdges
	opts.SelfLoops = d.SelfLoops
	opts.TrainFrac = d.TrainFrac
	opts.Seed = d.Seed
	opts.NoGlobalEdges = d.NoGlobalEdges
	opts.RemoveReverse = d.RemoveReverse
	opts.CustomReverse = d.CustomReverse
	opts.RestrictedIDPool = d.RestrictedIDPool
	opts.PackageSplit = d.PackageSplit
	opts.PartitionFile = d.PartitionFile
	if d.ChunkSize > 0 {
		opts.ChunkSize = d.ChunkSize
	}
	opts.HoldoutSize = d.HoldoutSize
	opts.HoldoutSeed = d.HoldoutSeed
	opts.MinCountForObjectives = cfg.Objectives.MinCount
	opts.Verbose = verbose
	opts.Logger = log
	return opts
}

// openStore opens the badger store of the dataset in dir. A relative
// configured path lives inside the dataset directory.
func openStore(cfg *config.Config, dir, dbPath string) (*embedded.Store, error) {
	resolved := cfg.ResolveDBPath(dbPath)
	if dbPath == "" && cfg.Graph.DBPath != "" && !filepath.IsAbs(cfg.Graph.DBPath) {
		resolved = filepath.Join(dir, cfg.Graph.DBPath)
	}
	if resolved == "" {
		return nil, fmt.Errorf("no graph database path; set graph.db_path or use --db-path")
	}
	store, err := embedded.NewStore(resolved)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	return store, nil
}

// datasetDir resolves --dataset: a registered dataset name, a directory, or
// the configured output when empty.
func datasetDir(cfg *config.Config, ref string) string {
	if ref == "" {
		return cfg.Dataset.Output
	}
	if entry, ok := config.LookupDataset(ref); ok {
		return entry.Dir
	}
	return ref
}
