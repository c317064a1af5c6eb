// Package config handles configuration loading and validation for srcgraph.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".srcgraph"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. SRCGRAPH_DATASET_SEED.
	EnvPrefix = "SRCGRAPH"
)

// Config holds all configuration for srcgraph.
type Config struct {
	// Project contains project metadata.
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	// Scan configures the source tree walk.
	Scan ScanConfig `mapstructure:"scan" yaml:"scan"`
	// Corpus configures where pipeline tables live and how they are merged.
	Corpus CorpusConfig `mapstructure:"corpus" yaml:"corpus"`
	// Dataset configures graph assembly and partitioning.
	Dataset DatasetConfig `mapstructure:"dataset" yaml:"dataset"`
	// Objectives configures target extraction.
	Objectives ObjectivesConfig `mapstructure:"objectives" yaml:"objectives"`
	// Graph configures graph persistence and export.
	Graph GraphConfig `mapstructure:"graph" yaml:"graph"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// ProjectConfig holds project metadata.
type ProjectConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// ScanConfig holds source tree walk configuration.
type ScanConfig struct {
	// Roots lists the directories to scan.
	Roots []string `mapstructure:"roots" yaml:"roots"`
	// Exclude lists gitignore-style patterns skipped in addition to .gitignore files.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// CorpusConfig holds corpus table configuration.
type CorpusConfig struct {
	// Dir holds bodies.csv, the symbol tables and the merged nodes.csv/edges.csv.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// SymbolDB is an optional indexer SQLite database used instead of the scanned symbols.
	SymbolDB string `mapstructure:"symbol_db" yaml:"symbol_db,omitempty"`
	// ReverseGlobalEdges adds reverse relations for symbol edges.
	ReverseGlobalEdges bool `mapstructure:"reverse_global_edges" yaml:"reverse_global_edges"`
}

// DatasetConfig holds assembly options.
type DatasetConfig struct {
	Output           string   `mapstructure:"output" yaml:"output"`
	UseNodeTypes     bool     `mapstructure:"use_node_types" yaml:"use_node_types"`
	UseEdgeTypes     bool     `mapstructure:"use_edge_types" yaml:"use_edge_types"`
	FilterEdges      []string `mapstructure:"filter_edges" yaml:"filter_edges,omitempty"`
	SelfLoops        bool     `mapstructure:"self_loops" yaml:"self_loops"`
	TrainFrac        float64  `mapstructure:"train_frac" yaml:"train_frac"`
	Seed             *uint64  `mapstructure:"seed" yaml:"seed,omitempty"`
	NoGlobalEdges    bool     `mapstructure:"no_global_edges" yaml:"no_global_edges"`
	RemoveReverse    bool     `mapstructure:"remove_reverse" yaml:"remove_reverse"`
	CustomReverse    []string `mapstructure:"custom_reverse" yaml:"custom_reverse,omitempty"`
	RestrictedIDPool string   `mapstructure:"restricted_id_pool" yaml:"restricted_id_pool,omitempty"`
	PackageSplit     bool     `mapstructure:"package_split" yaml:"package_split"`
	PartitionFile    string   `mapstructure:"partition_file" yaml:"partition_file,omitempty"`
	ChunkSize        int      `mapstructure:"chunk_size" yaml:"chunk_size"`
	HoldoutSize      int      `mapstructure:"holdout_size" yaml:"holdout_size"`
	HoldoutSeed      uint64   `mapstructure:"holdout_seed" yaml:"holdout_seed"`
}

// ObjectivesConfig holds target extraction configuration.
type ObjectivesConfig struct {
	// Enabled lists the objectives written by the targets command.
	Enabled []string `mapstructure:"enabled" yaml:"enabled"`
	// MinCount drops labels that occur fewer times.
	MinCount int `mapstructure:"min_count" yaml:"min_count"`
}

// GraphConfig holds graph storage and export configuration.
type GraphConfig struct {
	// DBPath is the badger directory for the assembled graph. Relative
	// paths resolve against the dataset output directory.
	DBPath        string `mapstructure:"db_path" yaml:"db_path"`
	Neo4jURI      string `mapstructure:"neo4j_uri" yaml:"neo4j_uri,omitempty"`
	Neo4jUser     string `mapstructure:"neo4j_user" yaml:"neo4j_user,omitempty"`
	Neo4jPassword string `mapstructure:"neo4j_password" yaml:"-"`
	Neo4jDatabase string `mapstructure:"neo4j_database" yaml:"neo4j_database,omitempty"`
	BatchSize     int    `mapstructure:"batch_size" yaml:"batch_size"`
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper)
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	for i, root := range c.Scan.Roots {
		if root == "" {
			return fmt.Errorf("scan root %d: path is required", i)
		}
	}
	if c.Corpus.Dir == "" {
		return fmt.Errorf("corpus dir is required")
	}
	if c.Dataset.TrainFrac <= 0 || c.Dataset.TrainFrac > 1 {
		return fmt.Errorf("dataset train_frac must be in (0, 1], got %v", c.Dataset.TrainFrac)
	}
	if c.Dataset.ChunkSize < 0 {
		return fmt.Errorf("dataset chunk_size must not be negative, got %d", c.Dataset.ChunkSize)
	}
	if c.Dataset.PackageSplit && c.Dataset.PartitionFile != "" {
		return fmt.Errorf("dataset package_split and partition_file are mutually exclusive")
	}
	if c.Objectives.MinCount < 1 {
		return fmt.Errorf("objectives min_count must be at least 1, got %d", c.Objectives.MinCount)
	}
	return nil
}

// ResolveDBPath returns the graph database directory. An explicit flag value
// wins; relative configured paths resolve against the dataset output.
func (c *Config) ResolveDBPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if c.Graph.DBPath == "" || filepath.IsAbs(c.Graph.DBPath) {
		return c.Graph.DBPath
	}
	return filepath.Join(c.Dataset.Output, c.Graph.DBPath)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")

	v.SetDefault("scan.roots", []string{"."})
	v.SetDefault("scan.exclude", []string{
		"**/.git/**",
		"**/__pycache__/**",
		"**/.venv/**",
		"**/venv/**",
		"**/node_modules/**",
		"**/build/**",
		"**/dist/**",
	})

	v.SetDefault("corpus.dir", "corpus")
	v.SetDefault("corpus.reverse_global_edges", true)

	v.SetDefault("dataset.output", "dataset")
	v.SetDefault("dataset.train_frac", 0.6)
	v.SetDefault("dataset.chunk_size", 100000)
	v.SetDefault("dataset.holdout_seed", 42)

	v.SetDefault("objectives.enabled", []string{
		"node_names",
		"var_use",
		"api_calls",
		"type_annotations",
		"docstrings",
	})
	v.SetDefault("objectives.min_count", 1)

	v.SetDefault("graph.db_path", "graph.db")
	v.SetDefault("graph.neo4j_uri", "bolt://localhost:7687")
	v.SetDefault("graph.neo4j_user", "neo4j")
	v.SetDefault("graph.neo4j_password", "")
	v.SetDefault("graph.neo4j_database", "")
	v.SetDefault("graph.batch_size", 5000)
}
