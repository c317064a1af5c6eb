package dataset

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrMissingFile is returned when a required input table does not exist.
	ErrMissingFile = errors.New("missing required file")

	// ErrDuplicateID is returned when a node or edge id repeats.
	ErrDuplicateID = errors.New("duplicate id")
)

// Input and output file names inside a dataset directory.
const (
	NodesFile          = "nodes.csv"
	EdgesFile          = "edges.csv"
	AssembledNodesFile = "assembled_nodes.csv"
	AssembledEdgesFile = "assembled_edges.csv"
	HeldOutEdgesFile   = "held_out_edges.csv"
	ManifestFile       = "dataset.toml"
)

// Options controls how a dataset is assembled.
type Options struct {
	UseNodeTypes bool
	UseEdgeTypes bool

	// FilterEdges lists edge types removed before assembly.
	FilterEdges []string
	// SelfLoops adds a self_loop edge to every node that is a source but
	// never a destination.
	SelfLoops bool

	TrainFrac float64
	// Seed fixes the split. When nil a random seed is drawn and recorded.
	Seed *uint64

	NoGlobalEdges bool
	RemoveReverse bool
	// CustomReverse lists edge types whose reversed copy (type + "_rev") is
	// added.
	CustomReverse []string

	// RestrictedIDPool is a table with a node_id column. When set, only
	// listed nodes plus FunctionDef and mention nodes keep their masks.
	RestrictedIDPool string
	// PackageSplit partitions by top-level package instead of by node.
	PackageSplit bool
	// PartitionFile is a precomputed partition table that replaces the
	// random split.
	PartitionFile string
	// ChunkSize bounds the rows read at once by the package split.
	ChunkSize int

	// HoldoutSize withholds up to this many edges from the graph.
	HoldoutSize int
	// HoldoutSeed seeds the holdout shuffle.
	HoldoutSeed uint64

	MinCountForObjectives int

	Verbose bool
	Logger  func(format string, args ...any) // optional logger, defaults to fmt.Fprintf(os.Stderr, ...)
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TrainFrac:             0.6,
		ChunkSize:             100000,
		HoldoutSeed:           42,
		MinCountForObjectives: 1,
	}
}

func (o Options) logger() func(format string, args ...any) {
	if o.Logger != nil {
		return o.Logger
	}
	return func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.TrainFrac <= 0 || o.TrainFrac > 1 {
		return fmt.Errorf("train fraction must be in (0, 1], got %v", o.TrainFrac)
	}
	if o.ChunkSize < 0 {
		return fmt.Errorf("chunk size must not be negative, got %d", o.ChunkSize)
	}
	if o.HoldoutSize < 0 {
		return fmt.Errorf("holdout size must not be negative, got %d", o.HoldoutSize)
	}
	if o.PackageSplit && o.PartitionFile != "" {
		return fmt.Errorf("package split and partition file are mutually exclusive")
	}
	return nil
}
