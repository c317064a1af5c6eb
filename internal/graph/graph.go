package graph

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by lookups for ids or types the store does not hold.
var ErrNotFound = errors.New("not found")

// Store is the interface for heterogeneous graph persistence.
type Store interface {
	// Save replaces the stored graph with g.
	Save(ctx context.Context, g *HeteroGraph) error

	// Load reads the whole stored graph.
	Load(ctx context.Context) (*HeteroGraph, error)

	// Relation returns the pairs of one relation.
	Relation(ctx context.Context, rel Relation) ([]Pair, error)

	// NodeType returns the per-node arrays of one node type.
	NodeType(ctx context.Context, ntype string) (*NodeData, error)

	// GlobalID maps an original corpus node id to its global graph id.
	GlobalID(ctx context.Context, originalID int64) (int64, error)

	// Stats returns aggregate statistics about the stored graph.
	Stats(ctx context.Context) (*GraphStats, error)

	// Close releases resources held by the store.
	Close() error
}

// Exporter dumps a stored graph as JSON lines, one record per relation or
// node type.
type Exporter interface {
	Export(ctx context.Context, w io.Writer) error
}

// Importer replaces a stored graph with records written by an Exporter.
type Importer interface {
	Import(ctx context.Context, r io.Reader) error
}
