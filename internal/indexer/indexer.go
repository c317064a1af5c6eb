// Package indexer runs the AST graph generator over a corpus of function
// bodies and produces the per-unit local node and edge tables.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/imyousuf/srcgraph/internal/astgraph"
	"github.com/imyousuf/srcgraph/internal/table"
)

// IndexerConfig holds configuration for the Indexer.
type IndexerConfig struct {
	Verbose bool
	Logger  func(format string, args ...any) // optional logger, defaults to fmt.Fprintf(os.Stderr, ...)
}

// IndexStats holds statistics about one indexing run.
type IndexStats struct {
	UnitsIndexed  int       `json:"units_indexed"`
	UnitsSkipped  int       `json:"units_skipped"`
	NodesTotal    int64     `json:"nodes_total"`
	EdgesTotal    int64     `json:"edges_total"`
	LastIndexTime time.Time `json:"last_index_time"`
	Errors        []string  `json:"errors,omitempty"`
}

// Local is the output of an indexing run. Node ids are local to the run;
// names are unique, so literal operands shared by several units map to one
// local node. Unit-qualified nodes and every edge carry the id of their
// enclosing function in MentionedIn.
type Local struct {
	Nodes []table.Node
	Edges []table.Edge
}

// Indexer compiles function bodies into local tables.
type Indexer struct {
	verbose bool
	log     func(format string, args ...any)

	mu        sync.Mutex
	indexed   int
	skipped   int
	errors    []string
	lastIndex time.Time
	local     Local
	ids       map[string]int64
}

// NewIndexer creates a new Indexer with the given configuration.
func NewIndexer(cfg IndexerConfig) *Indexer {
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Indexer{
		verbose: cfg.Verbose,
		log:     logFn,
		ids:     make(map[string]int64),
	}
}

// Qualify makes a per-traversal name unique across the corpus by suffixing
// the unit id. Literal operands keep their name so they merge across units.
func Qualify(n astgraph.SyntaxNode, unit int64) string {
	if n.Synthetic || n.Kind == astgraph.KindMention {
		return n.Name + ":" + strconv.FormatInt(unit, 10)
	}
	return n.Name
}

// IndexBody compiles one body and appends its nodes and edges to the local
// tables. Generator failures are returned; the body contributes nothing then.
func (idx *Indexer) IndexBody(ctx context.Context, body table.Body) error {
	g, err := astgraph.Generate(ctx, body.Source)
	if err != nil {
		return fmt.Errorf("generate %s: %w", body.Name, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	unit := body.ID
	names := make(map[string]int64, len(g.Nodes))
	for _, n := range g.Nodes {
		name := Qualify(n, unit)
		id, ok := idx.ids[name]
		if !ok {
			id = int64(len(idx.local.Nodes))
			idx.ids[name] = id
			node := table.Node{ID: id, Type: n.Kind, Name: name}
			if name != n.Name {
				node.MentionedIn = table.Int64(unit)
			}
			idx.local.Nodes = append(idx.local.Nodes, node)
		}
		names[n.Name] = id
	}
	for _, e := range g.Edges {
		edge := table.Edge{
			ID:          int64(len(idx.local.Edges)),
			Type:        e.Type,
			Src:         names[e.Src],
			Dst:         names[e.Dst],
			MentionedIn: table.Int64(unit),
		}
		if e.Span != nil {
			edge.Line = table.Int64(int64(e.Span.Line))
			edge.EndLine = table.Int64(int64(e.Span.EndLine))
			edge.ColOffset = table.Int64(int64(e.Span.ColOffset))
			edge.EndColOffset = table.Int64(int64(e.Span.EndColOffset))
		}
		idx.local.Edges = append(idx.local.Edges, edge)
	}
	idx.indexed++
	idx.lastIndex = time.Now()
	return nil
}

// IndexBodies compiles every body. Bodies that fail to parse or that hit a
// construct without a rule are skipped and recorded; cancellation aborts.
func (idx *Indexer) IndexBodies(ctx context.Context, bodies []table.Body) (*Local, error) {
	start := time.Now()
	for i, b := range bodies {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := idx.IndexBody(ctx, b); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			idx.mu.Lock()
			idx.skipped++
			idx.errors = append(idx.errors, err.Error())
			idx.mu.Unlock()
			if idx.verbose {
				idx.log("  Skipping %s: %v", b.Name, err)
			}
		}
		if idx.verbose && (i+1)%1000 == 0 {
			idx.log("  Progress: %d bodies indexed...", i+1)
		}
	}
	if idx.verbose {
		stats := idx.Stats()
		idx.log("Indexing complete: %d units (%d skipped), %d nodes, %d edges in %s",
			stats.UnitsIndexed, stats.UnitsSkipped, stats.NodesTotal, stats.EdgesTotal, time.Since(start))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := idx.local
	return &out, nil
}

// Stats returns current indexing statistics.
func (idx *Indexer) Stats() IndexStats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	stats := IndexStats{
		UnitsIndexed:  idx.indexed,
		UnitsSkipped:  idx.skipped,
		NodesTotal:    int64(len(idx.local.Nodes)),
		EdgesTotal:    int64(len(idx.local.Edges)),
		LastIndexTime: idx.lastIndex,
		Errors:        make([]string, len(idx.errors)),
	}
	copy(stats.Errors, idx.errors)
	return stats
}
