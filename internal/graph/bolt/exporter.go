// Package bolt publishes an assembled dataset to a Neo4j database so the
// corpus graph can be browsed and queried with Cypher.
package bolt

import (
	"context"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/imyousuf/srcgraph/internal/dataset"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 5000

// Config holds the connection settings for an Exporter.
type Config struct {
	URI       string
	User      string
	Password  string
	Database  string // empty selects the server default
	BatchSize int
	Verbose   bool
	Logger    func(format string, args ...any) // optional logger, defaults to fmt.Fprintf(os.Stderr, ...)
}

// Exporter writes corpus nodes and edges as SourceNode vertices joined by
// EDGE relationships.
type Exporter struct {
	driver  neo4j.DriverWithContext
	db      string
	batch   int
	verbose bool
	log     func(format string, args ...any)
}

// NewExporter connects to the database and verifies connectivity.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to %s: %w", cfg.URI, err)
	}
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Exporter{driver: driver, db: cfg.Database, batch: batch, verbose: cfg.Verbose, log: logFn}, nil
}

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

const (
	cleanQuery = "MATCH (n:SourceNode) DETACH DELETE n"
	indexQuery = "CREATE INDEX source_node_id IF NOT EXISTS FOR (n:SourceNode) ON (n.id)"
	nodeQuery  = `UNWIND $batch AS row
		 MERGE (n:SourceNode {id: row.id})
		 SET n.type = row.type, n.name = row.name, n.typed_id = row.typed_id,
		     n.global_id = row.global_id, n.split = row.split`
	edgeQuery = `UNWIND $batch AS row
		 MATCH (s:SourceNode {id: row.src}), (d:SourceNode {id: row.dst})
		 MERGE (s)-[r:EDGE {id: row.id}]->(d)
		 SET r.type = row.type`
)

// Export loads ds into the database. With clean set, previously exported
// nodes are removed first.
func (e *Exporter) Export(ctx context.Context, ds *dataset.Dataset, clean bool) error {
	if clean {
		if e.verbose {
			e.log("Removing existing source nodes...")
		}
		if err := e.run(ctx, cleanQuery, nil); err != nil {
			return fmt.Errorf("clean graph: %w", err)
		}
	}
	if err := e.run(ctx, indexQuery, nil); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	nodes := NodeRows(ds.Nodes)
	for _, b := range Batches(nodes, e.batch) {
		if err := e.run(ctx, nodeQuery, map[string]any{"batch": b}); err != nil {
			return fmt.Errorf("load nodes: %w", err)
		}
	}
	edges := EdgeRows(ds.Edges)
	for _, b := range Batches(edges, e.batch) {
		if err := e.run(ctx, edgeQuery, map[string]any{"batch": b}); err != nil {
			return fmt.Errorf("load edges: %w", err)
		}
	}
	if e.verbose {
		e.log("Exported %d nodes and %d edges to neo4j", len(nodes), len(edges))
	}
	return nil
}

func (e *Exporter) run(ctx context.Context, cypher string, params map[string]any) error {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if e.db != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(e.db))
	}
	_, err := neo4j.ExecuteQuery(ctx, e.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

// NodeRows converts corpus nodes to UNWIND parameter rows.
func NodeRows(nodes []dataset.CorpusNode) []map[string]any {
	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{
			"id":        n.ID,
			"type":      n.TypeBackup,
			"name":      n.Name,
			"typed_id":  n.TypedID,
			"global_id": n.GlobalGraphID,
			"split":     splitName(n),
		}
	}
	return rows
}

// EdgeRows converts corpus edges to UNWIND parameter rows.
func EdgeRows(edges []dataset.CorpusEdge) []map[string]any {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{
			"id":   e.ID,
			"src":  e.Src,
			"dst":  e.Dst,
			"type": e.TypeBackup,
		}
	}
	return rows
}

// Batches cuts rows into consecutive slices of at most size rows.
func Batches(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}

func splitName(n dataset.CorpusNode) string {
	switch {
	case n.TrainMask:
		return "train"
	case n.ValMask:
		return "val"
	case n.TestMask:
		return "test"
	}
	return ""
}
