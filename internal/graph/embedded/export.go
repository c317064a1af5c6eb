package embedded

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/imyousuf/srcgraph/internal/graph"
)

var (
	_ graph.Exporter = (*Store)(nil)
	_ graph.Importer = (*Store)(nil)
)

// exportRecord is the JSON-lines format for export/import.
type exportRecord struct {
	Kind     string          `json:"kind"` // "relation" or "ntype"
	Relation *graph.Relation `json:"relation,omitempty"`
	Pairs    []graph.Pair    `json:"pairs,omitempty"`
	NodeType string          `json:"ntype,omitempty"`
	Nodes    *graph.NodeData `json:"nodes,omitempty"`
}

// Export writes every relation and node type to w in JSON-lines format.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	g, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	enc := json.NewEncoder(w)
	for _, rel := range g.SortedRelations() {
		if err := enc.Encode(exportRecord{Kind: "relation", Relation: &rel, Pairs: g.Relations[rel]}); err != nil {
			return fmt.Errorf("encode relation %s: %w", rel, err)
		}
	}
	for _, ntype := range g.NodeTypes() {
		if err := enc.Encode(exportRecord{Kind: "ntype", NodeType: ntype, Nodes: g.Nodes[ntype]}); err != nil {
			return fmt.Errorf("encode node type %s: %w", ntype, err)
		}
	}
	return nil
}

// Import reads JSON-lines from r and replaces the stored graph with it.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	g := graph.NewHeteroGraph()

	scanner := bufio.NewScanner(r)
	// Increase buffer for potentially large lines.
	scanner.Buffer(make([]byte, 0, 1024*1024), 256*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("unmarshal record: %w", err)
		}

		switch rec.Kind {
		case "relation":
			if rec.Relation == nil {
				return fmt.Errorf("relation record without key")
			}
			g.Relations[*rec.Relation] = rec.Pairs
		case "ntype":
			if rec.Nodes == nil {
				rec.Nodes = &graph.NodeData{}
			}
			g.Nodes[rec.NodeType] = rec.Nodes
		default:
			return fmt.Errorf("unknown record kind: %q", rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	return s.Save(ctx, g)
}
