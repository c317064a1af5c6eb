package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Relation identifies one directed relation of a heterogeneous graph by its
// (source type, edge type, destination type) triplet.
type Relation struct {
	SrcType  string `json:"src_type"`
	EdgeType string `json:"edge_type"`
	DstType  string `json:"dst_type"`
}

// String renders the relation as src|etype|dst.
func (r Relation) String() string {
	return r.SrcType + "|" + r.EdgeType + "|" + r.DstType
}

// ParseRelation is the inverse of Relation.String.
func ParseRelation(s string) (Relation, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return Relation{}, fmt.Errorf("parse relation %q: want src|etype|dst", s)
	}
	return Relation{SrcType: parts[0], EdgeType: parts[1], DstType: parts[2]}, nil
}

// Pair is one edge of a relation, in typed ids of its endpoint types.
type Pair struct {
	Src int64 `json:"src"`
	Dst int64 `json:"dst"`
}

// NodeData holds the per-node arrays of one node type, indexed by typed id.
type NodeData struct {
	TypedID       []int64 `json:"typed_id"`
	OriginalID    []int64 `json:"original_id"`
	GlobalGraphID []int64 `json:"global_graph_id"`
	TrainMask     []bool  `json:"train_mask"`
	ValMask       []bool  `json:"val_mask"`
	TestMask      []bool  `json:"test_mask"`
}

// Len returns the number of nodes of the type.
func (d *NodeData) Len() int { return len(d.TypedID) }

// Append adds one node. Nodes must be appended in typed id order.
func (d *NodeData) Append(typedID, originalID, globalID int64, train, val, test bool) {
	d.TypedID = append(d.TypedID, typedID)
	d.OriginalID = append(d.OriginalID, originalID)
	d.GlobalGraphID = append(d.GlobalGraphID, globalID)
	d.TrainMask = append(d.TrainMask, train)
	d.ValMask = append(d.ValMask, val)
	d.TestMask = append(d.TestMask, test)
}

// HeteroGraph is a multi-relational graph whose nodes are addressed by type
// and typed id.
type HeteroGraph struct {
	Relations map[Relation][]Pair
	Nodes     map[string]*NodeData
}

// NewHeteroGraph returns an empty graph.
func NewHeteroGraph() *HeteroGraph {
	return &HeteroGraph{
		Relations: make(map[Relation][]Pair),
		Nodes:     make(map[string]*NodeData),
	}
}

// NodeTypes returns the node type names in sorted order. This is the order
// in which global graph ids are laid out.
func (g *HeteroGraph) NodeTypes() []string {
	types := make([]string, 0, len(g.Nodes))
	for t := range g.Nodes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// SortedRelations returns the relation keys in string order.
func (g *HeteroGraph) SortedRelations() []Relation {
	rels := make([]Relation, 0, len(g.Relations))
	for r := range g.Relations {
		rels = append(rels, r)
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].String() < rels[j].String() })
	return rels
}

// Stats computes GraphStats for g.
func (g *HeteroGraph) Stats() *GraphStats {
	s := &GraphStats{
		NodesByType:     make(map[string]int64, len(g.Nodes)),
		EdgesByRelation: make(map[string]int64, len(g.Relations)),
	}
	for t, d := range g.Nodes {
		s.NodesByType[t] = int64(d.Len())
		s.NodeCount += int64(d.Len())
	}
	for r, pairs := range g.Relations {
		s.EdgesByRelation[r.String()] = int64(len(pairs))
		s.EdgeCount += int64(len(pairs))
	}
	return s
}

// GraphStats holds aggregate statistics about a heterogeneous graph.
type GraphStats struct {
	NodeCount       int64            `json:"node_count" toml:"node_count"`
	EdgeCount       int64            `json:"edge_count" toml:"edge_count"`
	NodesByType     map[string]int64 `json:"nodes_by_type" toml:"nodes_by_type"`
	EdgesByRelation map[string]int64 `json:"edges_by_relation" toml:"edges_by_relation"`
}
