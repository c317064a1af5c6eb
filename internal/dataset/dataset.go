// Package dataset assembles the global node and edge tables into a
// partitioned heterogeneous graph dataset.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/imyousuf/srcgraph/internal/graph"
	"github.com/imyousuf/srcgraph/internal/symbols"
	"github.com/imyousuf/srcgraph/internal/table"
)

// Types introduced by assembly.
const (
	NodeTypeMarker    = "node_type"
	MarkerPrefix      = "##node_type_"
	SelfLoopType      = "self_loop"
	ReverseSuffix     = "_rev"
	CollapsedNodeType = "node_"
	CollapsedEdgeType = "edge_"
)

// CorpusNode is a node of the assembled dataset. Type is the graph-level
// type, which collapses to node_ unless node types are used; TypeBackup
// keeps the semantic type.
type CorpusNode struct {
	table.Node
	TypeBackup     string
	Embeddable     bool
	EmbeddableName string
	TypedID        int64
	GlobalGraphID  int64
	TrainMask      bool
	ValMask        bool
	TestMask       bool
}

// InSplit reports whether the node belongs to any partition.
func (n CorpusNode) InSplit() bool { return n.TrainMask || n.ValMask || n.TestMask }

// CorpusEdge is an edge of the assembled dataset. SrcType and DstType are
// the graph-level types of its endpoints.
type CorpusEdge struct {
	table.Edge
	TypeBackup string
	SrcType    string
	DstType    string
}

// Dataset is the result of one assembly run. Nodes are ordered by global
// graph id.
type Dataset struct {
	Nodes     []CorpusNode
	Edges     []CorpusEdge
	HeldOut   []table.Edge
	Graph     *graph.HeteroGraph
	Seed      uint64
	SeedFixed bool
	Options   Options

	index map[int64]int
}

// Node returns the node with the given original id.
func (d *Dataset) Node(id int64) (CorpusNode, bool) {
	if d.index == nil {
		d.reindex()
	}
	i, ok := d.index[id]
	if !ok {
		return CorpusNode{}, false
	}
	return d.Nodes[i], true
}

func (d *Dataset) reindex() {
	d.index = make(map[int64]int, len(d.Nodes))
	for i, n := range d.Nodes {
		d.index[n.ID] = i
	}
}

// Counts returns the number of nodes in each partition.
func (d *Dataset) Counts() (train, val, test int) {
	for _, n := range d.Nodes {
		switch {
		case n.TrainMask:
			train++
		case n.ValMask:
			val++
		case n.TestMask:
			test++
		}
	}
	return train, val, test
}

// Assembler builds datasets.
type Assembler struct {
	opts    Options
	verbose bool
	log     func(format string, args ...any)
}

// NewAssembler creates an Assembler with the given options.
func NewAssembler(opts Options) *Assembler {
	return &Assembler{opts: opts, verbose: opts.Verbose, log: opts.logger()}
}

// chunkReader delivers the raw node table in chunks of at most size rows.
type chunkReader func(size int, fn func([]table.Node) error) error

func sliceChunks(nodes []table.Node) chunkReader {
	return func(size int, fn func([]table.Node) error) error {
		if size <= 0 {
			size = len(nodes)
		}
		for i := 0; i < len(nodes); i += size {
			if err := fn(nodes[i:min(i+size, len(nodes))]); err != nil {
				return err
			}
		}
		return nil
	}
}

// Assemble reads nodes.csv and edges.csv from dir and assembles them.
func (a *Assembler) Assemble(ctx context.Context, dir string) (*Dataset, error) {
	nodesPath := filepath.Join(dir, NodesFile)
	edgesPath := filepath.Join(dir, EdgesFile)
	for _, p := range []string{nodesPath, edgesPath} {
		if err := requireFile(p); err != nil {
			return nil, err
		}
	}
	nodes, err := table.ReadNodes(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}
	edges, err := table.ReadEdges(edgesPath)
	if err != nil {
		return nil, fmt.Errorf("read edges: %w", err)
	}
	chunks := func(size int, fn func([]table.Node) error) error {
		return table.ReadNodeChunks(nodesPath, size, fn)
	}
	return a.assemble(ctx, nodes, edges, chunks)
}

// AssembleTables assembles in-memory tables.
func (a *Assembler) AssembleTables(ctx context.Context, nodes []table.Node, edges []table.Edge) (*Dataset, error) {
	return a.assemble(ctx, nodes, edges, sliceChunks(nodes))
}

func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

func (a *Assembler) assemble(ctx context.Context, nodes []table.Node, edges []table.Edge, chunks chunkReader) (*Dataset, error) {
	if err := a.opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkUnique(nodes, edges); err != nil {
		return nil, err
	}

	if a.opts.SelfLoops {
		edges = addSelfLoops(edges)
	}
	edges = a.filterEdges(edges)
	edges = a.dropDangling(nodes, edges)

	ds := &Dataset{Options: a.opts}
	if a.opts.HoldoutSize > 0 {
		edges, ds.HeldOut = Holdout(edges, a.opts.HoldoutSize, a.opts.HoldoutSeed)
		a.log("Held out %d edges", len(ds.HeldOut))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !a.opts.UseNodeTypes && !a.opts.UseEdgeTypes {
		markers, markerEdges := nodeTypeRelation(nodes, edges)
		nodes = append(append([]table.Node(nil), nodes...), markers...)
		edges = append(edges, markerEdges...)
	}

	ds.Nodes = make([]CorpusNode, len(nodes))
	for i, n := range nodes {
		cn := CorpusNode{
			Node:           n,
			TypeBackup:     n.Type,
			Embeddable:     true,
			EmbeddableName: EmbeddableName(n.Name),
		}
		if !a.opts.UseNodeTypes {
			cn.Type = CollapsedNodeType
		}
		ds.Nodes[i] = cn
	}
	ds.Edges = make([]CorpusEdge, len(edges))
	for i, e := range edges {
		ce := CorpusEdge{Edge: e, TypeBackup: e.Type}
		if !a.opts.UseEdgeTypes {
			ce.Type = CollapsedEdgeType
		}
		ds.Edges[i] = ce
	}
	if a.verbose {
		a.log("Unique nodes: %d, edges: %d", len(ds.Nodes), len(ds.Edges))
	}

	ds.Seed, ds.SeedFixed = a.seed()
	rng := rand.New(rand.NewPCG(ds.Seed, ds.Seed))
	if err := a.assignSplits(ctx, ds.Nodes, chunks, rng); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assignTypedIDs(ds.Nodes)
	ds.Graph = buildGraph(ds.Nodes, ds.Edges)
	sort.SliceStable(ds.Nodes, func(i, j int) bool {
		return ds.Nodes[i].GlobalGraphID < ds.Nodes[j].GlobalGraphID
	})
	ds.reindex()

	if a.verbose {
		train, val, test := ds.Counts()
		a.log("Assembled %d node types, %d relations; train %d, val %d, test %d",
			len(ds.Graph.Nodes), len(ds.Graph.Relations), train, val, test)
	}
	return ds, nil
}

func (a *Assembler) seed() (uint64, bool) {
	if a.opts.Seed != nil {
		a.log("Warning: random state for splitting dataset is fixed")
		return *a.opts.Seed, true
	}
	if a.verbose {
		a.log("Random state is not set")
	}
	return rand.Uint64(), false
}

func checkUnique(nodes []table.Node, edges []table.Edge) error {
	seen := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			return fmt.Errorf("node %d: %w", n.ID, ErrDuplicateID)
		}
		seen[n.ID] = true
	}
	seen = make(map[int64]bool, len(edges))
	for _, e := range edges {
		if seen[e.ID] {
			return fmt.Errorf("edge %d: %w", e.ID, ErrDuplicateID)
		}
		seen[e.ID] = true
	}
	return nil
}

func nextEdgeID(edges []table.Edge) int64 {
	var next int64
	for _, e := range edges {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	return next
}

// addSelfLoops adds a self_loop edge to every node that appears as an edge
// source but never as a destination.
func addSelfLoops(edges []table.Edge) []table.Edge {
	dst := make(map[int64]bool, len(edges))
	for _, e := range edges {
		dst[e.Dst] = true
	}
	need := make(map[int64]bool)
	var order []int64
	for _, e := range edges {
		if !dst[e.Src] && !need[e.Src] {
			need[e.Src] = true
			order = append(order, e.Src)
		}
	}
	id := nextEdgeID(edges)
	for _, n := range order {
		edges = append(edges, table.Edge{ID: id, Type: SelfLoopType, Src: n, Dst: n})
		id++
	}
	return edges
}

// filterEdges applies the configured edge type filters in order: explicit
// types, reverse edges, global edges, then custom reverse copies.
func (a *Assembler) filterEdges(edges []table.Edge) []table.Edge {
	drop := make(map[string]bool, len(a.opts.FilterEdges))
	for _, t := range a.opts.FilterEdges {
		a.log("Filtering edge type %s", t)
		drop[t] = true
	}
	global := symbols.GlobalEdgeTypes()

	out := make([]table.Edge, 0, len(edges))
	reverseDropped := 0
	for _, e := range edges {
		if drop[e.Type] {
			continue
		}
		if a.opts.RemoveReverse && IsReverse(e.Type) {
			reverseDropped++
			continue
		}
		if a.opts.NoGlobalEdges && global[e.Type] {
			continue
		}
		out = append(out, e)
	}
	if reverseDropped > 0 {
		a.log("Dropped %d reverse edges", reverseDropped)
	}

	if len(a.opts.CustomReverse) > 0 {
		rev := make(map[string]bool, len(a.opts.CustomReverse))
		for _, t := range a.opts.CustomReverse {
			rev[t] = true
		}
		id := nextEdgeID(out)
		n := len(out)
		for _, e := range out[:n] {
			if !rev[e.Type] {
				continue
			}
			out = append(out, table.Edge{ID: id, Type: e.Type + ReverseSuffix, Src: e.Dst, Dst: e.Src})
			id++
		}
	}
	return out
}

// IsReverse reports whether an edge type is a reverse relation: either it
// carries the reverse suffix or it is one of the symbol indexer's reverse
// types.
func IsReverse(edgeType string) bool {
	if strings.HasSuffix(edgeType, ReverseSuffix) {
		return true
	}
	_, ok := symbols.ReverseEdges[edgeType]
	return ok
}

func (a *Assembler) dropDangling(nodes []table.Node, edges []table.Edge) []table.Edge {
	ids := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	out := edges[:0:0]
	for _, e := range edges {
		if ids[e.Src] && ids[e.Dst] {
			out = append(out, e)
		}
	}
	if dropped := len(edges) - len(out); dropped > 0 {
		a.log("Dropped %d edges with endpoints outside the node table", dropped)
	}
	return out
}

// nodeTypeRelation creates one marker node per distinct node type and a
// node_type edge from the marker to every node of that type.
func nodeTypeRelation(nodes []table.Node, edges []table.Edge) ([]table.Node, []table.Edge) {
	var nextNode int64
	for _, n := range nodes {
		if n.ID >= nextNode {
			nextNode = n.ID + 1
		}
	}
	nextEdge := nextEdgeID(edges)

	marker := make(map[string]int64)
	var newNodes []table.Node
	newEdges := make([]table.Edge, 0, len(nodes))
	for _, n := range nodes {
		id, ok := marker[n.Type]
		if !ok {
			id = nextNode
			nextNode++
			marker[n.Type] = id
			newNodes = append(newNodes, table.Node{ID: id, Type: NodeTypeMarker, Name: MarkerPrefix + n.Type})
		}
		newEdges = append(newEdges, table.Edge{ID: nextEdge, Type: NodeTypeMarker, Src: id, Dst: n.ID})
		nextEdge++
	}
	return newNodes, newEdges
}

// EmbeddableName strips the scope suffix (@...) or, failing that, the
// synthetic suffix (_0x...) from a node name.
func EmbeddableName(name string) string {
	if i := strings.IndexByte(name, '@'); i >= 0 {
		return name[:i]
	}
	if i := strings.Index(name, "_0x"); i >= 0 {
		return name[:i]
	}
	return name
}

// assignTypedIDs numbers nodes densely within each graph-level type in
// order of appearance.
func assignTypedIDs(nodes []CorpusNode) {
	counts := make(map[string]int64)
	for i := range nodes {
		t := nodes[i].Type
		nodes[i].TypedID = counts[t]
		counts[t]++
	}
}

// buildGraph groups edges into relations, lays out global graph ids by
// sorted type order and fills the per-type node arrays.
func buildGraph(nodes []CorpusNode, edges []CorpusEdge) *graph.HeteroGraph {
	g := graph.NewHeteroGraph()
	byID := make(map[int64]int, len(nodes))
	for i, n := range nodes {
		byID[n.ID] = i
		if _, ok := g.Nodes[n.Type]; !ok {
			g.Nodes[n.Type] = &graph.NodeData{}
		}
	}

	for i := range edges {
		src := nodes[byID[edges[i].Src]]
		dst := nodes[byID[edges[i].Dst]]
		edges[i].SrcType = src.Type
		edges[i].DstType = dst.Type
		rel := graph.Relation{SrcType: src.Type, EdgeType: edges[i].Type, DstType: dst.Type}
		g.Relations[rel] = append(g.Relations[rel], graph.Pair{Src: src.TypedID, Dst: dst.TypedID})
	}

	counts := make(map[string]int64)
	for _, n := range nodes {
		counts[n.Type]++
	}
	offsets := make(map[string]int64, len(counts))
	var off int64
	for _, t := range g.NodeTypes() {
		offsets[t] = off
		off += counts[t]
	}
	for i := range nodes {
		n := &nodes[i]
		n.GlobalGraphID = offsets[n.Type] + n.TypedID
		g.Nodes[n.Type].Append(n.TypedID, n.ID, n.GlobalGraphID, n.TrainMask, n.ValMask, n.TestMask)
	}
	return g
}
