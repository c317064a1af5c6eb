package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/imyousuf/srcgraph/internal/graph"
	"github.com/imyousuf/srcgraph/internal/table"
)

// AssembledNodeHeader is the column layout of the assembled node table.
var AssembledNodeHeader = append(append([]string(nil), table.NodeHeader...),
	"type_backup", "embeddable", "embeddable_name", "typed_id", "global_graph_id",
	"train_mask", "val_mask", "test_mask")

// AssembledEdgeHeader is the column layout of the assembled edge table.
var AssembledEdgeHeader = append(append([]string(nil), table.EdgeHeader...),
	"type_backup", "src_type", "dst_type")

// Manifest describes one assembled dataset.
type Manifest struct {
	CreatedAt    time.Time         `toml:"created_at"`
	Seed         string            `toml:"seed"`
	SeedFixed    bool              `toml:"seed_fixed"`
	TrainFrac    float64           `toml:"train_frac"`
	UseNodeTypes bool              `toml:"use_node_types"`
	UseEdgeTypes bool              `toml:"use_edge_types"`
	PackageSplit bool              `toml:"package_split"`
	Nodes        int               `toml:"nodes"`
	Edges        int               `toml:"edges"`
	HeldOut      int               `toml:"held_out"`
	Train        int               `toml:"train"`
	Val          int               `toml:"val"`
	Test         int               `toml:"test"`
	Graph        *graph.GraphStats `toml:"graph,omitempty"`
}

// Manifest summarizes the dataset.
func (d *Dataset) Manifest() Manifest {
	train, val, test := d.Counts()
	m := Manifest{
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		Seed:         strconv.FormatUint(d.Seed, 10),
		SeedFixed:    d.SeedFixed,
		TrainFrac:    d.Options.TrainFrac,
		UseNodeTypes: d.Options.UseNodeTypes,
		UseEdgeTypes: d.Options.UseEdgeTypes,
		PackageSplit: d.Options.PackageSplit,
		Nodes:        len(d.Nodes),
		Edges:        len(d.Edges),
		HeldOut:      len(d.HeldOut),
		Train:        train,
		Val:          val,
		Test:         test,
	}
	if d.Graph != nil {
		m.Graph = d.Graph.Stats()
	}
	return m
}

// Save persists the dataset into dir: the assembled node and edge tables,
// held-out edges, the manifest and, when store is non-nil, the graph.
//
// The tables are staged in a temporary sibling of dir and renamed into
// place only after every write succeeded, so a failed Save leaves an
// earlier dataset in dir untouched. The manifest is moved last.
func (d *Dataset) Save(ctx context.Context, dir string, store graph.Store) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := table.WriteRows(filepath.Join(tmp, AssembledNodesFile), d.nodeRows()); err != nil {
		return fmt.Errorf("write assembled nodes: %w", err)
	}
	if err := table.WriteRows(filepath.Join(tmp, AssembledEdgesFile), d.edgeRows()); err != nil {
		return fmt.Errorf("write assembled edges: %w", err)
	}
	if len(d.HeldOut) > 0 {
		if err := table.WriteEdges(filepath.Join(tmp, HeldOutEdgesFile), d.HeldOut); err != nil {
			return fmt.Errorf("write held-out edges: %w", err)
		}
	}
	if err := WriteManifest(filepath.Join(tmp, ManifestFile), d.Manifest()); err != nil {
		return err
	}
	if store != nil && d.Graph != nil {
		if err := store.Save(ctx, d.Graph); err != nil {
			return fmt.Errorf("save graph: %w", err)
		}
	}
	return publish(tmp, dir, len(d.HeldOut) > 0)
}

// publish moves the staged artifacts from tmp into dir. The graph store may
// live inside dir, so files are renamed one by one instead of replacing the
// directory.
func publish(tmp, dir string, heldOut bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	// Drop the old manifest first so a half-published dir never looks complete.
	if err := os.Remove(filepath.Join(dir, ManifestFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old manifest: %w", err)
	}
	if !heldOut {
		if err := os.Remove(filepath.Join(dir, HeldOutEdgesFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale held-out edges: %w", err)
		}
	}
	names := []string{AssembledNodesFile, AssembledEdgesFile}
	if heldOut {
		names = append(names, HeldOutEdgesFile)
	}
	names = append(names, ManifestFile)
	for _, name := range names {
		if err := os.Rename(filepath.Join(tmp, name), filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
	}
	return nil
}

// WriteManifest writes m as TOML.
func WriteManifest(path string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads a TOML manifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

func (d *Dataset) nodeRows() *table.Rows {
	base := table.NodeRows(nodesOf(d.Nodes))
	rows := &table.Rows{Header: AssembledNodeHeader, Records: make([][]string, len(d.Nodes))}
	for i, n := range d.Nodes {
		rows.Records[i] = append(base.Records[i],
			n.TypeBackup,
			strconv.FormatBool(n.Embeddable),
			n.EmbeddableName,
			strconv.FormatInt(n.TypedID, 10),
			strconv.FormatInt(n.GlobalGraphID, 10),
			strconv.FormatBool(n.TrainMask),
			strconv.FormatBool(n.ValMask),
			strconv.FormatBool(n.TestMask),
		)
	}
	return rows
}

func (d *Dataset) edgeRows() *table.Rows {
	edges := make([]table.Edge, len(d.Edges))
	for i, e := range d.Edges {
		edges[i] = e.Edge
	}
	base := table.EdgeRows(edges)
	rows := &table.Rows{Header: AssembledEdgeHeader, Records: make([][]string, len(d.Edges))}
	for i, e := range d.Edges {
		rows.Records[i] = append(base.Records[i], e.TypeBackup, e.SrcType, e.DstType)
	}
	return rows
}

func nodesOf(nodes []CorpusNode) []table.Node {
	out := make([]table.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Node
	}
	return out
}

// Load reads a dataset saved by Save. The graph is loaded from store when it
// is non-nil.
func Load(ctx context.Context, dir string, store graph.Store) (*Dataset, error) {
	nodesPath := filepath.Join(dir, AssembledNodesFile)
	edgesPath := filepath.Join(dir, AssembledEdgesFile)
	for _, p := range []string{nodesPath, edgesPath} {
		if err := requireFile(p); err != nil {
			return nil, err
		}
	}

	ds := &Dataset{}
	nodes, err := table.ReadNodes(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("read assembled nodes: %w", err)
	}
	extra, err := table.ReadRows(nodesPath)
	if err != nil {
		return nil, err
	}
	ds.Nodes = make([]CorpusNode, len(nodes))
	for i, n := range nodes {
		cn, err := parseAssembledNode(n, extra, i)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", nodesPath, i+2, err)
		}
		ds.Nodes[i] = cn
	}

	edges, err := table.ReadEdges(edgesPath)
	if err != nil {
		return nil, fmt.Errorf("read assembled edges: %w", err)
	}
	edgeExtra, err := table.ReadRows(edgesPath)
	if err != nil {
		return nil, err
	}
	ds.Edges = make([]CorpusEdge, len(edges))
	for i, e := range edges {
		ds.Edges[i] = CorpusEdge{
			Edge:       e,
			TypeBackup: column(edgeExtra, i, "type_backup"),
			SrcType:    column(edgeExtra, i, "src_type"),
			DstType:    column(edgeExtra, i, "dst_type"),
		}
	}

	if m, err := ReadManifest(filepath.Join(dir, ManifestFile)); err == nil {
		if ds.Seed, err = strconv.ParseUint(m.Seed, 10, 64); err != nil {
			return nil, fmt.Errorf("parse manifest seed %q: %w", m.Seed, err)
		}
		ds.SeedFixed = m.SeedFixed
		ds.Options.TrainFrac = m.TrainFrac
		ds.Options.UseNodeTypes = m.UseNodeTypes
		ds.Options.UseEdgeTypes = m.UseEdgeTypes
		ds.Options.PackageSplit = m.PackageSplit
	}
	if store != nil {
		if ds.Graph, err = store.Load(ctx); err != nil {
			return nil, fmt.Errorf("load graph: %w", err)
		}
	}
	ds.reindex()
	return ds, nil
}

func column(rows *table.Rows, i int, name string) string {
	c := rows.Column(name)
	if c < 0 || i >= len(rows.Records) || c >= len(rows.Records[i]) {
		return ""
	}
	return rows.Records[i][c]
}

func parseAssembledNode(n table.Node, rows *table.Rows, i int) (CorpusNode, error) {
	cn := CorpusNode{
		Node:           n,
		TypeBackup:     column(rows, i, "type_backup"),
		EmbeddableName: column(rows, i, "embeddable_name"),
	}
	if cn.TypeBackup == "" {
		cn.TypeBackup = n.Type
	}
	ints := []struct {
		col string
		dst *int64
	}{
		{"typed_id", &cn.TypedID},
		{"global_graph_id", &cn.GlobalGraphID},
	}
	for _, f := range ints {
		v := column(rows, i, f.col)
		if v == "" {
			continue
		}
		parsed, err := parseID(v)
		if err != nil {
			return cn, fmt.Errorf("parse %s: %w", f.col, err)
		}
		*f.dst = parsed
	}
	bools := []struct {
		col string
		dst *bool
	}{
		{"embeddable", &cn.Embeddable},
		{"train_mask", &cn.TrainMask},
		{"val_mask", &cn.ValMask},
		{"test_mask", &cn.TestMask},
	}
	for _, f := range bools {
		v := column(rows, i, f.col)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return cn, fmt.Errorf("parse %s: %w", f.col, err)
		}
		*f.dst = parsed
	}
	return cn, nil
}
