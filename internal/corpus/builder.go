// Package corpus merges the symbol table and the AST-derived local tables
// into the global node and edge tables consumed by the dataset assembler.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/imyousuf/srcgraph/internal/idmap"
	"github.com/imyousuf/srcgraph/internal/indexer"
	"github.com/imyousuf/srcgraph/internal/symbols"
	"github.com/imyousuf/srcgraph/internal/table"
)

// ErrDuplicateID is returned when the symbol table repeats a node or edge id.
var ErrDuplicateID = errors.New("duplicate id")

var tokenRe = regexp.MustCompile(`srstrlnd_(\d+)`)

// Config holds configuration for the Builder.
type Config struct {
	// ReverseGlobalEdges adds the reverse relation (defined_in, called_by,
	// ...) of every symbol edge whose type has one.
	ReverseGlobalEdges bool
	Verbose            bool
	Logger             func(format string, args ...any) // optional logger, defaults to fmt.Fprintf(os.Stderr, ...)
}

// Corpus is the global node and edge table pair.
type Corpus struct {
	Nodes []table.Node
	Edges []table.Edge
}

// Builder produces a Corpus.
type Builder struct {
	reverse bool
	verbose bool
	log     func(format string, args ...any)
}

// NewBuilder creates a Builder with the given configuration.
func NewBuilder(cfg Config) *Builder {
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Builder{reverse: cfg.ReverseGlobalEdges, verbose: cfg.Verbose, log: logFn}
}

// Build unions symbol nodes with local AST nodes. Symbol nodes keep their
// ids; AST nodes not already present by name get ids after the largest
// symbol id. Local edges are rewritten to global ids and numbered after the
// symbol edges.
func (b *Builder) Build(syms []table.Node, symEdges []table.Edge, local *indexer.Local) (*Corpus, error) {
	byID := make(map[int64]table.Node, len(syms))
	byName := make(map[string]int64, len(syms))
	var nextID int64
	for _, n := range syms {
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("symbol node %d: %w", n.ID, ErrDuplicateID)
		}
		byID[n.ID] = n
		if _, ok := byName[n.Name]; !ok {
			byName[n.Name] = n.ID
		}
		if n.ID >= nextID {
			nextID = n.ID + 1
		}
	}

	c := &Corpus{Nodes: append([]table.Node(nil), syms...)}
	if err := b.addSymbolEdges(c, symEdges, byID); err != nil {
		return nil, err
	}
	if local == nil {
		return c, nil
	}

	resolved := make([]table.Node, len(local.Nodes))
	for i, n := range local.Nodes {
		n.Name = resolveTokens(n.Name, byID)
		resolved[i] = n
		if _, ok := byName[n.Name]; ok {
			continue
		}
		byName[n.Name] = nextID
		c.Nodes = append(c.Nodes, table.Node{
			ID:          nextID,
			Type:        n.Type,
			Name:        n.Name,
			MentionedIn: n.MentionedIn,
		})
		nextID++
	}

	m, err := idmap.Build(resolved, c.Nodes)
	if err != nil {
		return nil, fmt.Errorf("map local nodes: %w", err)
	}
	edges, err := m.ApplyEdges(local.Edges)
	if err != nil {
		return nil, fmt.Errorf("map local edges: %w", err)
	}
	nextEdge := int64(0)
	for _, e := range c.Edges {
		if e.ID >= nextEdge {
			nextEdge = e.ID + 1
		}
	}
	for _, e := range edges {
		e.ID = nextEdge
		nextEdge++
		c.Edges = append(c.Edges, e)
	}

	if b.verbose {
		b.log("Corpus: %d nodes (%d symbols), %d edges", len(c.Nodes), len(syms), len(c.Edges))
	}
	return c, nil
}

func (b *Builder) addSymbolEdges(c *Corpus, edges []table.Edge, byID map[int64]table.Node) error {
	reverse := make(map[string]string, len(symbols.ReverseEdges))
	for rev, fwd := range symbols.ReverseEdges {
		reverse[fwd] = rev
	}
	seen := make(map[int64]bool, len(edges))
	var nextID int64
	for _, e := range edges {
		if seen[e.ID] {
			return fmt.Errorf("symbol edge %d: %w", e.ID, ErrDuplicateID)
		}
		seen[e.ID] = true
		if e.ID >= nextID {
			nextID = e.ID + 1
		}
	}

	dropped := 0
	for _, e := range edges {
		_, okSrc := byID[e.Src]
		_, okDst := byID[e.Dst]
		if !okSrc || !okDst {
			dropped++
			continue
		}
		c.Edges = append(c.Edges, e)
		if rev, ok := reverse[e.Type]; ok && b.reverse {
			c.Edges = append(c.Edges, table.Edge{ID: nextID, Type: rev, Src: e.Dst, Dst: e.Src})
			nextID++
		}
	}
	if dropped > 0 {
		b.log("Dropped %d symbol edges with endpoints outside the symbol table", dropped)
	}
	return nil
}

// resolveTokens rewrites srstrlnd_<id> placeholders. A name that is exactly
// one placeholder becomes the symbol's name, so the node merges with the
// symbol. Placeholders embedded in a longer name become the symbol's short
// name.
func resolveTokens(name string, byID map[int64]table.Node) string {
	if !strings.Contains(name, "srstrlnd_") {
		return name
	}
	if m := tokenRe.FindStringSubmatch(name); m != nil && m[0] == name {
		if sym, ok := lookup(m[1], byID); ok {
			return sym.Name
		}
		return name
	}
	return tokenRe.ReplaceAllStringFunc(name, func(tok string) string {
		sym, ok := lookup(tok[len("srstrlnd_"):], byID)
		if !ok {
			return tok
		}
		return ShortName(sym.Name)
	})
}

func lookup(digits string, byID map[int64]table.Node) (table.Node, bool) {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return table.Node{}, false
	}
	n, ok := byID[id]
	return n, ok
}

// ShortName returns the last dotted segment of a qualified name.
func ShortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
