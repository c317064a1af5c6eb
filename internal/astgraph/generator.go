package astgraph

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var (
	// ErrSyntax is returned when the source does not parse. Callers skip the
	// fragment.
	ErrSyntax = errors.New("syntax error")
	// ErrNoFunction is returned when the source has no top-level def.
	ErrNoFunction = errors.New("no top-level function definition")
	// ErrNoRule is returned when a construct lacks a part its rule needs.
	ErrNoRule = errors.New("no parse rule")
)

// condition is one entry of the control context: statements parsed under it
// receive a depends_on_<status> edge pointing at name.
type condition struct {
	name   string
	status string
}

// scope is the traversal context threaded through every rule. It is passed
// by value; nested contexts are built by copy so callers never observe
// changes made below them.
type scope struct {
	conds []condition
	funcs []string
}

func (s scope) with(conds ...condition) scope {
	next := make([]condition, 0, len(s.conds)+len(conds))
	next = append(next, s.conds...)
	next = append(next, conds...)
	return scope{conds: next, funcs: s.funcs}
}

func (s scope) enter(fn string) scope {
	next := make([]string, 0, len(s.funcs)+1)
	next = append(next, s.funcs...)
	next = append(next, fn)
	return scope{conds: s.conds, funcs: next}
}

func (s scope) function() string {
	if len(s.funcs) == 0 {
		return ""
	}
	return s.funcs[len(s.funcs)-1]
}

// Generator turns one function's source into a Graph. A Generator owns its
// name counter and is used for a single traversal.
type Generator struct {
	src     []byte
	counter uint64

	nodes []SyntaxNode
	index map[string]int
	edges []Edge
}

// New returns a generator for the given source text.
func New(source string) *Generator {
	return &Generator{
		src:   []byte(source),
		index: make(map[string]int),
	}
}

// Generate parses source and compiles its first top-level function.
func Generate(ctx context.Context, source string) (*Graph, error) {
	return New(source).Generate(ctx)
}

// Generate runs the traversal. Only the first top-level non-async def is
// compiled; later definitions are ignored.
func (g *Generator) Generate(ctx context.Context) (*Graph, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, g.src)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	def, decorators := firstFunction(root)
	if def == nil {
		return nil, ErrNoFunction
	}

	name, err := g.functionDef(def, decorators, scope{})
	if err != nil {
		return nil, err
	}

	out := &Graph{Root: name, Nodes: g.nodes, Edges: g.edges}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	return out, nil
}

func firstFunction(root *sitter.Node) (*sitter.Node, []*sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			if !isAsync(child) {
				return child, nil
			}
		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def != nil && def.Type() == "function_definition" && !isAsync(def) {
				return def, decoratorsOf(child)
			}
		}
	}
	return nil, nil
}

func isAsync(n *sitter.Node) bool {
	return n.ChildCount() > 0 && n.Child(0).Type() == "async"
}

func decoratorsOf(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" && child.NamedChildCount() > 0 {
			out = append(out, child.NamedChild(0))
		}
	}
	return out
}

// --- node bookkeeping ---

// literalRank orders the kinds one operand text can be registered under.
// Nodes are identified by name alone, so a shared literal keeps the lowest
// ranked kind whatever the traversal order.
var literalRank = map[string]int{
	KindName:        0,
	KindMention:     1,
	KindConstant:    2,
	KindAnnotation:  3,
	KindOp:          4,
	KindControlFlow: 5,
}

func rankOf(kind string) int {
	if r, ok := literalRank[kind]; ok {
		return r
	}
	return len(literalRank)
}

func (g *Generator) addNode(n SyntaxNode) {
	if i, ok := g.index[n.Name]; ok {
		old := &g.nodes[i]
		if !old.Synthetic && !n.Synthetic && rankOf(n.Kind) < rankOf(old.Kind) {
			old.Kind = n.Kind
		}
		return
	}
	g.index[n.Name] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// synthetic allocates a fresh construct name.
func (g *Generator) synthetic(kind string, n *sitter.Node) string {
	name := fmt.Sprintf("%s_0x%x", kind, g.counter)
	g.counter++
	var span *Span
	if n != nil {
		span = spanOf(n)
	}
	g.addNode(SyntaxNode{Name: name, Kind: kind, Synthetic: true, Span: span})
	return name
}

// literal registers a non-synthetic operand and returns its name.
func (g *Generator) literal(name, kind string) string {
	g.addNode(SyntaxNode{Name: name, Kind: kind})
	return name
}

func (g *Generator) isSynthetic(name string) bool {
	i, ok := g.index[name]
	return ok && g.nodes[i].Synthetic
}

func (g *Generator) edge(src, dst, typ string, span, varSpan *Span) {
	g.edges = append(g.edges, Edge{Src: src, Dst: dst, Type: typ, Span: span, VarSpan: varSpan})
}

func (g *Generator) text(n *sitter.Node) string {
	return n.Content(g.src)
}

func spanOf(n *sitter.Node) *Span {
	start, end := n.StartPoint(), n.EndPoint()
	return &Span{
		Line:         int(start.Row),
		EndLine:      int(end.Row),
		ColOffset:    int(start.Column),
		EndColOffset: int(end.Column),
	}
}

// --- traversal helpers ---

// operand resolves a construct to the name other nodes refer to it by.
func (g *Generator) operand(n *sitter.Node, sc scope) (string, error) {
	if r, ok := rules[n.Type()]; ok {
		return r(g, n, sc)
	}
	return genericRule(g, n, sc)
}

// link resolves child and connects it to dst with an edge typed by the
// field it occupies, carrying the child's span.
func (g *Generator) link(dst string, child *sitter.Node, field string, sc scope) error {
	if child == nil {
		return nil
	}
	name, err := g.operand(child, sc)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	g.edge(name, dst, field, spanOf(child), nil)
	return nil
}

// mention rewrites an identifier into its function-scoped form.
func (g *Generator) mention(id string, sc scope) string {
	fn := sc.function()
	if fn == "" {
		return g.literal(id, KindName)
	}
	m := id + "@" + fn
	g.literal(id, KindName)
	g.addNode(SyntaxNode{Name: m, Kind: KindMention})
	g.edge(id, m, "local_mention", nil, nil)
	g.edge(fn, m, "mention_scope", nil, nil)
	return m
}

// annotation records the annotation source text exactly as written.
func (g *Generator) annotation(n *sitter.Node) string {
	return g.literal(g.text(n), KindAnnotation)
}

// block parses a statement list. Consecutive statements that resolve to a
// construct are chained with next/prev, and each depends on every entry of
// the control context.
func (g *Generator) block(n *sitter.Node, sc scope) error {
	if n == nil {
		return nil
	}
	var last string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		stmt := n.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		name, err := g.operand(stmt, sc)
		if err != nil {
			return err
		}
		g.sequence(&last, name, sc)
	}
	return nil
}

func (g *Generator) sequence(last *string, name string, sc scope) {
	if name == "" || !g.isSynthetic(name) {
		return
	}
	if *last != "" {
		g.edge(*last, name, "next", nil, nil)
		g.edge(name, *last, "prev", nil, nil)
	}
	*last = name
	for _, c := range sc.conds {
		g.edge(name, c.name, "depends_on_"+c.status, nil, nil)
	}
}
