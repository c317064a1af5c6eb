// Package astgraph compiles a single Python function into a typed edge list
// describing its syntax, control dependencies and scoped name mentions.
package astgraph

import (
	"fmt"
	"strconv"
)

// Node kinds for operands that are not AST constructs.
const (
	KindMention     = "mention"
	KindName        = "Name"
	KindOp          = "Op"
	KindConstant    = "Constant"
	KindAnnotation  = "type_annotation"
	KindControlFlow = "ctrl_flow"
)

// Span locates a token in the function source. Lines are 0-based and columns
// are byte offsets into the line.
type Span struct {
	Line         int `json:"line"`
	EndLine      int `json:"end_line"`
	ColOffset    int `json:"col_offset"`
	EndColOffset int `json:"end_col_offset"`
}

// SyntaxNode is an endpoint of the edge list. Synthetic nodes are visited
// constructs named <Kind>_0x<counter>; the rest are literal operands
// (identifiers, operators, constants, annotation text) and scoped mentions.
type SyntaxNode struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Synthetic bool   `json:"synthetic"`
	Span      *Span  `json:"span,omitempty"`
}

// Edge is a directed, typed relationship between two syntax nodes.
type Edge struct {
	Src     string `json:"src"`
	Dst     string `json:"dst"`
	Type    string `json:"type"`
	Span    *Span  `json:"span,omitempty"`
	VarSpan *Span  `json:"var_span,omitempty"`
}

// Graph is the output of one traversal.
type Graph struct {
	Root  string       `json:"root"`
	Nodes []SyntaxNode `json:"nodes"`
	Edges []Edge       `json:"edges"`
}

// RowHeader is the column layout produced by Graph.Rows.
var RowHeader = []string{
	"src", "dst", "type",
	"line", "end_line", "col_offset", "end_col_offset",
	"var_line", "var_end_line", "var_col_offset", "var_end_col_offset",
}

// Validate reports the first edge whose endpoint was not produced by the
// traversal.
func (g *Graph) Validate() error {
	known := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.Name] = struct{}{}
	}
	for i, e := range g.Edges {
		if _, ok := known[e.Src]; !ok {
			return fmt.Errorf("edge %d (%s): dangling source %q", i, e.Type, e.Src)
		}
		if _, ok := known[e.Dst]; !ok {
			return fmt.Errorf("edge %d (%s): dangling destination %q", i, e.Type, e.Dst)
		}
	}
	return nil
}

// Node returns the syntax node with the given name.
func (g *Graph) Node(name string) (SyntaxNode, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return SyntaxNode{}, false
}

// Rows renders the edge list as string records matching RowHeader. Missing
// spans are left empty.
func (g *Graph) Rows() [][]string {
	rows := make([][]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		row := []string{e.Src, e.Dst, e.Type}
		row = append(row, spanCells(e.Span)...)
		row = append(row, spanCells(e.VarSpan)...)
		rows = append(rows, row)
	}
	return rows
}

func spanCells(s *Span) []string {
	if s == nil {
		return []string{"", "", "", ""}
	}
	return []string{
		strconv.Itoa(s.Line),
		strconv.Itoa(s.EndLine),
		strconv.Itoa(s.ColOffset),
		strconv.Itoa(s.EndColOffset),
	}
}
