// Package symbols turns raw symbol-index rows into typed, normalized corpus
// nodes.
package symbols

import "strings"

// FileType is the indexer code for file pseudo-nodes, which are dropped.
const FileType = 262144

// NodeTypes maps indexer node kind codes to semantic type names.
var NodeTypes = map[int]string{
	1:       "symbol",
	2:       "type",
	4:       "builtin_type",
	8:       "module",
	16:      "namespace",
	32:      "package",
	64:      "struct",
	128:     "class",
	256:     "interface",
	512:     "annotation",
	1024:    "global_variable",
	2048:    "field",
	4096:    "function",
	8192:    "class_method",
	16384:   "enum",
	32768:   "enum_constant",
	65536:   "typedef",
	131072:  "type_parameter",
	FileType: "file",
	524288:  "macro",
	1048576: "union",
}

// EdgeTypes maps indexer edge kind codes to semantic edge type names.
var EdgeTypes = map[int]string{
	1:    "defines",
	2:    "type_use",
	4:    "uses",
	8:    "calls",
	16:   "inheritance",
	32:   "overrides",
	64:   "type_argument",
	128:  "template_specialization",
	256:  "includes",
	512:  "imports",
	1024: "bundled_edges",
	2048: "macro_usage",
	4096: "annotation_usage",
}

// ReverseEdges maps each reverse relation of the symbol graph to its
// forward relation.
var ReverseEdges = map[string]string{
	"defined_in":    "defines",
	"called_by":     "calls",
	"used_by":       "uses",
	"inherited_by":  "inheritance",
	"overridden_by": "overrides",
	"used_as_type":  "type_use",
	"imported_by":   "imports",
}

// GlobalNodeTypes returns the set of node types produced by the symbol index
// (as opposed to AST-derived types).
func GlobalNodeTypes() map[string]bool {
	out := make(map[string]bool, len(NodeTypes))
	for _, t := range NodeTypes {
		out[t] = true
	}
	return out
}

// GlobalEdgeTypes returns the corpus-level edge types and their reverses,
// plus the <type>_name edges linking symbols to their names.
func GlobalEdgeTypes() map[string]bool {
	out := make(map[string]bool)
	for rev, fwd := range ReverseEdges {
		out[rev] = true
		out[fwd] = true
	}
	for _, t := range NodeTypes {
		out[t+"_name"] = true
	}
	return out
}

// replacements is the ordered escape rewrite. Each rule assumes the ones
// before it have already been applied.
var replacements = []struct{ old, new string }{
	{"\".\tm", ""},
	{".\tm", ""},
	{"\tm", ""},
	{"\ts\tp\tn", "#"},
	{"\ts\tp(", "___("},
	{"\ts\tp\"", ""},
	{"\ts\tp", ""},
	{"\ts", "___"},
	{"\tp", "___"},
	{"\tn", "___"},
	{"\"", ""},
	{" ", "_"},
	{".", "@"},
	{"#", "."},
}

// Normalize rewrites an escaped serialized name into the dotted form with
// @-separated parameter paths. A literal '#' in the input is turned into '.'
// by the last rule, so the rewrite is not idempotent for such names.
func Normalize(name string) string {
	for _, r := range replacements {
		name = strings.ReplaceAll(name, r.old, r.new)
	}
	return name
}
