// Package objectives extracts supervised target tables from an assembled
// dataset. Every extractor returns (node id, label) pairs.
package objectives

import (
	"sort"
	"strings"

	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/symbols"
	"github.com/imyousuf/srcgraph/internal/table"
)

// Target pairs a source node id with a label.
type Target = table.Target

// Extractor names accepted by Extract.
const (
	NodeNamesObjective       = "node_names"
	VariableUseObjective     = "var_use"
	APICallsObjective        = "api_calls"
	TypeAnnotationsObjective = "type_annotations"
	NodeClassesObjective     = "node_classes"
	DocstringsObjective      = "docstrings"
)

// Names lists the dataset-backed extractors in a stable order. Docstrings
// read the body table and are handled separately.
func Names() []string {
	return []string{
		NodeNamesObjective,
		VariableUseObjective,
		APICallsObjective,
		TypeAnnotationsObjective,
		NodeClassesObjective,
	}
}

// Extract runs the named dataset-backed extractor and applies the minimum
// label frequency. ok is false for an unknown name.
func Extract(name string, ds *dataset.Dataset, minCount int) (targets []Target, ok bool) {
	switch name {
	case NodeNamesObjective:
		targets = NodeNames(ds)
	case VariableUseObjective:
		targets = VariableUse(ds)
	case APICallsObjective:
		targets = APICalls(ds)
	case TypeAnnotationsObjective:
		targets = TypeAnnotations(ds)
	case NodeClassesObjective:
		targets = NodeClasses(ds)
	default:
		return nil, false
	}
	return FilterByFreq(targets, minCount), true
}

// FilterByFreq keeps the targets whose label occurs at least minCount times.
func FilterByFreq(targets []Target, minCount int) []Target {
	counts := make(map[string]int, len(targets))
	for _, t := range targets {
		counts[t.Dst]++
	}
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if counts[t.Dst] >= minCount {
			out = append(out, t)
		}
	}
	return out
}

// NodeNames labels partitioned nodes of non-global types with the local
// name of their scoped form. Only names that occur at least twice are kept.
func NodeNames(ds *dataset.Dataset) []Target {
	global := symbols.GlobalNodeTypes()
	var out []Target
	for _, n := range ds.Nodes {
		if !n.InSplit() || global[n.TypeBackup] {
			continue
		}
		at := strings.IndexByte(n.Name, '@')
		if at <= 0 {
			continue
		}
		out = append(out, Target{Src: n.ID, Dst: localName(n.Name[:at])})
	}
	return FilterByFreq(out, 2)
}

func localName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// VariableUse pairs each function with the names of the variables mentioned
// in it.
func VariableUse(ds *dataset.Dataset) []Target {
	type key struct {
		fn   int64
		name string
	}
	seen := make(map[key]bool)
	var out []Target
	for _, n := range ds.Nodes {
		if n.TypeBackup != "mention" || n.MentionedIn == nil {
			continue
		}
		k := key{*n.MentionedIn, n.EmbeddableName}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Target{Src: k.fn, Dst: k.name})
	}
	return out
}

// APICalls builds call sequences. Within each function, calls to symbols
// of the corpus are ordered by position, and every callee is labelled with
// the qualified name of the callee invoked after it.
func APICalls(ds *dataset.Dataset) []Target {
	global := symbols.GlobalNodeTypes()
	symbolOf := make(map[int64]int64)
	for _, e := range ds.Edges {
		if e.TypeBackup != "local_mention" {
			continue
		}
		if src, ok := ds.Node(e.Src); ok && global[src.TypeBackup] {
			symbolOf[e.Dst] = e.Src
		}
	}

	type call struct {
		callee   int64
		line     int64
		col      int64
		position int
	}
	calls := make(map[int64][]call)
	var callers []int64
	for i, e := range ds.Edges {
		if e.TypeBackup != "call_func" {
			continue
		}
		callee := e.Src
		if sym, ok := symbolOf[callee]; ok {
			callee = sym
		}
		target, ok := ds.Node(callee)
		if !ok || !global[target.TypeBackup] {
			continue
		}
		site, ok := ds.Node(e.Dst)
		if !ok || site.MentionedIn == nil {
			continue
		}
		fn := *site.MentionedIn
		if _, seen := calls[fn]; !seen {
			callers = append(callers, fn)
		}
		c := call{callee: callee, position: i}
		if e.Line != nil {
			c.line = *e.Line
		}
		if e.ColOffset != nil {
			c.col = *e.ColOffset
		}
		calls[fn] = append(calls[fn], c)
	}

	var out []Target
	for _, fn := range callers {
		seq := calls[fn]
		sort.SliceStable(seq, func(i, j int) bool {
			if seq[i].line != seq[j].line {
				return seq[i].line < seq[j].line
			}
			if seq[i].col != seq[j].col {
				return seq[i].col < seq[j].col
			}
			return seq[i].position < seq[j].position
		})
		for i := 0; i+1 < len(seq); i++ {
			next, _ := ds.Node(seq[i+1].callee)
			out = append(out, Target{Src: seq[i].callee, Dst: next.Name})
		}
	}
	return out
}

// TypeAnnotations labels annotated mentions with the bare name of their
// annotation.
func TypeAnnotations(ds *dataset.Dataset) []Target {
	var out []Target
	for _, e := range ds.Edges {
		if e.TypeBackup != "annotation" {
			continue
		}
		ann, ok := ds.Node(e.Src)
		if !ok || strings.Contains(ann.Name, "0x") {
			continue
		}
		dst, ok := ds.Node(e.Dst)
		if !ok || dst.TypeBackup != "mention" {
			continue
		}
		if label := NormalizeAnnotation(ann.Name); label != "" {
			out = append(out, Target{Src: dst.ID, Dst: label})
		}
	}
	return out
}

// NormalizeAnnotation reduces an annotation to a bare type name: quotes are
// stripped, generic arguments dropped and module qualification removed.
func NormalizeAnnotation(ann string) string {
	ann = strings.Trim(ann, `"`)
	ann = strings.Trim(ann, `'`)
	if i := strings.IndexByte(ann, '['); i >= 0 {
		ann = ann[:i]
	}
	if i := strings.LastIndexByte(ann, '.'); i >= 0 {
		ann = ann[i+1:]
	}
	return strings.TrimSpace(ann)
}

// NodeClasses labels every partitioned node that has an inbound edge with
// its semantic type.
func NodeClasses(ds *dataset.Dataset) []Target {
	inbound := make(map[int64]bool, len(ds.Edges))
	for _, e := range ds.Edges {
		inbound[e.Dst] = true
	}
	var out []Target
	for _, n := range ds.Nodes {
		if n.InSplit() && inbound[n.ID] {
			out = append(out, Target{Src: n.ID, Dst: n.TypeBackup})
		}
	}
	return out
}
