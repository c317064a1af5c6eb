package parser

import "sort"

// Registry maps file extensions to the parser that scans them.
type Registry struct {
	parsers  map[Language]Parser
	extIndex map[string]Parser
}

// NewRegistry creates a new parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers:  make(map[Language]Parser),
		extIndex: make(map[string]Parser),
	}
}

// Register adds a parser, indexing it by language and file extensions. A
// later registration for the same extension replaces the earlier one.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Language()] = p
	for _, ext := range p.Extensions() {
		r.extIndex[ext] = p
	}
}

// GetByExtension retrieves a parser by file extension (e.g. ".py").
func (r *Registry) GetByExtension(ext string) (Parser, bool) {
	p, ok := r.extIndex[ext]
	return p, ok
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extIndex))
	for ext := range r.extIndex {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
