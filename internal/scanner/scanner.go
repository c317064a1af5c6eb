// Package scanner walks Python source trees and produces the bodies table and
// a symbol table for corpora that have no external indexer output.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/imyousuf/srcgraph/internal/parser"
	"github.com/imyousuf/srcgraph/internal/table"
)

// TokenPrefix marks identifiers in body source that stand for a symbol id.
const TokenPrefix = "srstrlnd_"

// Token returns the placeholder identifier for a symbol id.
func Token(id int64) string {
	return TokenPrefix + strconv.FormatInt(id, 10)
}

// Config holds configuration for the Scanner.
type Config struct {
	Roots           []string
	ExcludePatterns []string
	Registry        *parser.Registry
	Verbose         bool
	Logger          func(format string, args ...any) // optional logger, defaults to fmt.Fprintf(os.Stderr, ...)
}

// Result is the scanned corpus.
type Result struct {
	Symbols []table.Node
	Edges   []table.Edge
	Bodies  []table.Body
	Files   int
	Errors  []string
}

// Scanner turns source trees into symbol and body tables.
type Scanner struct {
	roots    []string
	registry *parser.Registry
	matcher  *IgnoreMatcher
	verbose  bool
	log      func(format string, args ...any)

	ids    map[string]int64
	result Result
}

// New creates a Scanner with the given configuration.
func New(cfg Config) *Scanner {
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Scanner{
		roots:    cfg.Roots,
		registry: cfg.Registry,
		matcher:  NewIgnoreMatcher(cfg.Roots, cfg.ExcludePatterns),
		verbose:  cfg.Verbose,
		log:      logFn,
		ids:      make(map[string]int64),
	}
}

// Scan walks every root. Files that cannot be read or parsed are recorded in
// Result.Errors and skipped.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	if err := s.matcher.LoadPatterns(); err != nil {
		return nil, fmt.Errorf("load ignore patterns: %w", err)
	}
	start := time.Now()
	for _, root := range s.roots {
		if err := s.scanRoot(ctx, root); err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	if s.verbose {
		s.log("Scan complete: %d files, %d symbols, %d bodies in %s",
			s.result.Files, len(s.result.Symbols), len(s.result.Bodies), time.Since(start))
	}
	return &s.result, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string) error {
	if s.verbose {
		s.log("Scanning directory: %s", root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.matcher.Match(path, d.IsDir()) {
			if d.IsDir() {
				if s.verbose {
					s.log("  Skipping directory: %s (excluded)", path)
				}
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		p, ok := s.registry.GetByExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if err := s.scanFile(p, path, rel); err != nil {
			s.result.Errors = append(s.result.Errors, fmt.Sprintf("%s: %v", path, err))
		}
		return nil
	})
}

func (s *Scanner) scanFile(p parser.Parser, path, rel string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	module := p.ModuleName(rel)
	if module == "" {
		return nil
	}
	result, err := p.ParseFile(rel, module, content)
	if err != nil {
		return err
	}
	s.result.Files++

	for _, sym := range result.Symbols {
		id, fresh := s.symbolID(sym.Name)
		if fresh {
			s.result.Symbols = append(s.result.Symbols, table.Node{ID: id, Type: sym.Kind, Name: sym.Name})
		}
		if sym.Parent == "" {
			continue
		}
		parent, ok := s.ids[sym.Parent]
		if !ok {
			continue
		}
		s.result.Edges = append(s.result.Edges, table.Edge{
			ID:   int64(len(s.result.Edges)),
			Type: "defines",
			Src:  parent,
			Dst:  id,
		})
	}

	resolve := func(target string) (string, bool) {
		id, ok := s.ids[target]
		if !ok {
			return "", false
		}
		return Token(id), true
	}
	for _, b := range result.Bodies {
		s.result.Bodies = append(s.result.Bodies, table.Body{
			ID:        s.ids[b.Name],
			File:      rel,
			Name:      b.Name,
			Source:    b.Render(content, resolve),
			Docstring: b.Docstring,
		})
	}

	if s.verbose {
		s.log("  %s -> %d symbols, %d bodies", rel, len(result.Symbols), len(result.Bodies))
	}
	return nil
}

// symbolID returns the id for a qualified name, allocating one on first use.
func (s *Scanner) symbolID(name string) (int64, bool) {
	if id, ok := s.ids[name]; ok {
		return id, false
	}
	id := int64(len(s.ids))
	s.ids[name] = id
	return id, true
}
