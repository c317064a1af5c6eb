// Package idmap maps per-unit local node ids onto corpus-wide global ids and
// rewrites id columns of downstream tables.
package idmap

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/imyousuf/srcgraph/internal/table"
)

// ErrMissingID indicates a local id without a global counterpart.
var ErrMissingID = errors.New("missing global id")

// MissingIDError names the unresolved id and where it was found.
type MissingIDError struct {
	ID     int64
	Name   string
	Column string
}

func (e *MissingIDError) Error() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("local node %d (%q) has no global id", e.ID, e.Name)
	case e.Column != "":
		return fmt.Sprintf("column %s: local id %d has no global id", e.Column, e.ID)
	default:
		return fmt.Sprintf("local id %d has no global id", e.ID)
	}
}

func (e *MissingIDError) Unwrap() error { return ErrMissingID }

// Map is a local to global id mapping for one batch of units.
type Map map[int64]int64

// Build matches local nodes to global nodes by serialized name. When the
// global table holds a name more than once, the first row wins.
func Build(local, global []table.Node) (Map, error) {
	byName := make(map[string]int64, len(global))
	for _, n := range global {
		if _, ok := byName[n.Name]; !ok {
			byName[n.Name] = n.ID
		}
	}
	m := make(Map, len(local))
	for _, n := range local {
		gid, ok := byName[n.Name]
		if !ok {
			return nil, &MissingIDError{ID: n.ID, Name: n.Name}
		}
		if prev, ok := m[n.ID]; ok && prev != gid {
			return nil, fmt.Errorf("local id %d maps to both %d and %d", n.ID, prev, gid)
		}
		m[n.ID] = gid
	}
	return m, nil
}

// Lookup returns the global id for a local one.
func (m Map) Lookup(local int64) (int64, error) {
	gid, ok := m[local]
	if !ok {
		return 0, &MissingIDError{ID: local}
	}
	return gid, nil
}

// Apply rewrites the named integer columns of rows in place. Empty cells are
// left empty. Any id missing from the map aborts the rewrite; rows may then
// be partially rewritten and must be discarded.
func (m Map) Apply(rows *table.Rows, columns ...string) error {
	for _, col := range columns {
		i := rows.Column(col)
		if i < 0 {
			return fmt.Errorf("map column %s: %w", col, table.ErrColumn)
		}
		for r, rec := range rows.Records {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			local, err := strconv.ParseInt(rec[i], 10, 64)
			if err != nil {
				f, ferr := strconv.ParseFloat(rec[i], 64)
				if ferr != nil {
					return fmt.Errorf("map column %s row %d: %w", col, r, err)
				}
				local = int64(f)
			}
			gid, ok := m[local]
			if !ok {
				return &MissingIDError{ID: local, Column: col}
			}
			rec[i] = strconv.FormatInt(gid, 10)
		}
	}
	return nil
}

// ApplyEdges rewrites edge endpoints. MentionedIn already holds a global
// function id and is kept.
func (m Map) ApplyEdges(edges []table.Edge) ([]table.Edge, error) {
	out := make([]table.Edge, len(edges))
	for i, e := range edges {
		var err error
		if e.Src, err = m.column(e.Src, "src"); err != nil {
			return nil, err
		}
		if e.Dst, err = m.column(e.Dst, "dst"); err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (m Map) column(local int64, col string) (int64, error) {
	gid, ok := m[local]
	if !ok {
		return 0, &MissingIDError{ID: local, Column: col}
	}
	return gid, nil
}

// AppendTable appends rows to the table at path. An existing file keeps its
// column order; columns it lacks are dropped and columns rows lack are left
// empty. A missing file is created with rows' header.
func AppendTable(path string, rows *table.Rows) error {
	existing, err := table.ReadRows(path)
	if errors.Is(err, os.ErrNotExist) {
		return table.WriteRows(path, rows)
	}
	if err != nil {
		return err
	}
	if len(existing.Header) == 0 {
		return table.WriteRows(path, rows)
	}
	pos := make([]int, len(existing.Header))
	for i, h := range existing.Header {
		pos[i] = rows.Column(h)
	}
	for _, rec := range rows.Records {
		out := make([]string, len(existing.Header))
		for i, p := range pos {
			if p >= 0 && p < len(rec) {
				out[i] = rec[p]
			}
		}
		existing.Records = append(existing.Records, out)
	}
	return table.WriteRows(path, existing)
}
