package table

import (
	"fmt"
	"strconv"
)

// BodyHeader is the column layout of a function body table.
var BodyHeader = []string{"id", "file", "name", "body", "docstring"}

// Body is the source of one top-level function. ID is the function's node id
// in the symbol table.
type Body struct {
	ID        int64
	File      string
	Name      string
	Source    string
	Docstring string
}

// ReadBodies loads a body table.
func ReadBodies(path string) ([]Body, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows.Header) == 0 {
		return nil, nil
	}
	idx, err := columns(rows.Header, []string{"id", "body"}, "file", "name", "docstring")
	if err != nil {
		return nil, fmt.Errorf("body table %s: %w", path, err)
	}
	out := make([]Body, 0, len(rows.Records))
	for i, rec := range rows.Records {
		id, err := parseInt(cell(rec, idx["id"]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse id: %w", path, i+2, err)
		}
		out = append(out, Body{
			ID:        id,
			File:      cell(rec, idx["file"]),
			Name:      cell(rec, idx["name"]),
			Source:    cell(rec, idx["body"]),
			Docstring: cell(rec, idx["docstring"]),
		})
	}
	return out, nil
}

// WriteBodies writes a body table.
func WriteBodies(path string, bodies []Body) error {
	rows := &Rows{Header: BodyHeader, Records: make([][]string, 0, len(bodies))}
	for _, b := range bodies {
		rows.Records = append(rows.Records, []string{
			strconv.FormatInt(b.ID, 10), b.File, b.Name, b.Source, b.Docstring,
		})
	}
	return WriteRows(path, rows)
}

// TargetHeader is the column layout of an objective target table.
var TargetHeader = []string{"src", "dst"}

// Target pairs a node id with a label.
type Target struct {
	Src int64
	Dst string
}

// ReadTargets loads a target table.
func ReadTargets(path string) ([]Target, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows.Header) == 0 {
		return nil, nil
	}
	idx, err := columns(rows.Header, TargetHeader)
	if err != nil {
		return nil, fmt.Errorf("target table %s: %w", path, err)
	}
	out := make([]Target, 0, len(rows.Records))
	for i, rec := range rows.Records {
		src, err := parseInt(cell(rec, idx["src"]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse src: %w", path, i+2, err)
		}
		out = append(out, Target{Src: src, Dst: cell(rec, idx["dst"])})
	}
	return out, nil
}

// WriteTargets writes a target table.
func WriteTargets(path string, targets []Target) error {
	rows := &Rows{Header: TargetHeader, Records: make([][]string, 0, len(targets))}
	for _, t := range targets {
		rows.Records = append(rows.Records, []string{strconv.FormatInt(t.Src, 10), t.Dst})
	}
	return WriteRows(path, rows)
}
