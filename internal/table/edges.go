package table

import (
	"fmt"
	"strconv"
)

// EdgeHeader is the column layout of an edge table.
var EdgeHeader = []string{
	"id", "type", "src", "dst",
	"line", "end_line", "col_offset", "end_col_offset",
	"file_id", "mentioned_in",
}

// Edge is one row of an edge table. Span columns are optional.
type Edge struct {
	ID           int64
	Type         string
	Src          int64
	Dst          int64
	Line         *int64
	EndLine      *int64
	ColOffset    *int64
	EndColOffset *int64
	FileID       *int64
	MentionedIn  *int64
}

// ReadEdges loads an edge table. Tables written by the symbol indexer use
// source_node_id/target_node_id; both spellings are accepted.
func ReadEdges(path string) ([]Edge, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows.Header) == 0 {
		return nil, nil
	}
	srcCol, dstCol := "src", "dst"
	if !contains(rows.Header, srcCol) && contains(rows.Header, "source_node_id") {
		srcCol, dstCol = "source_node_id", "target_node_id"
	}
	idx, err := columns(rows.Header, []string{"id", "type", srcCol, dstCol},
		"line", "end_line", "col_offset", "end_col_offset", "file_id", "mentioned_in")
	if err != nil {
		return nil, fmt.Errorf("edge table %s: %w", path, err)
	}

	out := make([]Edge, 0, len(rows.Records))
	for i, rec := range rows.Records {
		e, err := parseEdge(rec, idx, srcCol, dstCol)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, i+2, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseEdge(rec []string, idx map[string]int, srcCol, dstCol string) (Edge, error) {
	var e Edge
	var err error
	if e.ID, err = parseInt(cell(rec, idx["id"])); err != nil {
		return e, fmt.Errorf("parse id: %w", err)
	}
	e.Type = cell(rec, idx["type"])
	if e.Src, err = parseInt(cell(rec, idx[srcCol])); err != nil {
		return e, fmt.Errorf("parse src: %w", err)
	}
	if e.Dst, err = parseInt(cell(rec, idx[dstCol])); err != nil {
		return e, fmt.Errorf("parse dst: %w", err)
	}
	opt := []struct {
		col string
		dst **int64
	}{
		{"line", &e.Line},
		{"end_line", &e.EndLine},
		{"col_offset", &e.ColOffset},
		{"end_col_offset", &e.EndColOffset},
		{"file_id", &e.FileID},
		{"mentioned_in", &e.MentionedIn},
	}
	for _, o := range opt {
		v, err := parseOptInt(cell(rec, idx[o.col]))
		if err != nil {
			return e, fmt.Errorf("parse %s: %w", o.col, err)
		}
		*o.dst = v
	}
	return e, nil
}

// WriteEdges writes an edge table.
func WriteEdges(path string, edges []Edge) error {
	return WriteRows(path, EdgeRows(edges))
}

// EdgeRows renders edges as Rows with EdgeHeader.
func EdgeRows(edges []Edge) *Rows {
	rows := &Rows{Header: EdgeHeader, Records: make([][]string, 0, len(edges))}
	for _, e := range edges {
		rows.Records = append(rows.Records, []string{
			strconv.FormatInt(e.ID, 10),
			e.Type,
			strconv.FormatInt(e.Src, 10),
			strconv.FormatInt(e.Dst, 10),
			formatOptInt(e.Line),
			formatOptInt(e.EndLine),
			formatOptInt(e.ColOffset),
			formatOptInt(e.EndColOffset),
			formatOptInt(e.FileID),
			formatOptInt(e.MentionedIn),
		})
	}
	return rows
}
