package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// NodeHeader is the column layout of a node table.
var NodeHeader = []string{"id", "type", "serialized_name", "mentioned_in"}

// Node is one row of a node table.
type Node struct {
	ID          int64
	Type        string
	Name        string
	MentionedIn *int64
}

// ReadNodes loads a node table. The name column may be called either
// serialized_name or name.
func ReadNodes(path string) ([]Node, error) {
	var out []Node
	err := ReadNodeChunks(path, 0, func(chunk []Node) error {
		out = append(out, chunk...)
		return nil
	})
	return out, err
}

// ReadNodeChunks streams a node table in chunks of at most size rows. A size
// of zero delivers the whole table in one call.
func ReadNodeChunks(path string, size int, fn func([]Node) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header %s: %w", path, err)
	}
	nameCol := "serialized_name"
	if !contains(header, nameCol) {
		nameCol = "name"
	}
	idx, err := columns(header, []string{"id", "type", nameCol}, "mentioned_in")
	if err != nil {
		return fmt.Errorf("node table %s: %w", path, err)
	}

	var chunk []Node
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		n, err := parseNode(rec, idx, nameCol)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		chunk = append(chunk, n)
		if size > 0 && len(chunk) == size {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = nil
		}
	}
	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}

func parseNode(rec []string, idx map[string]int, nameCol string) (Node, error) {
	id, err := parseInt(cell(rec, idx["id"]))
	if err != nil {
		return Node{}, fmt.Errorf("parse id: %w", err)
	}
	mentioned, err := parseOptInt(cell(rec, idx["mentioned_in"]))
	if err != nil {
		return Node{}, fmt.Errorf("parse mentioned_in: %w", err)
	}
	return Node{
		ID:          id,
		Type:        cell(rec, idx["type"]),
		Name:        cell(rec, idx[nameCol]),
		MentionedIn: mentioned,
	}, nil
}

// WriteNodes writes a node table.
func WriteNodes(path string, nodes []Node) error {
	return WriteRows(path, NodeRows(nodes))
}

// NodeRows renders nodes as Rows with NodeHeader.
func NodeRows(nodes []Node) *Rows {
	rows := &Rows{Header: NodeHeader, Records: make([][]string, 0, len(nodes))}
	for _, n := range nodes {
		rows.Records = append(rows.Records, []string{
			strconv.FormatInt(n.ID, 10),
			n.Type,
			n.Name,
			formatOptInt(n.MentionedIn),
		})
	}
	return rows
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
