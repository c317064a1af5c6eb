package symbols

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/imyousuf/srcgraph/internal/table"
)

// ErrNoData is returned when no rows remain after filtering. Callers treat
// it as a clean skip, unlike read failures.
var ErrNoData = errors.New("no symbol data")

// Row is a raw symbol-index node.
type Row struct {
	ID   int64
	Code int
	Name string
}

// EdgeRow is a raw symbol-index edge.
type EdgeRow struct {
	ID   int64
	Code int
	Src  int64
	Dst  int64
}

// Merge drops file nodes, maps type codes and normalizes names.
func Merge(rows []Row) ([]table.Node, error) {
	out := make([]table.Node, 0, len(rows))
	for _, r := range rows {
		if r.Code == FileType {
			continue
		}
		out = append(out, table.Node{
			ID:   r.ID,
			Type: nodeType(r.Code),
			Name: Normalize(r.Name),
		})
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// MergeEdges maps edge type codes. Edges touching dropped nodes are left for
// the assembler's dangling-edge filter.
func MergeEdges(rows []EdgeRow) []table.Edge {
	out := make([]table.Edge, 0, len(rows))
	for _, r := range rows {
		typ, ok := EdgeTypes[r.Code]
		if !ok {
			typ = "edge_" + strconv.Itoa(r.Code)
		}
		out = append(out, table.Edge{ID: r.ID, Type: typ, Src: r.Src, Dst: r.Dst})
	}
	return out
}

func nodeType(code int) string {
	if t, ok := NodeTypes[code]; ok {
		return t
	}
	return "unknown_" + strconv.Itoa(code)
}

// ReadCSV loads raw rows from a CSV table with id, type and serialized_name
// columns, where type holds the numeric kind code.
func ReadCSV(path string) ([]Row, error) {
	rows, err := table.ReadRows(path)
	if err != nil {
		return nil, err
	}
	idCol, typeCol, nameCol := rows.Column("id"), rows.Column("type"), rows.Column("serialized_name")
	if idCol < 0 || typeCol < 0 || nameCol < 0 {
		if len(rows.Header) == 0 {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("symbol table %s: %w id, type, serialized_name", path, table.ErrColumn)
	}
	out := make([]Row, 0, len(rows.Records))
	for i, rec := range rows.Records {
		id, err := strconv.ParseInt(rec[idCol], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse id: %w", path, i+2, err)
		}
		code, err := strconv.Atoi(rec[typeCol])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse type: %w", path, i+2, err)
		}
		out = append(out, Row{ID: id, Code: code, Name: rec[nameCol]})
	}
	return out, nil
}

// DB reads an indexer project database.
type DB struct {
	conn *sql.DB
	Path string
}

// OpenDB opens the indexer's SQLite project database. A missing file is an
// error rather than a fresh empty database.
func OpenDB(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Nodes reads the node table.
func (d *DB) Nodes(ctx context.Context) ([]Row, error) {
	rows, err := d.conn.QueryContext(ctx, "SELECT id, type, serialized_name FROM node ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Code, &r.Name); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Edges reads the edge table.
func (d *DB) Edges(ctx context.Context) ([]EdgeRow, error) {
	rows, err := d.conn.QueryContext(ctx, "SELECT id, type, source_node_id, target_node_id FROM edge ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []EdgeRow
	for rows.Next() {
		var r EdgeRow
		if err := rows.Scan(&r.ID, &r.Code, &r.Src, &r.Dst); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
