// Package table reads and writes the persisted node, edge, body and target
// tables exchanged between pipeline stages.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ErrColumn is returned when a required column is missing from a header.
var ErrColumn = errors.New("missing column")

// Rows is a header-addressed table of string cells. It is the form used when
// a stage rewrites columns it does not otherwise interpret.
type Rows struct {
	Header  []string
	Records [][]string
}

// Column returns the index of name in the header, or -1.
func (r *Rows) Column(name string) int {
	for i, h := range r.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadRows loads a whole CSV file.
func ReadRows(path string) (*Rows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return &Rows{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Rows{Header: header, Records: records}, nil
}

// WriteRows writes rows to path, replacing any existing file.
func WriteRows(path string, rows *Rows) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(rows.Header); err != nil {
		f.Close()
		return fmt.Errorf("write header %s: %w", path, err)
	}
	if err := w.WriteAll(rows.Records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// columns resolves the positions of the named columns. Names listed in
// required must be present; the others map to -1 when absent.
func columns(header []string, required []string, optional ...string) (map[string]int, error) {
	idx := make(map[string]int, len(required)+len(optional))
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	for _, name := range required {
		i, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrColumn, name)
		}
		idx[name] = i
	}
	for _, name := range optional {
		if i, ok := pos[name]; ok {
			idx[name] = i
		} else {
			idx[name] = -1
		}
	}
	return idx, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// parseOptInt parses an optional integer cell. Pandas writes nullable ints
// as floats ("12.0"), which are accepted.
func parseOptInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	v := int64(f)
	return &v, nil
}

func formatOptInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
