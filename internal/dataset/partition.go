package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/imyousuf/srcgraph/internal/table"
)

// PartitionHeader is the column layout of a partition table.
var PartitionHeader = []string{"id", "train_mask", "val_mask", "test_mask"}

// Assignment is one row of a partition table.
type Assignment struct {
	ID    int64
	Train bool
	Val   bool
	Test  bool
}

// RandomItemSplit assigns every id independently: train with probability
// trainFrac, otherwise val or test with equal probability. Ids in forceTest
// never go to train. Ids outside a non-nil pool are assigned to nothing.
func RandomItemSplit(ids []int64, trainFrac float64, forceTest, pool map[int64]bool, rng *rand.Rand) []Assignment {
	out := make([]Assignment, len(ids))
	valCut := trainFrac + (1-trainFrac)/2
	for i, id := range ids {
		r := rng.Float64()
		a := Assignment{ID: id}
		switch {
		case forceTest[id]:
			if r < 0.5 {
				a.Val = true
			} else {
				a.Test = true
			}
		case r < trainFrac:
			a.Train = true
		case r < valCut:
			a.Val = true
		default:
			a.Test = true
		}
		if pool != nil && !pool[id] {
			a.Train, a.Val, a.Test = false, false, false
		}
		out[i] = a
	}
	return out
}

// SplitOf converts assignments into a Split.
func SplitOf(assignments []Assignment) Split {
	var s Split
	for _, a := range assignments {
		switch {
		case a.Train:
			s.Train = append(s.Train, a.ID)
		case a.Val:
			s.Val = append(s.Val, a.ID)
		case a.Test:
			s.Test = append(s.Test, a.ID)
		}
	}
	return s
}

// WritePartition writes a partition table.
func WritePartition(path string, assignments []Assignment) error {
	rows := &table.Rows{Header: PartitionHeader, Records: make([][]string, 0, len(assignments))}
	for _, a := range assignments {
		rows.Records = append(rows.Records, []string{
			strconv.FormatInt(a.ID, 10),
			strconv.FormatBool(a.Train),
			strconv.FormatBool(a.Val),
			strconv.FormatBool(a.Test),
		})
	}
	return table.WriteRows(path, rows)
}

// ReadPartition loads a partition table.
func ReadPartition(path string) ([]Assignment, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	rows, err := table.ReadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows.Header) == 0 {
		return nil, nil
	}
	cols := make([]int, len(PartitionHeader))
	for i, name := range PartitionHeader {
		if cols[i] = rows.Column(name); cols[i] < 0 {
			return nil, fmt.Errorf("partition %s: %w %q", path, table.ErrColumn, name)
		}
	}
	out := make([]Assignment, 0, len(rows.Records))
	for r, rec := range rows.Records {
		var a Assignment
		var err error
		if a.ID, err = parseID(cellAt(rec, cols[0])); err != nil {
			return nil, fmt.Errorf("%s:%d: parse id: %w", path, r+2, err)
		}
		masks := []*bool{&a.Train, &a.Val, &a.Test}
		for k, m := range masks {
			if *m, err = strconv.ParseBool(cellAt(rec, cols[k+1])); err != nil {
				return nil, fmt.Errorf("%s:%d: parse %s: %w", path, r+2, PartitionHeader[k+1], err)
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func cellAt(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func (a *Assembler) partitionFromFile(nodes []CorpusNode) (Split, error) {
	assignments, err := ReadPartition(a.opts.PartitionFile)
	if err != nil {
		return Split{}, fmt.Errorf("read partition: %w", err)
	}
	known := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	missing := 0
	for _, as := range assignments {
		if !known[as.ID] {
			missing++
		}
	}
	if missing > 0 {
		a.log("Partition %s lists %d ids that are not in the node table", a.opts.PartitionFile, missing)
	}
	return SplitOf(assignments), nil
}

// ReadForcedTestIDs collects the node ids referenced by a type annotation
// test set. Each line is a JSON array [text, {"replacements": [[start, end,
// node_id], ...]}].
func ReadForcedTestIDs(path string) (map[int64]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ids := make(map[int64]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry []json.RawMessage
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if len(entry) < 2 {
			return nil, fmt.Errorf("%s:%d: want [text, entry]", path, line)
		}
		var body struct {
			Replacements [][]json.Number `json:"replacements"`
		}
		if err := json.Unmarshal(entry[1], &body); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		for _, r := range body.Replacements {
			if len(r) < 3 {
				continue
			}
			id, err := r[2].Int64()
			if err != nil {
				return nil, fmt.Errorf("%s:%d: parse node id: %w", path, line, err)
			}
			ids[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ids, nil
}
