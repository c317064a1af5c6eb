package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/imyousuf/srcgraph/internal/symbols"
	"github.com/imyousuf/srcgraph/internal/table"
)

// Split is a three-way partition of node ids.
type Split struct {
	Train []int64
	Val   []int64
	Test  []int64
}

const (
	partTrain = iota
	partVal
	partTest
)

// SplitSizes returns the partition sizes for n items: train is
// floor(n*trainFrac) and the remainder is halved between val and test, with
// test taking the odd item.
func SplitSizes(n int, trainFrac float64) (train, val, test int) {
	train = int(float64(n)*trainFrac + 1e-9)
	if train > n {
		train = n
	}
	val = (n - train) / 2
	test = n - train - val
	return train, val, test
}

// RandomSplit shuffles ids and cuts them into train, val and test.
func RandomSplit(ids []int64, trainFrac float64, rng *rand.Rand) Split {
	shuffled := append([]int64(nil), ids...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	train, val, _ := SplitSizes(len(shuffled), trainFrac)
	return Split{
		Train: shuffled[:train],
		Val:   shuffled[train : train+val],
		Test:  shuffled[train+val:],
	}
}

func (a *Assembler) assignSplits(ctx context.Context, nodes []CorpusNode, chunks chunkReader, rng *rand.Rand) error {
	var split Split
	var err error
	switch {
	case a.opts.PartitionFile != "":
		split, err = a.partitionFromFile(nodes)
	case a.opts.PackageSplit:
		split, err = a.packageSplit(ctx, chunks, rng)
	default:
		ids := make([]int64, 0, len(nodes))
		for _, n := range nodes {
			if n.TypeBackup != NodeTypeMarker {
				ids = append(ids, n.ID)
			}
		}
		split = RandomSplit(ids, a.opts.TrainFrac, rng)
	}
	if err != nil {
		return err
	}
	if a.verbose {
		a.log("Splitting into train %d, validation %d, and test %d sets", len(split.Train), len(split.Val), len(split.Test))
	}
	applySplit(nodes, split)

	if a.opts.RestrictedIDPool != "" {
		if err := a.restrict(nodes); err != nil {
			return err
		}
	}
	return nil
}

// applySplit sets masks from split. Ids listed in val or test leave train;
// everything else defaults to train. Marker nodes belong to no partition.
func applySplit(nodes []CorpusNode, split Split) {
	part := make(map[int64]int, len(split.Val)+len(split.Test))
	for _, id := range split.Val {
		part[id] = partVal
	}
	for _, id := range split.Test {
		part[id] = partTest
	}
	for i := range nodes {
		n := &nodes[i]
		n.TrainMask, n.ValMask, n.TestMask = false, false, false
		if n.TypeBackup == NodeTypeMarker {
			continue
		}
		switch part[n.ID] {
		case partVal:
			n.ValMask = true
		case partTest:
			n.TestMask = true
		default:
			n.TrainMask = true
		}
	}
}

// PackageOf returns the top-level package of a qualified name.
func PackageOf(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// packageSplit partitions top-level packages and propagates the partition to
// every node of a global type in the package and to every node mentioned
// inside one of them. The node table is read in chunks, twice.
func (a *Assembler) packageSplit(ctx context.Context, chunks chunkReader, rng *rand.Rand) (Split, error) {
	global := symbols.GlobalNodeTypes()
	owner := make(map[int64]string)
	pkgSet := make(map[string]bool)
	err := chunks(a.opts.ChunkSize, func(chunk []table.Node) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, n := range chunk {
			if !global[n.Type] {
				continue
			}
			pkg := PackageOf(n.Name)
			owner[n.ID] = pkg
			pkgSet[pkg] = true
		}
		return nil
	})
	if err != nil {
		return Split{}, fmt.Errorf("scan packages: %w", err)
	}

	pkgs := make([]string, 0, len(pkgSet))
	for p := range pkgSet {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)
	rng.Shuffle(len(pkgs), func(i, j int) { pkgs[i], pkgs[j] = pkgs[j], pkgs[i] })
	train, val, test := SplitSizes(len(pkgs), a.opts.TrainFrac)
	a.log("Splitting into train %d, validation %d, and test %d packages", train, val, test)
	pkgPart := make(map[string]int, len(pkgs))
	for i, p := range pkgs {
		switch {
		case i < train:
			pkgPart[p] = partTrain
		case i < train+val:
			pkgPart[p] = partVal
		default:
			pkgPart[p] = partTest
		}
	}

	var split Split
	err = chunks(a.opts.ChunkSize, func(chunk []table.Node) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, n := range chunk {
			pkg, ok := owner[n.ID]
			if !ok && n.MentionedIn != nil {
				pkg, ok = owner[*n.MentionedIn]
			}
			if !ok {
				continue
			}
			switch pkgPart[pkg] {
			case partTrain:
				split.Train = append(split.Train, n.ID)
			case partVal:
				split.Val = append(split.Val, n.ID)
			case partTest:
				split.Test = append(split.Test, n.ID)
			}
		}
		return nil
	})
	if err != nil {
		return Split{}, fmt.Errorf("assign packages: %w", err)
	}
	return split, nil
}

// restrict clears the masks of nodes outside the restricted pool. The pool is
// the node_id column of the pool table plus every FunctionDef and mention
// node.
func (a *Assembler) restrict(nodes []CorpusNode) error {
	pool, err := ReadIDPool(a.opts.RestrictedIDPool)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.TypeBackup == "FunctionDef" || n.TypeBackup == "mention" {
			pool[n.ID] = true
		}
	}
	kept := 0
	for i := range nodes {
		n := &nodes[i]
		if pool[n.ID] {
			if n.InSplit() {
				kept++
			}
			continue
		}
		n.TrainMask, n.ValMask, n.TestMask = false, false, false
	}
	if kept == 0 {
		a.log("Warning: restricted id pool %s matches no nodes, all partitions are empty", a.opts.RestrictedIDPool)
	}
	return nil
}

// ReadIDPool reads the node_id column of a restricted pool table.
func ReadIDPool(path string) (map[int64]bool, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	rows, err := table.ReadRows(path)
	if err != nil {
		return nil, err
	}
	pool := make(map[int64]bool, len(rows.Records))
	if len(rows.Header) == 0 {
		return pool, nil
	}
	col := rows.Column("node_id")
	if col < 0 {
		return nil, fmt.Errorf("restricted pool %s: %w %q", path, table.ErrColumn, "node_id")
	}
	for i, rec := range rows.Records {
		if col >= len(rec) || rec[col] == "" {
			continue
		}
		id, err := parseID(rec[col])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse node_id: %w", path, i+2, err)
		}
		pool[id] = true
	}
	return pool, nil
}

func parseID(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
