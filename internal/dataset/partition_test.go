package dataset

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func itemIDs(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i)
	}
	return ids
}

func TestRandomItemSplitForcedNeverTrain(t *testing.T) {
	ids := itemIDs(200)
	force := make(map[int64]bool)
	for _, id := range ids[:100] {
		force[id] = true
	}

	var val, test int
	for _, a := range RandomItemSplit(ids, 0.99, force, nil, rand.New(rand.NewPCG(3, 3))) {
		if !force[a.ID] {
			continue
		}
		if a.Train {
			t.Fatalf("forced id %d assigned to train", a.ID)
		}
		if a.Val == a.Test {
			t.Fatalf("forced id %d: val=%v test=%v, want exactly one", a.ID, a.Val, a.Test)
		}
		if a.Val {
			val++
		} else {
			test++
		}
	}
	if val == 0 || test == 0 {
		t.Errorf("forced ids split %d val / %d test, want both", val, test)
	}
}

func TestRandomItemSplitPool(t *testing.T) {
	ids := itemIDs(100)
	pool := map[int64]bool{}
	for _, id := range ids[:40] {
		pool[id] = true
	}

	for _, a := range RandomItemSplit(ids, 0.6, nil, pool, rand.New(rand.NewPCG(5, 5))) {
		n := 0
		for _, m := range []bool{a.Train, a.Val, a.Test} {
			if m {
				n++
			}
		}
		if pool[a.ID] && n != 1 {
			t.Errorf("pooled id %d has %d masks, want 1", a.ID, n)
		}
		if !pool[a.ID] && n != 0 {
			t.Errorf("id %d outside pool has %d masks, want 0", a.ID, n)
		}
	}
}

func TestRandomItemSplitDeterministic(t *testing.T) {
	ids := itemIDs(500)
	force := map[int64]bool{1: true, 7: true}
	first := RandomItemSplit(ids, 0.6, force, nil, rand.New(rand.NewPCG(9, 9)))
	second := RandomItemSplit(ids, 0.6, force, nil, rand.New(rand.NewPCG(9, 9)))
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed produced different splits")
	}
	split := SplitOf(first)
	if len(split.Train) == 0 || len(split.Val) == 0 || len(split.Test) == 0 {
		t.Errorf("split sizes %d/%d/%d, want all non-empty", len(split.Train), len(split.Val), len(split.Test))
	}
}

func TestReadForcedTestIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forced.jsonl")
	content := `["def f(): pass", {"replacements": [[0, 3, 11], [4, 5, 12]]}]

   	
["x = y", {"replacements": [[0, 1, 12], [4, 5, 30], [1, 2]]}]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadForcedTestIDs(path)
	if err != nil {
		t.Fatalf("ReadForcedTestIDs: %v", err)
	}
	want := map[int64]bool{11: true, 12: true, 30: true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestReadForcedTestIDsErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "nope\n"},
		{"short entry", `["text"]` + "\n"},
		{"bad id", `["t", {"replacements": [[0, 1, 2.5]]}]` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "forced.jsonl")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadForcedTestIDs(path); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := ReadForcedTestIDs(filepath.Join(dir, "missing.jsonl")); err == nil {
		t.Error("expected error for a missing file")
	}
}
