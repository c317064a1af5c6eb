package dataset

import (
	"math/rand/v2"

	"github.com/imyousuf/srcgraph/internal/table"
)

// Holdout withholds up to size edges for later evaluation. Edges are visited
// in a seeded random order; an edge is withheld only while its source still
// has degree greater than two, so no node is orphaned by the removal. The
// degree of a node is the larger of its out- and in-degree.
func Holdout(edges []table.Edge, size int, seed uint64) (train, heldOut []table.Edge) {
	if size <= 0 {
		return edges, nil
	}
	out := make(map[int64]int)
	in := make(map[int64]int)
	for _, e := range edges {
		out[e.Src]++
		in[e.Dst]++
	}
	degree := out
	for id, c := range in {
		if c > degree[id] {
			degree[id] = c
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	held := make(map[int]bool)
	for _, i := range rng.Perm(len(edges)) {
		src := edges[i].Src
		if degree[src] > 2 {
			held[i] = true
			degree[src]--
			if len(held) >= size {
				break
			}
		}
	}

	train = make([]table.Edge, 0, len(edges)-len(held))
	for i, e := range edges {
		if held[i] {
			heldOut = append(heldOut, e)
		} else {
			train = append(train, e)
		}
	}
	return train, heldOut
}
