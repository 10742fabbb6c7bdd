package coords

import "github.com/golang/geo/r2"

// Dedupe merges coordinates that lie closer than threshold to each other.
// Each group of mutually reachable near neighbours is replaced by its rounded
// centroid, which for a pair is the midpoint. Merged points are never fed back
// into the pass that produced them; a further pass only runs when two
// centroids of the previous pass still collide, so the output is always a
// fixed point: Dedupe(Dedupe(x)) == Dedupe(x).
//
// Inputs with fewer than two coordinates are returned unchanged. The input
// slice is never modified.
func Dedupe(set []Coordinate, threshold float64) []Coordinate {
	if len(set) < 2 || threshold <= 0 {
		return Clone(set)
	}
	out := Clone(set)
	for {
		merged, changed := dedupePass(out, threshold)
		out = merged
		if !changed {
			return out
		}
	}
}

// dedupePass runs one group-wise merge over set.
func dedupePass(set []Coordinate, threshold float64) ([]Coordinate, bool) {
	parent := make([]int, len(set))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	changed := false
	for i := 0; i < len(set); i++ {
		for j := i + 1; j < len(set); j++ {
			if Distance(set[i], set[j]) < threshold {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[rj] = ri
				}
				changed = true
			}
		}
	}
	if !changed {
		return set, false
	}

	type group struct {
		sum r2.Point
		n   int
	}
	order := make([]int, 0, len(set))
	groups := make(map[int]*group, len(set))
	for i, c := range set {
		root := find(i)
		g, ok := groups[root]
		if !ok {
			g = &group{}
			groups[root] = g
			order = append(order, root)
		}
		g.sum = g.sum.Add(c.Point())
		g.n++
	}
	out := make([]Coordinate, 0, len(order))
	for _, root := range order {
		g := groups[root]
		out = append(out, FromPoint(g.sum.Mul(1/float64(g.n))))
	}
	return out, true
}
