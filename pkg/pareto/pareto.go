// Package pareto ranks agents by multi-objective dominance.
package pareto

import "sort"

// Mode selects the dominance relation used for counting.
type Mode int

const (
	// DominanceCount counts the other agents that i weakly dominates on
	// every objective.
	DominanceCount Mode = iota
	// NonDominated counts, negated, the other agents that strictly dominate
	// i on every objective.
	NonDominated
)

// comparator is one pairwise predicate plus the sign applied to its count.
type comparator struct {
	counts func(si, sj []float64) bool
	sign   int
}

var comparators = map[Mode]comparator{
	DominanceCount: {
		counts: func(si, sj []float64) bool { return all(si, sj, func(a, b float64) bool { return a >= b }) },
		sign:   1,
	},
	NonDominated: {
		counts: func(si, sj []float64) bool { return all(sj, si, func(a, b float64) bool { return a > b }) },
		sign:   -1,
	},
}

func all(a, b []float64, cmp func(a, b float64) bool) bool {
	for k := range a {
		if !cmp(a[k], b[k]) {
			return false
		}
	}
	return true
}

// Counts returns the domination score of every agent. scores[i] is agent i's
// objective vector; all vectors must have the same length.
func Counts(scores [][]float64, mode Mode) []int {
	c, ok := comparators[mode]
	if !ok {
		c = comparators[DominanceCount]
	}
	out := make([]int, len(scores))
	for i := range scores {
		n := 0
		for j := range scores {
			if i != j && c.counts(scores[i], scores[j]) {
				n++
			}
		}
		out[i] = c.sign * n
	}
	return out
}

// Rank returns agent indices ordered by descending domination score. Ties
// keep their original relative order.
func Rank(scores [][]float64, mode Mode) []int {
	counts := Counts(scores, mode)
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return counts[idx[a]] > counts[idx[b]]
	})
	return idx
}
