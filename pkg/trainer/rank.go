package trainer

import (
	"fmt"
	"sort"

	"github.com/wildfunctions/linear_gp/pkg/pareto"
	"github.com/wildfunctions/linear_gp/pkg/score"
)

// Stats summarizes one task's outcomes over a population.
type Stats struct {
	Task    string  `json:"task"`
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

func computeStats(outcomes []score.Outcomes, task string) (Stats, error) {
	s := Stats{Task: task, Count: len(outcomes)}
	if len(outcomes) == 0 {
		return s, fmt.Errorf("stats for %q over an empty population", task)
	}
	n := float64(len(outcomes))
	for i, o := range outcomes {
		v, err := o.Get(task)
		if err != nil {
			return s, err
		}
		if i == 0 || v < s.Min {
			s.Min = v
		}
		if i == 0 || v > s.Max {
			s.Max = v
		}
		s.Average += v / n // no overflow for outcomes near ±MaxFloat64
	}
	return s, nil
}

// populationRanges returns the observed range of every task. Any missing
// outcome is an error.
func populationRanges(outcomes []score.Outcomes, tasks []string) (score.Ranges, error) {
	ranges := score.Ranges{}
	for _, o := range outcomes {
		for _, task := range tasks {
			v, err := o.Get(task)
			if err != nil {
				return nil, err
			}
			ranges.Observe(task, v)
		}
	}
	return ranges, nil
}

var paretoModes = map[score.Aggregation]pareto.Mode{
	score.ParetoDominate:     pareto.DominanceCount,
	score.ParetoNonDominated: pareto.NonDominated,
}

// rankOrder returns population indices best first.
func rankOrder(outcomes []score.Outcomes, tasks []string, agg score.Aggregation) ([]int, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("rank: no tasks given")
	}
	ranges, err := populationRanges(outcomes, tasks)
	if err != nil {
		return nil, err
	}

	if mode, ok := paretoModes[agg]; ok && len(tasks) > 1 {
		vecs := make([][]float64, len(outcomes))
		for i, o := range outcomes {
			if vecs[i], err = o.Vector(tasks, ranges); err != nil {
				return nil, err
			}
		}
		return pareto.Rank(vecs, mode), nil
	}

	keys := make([]float64, len(outcomes))
	for i, o := range outcomes {
		if len(tasks) == 1 {
			keys[i], err = o.Get(tasks[0])
		} else {
			keys[i], err = o.Score(tasks, agg, ranges)
		}
		if err != nil {
			return nil, err
		}
	}
	idx := make([]int, len(outcomes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] > keys[idx[b]]
	})
	return idx, nil
}

// rank returns es ordered best first.
func rank[E any](es []E, outcomes func(E) score.Outcomes, tasks []string, agg score.Aggregation) ([]E, error) {
	outs := make([]score.Outcomes, len(es))
	for i, e := range es {
		outs[i] = outcomes(e)
	}
	order, err := rankOrder(outs, tasks, agg)
	if err != nil {
		return nil, err
	}
	ranked := make([]E, len(es))
	for i, j := range order {
		ranked[i] = es[j]
	}
	return ranked, nil
}

// Result carries externally computed outcomes for one entity.
type Result struct {
	ID       uint64             `json:"id"`
	Outcomes map[string]float64 `json:"outcomes"`
}
