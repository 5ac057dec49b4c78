package score

import (
	"fmt"
	"math"
)

// Range is the observed [Min, Max] of one task's outcomes across a population.
type Range struct {
	Min, Max float64
}

// Normalize maps v into [0, 1] relative to r. A degenerate range maps to 0.
func (r Range) Normalize(v float64) float64 {
	if r.Max == r.Min {
		return 0
	}
	if span := r.Max - r.Min; !math.IsInf(span, 0) {
		return (v - r.Min) / span
	}
	// Halved so ranges spanning the clamped extremes do not overflow.
	return (v/2 - r.Min/2) / (r.Max/2 - r.Min/2)
}

// Ranges holds a Range per task.
type Ranges map[string]Range

// Observe widens the range for task to include v.
func (rs Ranges) Observe(task string, v float64) {
	r, ok := rs[task]
	if !ok {
		rs[task] = Range{Min: v, Max: v}
		return
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
	rs[task] = r
}

// Outcomes maps a task name to the latest recorded score.
type Outcomes map[string]float64

// Get returns the outcome for task, or ErrMissingOutcome.
func (o Outcomes) Get(task string) (float64, error) {
	v, ok := o[task]
	if !ok {
		return 0, fmt.Errorf("%w for task %q", ErrMissingOutcome, task)
	}
	return v, nil
}

// Has reports whether every task has a recorded outcome.
func (o Outcomes) Has(tasks []string) bool {
	for _, t := range tasks {
		if _, ok := o[t]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a copy of o.
func (o Outcomes) Clone() Outcomes {
	c := make(Outcomes, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Vector returns the outcomes for tasks normalized by ranges, in task order.
func (o Outcomes) Vector(tasks []string, ranges Ranges) ([]float64, error) {
	vec := make([]float64, len(tasks))
	for i, t := range tasks {
		v, err := o.Get(t)
		if err != nil {
			return nil, err
		}
		r, ok := ranges[t]
		if !ok {
			r = Range{Min: v, Max: v}
		}
		vec[i] = r.Normalize(v)
	}
	return vec, nil
}

// Score returns a scalar rank key. A single task yields its raw outcome;
// several tasks are normalized and reduced with agg. Pareto aggregations have
// no scalar form and return an error; use Vector for them.
func (o Outcomes) Score(tasks []string, agg Aggregation, ranges Ranges) (float64, error) {
	switch len(tasks) {
	case 0:
		return 0, fmt.Errorf("score: no tasks given")
	case 1:
		return o.Get(tasks[0])
	}
	reduce, ok := reducers[agg]
	if !ok {
		return 0, fmt.Errorf("score: %s has no scalar reduction", agg)
	}
	vec, err := o.Vector(tasks, ranges)
	if err != nil {
		return 0, err
	}
	return reduce(vec), nil
}
