package score

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingOutcome is returned when a score lookup names a task that was
// never recorded for an entity.
var ErrMissingOutcome = errors.New("missing outcome")

// Aggregation identifies how several task outcomes combine into one rank key.
type Aggregation int

const (
	Min Aggregation = iota
	Max
	Average
	Sum
	ParetoDominate     // rank by number of agents weakly dominated
	ParetoNonDominated // rank by (negated) number of agents strictly dominating
)

var aggregationNames = map[Aggregation]string{
	Min:                "min",
	Max:                "max",
	Average:            "avg",
	Sum:                "sum",
	ParetoDominate:     "pareto",
	ParetoNonDominated: "nondominated",
}

// reducers maps each scalar aggregation to its reduction. Pareto modes have
// no reducer; they rank whole vectors.
var reducers = map[Aggregation]func([]float64) float64{
	Min: func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x < m {
				m = x
			}
		}
		return m
	},
	Max: func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x > m {
				m = x
			}
		}
		return m
	},
	Average: func(v []float64) float64 {
		return sum(v) / float64(len(v))
	},
	Sum: sum,
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func (a Aggregation) String() string {
	if n, ok := aggregationNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Aggregation(%d)", int(a))
}

// IsPareto reports whether a ranks score vectors by dominance.
func (a Aggregation) IsPareto() bool {
	return a == ParetoDominate || a == ParetoNonDominated
}

// ParseAggregation returns the aggregation with the given name.
func ParseAggregation(name string) (Aggregation, error) {
	for a, n := range aggregationNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation: %s (available: %v)", name, AggregationNames())
}

// AggregationNames returns all aggregation names in declaration order.
func AggregationNames() []string {
	keys := make([]int, 0, len(aggregationNames))
	for a := range aggregationNames {
		keys = append(keys, int(a))
	}
	sort.Ints(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = aggregationNames[Aggregation(k)]
	}
	return names
}

// MarshalText implements encoding.TextMarshaler.
func (a Aggregation) MarshalText() ([]byte, error) {
	n, ok := aggregationNames[a]
	if !ok {
		return nil, fmt.Errorf("unknown aggregation %d", int(a))
	}
	return []byte(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Aggregation) UnmarshalText(b []byte) error {
	v, err := ParseAggregation(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
