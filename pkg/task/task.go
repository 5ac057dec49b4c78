// Package task provides environments that score agents, and a registry of
// them by name.
package task

import (
	"fmt"
	"sort"
)

// Agent maps an observation to a vector of action values. Memory registers
// persist between calls until ClearRegisters.
type Agent interface {
	Act(obs []float64) []float64
	ClearRegisters()
}

// Task scores an agent; higher is better. Evaluate is deterministic for a
// given agent and safe to call concurrently for distinct agents.
type Task interface {
	Name() string
	NumInputs() int
	NumActions() int
	Evaluate(a Agent) float64
}

var registry = map[string]func() Task{}

// Register adds a task constructor to the registry.
func Register(name string, constructor func() Task) {
	registry[name] = constructor
}

// Get returns a task by name.
func Get(name string) (Task, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown task: %s (available: %v)", name, Names())
	}
	return ctor(), nil
}

// Names returns all registered task names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// choose picks a discrete action from act: the sign of a single value, or
// the argmax of the first n values.
func choose(act []float64, n int) int {
	if len(act) == 0 {
		return 0
	}
	if len(act) == 1 {
		if act[0] > 0 {
			return 1
		}
		return 0
	}
	best := 0
	for i := 1; i < min(n, len(act)); i++ {
		if act[i] > act[best] {
			best = i
		}
	}
	return best
}
