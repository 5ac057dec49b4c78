// Package trainer manages evolving populations of programs or teams: ranking,
// gap selection, offspring generation and the generation counter.
//
// A generation runs Idle → Evaluating → Ranking → Selecting → Generating →
// Idle. Evaluation happens outside the trainer; its results must all be
// merged with ApplyScores before Evolve runs. Every method is meant to be
// called from a single coordinating goroutine.
package trainer

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/tliron/commonlog"

	"github.com/wildfunctions/linear_gp/pkg/program"
	"github.com/wildfunctions/linear_gp/pkg/score"
)

var log = commonlog.GetLogger("linear_gp.trainer")

// ErrUnknownID is returned by ApplyScores for results that match no live
// entity.
var ErrUnknownID = errors.New("result for unknown entity")

// Agent is what an evaluator drives: repeated actions plus a register reset
// between episodes.
type Agent interface {
	Act(obs []float64) []float64
	ClearRegisters()
}

// Unit is one independently evaluable entity.
type Unit struct {
	ID    uint64
	Agent Agent
}

// Trainer evolves a population of standalone programs. Programs are owned
// directly by the population, so their refcounts stay 0.
type Trainer struct {
	params     Params
	rng        *rand.Rand
	ids        *program.Counter
	generation int
	programs   []*program.Program
}

// New returns a trainer with a freshly generated population.
func New(params Params, rng *rand.Rand) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	t := &Trainer{params: params, rng: rng, ids: program.NewCounter(0)}
	t.programs = make([]*program.Program, params.PopSize)
	for i := range t.programs {
		t.programs[i] = program.NewRandomSize(&t.params.Program, t.ids.Next(), 0, rng)
	}
	return t, nil
}

// Params returns the trainer's hyperparameters.
func (t *Trainer) Params() Params { return t.params }

// Generation returns the current generation number.
func (t *Trainer) Generation() int { return t.generation }

// Size returns the number of live programs.
func (t *Trainer) Size() int { return len(t.programs) }

// Programs returns the live programs in population order.
func (t *Trainer) Programs() []*program.Program {
	return append([]*program.Program(nil), t.programs...)
}

// Units returns the programs as evaluation units. Unless all is set, only
// programs missing an outcome for some task are included.
func (t *Trainer) Units(tasks []string, all bool) []Unit {
	var units []Unit
	for _, p := range t.programs {
		if all || !p.Outcomes.Has(tasks) {
			units = append(units, Unit{ID: p.ID, Agent: p})
		}
	}
	return units
}

// Unevaluated returns the programs lacking an outcome for any of tasks.
func (t *Trainer) Unevaluated(tasks []string) []*program.Program {
	var out []*program.Program
	for _, p := range t.programs {
		if !p.Outcomes.Has(tasks) {
			out = append(out, p)
		}
	}
	return out
}

// Agents returns the programs ranked best first over tasks, or in population
// order when no tasks are given.
func (t *Trainer) Agents(tasks []string, agg score.Aggregation) ([]*program.Program, error) {
	if len(tasks) == 0 {
		return t.Programs(), nil
	}
	return rank(t.programs, programOutcomes, tasks, agg)
}

func programOutcomes(p *program.Program) score.Outcomes { return p.Outcomes }

// ApplyScores merges externally computed outcomes into live programs by id.
// Programs absent from results keep their outcomes. Results naming no live
// program are reported after the rest are merged.
func (t *Trainer) ApplyScores(results []Result) error {
	byID := make(map[uint64]*program.Program, len(t.programs))
	for _, p := range t.programs {
		byID[p.ID] = p
	}
	var unknown []uint64
	for _, r := range results {
		p, ok := byID[r.ID]
		if !ok {
			unknown = append(unknown, r.ID)
			continue
		}
		for task, s := range r.Outcomes {
			p.Reward(task, s)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: ids %v", ErrUnknownID, unknown)
	}
	return nil
}

// Stats summarizes the population's outcomes for task.
func (t *Trainer) Stats(task string) (Stats, error) {
	outs := make([]score.Outcomes, len(t.programs))
	for i, p := range t.programs {
		outs[i] = p.Outcomes
	}
	return computeStats(outs, task)
}

// Select keeps the best Keep() programs.
func (t *Trainer) Select(tasks []string, agg score.Aggregation) error {
	ranked, err := rank(t.programs, programOutcomes, tasks, agg)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	keep := min(t.params.Keep(), len(ranked))
	log.Debugf("generation %d: keeping %d of %d programs", t.generation, keep, len(ranked))
	t.programs = ranked[:keep]
	return nil
}

// Generate refills the population to PopSize with offspring of the current
// programs, tagged gen.
func (t *Trainer) Generate(gen int) error {
	parents := t.Programs()
	if len(parents) == 0 {
		return fmt.Errorf("generate: no parents")
	}
	for len(t.programs) < t.params.PopSize {
		var child *program.Program
		p1 := parents[t.rng.Intn(len(parents))]
		switch t.params.Offspring {
		case OffspringCrossover:
			p2 := parents[t.rng.Intn(len(parents))]
			child = program.Crossover(p1, p2, t.ids.Next(), gen, t.rng)
		default:
			child = p1.Clone(t.ids.Next(), gen)
		}
		child.Mutate(t.params.Instruction, t.rng)
		t.programs = append(t.programs, child)
	}
	return nil
}

// Evolve runs one generation step: stats over tasks[0], Select, Generate,
// advance the generation counter and clear every program's registers.
// Offspring are tagged with the generation they are born into.
func (t *Trainer) Evolve(tasks []string, agg score.Aggregation) (Stats, error) {
	if len(tasks) == 0 {
		return Stats{}, fmt.Errorf("evolve: no tasks given")
	}
	stats, err := t.Stats(tasks[0])
	if err != nil {
		return stats, err
	}
	if err := t.Select(tasks, agg); err != nil {
		return stats, err
	}
	next := t.generation + 1
	if err := t.Generate(next); err != nil {
		return stats, err
	}
	t.generation = next
	for _, p := range t.programs {
		p.ClearRegisters()
	}
	return stats, nil
}

// Best returns a summary of the top-ranked program.
func (t *Trainer) Best(tasks []string, agg score.Aggregation) (Summary, error) {
	ranked, err := t.Agents(tasks, agg)
	if err != nil {
		return Summary{}, err
	}
	p := ranked[0]
	return Summary{
		ID:         p.ID,
		GenCreated: p.GenCreated,
		Outcomes:   p.Outcomes.Clone(),
		Size:       p.Len(),
		Effective:  len(p.Effective()),
		Listing:    p.String(),
	}, nil
}

// Summary describes one entity for reports.
type Summary struct {
	ID         uint64             `json:"id"`
	GenCreated int                `json:"gen_created"`
	Outcomes   map[string]float64 `json:"outcomes"`
	Size       int                `json:"size"`      // instructions, summed over members for teams
	Effective  int                `json:"effective"` // effective instructions
	Listing    string             `json:"listing"`
}
