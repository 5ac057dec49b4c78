package trainer

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/wildfunctions/linear_gp/pkg/program"
	"github.com/wildfunctions/linear_gp/pkg/score"
	"github.com/wildfunctions/linear_gp/pkg/team"
)

// TeamTrainer evolves a population of teams over a shared, refcounted pool of
// programs.
type TeamTrainer struct {
	params     Params
	rng        *rand.Rand
	progIDs    *program.Counter
	teamIDs    *program.Counter
	generation int
	teams      []*team.Team
	pool       *program.Pool
}

// NewTeam returns a team trainer with PopSize fresh teams, each generating
// its own TeamSize programs.
func NewTeam(params Params, rng *rand.Rand) (*TeamTrainer, error) {
	if err := params.ValidateTeam(); err != nil {
		return nil, err
	}
	t := &TeamTrainer{
		params:  params,
		rng:     rng,
		progIDs: program.NewCounter(0),
		teamIDs: program.NewCounter(0),
		pool:    program.NewPool(),
	}
	t.teams = make([]*team.Team, params.PopSize)
	for i := range t.teams {
		tm, err := team.Random(&t.params.Program, t.pool, t.progIDs, t.teamIDs.Next(), params.TeamSize, 0, rng)
		if err != nil {
			return nil, err
		}
		t.teams[i] = tm
	}
	return t, nil
}

// Params returns the trainer's hyperparameters.
func (t *TeamTrainer) Params() Params { return t.params }

// Generation returns the current generation number.
func (t *TeamTrainer) Generation() int { return t.generation }

// Size returns the number of live teams.
func (t *TeamTrainer) Size() int { return len(t.teams) }

// Teams returns the live teams in population order.
func (t *TeamTrainer) Teams() []*team.Team {
	return append([]*team.Team(nil), t.teams...)
}

// Pool returns the shared program pool.
func (t *TeamTrainer) Pool() *program.Pool { return t.pool }

// Units returns each team as an evaluation unit backed by a private register
// session. Unless all is set, only teams missing an outcome are included.
func (t *TeamTrainer) Units(tasks []string, all bool) []Unit {
	var units []Unit
	for _, tm := range t.teams {
		if all || !tm.Outcomes.Has(tasks) {
			units = append(units, Unit{ID: tm.ID, Agent: tm.Session()})
		}
	}
	return units
}

// Unevaluated returns the teams lacking an outcome for any of tasks.
func (t *TeamTrainer) Unevaluated(tasks []string) []*team.Team {
	var out []*team.Team
	for _, tm := range t.teams {
		if !tm.Outcomes.Has(tasks) {
			out = append(out, tm)
		}
	}
	return out
}

// Agents returns the teams ranked best first over tasks, or in population
// order when no tasks are given.
func (t *TeamTrainer) Agents(tasks []string, agg score.Aggregation) ([]*team.Team, error) {
	if len(tasks) == 0 {
		return t.Teams(), nil
	}
	return rank(t.teams, teamOutcomes, tasks, agg)
}

func teamOutcomes(tm *team.Team) score.Outcomes { return tm.Outcomes }

// ApplyScores merges externally computed outcomes into live teams by id.
func (t *TeamTrainer) ApplyScores(results []Result) error {
	byID := make(map[uint64]*team.Team, len(t.teams))
	for _, tm := range t.teams {
		byID[tm.ID] = tm
	}
	var unknown []uint64
	for _, r := range results {
		tm, ok := byID[r.ID]
		if !ok {
			unknown = append(unknown, r.ID)
			continue
		}
		for task, s := range r.Outcomes {
			tm.Reward(task, s)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: ids %v", ErrUnknownID, unknown)
	}
	return nil
}

// Stats summarizes the population's outcomes for task.
func (t *TeamTrainer) Stats(task string) (Stats, error) {
	outs := make([]score.Outcomes, len(t.teams))
	for i, tm := range t.teams {
		outs[i] = tm.Outcomes
	}
	return computeStats(outs, task)
}

// Select keeps the best Keep() teams and releases every member of the rest;
// programs left without references leave the pool.
func (t *TeamTrainer) Select(tasks []string, agg score.Aggregation) error {
	ranked, err := rank(t.teams, teamOutcomes, tasks, agg)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	keep := min(t.params.Keep(), len(ranked))
	before := t.pool.Len()
	for _, tm := range ranked[keep:] {
		if err := tm.Release(t.pool); err != nil {
			return fmt.Errorf("select: %w", err)
		}
	}
	log.Debugf("generation %d: keeping %d of %d teams, %d programs purged",
		t.generation, keep, len(ranked), before-t.pool.Len())
	t.teams = ranked[:keep]
	return nil
}

// Generate refills the population to PopSize with mutated clones of the
// current teams, tagged gen.
func (t *TeamTrainer) Generate(gen int) error {
	parents := t.Teams()
	if len(parents) == 0 {
		return fmt.Errorf("generate: no parents")
	}
	for len(t.teams) < t.params.PopSize {
		p := parents[t.rng.Intn(len(parents))]
		child := p.Clone(t.teamIDs.Next(), gen, t.pool)
		if err := child.Mutate(t.params.Team, t.pool, t.progIDs, gen, t.rng); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		t.teams = append(t.teams, child)
	}
	return nil
}

// Evolve runs one generation step: stats over tasks[0], Select, Generate,
// advance the generation counter and clear every pooled program's registers.
func (t *TeamTrainer) Evolve(tasks []string, agg score.Aggregation) (Stats, error) {
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
	for _, p := range t.pool.Programs() {
		p.ClearRegisters()
	}
	return stats, nil
}

// CheckRefs verifies that every pooled program's refcount equals the number
// of team slots holding it.
func (t *TeamTrainer) CheckRefs() error {
	want := map[uint64]int{}
	for _, tm := range t.teams {
		for _, m := range tm.Members() {
			want[m.ID]++
		}
	}
	return t.pool.Check(want)
}

// Best returns a summary of the top-ranked team.
func (t *TeamTrainer) Best(tasks []string, agg score.Aggregation) (Summary, error) {
	ranked, err := t.Agents(tasks, agg)
	if err != nil {
		return Summary{}, err
	}
	tm := ranked[0]
	s := Summary{ID: tm.ID, GenCreated: tm.GenCreated, Outcomes: tm.Outcomes.Clone()}
	var b strings.Builder
	fmt.Fprintf(&b, "team %d (gen %d, %d members)\n", tm.ID, tm.GenCreated, tm.Size())
	for _, m := range tm.Members() {
		s.Size += m.Len()
		s.Effective += len(m.Effective())
		b.WriteString(m.String())
	}
	s.Listing = b.String()
	return s, nil
}
