package team

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/wildfunctions/linear_gp/pkg/program"
	"github.com/wildfunctions/linear_gp/pkg/score"
)

var (
	// ErrEmptyPool is returned when a slot must be refilled from an empty pool.
	ErrEmptyPool = errors.New("team: no programs to refill from")
	// ErrEmptySlot is returned when a slot is still empty after a mutation batch.
	ErrEmptySlot = errors.New("team: slot left empty")
)

// Team is an ensemble of shared program references producing one action per
// member.
type Team struct {
	ID         uint64
	GenCreated int
	Outcomes   score.Outcomes

	members []*program.Program // nil marks a slot emptied during Mutate
}

// New builds a team over members, retaining each through pool.
func New(id uint64, gen int, members []*program.Program, pool *program.Pool) (*Team, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("team %d: no members", id)
	}
	for i, m := range members {
		if m == nil {
			return nil, fmt.Errorf("team %d slot %d: %w", id, i, ErrEmptySlot)
		}
	}
	t := &Team{
		ID:         id,
		GenCreated: gen,
		Outcomes:   score.Outcomes{},
		members:    append([]*program.Program(nil), members...),
	}
	for _, m := range t.members {
		pool.Retain(m)
	}
	return t, nil
}

// Random builds a team of size freshly generated programs.
func Random(cfg *program.Config, pool *program.Pool, progIDs *program.Counter, id uint64, size, gen int, rng *rand.Rand) (*Team, error) {
	members := make([]*program.Program, size)
	for i := range members {
		members[i] = program.NewRandomSize(cfg, progIDs.Next(), gen, rng)
	}
	return New(id, gen, members, pool)
}

// Clone returns a new team sharing t's programs.
func (t *Team) Clone(id uint64, gen int, pool *program.Pool) *Team {
	c, _ := New(id, gen, t.members, pool)
	return c
}

// Release drops every member reference. The team must not be used afterwards.
func (t *Team) Release(pool *program.Pool) error {
	for i, m := range t.members {
		if m == nil {
			continue
		}
		if _, err := pool.Release(m); err != nil {
			return fmt.Errorf("team %d slot %d: %w", t.ID, i, err)
		}
		t.members[i] = nil
	}
	t.members = nil
	return nil
}

// Size returns the number of slots.
func (t *Team) Size() int { return len(t.members) }

// Members returns the member programs in slot order.
func (t *Team) Members() []*program.Program {
	return append([]*program.Program(nil), t.members...)
}

// Actions runs every member on obs using the members' own registers and
// returns each member's first output register, in slot order. Members are
// shared with other teams, so Actions must not run concurrently with any
// other team holding the same programs; use Session for that.
func (t *Team) Actions(obs []float64) []float64 {
	out := make([]float64, len(t.members))
	for i, m := range t.members {
		out[i] = m.Outputs(obs)[0]
	}
	return out
}

// ClearRegisters clears every member's registers.
func (t *Team) ClearRegisters() {
	for _, m := range t.members {
		m.ClearRegisters()
	}
}

// Reward records or overwrites the outcome for task.
func (t *Team) Reward(task string, s float64) {
	t.Outcomes[task] = s
}

// Outcome returns the recorded outcome for task.
func (t *Team) Outcome(task string) (float64, error) {
	return t.Outcomes.Get(task)
}

// Score returns t's scalar rank key over tasks.
func (t *Team) Score(tasks []string, agg score.Aggregation, ranges score.Ranges) (float64, error) {
	return t.Outcomes.Score(tasks, agg, ranges)
}

// Vector returns t's normalized outcome vector over tasks.
func (t *Team) Vector(tasks []string, ranges score.Ranges) ([]float64, error) {
	return t.Outcomes.Vector(tasks, ranges)
}
