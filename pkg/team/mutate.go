package team

import (
	"fmt"
	"math/rand"

	"github.com/wildfunctions/linear_gp/pkg/program"
)

// Rates holds team-level mutation probabilities and the instruction rates used
// when a member is replaced by a mutated copy.
type Rates struct {
	Delete      float64       `toml:"delete" cbor:"delete" json:"delete"`
	Swap        float64       `toml:"swap" cbor:"swap" json:"swap"`
	Mutate      float64       `toml:"mutate" cbor:"mutate" json:"mutate"`
	Instruction program.Rates `toml:"instruction" cbor:"instruction" json:"instruction"`
}

// DefaultRates returns the team mutation probabilities.
func DefaultRates() Rates {
	return Rates{Delete: 0.7, Swap: 0.6, Mutate: 0.65, Instruction: program.DefaultRates()}
}

// Validate checks that every probability is in [0, 1].
func (r Rates) Validate() error {
	for name, p := range map[string]float64{"delete": r.Delete, "swap": r.Swap, "mutate": r.Mutate} {
		if p < 0 || p > 1 {
			return fmt.Errorf("team %s rate %v not in [0, 1]", name, p)
		}
	}
	return r.Instruction.Validate()
}

// CanChange reports whether a team of size slots can ever be changed by
// Mutate with these rates.
func (r Rates) CanChange(size int) bool {
	return r.Mutate > 0 || (size >= 2 && (r.Delete > 0 || r.Swap > 0))
}

// Mutate changes t by repeating a batch of passes until at least one pass
// changes something:
//
//   - delete: each slot is dropped with probability Delete, never the last
//     occupied one
//   - refill: every empty slot takes a program sampled uniformly from pool
//   - swap: with probability Swap two distinct slots trade places
//   - mutate: with probability Mutate one slot's program is replaced by a
//     mutated copy with a fresh id from progIDs, tagged gen
//
// Every reference change goes through pool. The team size never changes.
func (t *Team) Mutate(r Rates, pool *program.Pool, progIDs *program.Counter, gen int, rng *rand.Rand) error {
	n := len(t.members)
	if !r.CanChange(n) {
		return fmt.Errorf("team %d: rates %+v can never change a team of %d", t.ID, r, n)
	}

	for changed := false; !changed; {
		occupied := n
		for i, m := range t.members {
			if occupied <= 1 || rng.Float64() >= r.Delete {
				continue
			}
			if _, err := pool.Release(m); err != nil {
				return fmt.Errorf("team %d slot %d: %w", t.ID, i, err)
			}
			t.members[i] = nil
			occupied--
			changed = true
		}

		for i, m := range t.members {
			if m != nil {
				continue
			}
			p, ok := pool.Sample(rng)
			if !ok {
				return fmt.Errorf("team %d slot %d: %w", t.ID, i, ErrEmptyPool)
			}
			pool.Retain(p)
			t.members[i] = p
		}
		for i, m := range t.members {
			if m == nil {
				return fmt.Errorf("team %d slot %d: %w", t.ID, i, ErrEmptySlot)
			}
		}

		if n >= 2 && rng.Float64() < r.Swap {
			i := rng.Intn(n)
			j := rng.Intn(n - 1)
			if j >= i {
				j++
			}
			t.members[i], t.members[j] = t.members[j], t.members[i]
			changed = true
		}

		if rng.Float64() < r.Mutate {
			i := rng.Intn(n)
			old := t.members[i]
			child := old.Clone(progIDs.Next(), gen)
			child.Mutate(r.Instruction, rng)
			pool.Retain(child)
			t.members[i] = child
			if _, err := pool.Release(old); err != nil {
				return fmt.Errorf("team %d slot %d: %w", t.ID, i, err)
			}
			changed = true
		}
	}
	return nil
}
