package program

import (
	"fmt"
	"math/rand"
)

// Pool is the set of programs referenced by at least one team slot. It is the
// only writer of Program reference counts. Not safe for concurrent use; it is
// touched only by the coordinator between evaluation phases.
type Pool struct {
	progs []*Program
	index map[uint64]int
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{index: make(map[uint64]int)}
}

// Len returns the number of programs in the pool.
func (pl *Pool) Len() int { return len(pl.progs) }

// Get returns the pooled program with id.
func (pl *Pool) Get(id uint64) (*Program, bool) {
	i, ok := pl.index[id]
	if !ok {
		return nil, false
	}
	return pl.progs[i], true
}

// Programs returns the pooled programs in pool order.
func (pl *Pool) Programs() []*Program {
	return append([]*Program(nil), pl.progs...)
}

// Retain records one more slot holding p, adding p to the pool if needed.
func (pl *Pool) Retain(p *Program) {
	if _, ok := pl.index[p.ID]; !ok {
		pl.index[p.ID] = len(pl.progs)
		pl.progs = append(pl.progs, p)
		p.refs = 0
	}
	p.refs++
}

// Release drops one slot reference to p and purges p from the pool when none
// remain. It reports whether p was purged.
func (pl *Pool) Release(p *Program) (bool, error) {
	if _, ok := pl.index[p.ID]; !ok {
		return false, fmt.Errorf("release of program %d not in pool", p.ID)
	}
	if p.refs <= 0 {
		return false, fmt.Errorf("release of program %d with refcount %d", p.ID, p.refs)
	}
	p.refs--
	if p.refs > 0 {
		return false, nil
	}
	pl.remove(p.ID)
	return true, nil
}

func (pl *Pool) remove(id uint64) {
	i := pl.index[id]
	last := len(pl.progs) - 1
	if i != last {
		pl.progs[i] = pl.progs[last]
		pl.index[pl.progs[i].ID] = i
	}
	pl.progs[last] = nil
	pl.progs = pl.progs[:last]
	delete(pl.index, id)
}

// Sample returns a pooled program chosen uniformly at random.
func (pl *Pool) Sample(rng *rand.Rand) (*Program, bool) {
	if len(pl.progs) == 0 {
		return nil, false
	}
	return pl.progs[rng.Intn(len(pl.progs))], true
}

// Check verifies that every pooled program's refcount equals want[id] and
// that no program with a positive expected count is missing.
func (pl *Pool) Check(want map[uint64]int) error {
	for _, p := range pl.progs {
		if p.refs != want[p.ID] {
			return fmt.Errorf("program %d: refcount %d, %d slots reference it", p.ID, p.refs, want[p.ID])
		}
	}
	for id, n := range want {
		if _, ok := pl.index[id]; !ok && n > 0 {
			return fmt.Errorf("program %d referenced %d times but not pooled", id, n)
		}
	}
	return nil
}
