package program

import (
	"math/rand"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
)

// MutationType identifies an instruction-level mutation operator.
type MutationType int

const (
	MutAdd  MutationType = iota // insert a random instruction
	MutDel                      // remove a random instruction
	MutSwap                     // exchange two instructions
	MutFlip                     // flip one bit of one instruction
)

// Mutate gives each operator one chance to fire with its own probability, in
// the order add, delete, swap, flip. The length stays in [1, MaxProgSize].
// It reports whether anything changed.
func (p *Program) Mutate(r Rates, rng *rand.Rand) bool {
	changed := false
	if rng.Float64() < r.Add && p.mutate(MutAdd, rng) {
		changed = true
	}
	if rng.Float64() < r.Del && p.mutate(MutDel, rng) {
		changed = true
	}
	if rng.Float64() < r.Swap && p.mutate(MutSwap, rng) {
		changed = true
	}
	if rng.Float64() < r.Mut && p.mutate(MutFlip, rng) {
		changed = true
	}
	if changed {
		p.decode()
	}
	return changed
}

// mutate applies one operator if the program's shape allows it.
func (p *Program) mutate(m MutationType, rng *rand.Rand) bool {
	n := len(p.words)
	switch m {
	case MutAdd:
		if n >= p.cfg.MaxProgSize {
			return false
		}
		at := rng.Intn(n + 1)
		p.words = append(p.words, 0)
		copy(p.words[at+1:], p.words[at:])
		p.words[at] = p.cfg.Format.Random(rng)
		return true

	case MutDel:
		if n <= 1 {
			return false
		}
		at := rng.Intn(n)
		p.words = append(p.words[:at], p.words[at+1:]...)
		return true

	case MutSwap:
		if n < 2 {
			return false
		}
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		p.words[i], p.words[j] = p.words[j], p.words[i]
		return true

	case MutFlip:
		at := rng.Intn(n)
		w, err := p.cfg.Format.FlipBit(p.words[at], uint(rng.Intn(int(p.cfg.Format.Bits()))))
		if err != nil {
			return false
		}
		p.words[at] = w
		return true
	}
	return false
}

// Crossover returns a child made of a's instructions before a random cut
// point followed by b's instructions from the cut onwards. The cut is drawn
// from [0, min(len(a), len(b))), so the child is never empty and never longer
// than b.
func Crossover(a, b *Program, id uint64, gen int, rng *rand.Rand) *Program {
	limit := min(a.Len(), b.Len())
	cut := rng.Intn(limit)
	words := make([]instruction.Word, 0, cut+b.Len()-cut)
	words = append(words, a.words[:cut]...)
	words = append(words, b.words[cut:]...)
	return build(a.cfg, id, words, gen)
}
