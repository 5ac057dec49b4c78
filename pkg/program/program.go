package program

import (
	"fmt"
	"math/rand"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
	"github.com/wildfunctions/linear_gp/pkg/score"
)

// Program is a linear sequence of instructions plus the register file it runs
// against.
type Program struct {
	ID         uint64
	GenCreated int
	Outcomes   score.Outcomes

	cfg       *Config
	words     []instruction.Word
	decoded   []instruction.Fields // always in sync with words
	registers []float64
	refs      int

	fitness    float64
	hasFitness bool
}

// New returns a program of size random instructions.
func New(cfg *Config, id uint64, size, gen int, rng *rand.Rand) (*Program, error) {
	if size < 1 || size > cfg.MaxProgSize {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrSize, size, cfg.MaxProgSize)
	}
	words := make([]instruction.Word, size)
	for i := range words {
		words[i] = cfg.Format.Random(rng)
	}
	return build(cfg, id, words, gen), nil
}

// NewRandomSize returns a random program whose length is uniform in
// [1, MaxProgSize].
func NewRandomSize(cfg *Config, id uint64, gen int, rng *rand.Rand) *Program {
	p, _ := New(cfg, id, 1+rng.Intn(cfg.MaxProgSize), gen, rng)
	return p
}

// FromWords builds a program from existing instruction words. The length and
// every word's width are checked.
func FromWords(cfg *Config, id uint64, words []instruction.Word, gen int) (*Program, error) {
	if len(words) < 1 || len(words) > cfg.MaxProgSize {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrSize, len(words), cfg.MaxProgSize)
	}
	for i, w := range words {
		if !cfg.Format.Fits(w) {
			return nil, fmt.Errorf("instruction %d: %w: %#x wider than %d bits",
				i, instruction.ErrFieldOverflow, uint64(w), cfg.Format.Bits())
		}
	}
	return build(cfg, id, append([]instruction.Word(nil), words...), gen), nil
}

func build(cfg *Config, id uint64, words []instruction.Word, gen int) *Program {
	p := &Program{
		ID:         id,
		GenCreated: gen,
		Outcomes:   score.Outcomes{},
		cfg:        cfg,
		words:      words,
		registers:  make([]float64, cfg.NumRegs()),
	}
	p.decode()
	return p
}

// Clone returns a copy of p's instructions under a new id, with zeroed
// registers, no outcomes and no references.
func (p *Program) Clone(id uint64, gen int) *Program {
	return build(p.cfg, id, append([]instruction.Word(nil), p.words...), gen)
}

// decode rebuilds the decoded instruction cache.
func (p *Program) decode() {
	if cap(p.decoded) < len(p.words) {
		p.decoded = make([]instruction.Fields, len(p.words))
	}
	p.decoded = p.decoded[:len(p.words)]
	for i, w := range p.words {
		p.decoded[i] = p.cfg.Format.Decode(w)
	}
}

// Config returns the shared configuration p was built with.
func (p *Program) Config() *Config { return p.cfg }

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.words) }

// Words returns a copy of the instruction words.
func (p *Program) Words() []instruction.Word {
	return append([]instruction.Word(nil), p.words...)
}

// Instructions returns a copy of the decoded instructions.
func (p *Program) Instructions() []instruction.Fields {
	return append([]instruction.Fields(nil), p.decoded...)
}

// Refs returns how many team slots currently hold p.
func (p *Program) Refs() int { return p.refs }

// Registers returns a copy of the register file.
func (p *Program) Registers() []float64 {
	return append([]float64(nil), p.registers...)
}

// NewRegisters returns a zeroed register file sized for p.
func (p *Program) NewRegisters() []float64 {
	return make([]float64, p.cfg.NumRegs())
}

// ClearRegisters zeroes every register.
func (p *Program) ClearRegisters() {
	clear(p.registers)
}

// Outputs runs p once against obs on its own register file and returns a copy
// of the output registers.
func (p *Program) Outputs(obs []float64) []float64 {
	p.Exec(p.registers, obs)
	return append([]float64(nil), p.registers[:p.cfg.NumOutRegs]...)
}

// Act is Outputs; it lets a program serve directly as an evaluation agent.
func (p *Program) Act(obs []float64) []float64 {
	return p.Outputs(obs)
}

// Action runs p once and returns the index of the largest output register.
func (p *Program) Action(obs []float64) int {
	p.Exec(p.registers, obs)
	return argmax(p.registers[:p.cfg.NumOutRegs])
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Reward records or overwrites the outcome for task.
func (p *Program) Reward(task string, s float64) {
	p.Outcomes[task] = s
}

// Outcome returns the recorded outcome for task.
func (p *Program) Outcome(task string) (float64, error) {
	return p.Outcomes.Get(task)
}

// Score returns p's scalar rank key over tasks.
func (p *Program) Score(tasks []string, agg score.Aggregation, ranges score.Ranges) (float64, error) {
	return p.Outcomes.Score(tasks, agg, ranges)
}

// Vector returns p's normalized outcome vector over tasks.
func (p *Program) Vector(tasks []string, ranges score.Ranges) ([]float64, error) {
	return p.Outcomes.Vector(tasks, ranges)
}

// SetFitness caches a fitness value.
func (p *Program) SetFitness(f float64) {
	p.fitness, p.hasFitness = f, true
}

// Fitness returns the cached fitness, if any.
func (p *Program) Fitness() (float64, bool) {
	return p.fitness, p.hasFitness
}
