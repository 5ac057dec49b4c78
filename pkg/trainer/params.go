package trainer

import (
	"fmt"
	"math"

	"github.com/wildfunctions/linear_gp/pkg/program"
	"github.com/wildfunctions/linear_gp/pkg/team"
)

// Offspring selects how a single-program population produces children.
type Offspring int

const (
	OffspringClone     Offspring = iota // clone one parent, then mutate
	OffspringCrossover                  // cut-point crossover of two parents, then mutate
)

var offspringNames = []string{"clone", "crossover"}

func (o Offspring) String() string {
	if int(o) >= 0 && int(o) < len(offspringNames) {
		return offspringNames[o]
	}
	return fmt.Sprintf("Offspring(%d)", int(o))
}

// ParseOffspring returns the offspring mode with the given name.
func ParseOffspring(name string) (Offspring, error) {
	for i, n := range offspringNames {
		if n == name {
			return Offspring(i), nil
		}
	}
	return 0, fmt.Errorf("unknown offspring mode: %s (available: %v)", name, offspringNames)
}

// OffspringNames returns the offspring mode names.
func OffspringNames() []string {
	return append([]string(nil), offspringNames...)
}

// Params holds the hyperparameters of a population. A trainer copies them at
// construction and never changes them.
type Params struct {
	PopSize     int
	Gap         float64 // fraction of the population discarded by Select
	Program     program.Config
	Instruction program.Rates
	Offspring   Offspring

	TeamSize int // members per team, team mode only
	Team     team.Rates
}

// DefaultParams returns the defaults for a team population of numActions
// members per team.
func DefaultParams(numActions int) Params {
	cfg := program.DefaultConfig()
	cfg.NumOutRegs = 1
	cfg.NumMemRegs = 0
	cfg.NumFgtRegs = 0
	return Params{
		PopSize:     200,
		Gap:         0.5,
		Program:     cfg,
		Instruction: program.DefaultRates(),
		Offspring:   OffspringClone,
		TeamSize:    numActions,
		Team:        team.DefaultRates(),
	}
}

// Keep returns how many entities survive Select.
func (p *Params) Keep() int {
	return p.PopSize - int(math.Floor(float64(p.PopSize)*p.Gap))
}

// Validate checks the parameters for a single-program population.
func (p *Params) Validate() error {
	if p.PopSize < 1 {
		return fmt.Errorf("population size must be >= 1, got %d", p.PopSize)
	}
	if p.Gap < 0 || p.Gap >= 1 {
		return fmt.Errorf("gap %v not in [0, 1)", p.Gap)
	}
	if k := p.Keep(); k < 1 || k > p.PopSize {
		return fmt.Errorf("gap %v keeps %d of %d", p.Gap, k, p.PopSize)
	}
	if p.Offspring != OffspringClone && p.Offspring != OffspringCrossover {
		return fmt.Errorf("unknown offspring mode %d", int(p.Offspring))
	}
	if err := p.Program.Validate(); err != nil {
		return err
	}
	return p.Instruction.Validate()
}

// ValidateTeam checks the parameters for a team population.
func (p *Params) ValidateTeam() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.TeamSize < 1 {
		return fmt.Errorf("team size must be >= 1, got %d", p.TeamSize)
	}
	if err := p.Team.Validate(); err != nil {
		return err
	}
	if !p.Team.CanChange(p.TeamSize) {
		return fmt.Errorf("team rates %+v can never change a team of %d", p.Team, p.TeamSize)
	}
	return nil
}
