package program

import (
	"errors"
	"fmt"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
)

// ErrSize is returned when an instruction list length is outside
// [1, MaxProgSize].
var ErrSize = errors.New("program size out of range")

// Config holds the parameters shared by every program in a run. Build it once
// and pass it by pointer; it is never modified after construction.
type Config struct {
	MaxProgSize int
	NumOutRegs  int // read externally as the action
	NumMemRegs  int // persist across calls until ClearRegisters
	NumFgtRegs  int // zeroed before every call
	Format      instruction.Format
}

// DefaultConfig returns the register layout used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		MaxProgSize: 128,
		NumOutRegs:  8,
		NumMemRegs:  8,
		NumFgtRegs:  8,
		Format:      instruction.Format{Dest: 5, Src: 23},
	}
}

// Validate checks sizes and instruction widths.
func (c *Config) Validate() error {
	if c.MaxProgSize < 1 {
		return fmt.Errorf("max program size must be >= 1, got %d", c.MaxProgSize)
	}
	if c.NumOutRegs < 1 {
		return fmt.Errorf("need at least one output register, got %d", c.NumOutRegs)
	}
	if c.NumMemRegs < 0 || c.NumFgtRegs < 0 {
		return fmt.Errorf("register counts must be non-negative (mem %d, fgt %d)", c.NumMemRegs, c.NumFgtRegs)
	}
	return c.Format.Validate()
}

// NumRegs returns the size of the register file.
func (c *Config) NumRegs() int {
	return c.NumOutRegs + c.NumMemRegs + c.NumFgtRegs
}

// forgetStart is the index of the first forget register.
func (c *Config) forgetStart() int {
	return c.NumOutRegs + c.NumMemRegs
}

// Rates holds per-operator instruction mutation probabilities.
type Rates struct {
	Add  float64 `toml:"add" cbor:"add" json:"add"`
	Del  float64 `toml:"del" cbor:"del" json:"del"`
	Swap float64 `toml:"swap" cbor:"swap" json:"swap"`
	Mut  float64 `toml:"mut" cbor:"mut" json:"mut"`
}

// DefaultRates returns the instruction-level mutation probabilities.
func DefaultRates() Rates {
	return Rates{Add: 0.08, Del: 0.06, Swap: 0.05, Mut: 0.05}
}

// Validate checks that every probability is in [0, 1].
func (r Rates) Validate() error {
	for name, p := range map[string]float64{"add": r.Add, "del": r.Del, "swap": r.Swap, "mut": r.Mut} {
		if p < 0 || p > 1 {
			return fmt.Errorf("instruction %s rate %v not in [0, 1]", name, p)
		}
	}
	return nil
}
