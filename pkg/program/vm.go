package program

import (
	"math"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
)

// Exec zeroes the forget registers of regs and then runs every instruction in
// order against regs and obs. regs must have NumRegs entries. Numeric faults
// never abort execution: guarded operations are skipped and every written
// register is clamped to a finite value.
func (p *Program) Exec(regs []float64, obs []float64) {
	clear(regs[p.cfg.forgetStart():])

	n := len(regs)
	for _, in := range p.decoded {
		var y float64
		if in.Mode == instruction.ModeInput {
			if len(obs) > 0 {
				y = obs[int(in.Src)%len(obs)]
			}
		} else {
			y = regs[int(in.Src)%n]
		}

		d := int(in.Dest) % n
		x := regs[d]

		r, ok := apply(in.Op, x, y)
		if !ok {
			continue
		}
		regs[d] = clamp(r)
	}
}

// apply computes one operation. ok is false when the operation is a no-op
// for these operands.
func apply(op instruction.Op, x, y float64) (float64, bool) {
	switch op {
	case instruction.OpAdd:
		return x + y, true
	case instruction.OpSub:
		return x - y, true
	case instruction.OpMul:
		return x * y, true
	case instruction.OpDiv:
		if y == 0 {
			return 0, false
		}
		return x / y, true
	case instruction.OpCos:
		return math.Cos(y), true
	case instruction.OpLn:
		if y <= 0 {
			return 0, false
		}
		return math.Log(y), true
	case instruction.OpExp:
		return math.Exp(y), true
	case instruction.OpCondNeg:
		if x < y {
			return -x, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// clamp maps NaN to 0 and infinities to the largest finite magnitudes.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}
