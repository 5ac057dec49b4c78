package program

import (
	"fmt"
	"strings"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
)

// String returns a human-readable listing, one instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "program %d (gen %d, %d instructions)\n", p.ID, p.GenCreated, len(p.decoded))
	for i, in := range p.decoded {
		fmt.Fprintf(&b, "%4d  %s\n", i, p.formatInstruction(in))
	}
	return b.String()
}

func (p *Program) formatInstruction(in instruction.Fields) string {
	n := p.cfg.NumRegs()
	d := fmt.Sprintf("r[%d]", int(in.Dest)%n)
	var y string
	if in.Mode == instruction.ModeInput {
		y = fmt.Sprintf("in[%d]", in.Src)
	} else {
		y = fmt.Sprintf("r[%d]", int(in.Src)%n)
	}

	switch in.Op {
	case instruction.OpAdd:
		return fmt.Sprintf("%s = %s + %s", d, d, y)
	case instruction.OpSub:
		return fmt.Sprintf("%s = %s - %s", d, d, y)
	case instruction.OpMul:
		return fmt.Sprintf("%s = %s * %s", d, d, y)
	case instruction.OpDiv:
		return fmt.Sprintf("%s = %s / %s", d, d, y)
	case instruction.OpCos:
		return fmt.Sprintf("%s = cos(%s)", d, y)
	case instruction.OpLn:
		return fmt.Sprintf("%s = ln(%s)", d, y)
	case instruction.OpExp:
		return fmt.Sprintf("%s = exp(%s)", d, y)
	case instruction.OpCondNeg:
		return fmt.Sprintf("if %s < %s: %s = -%s", d, y, d, d)
	}
	return fmt.Sprintf("%s ?= %s", d, y)
}

// Effective returns the indices of instructions that can influence the output
// or memory registers, found by a backward liveness pass. Memory registers
// count as live at the end because they carry over into the next call.
func (p *Program) Effective() []int {
	n := p.cfg.NumRegs()
	live := make([]bool, n)
	for i := 0; i < p.cfg.forgetStart(); i++ {
		live[i] = true
	}

	var eff []int
	for i := len(p.decoded) - 1; i >= 0; i-- {
		in := p.decoded[i]
		d := int(in.Dest) % n
		if !live[d] {
			continue
		}
		eff = append(eff, i)

		// cos and exp always overwrite without reading the destination.
		if in.Op == instruction.OpCos || in.Op == instruction.OpExp {
			live[d] = false
		}
		if in.Mode == instruction.ModeRegister {
			live[int(in.Src)%n] = true
		}
	}

	for l, r := 0, len(eff)-1; l < r; l, r = l+1, r-1 {
		eff[l], eff[r] = eff[r], eff[l]
	}
	return eff
}
