package team

import "github.com/wildfunctions/linear_gp/pkg/program"

// Session evaluates a team against private copies of its members' register
// files, so teams that share programs can be evaluated concurrently. Slots
// holding the same program share one register file, as they do in Actions.
type Session struct {
	members []*program.Program
	regs    [][]float64
}

// Session returns a new evaluation session seeded from the members' current
// registers.
func (t *Team) Session() *Session {
	s := &Session{
		members: append([]*program.Program(nil), t.members...),
		regs:    make([][]float64, len(t.members)),
	}
	seen := make(map[uint64][]float64, len(t.members))
	for i, m := range t.members {
		r, ok := seen[m.ID]
		if !ok {
			r = m.Registers()
			seen[m.ID] = r
		}
		s.regs[i] = r
	}
	return s
}

// Act runs every member on obs and returns each member's first output
// register, in slot order.
func (s *Session) Act(obs []float64) []float64 {
	out := make([]float64, len(s.members))
	for i, m := range s.members {
		m.Exec(s.regs[i], obs)
		out[i] = s.regs[i][0]
	}
	return out
}

// ClearRegisters zeroes the session's register files.
func (s *Session) ClearRegisters() {
	for _, r := range s.regs {
		clear(r)
	}
}
