package trainer

import (
	"fmt"
	"math/rand"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
	"github.com/wildfunctions/linear_gp/pkg/program"
	"github.com/wildfunctions/linear_gp/pkg/score"
	"github.com/wildfunctions/linear_gp/pkg/team"
)

// Population modes recorded in a State.
const (
	ModeProgram = "program"
	ModeTeam    = "team"
)

// State is everything needed to resume a population: hyperparameters, id
// counters, the generation counter and every live entity.
type State struct {
	Mode          string         `cbor:"1,keyasint" json:"mode"`
	Params        Params         `cbor:"2,keyasint" json:"params"`
	Generation    int            `cbor:"3,keyasint" json:"generation"`
	NextProgramID uint64         `cbor:"4,keyasint" json:"next_program_id"`
	NextTeamID    uint64         `cbor:"5,keyasint" json:"next_team_id"`
	Programs      []ProgramState `cbor:"6,keyasint" json:"programs"`
	Teams         []TeamState    `cbor:"7,keyasint,omitempty" json:"teams,omitempty"`
}

// ProgramState is one program's persistent form.
type ProgramState struct {
	ID         uint64             `cbor:"1,keyasint" json:"id"`
	Words      []uint64           `cbor:"2,keyasint" json:"words"`
	Outcomes   map[string]float64 `cbor:"3,keyasint,omitempty" json:"outcomes,omitempty"`
	GenCreated int                `cbor:"4,keyasint" json:"gen_created"`
	Refs       int                `cbor:"5,keyasint" json:"refs"`
}

// TeamState is one team's persistent form; members are program ids in slot
// order.
type TeamState struct {
	ID         uint64             `cbor:"1,keyasint" json:"id"`
	Members    []uint64           `cbor:"2,keyasint" json:"members"`
	Outcomes   map[string]float64 `cbor:"3,keyasint,omitempty" json:"outcomes,omitempty"`
	GenCreated int                `cbor:"4,keyasint" json:"gen_created"`
}

func exportProgram(p *program.Program) ProgramState {
	words := p.Words()
	ws := make([]uint64, len(words))
	for i, w := range words {
		ws[i] = uint64(w)
	}
	return ProgramState{
		ID:         p.ID,
		Words:      ws,
		Outcomes:   exportOutcomes(p.Outcomes),
		GenCreated: p.GenCreated,
		Refs:       p.Refs(),
	}
}

// exportOutcomes returns nil for no outcomes so that empty and absent encode
// the same way.
func exportOutcomes(o score.Outcomes) map[string]float64 {
	if len(o) == 0 {
		return nil
	}
	return o.Clone()
}

func restoreProgram(cfg *program.Config, ps ProgramState) (*program.Program, error) {
	words := make([]instruction.Word, len(ps.Words))
	for i, w := range ps.Words {
		words[i] = instruction.Word(w)
	}
	p, err := program.FromWords(cfg, ps.ID, words, ps.GenCreated)
	if err != nil {
		return nil, fmt.Errorf("program %d: %w", ps.ID, err)
	}
	if ps.Outcomes != nil {
		p.Outcomes = score.Outcomes(ps.Outcomes).Clone()
	}
	return p, nil
}

// Export captures the trainer's population.
func (t *Trainer) Export() State {
	s := State{
		Mode:          ModeProgram,
		Params:        t.params,
		Generation:    t.generation,
		NextProgramID: t.ids.Peek(),
	}
	for _, p := range t.programs {
		s.Programs = append(s.Programs, exportProgram(p))
	}
	return s
}

// Restore rebuilds a single-program trainer from s. Randomness after the
// restore comes from rng.
func Restore(s State, rng *rand.Rand) (*Trainer, error) {
	if s.Mode != ModeProgram {
		return nil, fmt.Errorf("restore: state mode %q, want %q", s.Mode, ModeProgram)
	}
	if err := s.Params.Validate(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	t := &Trainer{
		params:     s.Params,
		rng:        rng,
		ids:        program.NewCounter(s.NextProgramID),
		generation: s.Generation,
	}
	for _, ps := range s.Programs {
		if ps.ID >= s.NextProgramID {
			return nil, fmt.Errorf("restore: program id %d not below counter %d", ps.ID, s.NextProgramID)
		}
		p, err := restoreProgram(&t.params.Program, ps)
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		t.programs = append(t.programs, p)
	}
	if len(t.programs) == 0 {
		return nil, fmt.Errorf("restore: empty population")
	}
	return t, nil
}

// Export captures the team trainer's teams and its program pool.
func (t *TeamTrainer) Export() State {
	s := State{
		Mode:          ModeTeam,
		Params:        t.params,
		Generation:    t.generation,
		NextProgramID: t.progIDs.Peek(),
		NextTeamID:    t.teamIDs.Peek(),
	}
	for _, p := range t.pool.Programs() {
		s.Programs = append(s.Programs, exportProgram(p))
	}
	for _, tm := range t.teams {
		ts := TeamState{ID: tm.ID, Outcomes: exportOutcomes(tm.Outcomes), GenCreated: tm.GenCreated}
		for _, m := range tm.Members() {
			ts.Members = append(ts.Members, m.ID)
		}
		s.Teams = append(s.Teams, ts)
	}
	return s
}

// RestoreTeam rebuilds a team trainer from s. Refcounts are recomputed from
// team membership and must match the stored ones.
func RestoreTeam(s State, rng *rand.Rand) (*TeamTrainer, error) {
	if s.Mode != ModeTeam {
		return nil, fmt.Errorf("restore: state mode %q, want %q", s.Mode, ModeTeam)
	}
	if err := s.Params.ValidateTeam(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	t := &TeamTrainer{
		params:     s.Params,
		rng:        rng,
		progIDs:    program.NewCounter(s.NextProgramID),
		teamIDs:    program.NewCounter(s.NextTeamID),
		generation: s.Generation,
		pool:       program.NewPool(),
	}

	byID := make(map[uint64]*program.Program, len(s.Programs))
	stored := make(map[uint64]int, len(s.Programs))
	for _, ps := range s.Programs {
		if ps.ID >= s.NextProgramID {
			return nil, fmt.Errorf("restore: program id %d not below counter %d", ps.ID, s.NextProgramID)
		}
		p, err := restoreProgram(&t.params.Program, ps)
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		byID[ps.ID] = p
		stored[ps.ID] = ps.Refs
	}

	for _, ts := range s.Teams {
		if ts.ID >= s.NextTeamID {
			return nil, fmt.Errorf("restore: team id %d not below counter %d", ts.ID, s.NextTeamID)
		}
		members := make([]*program.Program, len(ts.Members))
		for i, id := range ts.Members {
			p, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("restore: team %d references unknown program %d", ts.ID, id)
			}
			members[i] = p
		}
		tm, err := team.New(ts.ID, ts.GenCreated, members, t.pool)
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		if ts.Outcomes != nil {
			tm.Outcomes = score.Outcomes(ts.Outcomes).Clone()
		}
		t.teams = append(t.teams, tm)
	}
	if len(t.teams) == 0 {
		return nil, fmt.Errorf("restore: empty population")
	}
	if t.pool.Len() != len(byID) {
		return nil, fmt.Errorf("restore: %d programs stored, %d referenced by teams", len(byID), t.pool.Len())
	}
	if err := t.pool.Check(stored); err != nil {
		return nil, fmt.Errorf("restore: stored refcounts disagree: %w", err)
	}
	return t, nil
}
