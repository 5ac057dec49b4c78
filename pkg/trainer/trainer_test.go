package trainer

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
	"github.com/wildfunctions/linear_gp/pkg/program"
	"github.com/wildfunctions/linear_gp/pkg/score"
)

func testParams(popSize int) Params {
	p := DefaultParams(2)
	p.PopSize = popSize
	p.Program = program.Config{
		MaxProgSize: 10,
		NumOutRegs:  2,
		NumMemRegs:  1,
		NumFgtRegs:  1,
		Format:      instruction.Format{Dest: 2, Src: 3},
	}
	return p
}

// scoreByID gives every unit an outcome equal to its id on each task.
func scoreByID(units []Unit, tasks ...string) []Result {
	results := make([]Result, len(units))
	for i, u := range units {
		out := map[string]float64{}
		for _, task := range tasks {
			out[task] = float64(u.ID)
		}
		results[i] = Result{ID: u.ID, Outcomes: out}
	}
	return results
}

func TestEvolve_PopFourGapHalf(t *testing.T) {
	tr, err := New(testParams(4), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	tasks := []string{"t"}
	if err := tr.ApplyScores(scoreByID(tr.Units(tasks, false), "t")); err != nil {
		t.Fatal(err)
	}

	if err := tr.Select(tasks, score.Max); err != nil {
		t.Fatal(err)
	}
	if tr.Size() != 2 {
		t.Fatalf("after select size = %d, want 2", tr.Size())
	}
	var kept []uint64
	for _, p := range tr.Programs() {
		kept = append(kept, p.ID)
	}
	if !reflect.DeepEqual(kept, []uint64{3, 2}) {
		t.Errorf("survivors = %v, want [3 2]", kept)
	}

	if err := tr.Generate(1); err != nil {
		t.Fatal(err)
	}
	if tr.Size() != 4 {
		t.Fatalf("after generate size = %d, want 4", tr.Size())
	}
	for _, p := range tr.Programs()[2:] {
		if p.GenCreated != 1 {
			t.Errorf("offspring %d tagged gen %d, want 1", p.ID, p.GenCreated)
		}
		if p.ID < 4 {
			t.Errorf("offspring reused id %d", p.ID)
		}
		if len(p.Outcomes) != 0 {
			t.Errorf("offspring %d inherited outcomes %v", p.ID, p.Outcomes)
		}
	}
}

func TestEvolve_SizeAndGeneration(t *testing.T) {
	params := testParams(10)
	params.Gap = 0.3
	params.Offspring = OffspringCrossover
	tr, err := New(params, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}
	tasks := []string{"a", "b"}
	obs := []float64{0.5, -1}
	for gen := 0; gen < 15; gen++ {
		var results []Result
		for _, u := range tr.Units(tasks, false) {
			act := u.Agent.Act(obs)
			results = append(results, Result{ID: u.ID, Outcomes: map[string]float64{"a": act[0], "b": -act[1]}})
		}
		if err := tr.ApplyScores(results); err != nil {
			t.Fatal(err)
		}
		if len(tr.Unevaluated(tasks)) != 0 {
			t.Fatal("entities left unevaluated after ApplyScores")
		}
		if _, err := tr.Evolve(tasks, score.Average); err != nil {
			t.Fatal(err)
		}
		if tr.Size() != 10 {
			t.Fatalf("gen %d: size %d", gen, tr.Size())
		}
		if got := len(tr.Unevaluated(tasks)); got != 3 {
			t.Errorf("gen %d: %d unevaluated, want 3 offspring", gen, got)
		}
	}
	if tr.Generation() != 15 {
		t.Errorf("generation = %d, want 15", tr.Generation())
	}
}

func TestSelect_MissingOutcomeFails(t *testing.T) {
	tr, err := New(testParams(4), rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatal(err)
	}
	units := tr.Units(nil, true)
	if err := tr.ApplyScores(scoreByID(units[:3], "t")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Select([]string{"t"}, score.Max); !errors.Is(err, score.ErrMissingOutcome) {
		t.Errorf("err = %v, want ErrMissingOutcome", err)
	}
	if tr.Size() != 4 {
		t.Errorf("failed select changed population size to %d", tr.Size())
	}
}

func TestApplyScores_UnknownID(t *testing.T) {
	tr, err := New(testParams(2), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	err = tr.ApplyScores([]Result{
		{ID: 0, Outcomes: map[string]float64{"t": 1}},
		{ID: 99, Outcomes: map[string]float64{"t": 2}},
	})
	if !errors.Is(err, ErrUnknownID) {
		t.Fatalf("err = %v, want ErrUnknownID", err)
	}
	if got, _ := tr.Programs()[0].Outcome("t"); got != 1 {
		t.Errorf("known id not merged: %v", got)
	}
}

func TestSelect_Pareto(t *testing.T) {
	tr, err := New(testParams(3), rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatal(err)
	}
	scores := map[uint64][2]float64{0: {1, 2}, 1: {3, 3}, 2: {2, 1}}
	var results []Result
	for id, s := range scores {
		results = append(results, Result{ID: id, Outcomes: map[string]float64{"x": s[0], "y": s[1]}})
	}
	if err := tr.ApplyScores(results); err != nil {
		t.Fatal(err)
	}
	ranked, err := tr.Agents([]string{"x", "y"}, score.ParetoDominate)
	if err != nil {
		t.Fatal(err)
	}
	if ranked[0].ID != 1 {
		t.Errorf("pareto best = %d, want 1", ranked[0].ID)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero pop", func(p *Params) { p.PopSize = 0 }},
		{"gap one", func(p *Params) { p.Gap = 1 }},
		{"negative gap", func(p *Params) { p.Gap = -0.1 }},
		{"bad offspring", func(p *Params) { p.Offspring = 7 }},
		{"bad program", func(p *Params) { p.Program.NumOutRegs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(4)
			tt.modify(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}

	p := testParams(4)
	p.TeamSize = 1
	p.Team.Mutate = 0
	if err := p.ValidateTeam(); err == nil {
		t.Error("single-member team without mutate rate should be rejected")
	}
}

func TestKeep(t *testing.T) {
	for _, tt := range []struct {
		pop  int
		gap  float64
		want int
	}{
		{4, 0.5, 2},
		{200, 0.5, 100},
		{10, 0.33, 7},
		{5, 0, 5},
	} {
		p := Params{PopSize: tt.pop, Gap: tt.gap}
		if got := p.Keep(); got != tt.want {
			t.Errorf("Keep(%d, %v) = %d, want %d", tt.pop, tt.gap, got, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	tr, err := New(testParams(4), rand.New(rand.NewSource(6)))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.ApplyScores(scoreByID(tr.Units(nil, true), "t")); err != nil {
		t.Fatal(err)
	}
	s, err := tr.Stats("t")
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Task: "t", Count: 4, Min: 0, Max: 3, Average: 1.5}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}
}

func TestState_RoundTrip(t *testing.T) {
	tr, err := New(testParams(6), rand.New(rand.NewSource(8)))
	if err != nil {
		t.Fatal(err)
	}
	tasks := []string{"t"}
	for i := 0; i < 3; i++ {
		if err := tr.ApplyScores(scoreByID(tr.Units(tasks, false), "t")); err != nil {
			t.Fatal(err)
		}
		if _, err := tr.Evolve(tasks, score.Max); err != nil {
			t.Fatal(err)
		}
	}

	st := tr.Export()
	got, err := Restore(st, rand.New(rand.NewSource(8)))
	if err != nil {
		t.Fatal(err)
	}
	if got.Generation() != tr.Generation() || got.Size() != tr.Size() {
		t.Fatalf("restored gen %d size %d", got.Generation(), got.Size())
	}
	if !reflect.DeepEqual(got.Export(), st) {
		t.Error("restored state differs from exported state")
	}

	if _, err := RestoreTeam(st, rand.New(rand.NewSource(1))); err == nil {
		t.Error("program state restored as team state")
	}
}
