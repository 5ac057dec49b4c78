package program

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
	"github.com/wildfunctions/linear_gp/pkg/score"
)

func testConfig() *Config {
	return &Config{
		MaxProgSize: 16,
		NumOutRegs:  2,
		NumMemRegs:  2,
		NumFgtRegs:  2,
		Format:      instruction.Format{Dest: 3, Src: 4},
	}
}

func mustWord(t *testing.T, cfg *Config, mode uint8, op instruction.Op, dest, src uint32) instruction.Word {
	t.Helper()
	w, err := cfg.Format.Encode(instruction.Fields{Mode: mode, Op: op, Dest: dest, Src: src})
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func mustProgram(t *testing.T, cfg *Config, words ...instruction.Word) *Program {
	t.Helper()
	p, err := FromWords(cfg, 1, words, 0)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExec_AddFromInputThenDivByZero(t *testing.T) {
	cfg := testConfig()
	p := mustProgram(t, cfg,
		mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 0, 0),
	)
	out := p.Outputs([]float64{5})
	if out[0] != 5 {
		t.Fatalf("r[0] = %v, want 5", out[0])
	}

	// r[0] / r[1] with r[1] == 0 must leave r[0] alone.
	p = mustProgram(t, cfg,
		mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 0, 0),
		mustWord(t, cfg, instruction.ModeRegister, instruction.OpDiv, 0, 1),
	)
	out = p.Outputs([]float64{5})
	if out[0] != 5 {
		t.Errorf("after div by zero r[0] = %v, want 5", out[0])
	}
}

func TestExec_Operations(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		name string
		op   instruction.Op
		x, y float64
		want float64
	}{
		{"add", instruction.OpAdd, 2, 3, 5},
		{"sub", instruction.OpSub, 2, 3, -1},
		{"mul", instruction.OpMul, 2, 3, 6},
		{"div", instruction.OpDiv, 3, 2, 1.5},
		{"cos", instruction.OpCos, 9, 0, 1},
		{"ln", instruction.OpLn, 9, math.E, 1},
		{"ln non-positive", instruction.OpLn, 9, -1, 9},
		{"ln zero", instruction.OpLn, 9, 0, 9},
		{"exp", instruction.OpExp, 9, 0, 1},
		{"neg when less", instruction.OpCondNeg, 2, 3, -2},
		{"neg skipped", instruction.OpCondNeg, 3, 2, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// r[0] = x via input 0, then r[0] = op(r[0], in[1]).
			p := mustProgram(t, cfg,
				mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 0, 0),
				mustWord(t, cfg, instruction.ModeInput, tc.op, 0, 1),
			)
			got := p.Outputs([]float64{tc.x, tc.y})[0]
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("%s(%v, %v) = %v, want %v", tc.op, tc.x, tc.y, got, tc.want)
			}
		})
	}
}

func TestExec_Clamp(t *testing.T) {
	cfg := testConfig()
	p := mustProgram(t, cfg,
		mustWord(t, cfg, instruction.ModeInput, instruction.OpExp, 0, 0),    // exp(1000) = +Inf
		mustWord(t, cfg, instruction.ModeInput, instruction.OpSub, 1, 1),    // 0 - 1e308
		mustWord(t, cfg, instruction.ModeInput, instruction.OpSub, 1, 1),    // -1e308 - 1e308 = -Inf
		mustWord(t, cfg, instruction.ModeRegister, instruction.OpMul, 0, 0), // Max * Max = +Inf
	)
	out := p.Outputs([]float64{1000, 1e308})
	if out[0] != math.MaxFloat64 {
		t.Errorf("r[0] = %v, want MaxFloat64", out[0])
	}
	if out[1] != -math.MaxFloat64 {
		t.Errorf("r[1] = %v, want -MaxFloat64", out[1])
	}

	p = mustProgram(t, cfg, mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 0, 0))
	if got := p.Outputs([]float64{math.NaN()})[0]; got != 0 {
		t.Errorf("NaN result = %v, want 0", got)
	}
}

func TestExec_AlwaysFinite(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(42))
	obsValues := []float64{0, -0, 1, -1, 1e-300, 1e300, -1e300, math.MaxFloat64, -math.MaxFloat64, 709.8}

	for i := 0; i < 500; i++ {
		p := NewRandomSize(cfg, uint64(i), 0, rng)
		for call := 0; call < 5; call++ {
			obs := make([]float64, 1+rng.Intn(4))
			for j := range obs {
				obs[j] = obsValues[rng.Intn(len(obsValues))] * (rng.Float64()*2 - 1)
			}
			p.Outputs(obs)
			for k, r := range p.Registers() {
				if math.IsNaN(r) || math.IsInf(r, 0) {
					t.Fatalf("program %d call %d: register %d = %v\n%s", i, call, k, r, p)
				}
			}
		}
	}
}

func TestExec_EmptyObservationReadsZero(t *testing.T) {
	cfg := testConfig()
	p := mustProgram(t, cfg,
		mustWord(t, cfg, instruction.ModeInput, instruction.OpExp, 0, 3),
	)
	if got := p.Outputs(nil)[0]; got != 1 {
		t.Errorf("exp(empty input) = %v, want 1", got)
	}
}

func TestRegisters_ForgetZeroedMemoryPersists(t *testing.T) {
	cfg := testConfig() // out 0-1, mem 2-3, fgt 4-5
	p := mustProgram(t, cfg,
		mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 4, 0),
		mustWord(t, cfg, instruction.ModeRegister, instruction.OpAdd, 0, 4),
		mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 2, 0),
	)
	p.Outputs([]float64{1})
	out := p.Outputs([]float64{1})
	if !reflect.DeepEqual(out, []float64{2, 0}) {
		t.Errorf("outputs = %v, want [2 0]", out)
	}
	regs := p.Registers()
	if regs[4] != 1 {
		t.Errorf("forget register = %v, want 1 (zeroed before each call)", regs[4])
	}
	if regs[2] != 2 {
		t.Errorf("memory register = %v, want 2", regs[2])
	}

	p.ClearRegisters()
	for i, r := range p.Registers() {
		if r != 0 {
			t.Errorf("register %d = %v after ClearRegisters", i, r)
		}
	}
}

func TestAction_Argmax(t *testing.T) {
	cfg := testConfig()
	p := mustProgram(t, cfg, mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 1, 0))
	if got := p.Action([]float64{3}); got != 1 {
		t.Errorf("Action = %d, want 1", got)
	}
	if got := p.Action([]float64{-10}); got != 0 {
		t.Errorf("Action = %d, want 0", got)
	}
}

func TestMutate_SizeInvariantAndCache(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(42))
	all := Rates{Add: 1, Del: 1, Swap: 1, Mut: 1}
	grow := Rates{Add: 1}
	shrink := Rates{Del: 1}

	p := NewRandomSize(cfg, 1, 0, rng)
	for i := 0; i < 3000; i++ {
		r := all
		switch i % 3 {
		case 1:
			r = grow
		case 2:
			r = shrink
		}
		p.Mutate(r, rng)
		if p.Len() < 1 || p.Len() > cfg.MaxProgSize {
			t.Fatalf("iteration %d: length %d outside [1, %d]", i, p.Len(), cfg.MaxProgSize)
		}
		for j, w := range p.Words() {
			if !cfg.Format.Fits(w) {
				t.Fatalf("iteration %d: word %d too wide", i, j)
			}
			if cfg.Format.Decode(w) != p.decoded[j] {
				t.Fatalf("iteration %d: decoded cache out of sync at %d", i, j)
			}
		}
		if len(p.decoded) != p.Len() {
			t.Fatalf("iteration %d: decoded length %d, words %d", i, len(p.decoded), p.Len())
		}
	}
}

func TestMutate_Boundaries(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(1))

	single := mustProgram(t, cfg, mustWord(t, cfg, 0, instruction.OpAdd, 0, 0))
	if single.Mutate(Rates{Del: 1, Swap: 1}, rng) {
		t.Error("delete/swap should not fire on a single instruction")
	}

	full := NewRandomSize(cfg, 2, 0, rng)
	for full.Len() < cfg.MaxProgSize {
		full.Mutate(Rates{Add: 1}, rng)
	}
	if full.Mutate(Rates{Add: 1}, rng) {
		t.Error("add should not fire at max size")
	}

	if full.Mutate(Rates{}, rng) {
		t.Error("zero rates should never change a program")
	}
}

func TestFromWords_Rejects(t *testing.T) {
	cfg := testConfig()
	if _, err := FromWords(cfg, 1, nil, 0); !errors.Is(err, ErrSize) {
		t.Errorf("empty: err = %v", err)
	}
	long := make([]instruction.Word, cfg.MaxProgSize+1)
	if _, err := FromWords(cfg, 1, long, 0); !errors.Is(err, ErrSize) {
		t.Errorf("too long: err = %v", err)
	}
	wide := []instruction.Word{instruction.Word(1) << cfg.Format.Bits()}
	if _, err := FromWords(cfg, 1, wide, 0); !errors.Is(err, instruction.ErrFieldOverflow) {
		t.Errorf("too wide: err = %v", err)
	}
	if _, err := New(cfg, 1, 0, 0, rand.New(rand.NewSource(1))); !errors.Is(err, ErrSize) {
		t.Errorf("New size 0: err = %v", err)
	}
}

func TestClone_Independent(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(3))
	p := NewRandomSize(cfg, 1, 0, rng)
	p.Reward("t", 4)
	p.Outputs([]float64{1, 2})

	c := p.Clone(9, 3)
	if c.ID != 9 || c.GenCreated != 3 {
		t.Errorf("clone id/gen = %d/%d", c.ID, c.GenCreated)
	}
	if !reflect.DeepEqual(c.Words(), p.Words()) {
		t.Error("clone instructions differ")
	}
	if len(c.Outcomes) != 0 || c.Refs() != 0 {
		t.Error("clone should start without outcomes or references")
	}
	for _, r := range c.Registers() {
		if r != 0 {
			t.Fatal("clone registers should be zero")
		}
	}
	for i := 0; i < 20; i++ {
		c.Mutate(Rates{Add: 1, Mut: 1}, rng)
	}
	if reflect.DeepEqual(c.Words(), p.Words()) {
		t.Error("mutating the clone should not affect the original")
	}
}

func TestCrossover_CutPoint(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		a := NewRandomSize(cfg, 1, 0, rng)
		b := NewRandomSize(cfg, 2, 0, rng)
		c := Crossover(a, b, 3, 1, rng)
		if c.Len() != b.Len() {
			t.Fatalf("child length %d, want %d", c.Len(), b.Len())
		}
		aw, bw, cw := a.Words(), b.Words(), c.Words()
		found := false
		for cut := 0; cut < min(len(aw), len(bw)) && !found; cut++ {
			found = reflect.DeepEqual(cw[:cut], aw[:cut]) && reflect.DeepEqual(cw[cut:], bw[cut:])
		}
		if !found {
			t.Fatalf("child %v is not a[:cut]+b[cut:] of %v and %v", cw, aw, bw)
		}
	}
}

func TestScore_Delegates(t *testing.T) {
	cfg := testConfig()
	p := NewRandomSize(cfg, 1, 0, rand.New(rand.NewSource(1)))
	p.Reward("a", 1)
	p.Reward("a", 2)
	got, err := p.Score([]string{"a"}, score.Min, nil)
	if err != nil || got != 2 {
		t.Errorf("Score = %v, %v; want 2", got, err)
	}
	if _, err := p.Outcome("b"); !errors.Is(err, score.ErrMissingOutcome) {
		t.Errorf("missing outcome err = %v", err)
	}
}

func TestEffective_SkipsForgetOnlyWrites(t *testing.T) {
	cfg := testConfig()
	p := mustProgram(t, cfg,
		mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 5, 0),    // 0: r5 += in0 (feeds 2)
		mustWord(t, cfg, instruction.ModeInput, instruction.OpAdd, 4, 1),    // 1: r4 += in1 (dead)
		mustWord(t, cfg, instruction.ModeRegister, instruction.OpAdd, 0, 5), // 2: r0 += r5
		mustWord(t, cfg, instruction.ModeInput, instruction.OpExp, 4, 0),    // 3: r4 = exp(in0) (dead)
	)
	if got := p.Effective(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Effective = %v, want [0 2]", got)
	}
}
