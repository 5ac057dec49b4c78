package task

func init() {
	Register("parity", func() Task { return &Parity{Bits: 3} })
}

// Parity asks whether an odd number of the input bits are set. Each case is
// answered from cleared registers; the score is the fraction answered
// correctly.
type Parity struct {
	Bits int
}

func (p *Parity) Name() string    { return "parity" }
func (p *Parity) NumInputs() int  { return p.Bits }
func (p *Parity) NumActions() int { return 2 }

func (p *Parity) Evaluate(a Agent) float64 {
	cases := 1 << p.Bits
	obs := make([]float64, p.Bits)
	correct := 0
	for c := 0; c < cases; c++ {
		ones := 0
		for b := range obs {
			obs[b] = 0
			if c&(1<<b) != 0 {
				obs[b] = 1
				ones++
			}
		}
		a.ClearRegisters()
		if choose(a.Act(obs), 2) == ones%2 {
			correct++
		}
	}
	return float64(correct) / float64(cases)
}
