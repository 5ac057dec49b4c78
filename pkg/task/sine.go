package task

import "math"

func init() {
	Register("sine", func() Task { return &Sine{Points: 32} })
}

// Sine regresses sin(x) over an even grid on [-π, π]. The score is the
// negated mean absolute error of the first action value.
type Sine struct {
	Points int
}

func (s *Sine) Name() string    { return "sine" }
func (s *Sine) NumInputs() int  { return 1 }
func (s *Sine) NumActions() int { return 1 }

func (s *Sine) Evaluate(a Agent) float64 {
	n := s.Points
	obs := make([]float64, 1)
	var mae float64
	for i := 0; i < n; i++ {
		x := -math.Pi + 2*math.Pi*float64(i)/float64(n-1)
		obs[0] = x
		a.ClearRegisters()
		act := a.Act(obs)
		var y float64
		if len(act) > 0 {
			y = act[0]
		}
		// Accumulate the mean directly so clamped outputs cannot overflow the sum.
		mae += math.Abs(y-math.Sin(x)) / float64(n)
	}
	if math.IsInf(mae, 0) || math.IsNaN(mae) {
		return -math.MaxFloat64
	}
	return -mae
}
