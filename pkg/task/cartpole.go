package task

import "math"

func init() {
	Register("cartpole", func() Task { return NewCartPole() })
}

const (
	cpGravity    = 9.8
	cpCartMass   = 1.0
	cpPoleMass   = 0.1
	cpHalfLength = 0.5
	cpForce      = 10.0
	cpTau        = 0.02
	cpMaxX       = 2.4
	cpMaxTheta   = 12 * 2 * math.Pi / 360
)

// CartPole is the classic pole-balancing problem. Registers are cleared at
// the start of every episode and persist between steps, so memory registers
// can carry state. The score is the mean number of steps survived over a
// fixed set of start states.
type CartPole struct {
	MaxSteps int
	Starts   [][4]float64 // x, x', θ, θ'
}

// NewCartPole returns the task with its default start states.
func NewCartPole() *CartPole {
	return &CartPole{
		MaxSteps: 500,
		Starts: [][4]float64{
			{0, 0, 0.01, 0},
			{0, 0, -0.03, 0},
			{0.5, 0, 0.02, -0.1},
			{-0.5, 0.1, -0.02, 0.1},
			{0, -0.2, 0.05, 0},
		},
	}
}

func (c *CartPole) Name() string    { return "cartpole" }
func (c *CartPole) NumInputs() int  { return 4 }
func (c *CartPole) NumActions() int { return 2 }

func (c *CartPole) Evaluate(a Agent) float64 {
	if len(c.Starts) == 0 {
		return 0
	}
	total := 0
	for _, s := range c.Starts {
		total += c.episode(a, s)
	}
	return float64(total) / float64(len(c.Starts))
}

func (c *CartPole) episode(a Agent, s [4]float64) int {
	a.ClearRegisters()
	obs := make([]float64, 4)
	for step := 0; step < c.MaxSteps; step++ {
		copy(obs, s[:])
		force := -cpForce
		if choose(a.Act(obs), 2) == 1 {
			force = cpForce
		}
		s = cartPoleStep(s, force)
		if math.Abs(s[0]) > cpMaxX || math.Abs(s[2]) > cpMaxTheta {
			return step + 1
		}
	}
	return c.MaxSteps
}

// cartPoleStep advances the state by one Euler step.
func cartPoleStep(s [4]float64, force float64) [4]float64 {
	x, xDot, theta, thetaDot := s[0], s[1], s[2], s[3]
	total := cpCartMass + cpPoleMass
	poleMassLength := cpPoleMass * cpHalfLength
	cos, sin := math.Cos(theta), math.Sin(theta)

	temp := (force + poleMassLength*thetaDot*thetaDot*sin) / total
	thetaAcc := (cpGravity*sin - cos*temp) /
		(cpHalfLength * (4.0/3.0 - cpPoleMass*cos*cos/total))
	xAcc := temp - poleMassLength*thetaAcc*cos/total

	return [4]float64{
		x + cpTau*xDot,
		xDot + cpTau*xAcc,
		theta + cpTau*thetaDot,
		thetaDot + cpTau*thetaAcc,
	}
}
